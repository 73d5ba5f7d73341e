package pubsub

import (
	"context"
	"encoding/json"

	"github.com/ritzau/faultgraph/pkg/model"
)

// TopicDiagnoses carries one event per completed diagnosis
const TopicDiagnoses = "diagnoses"

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "diagnoses")
	Type    string          `json:"type"`    // Event type (e.g., "diagnosed", "no_diagnosis")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events. It is closed when the
	// subscription or the publisher is closed.
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// DiagnosisEvent summarises one diagnosis for subscribers
type DiagnosisEvent struct {
	ID         string             `json:"id"`
	Anomalies  []string           `json:"anomalies"`
	Hypotheses []model.Hypothesis `json:"hypotheses"`
}

// EventType classifies a diagnosis for the event stream
func (e DiagnosisEvent) EventType() string {
	if len(e.Hypotheses) == 0 {
		return "no_diagnosis"
	}
	return "diagnosed"
}
