package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ritzau/faultgraph/pkg/model"
)

func publishN(t *testing.T, pub *SSEPublisher, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if err := pub.Publish(TopicDiagnoses, "diagnosed", map[string]int{"num": i}); err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}
}

func TestEventBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicDiagnoses, TopicConfig{BufferSize: 3, ReplayAll: true})
	publishN(t, pub, 5)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicDiagnoses)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive last 3 events (3, 4, 5)
	for want := 3; want <= 5; want++ {
		select {
		case event := <-sub.Events():
			if event.Version != want {
				t.Errorf("Expected version %d, got %d", want, event.Version)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", want)
		}
	}
}

func TestReplayCappedAtSubscriberBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	total := subscriberBuffer + 50
	pub.ConfigureTopic(TopicDiagnoses, TopicConfig{BufferSize: total, ReplayAll: true})
	publishN(t, pub, total)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	subscribed := make(chan Subscription, 1)
	go func() {
		sub, err := pub.Subscribe(ctx, TopicDiagnoses)
		if err != nil {
			t.Errorf("Failed to subscribe: %v", err)
		}
		subscribed <- sub
	}()

	var sub Subscription
	select {
	case sub = <-subscribed:
	case <-time.After(time.Second):
		t.Fatal("Subscribe blocked while replaying")
	}
	if sub == nil {
		return
	}
	defer sub.Close()

	// Only the newest events that fit the channel are replayed
	for want := total - subscriberBuffer + 1; want <= total; want++ {
		select {
		case event := <-sub.Events():
			if event.Version != want {
				t.Fatalf("Expected version %d, got %d", want, event.Version)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", want)
		}
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicDiagnoses, TopicConfig{BufferSize: 5, ReplayAll: false})
	publishN(t, pub, 3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicDiagnoses)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	publishN(t, pub, 3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicDiagnoses)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}

	// A new event is delivered
	publishN(t, pub, 1)
	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestSubscriptionClosesOnCancel(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := pub.Subscribe(ctx, TopicDiagnoses)
	if err != nil {
		t.Fatal(err)
	}
	if got := pub.Subscribers(TopicDiagnoses); got != 1 {
		t.Fatalf("Subscribers = %d, want 1", got)
	}

	cancel()
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("Expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("Subscription was not closed on cancel")
	}
	if got := pub.Subscribers(TopicDiagnoses); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}

	// Closing again is harmless
	if err := sub.Close(); err != nil {
		t.Error(err)
	}
}

func TestClosedPublisher(t *testing.T) {
	pub := NewSSEPublisher()
	sub, err := pub.Subscribe(context.Background(), TopicDiagnoses)
	if err != nil {
		t.Fatal(err)
	}

	pub.Close()
	if _, ok := <-sub.Events(); ok {
		t.Error("Expected subscriber channel to be closed")
	}
	sub.Close()

	if err := pub.Publish(TopicDiagnoses, "diagnosed", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish error = %v, want ErrClosed", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicDiagnoses); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe error = %v, want ErrClosed", err)
	}
}

func TestWriteSSE(t *testing.T) {
	diag := DiagnosisEvent{
		ID:         "abc",
		Anomalies:  []string{"solar_input"},
		Hypotheses: []model.Hypothesis{{Name: "solar_degradation", Probability: 1}},
	}
	data, _ := json.Marshal(diag)

	var buf bytes.Buffer
	err := WriteSSE(&buf, Event{Topic: TopicDiagnoses, Type: diag.EventType(), Data: data, Version: 1})
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "data: {") || !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("unexpected SSE framing: %q", out)
	}
	if !strings.Contains(out, `"type":"diagnosed"`) || !strings.Contains(out, `"solar_degradation"`) {
		t.Errorf("missing payload: %q", out)
	}

	if got := (DiagnosisEvent{}).EventType(); got != "no_diagnosis" {
		t.Errorf("EventType() = %q, want no_diagnosis", got)
	}
}
