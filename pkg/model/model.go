package model

import (
	"errors"
	"fmt"
)

// NodeType represents the role a node plays in failure propagation
type NodeType string

const (
	NodeTypeRootCause    NodeType = "root_cause"   // Primary fault, the diagnosis target
	NodeTypeIntermediate NodeType = "intermediate" // Unobservable physical effect
	NodeTypeObservable   NodeType = "observable"   // Directly measured telemetry quantity
)

// ErrUnknownNodeType is returned when parsing an unrecognized node type
var ErrUnknownNodeType = errors.New("unknown node type")

// ParseNodeType converts the serialized form of a node type
func ParseNodeType(s string) (NodeType, error) {
	switch t := NodeType(s); t {
	case NodeTypeRootCause, NodeTypeIntermediate, NodeTypeObservable:
		return t, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownNodeType)
}

// Node represents a vertex in the causal graph.
type Node struct {
	Name             string   `json:"name" yaml:"name"`
	Type             NodeType `json:"type" yaml:"type"`
	Description      string   `json:"description" yaml:"description"`
	DegradationModes []string `json:"degradationModes,omitempty" yaml:"degradation_modes,omitempty"`
}

// Edge represents "failures in Source cause effects in Target".
type Edge struct {
	Source    string  `json:"source" yaml:"source"`
	Target    string  `json:"target" yaml:"target"`
	Weight    float64 `json:"weight" yaml:"weight"`                       // Strength of the causal relationship, 0-1
	Mechanism string  `json:"mechanism,omitempty" yaml:"mechanism,omitempty"` // How source affects target
}

// Hypothesis is a ranked root cause produced by a single analysis.
// It carries no references back into the graph.
type Hypothesis struct {
	Name        string   `json:"name"`
	Probability float64  `json:"probability"` // Share of the total score, sums to 1 across a result
	Evidence    []string `json:"evidence"`    // Observable deviations supporting this hypothesis
	Mechanism   string   `json:"mechanism"`
	Confidence  float64  `json:"confidence"` // Evidentiary strength, independent of probability
}
