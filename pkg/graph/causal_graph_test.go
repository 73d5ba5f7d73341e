package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/faultgraph/pkg/model"
)

func TestNewCausalGraph(t *testing.T) {
	cg := New()
	if cg == nil {
		t.Fatal("New() returned nil")
	}

	if len(cg.Nodes()) != 0 {
		t.Errorf("New graph should have 0 nodes, got %d", len(cg.Nodes()))
	}
	if len(cg.Edges()) != 0 {
		t.Errorf("New graph should have 0 edges, got %d", len(cg.Edges()))
	}
}

func TestAddNode(t *testing.T) {
	cg := New()

	cg.AddNode("solar_degradation", model.NodeTypeRootCause, "Solar panel efficiency loss", "panel_aging")

	node, exists := cg.Node("solar_degradation")
	if !exists {
		t.Fatal("Node not found in graph")
	}
	if node.Type != model.NodeTypeRootCause {
		t.Errorf("Expected type root_cause, got %s", node.Type)
	}
	if diff := cmp.Diff([]string{"panel_aging"}, node.DegradationModes); diff != "" {
		t.Errorf("degradation modes mismatch (-want +got):\n%s", diff)
	}
}

func TestAddNodeOverwritesAndKeepsEdges(t *testing.T) {
	cg := New()
	cg.AddNode("a", model.NodeTypeRootCause, "first")
	cg.AddNode("b", model.NodeTypeObservable, "")
	if err := cg.AddEdge("a", "b", 0.5, ""); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	cg.AddNode("a", model.NodeTypeIntermediate, "second")

	node, _ := cg.Node("a")
	if node.Description != "second" || node.Type != model.NodeTypeIntermediate {
		t.Errorf("Expected overwritten node, got %+v", node)
	}
	if len(cg.Nodes()) != 2 {
		t.Errorf("Expected 2 nodes after overwrite, got %d", len(cg.Nodes()))
	}
	if w := cg.Children("a")["b"]; w != 0.5 {
		t.Errorf("Expected edge to survive overwrite with weight 0.5, got %v", w)
	}
}

func TestAddEdge(t *testing.T) {
	cg := New()
	cg.AddNode("cause", model.NodeTypeRootCause, "")
	cg.AddNode("effect", model.NodeTypeObservable, "")

	if err := cg.AddEdge("cause", "effect", 0.8, "because"); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}

	edges := cg.Edges()
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(edges))
	}
	want := &model.Edge{Source: "cause", Target: "effect", Weight: 0.8, Mechanism: "because"}
	if diff := cmp.Diff(want, edges[0]); diff != "" {
		t.Errorf("edge mismatch (-want +got):\n%s", diff)
	}

	if w, ok := cg.Weight("cause", "effect"); !ok || w != 0.8 {
		t.Errorf("Weight(cause, effect) = %v, %v; want 0.8, true", w, ok)
	}
	if _, ok := cg.Weight("effect", "cause"); ok {
		t.Error("Edges should be directional")
	}
}

func TestAddEdgeErrors(t *testing.T) {
	tests := []struct {
		name           string
		source, target string
		weight         float64
		wantErr        error
	}{
		{"missing source", "ghost", "b", 0.5, ErrUnknownNode},
		{"missing target", "a", "ghost", 0.5, ErrUnknownNode},
		{"self loop", "a", "a", 0.5, ErrSelfLoop},
		{"negative weight", "a", "b", -0.1, ErrInvalidWeight},
		{"weight above one", "a", "b", 1.1, ErrInvalidWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cg := New()
			cg.AddNode("a", model.NodeTypeRootCause, "")
			cg.AddNode("b", model.NodeTypeObservable, "")

			err := cg.AddEdge(tt.source, tt.target, tt.weight, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddEdge() error = %v, want %v", err, tt.wantErr)
			}
			if len(cg.Edges()) != 0 {
				t.Errorf("Failed AddEdge must not add an edge, got %d", len(cg.Edges()))
			}
		})
	}
}

func TestAddEdgeReplacesExistingPair(t *testing.T) {
	cg := New()
	cg.AddNode("a", model.NodeTypeRootCause, "")
	cg.AddNode("b", model.NodeTypeObservable, "")
	_ = cg.AddEdge("a", "b", 0.3, "old")
	_ = cg.AddEdge("a", "b", 0.9, "new")

	if len(cg.Edges()) != 1 {
		t.Fatalf("Expected 1 edge after replacement, got %d", len(cg.Edges()))
	}
	if e := cg.Edges()[0]; e.Weight != 0.9 || e.Mechanism != "new" {
		t.Errorf("Expected replaced edge, got %+v", e)
	}
	if w := cg.Parents("b")["a"]; w != 0.9 {
		t.Errorf("Parents(b)[a] = %v, want 0.9", w)
	}
}

func TestParentsAndChildren(t *testing.T) {
	cg := MustDefault()

	parents := cg.Parents("battery_state")
	want := map[string]float64{"solar_input": 0.9, "battery_efficiency": 0.85}
	if diff := cmp.Diff(want, parents); diff != "" {
		t.Errorf("Parents(battery_state) mismatch (-want +got):\n%s", diff)
	}

	children := cg.Children("battery_state")
	if len(children) != 6 {
		t.Errorf("Expected battery_state to have 6 children, got %d: %v", len(children), children)
	}

	if got := cg.Parents("no_such_node"); len(got) != 0 {
		t.Errorf("Parents of unknown node should be empty, got %v", got)
	}
}

func TestDefaultKnowledgeBase(t *testing.T) {
	cg := MustDefault()

	counts := cg.Snapshot().CountByType()
	if counts[model.NodeTypeRootCause] != 7 {
		t.Errorf("Expected 7 root causes, got %d", counts[model.NodeTypeRootCause])
	}
	if counts[model.NodeTypeIntermediate] != 8 {
		t.Errorf("Expected 8 intermediates, got %d", counts[model.NodeTypeIntermediate])
	}
	if counts[model.NodeTypeObservable] != 8 {
		t.Errorf("Expected 8 observables, got %d", counts[model.NodeTypeObservable])
	}
	if len(cg.Edges()) != 29 {
		t.Errorf("Expected 29 edges, got %d", len(cg.Edges()))
	}

	// Every edge references existing nodes
	for _, e := range cg.Edges() {
		if !cg.HasNode(e.Source) {
			t.Errorf("Edge source %q not in graph", e.Source)
		}
		if !cg.HasNode(e.Target) {
			t.Errorf("Edge target %q not in graph", e.Target)
		}
	}

	// Root causes have no parents
	for _, rc := range cg.RootCauses() {
		if len(cg.Parents(rc)) != 0 {
			t.Errorf("Root cause %s should have no parents", rc)
		}
	}

	if got := cg.RootCauses()[0]; got != "solar_degradation" {
		t.Errorf("Expected root causes in authoring order, first is %s", got)
	}
}

func TestFromModelRejectsBadInput(t *testing.T) {
	g := model.NewGraph()
	g.Nodes = append(g.Nodes, &model.Node{Name: "a", Type: "fault"})
	if _, err := FromModel(g); !errors.Is(err, model.ErrUnknownNodeType) {
		t.Errorf("Expected ErrUnknownNodeType, got %v", err)
	}

	g = model.NewGraph()
	g.Nodes = append(g.Nodes, &model.Node{Name: "a", Type: model.NodeTypeRootCause})
	g.Edges = append(g.Edges, &model.Edge{Source: "a", Target: "b", Weight: 1})
	if _, err := FromModel(g); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode, got %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	cg := MustDefault()
	snap := cg.Snapshot()
	snap.Edges[0].Weight = 0

	if w, _ := cg.Weight(snap.Edges[0].Source, snap.Edges[0].Target); w == 0 {
		t.Error("Mutating a snapshot must not change the graph")
	}
}
