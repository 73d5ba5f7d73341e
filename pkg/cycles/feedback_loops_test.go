package cycles

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	causal "github.com/ritzau/faultgraph/pkg/graph"
	"github.com/ritzau/faultgraph/pkg/model"
)

func chain(t *testing.T, edges ...[2]string) *causal.CausalGraph {
	t.Helper()
	cg := causal.New()
	for _, e := range edges {
		for _, n := range e {
			if !cg.HasNode(n) {
				cg.AddNode(n, model.NodeTypeIntermediate, "")
			}
		}
		if err := cg.AddEdge(e[0], e[1], 1, ""); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", e[0], e[1], err)
		}
	}
	return cg
}

func TestFindFeedbackLoops_NoCycles(t *testing.T) {
	// A simple acyclic chain: A -> B -> C
	cg := chain(t, [2]string{"a", "b"}, [2]string{"b", "c"})

	loops := FindFeedbackLoops(cg)
	if len(loops) != 0 {
		t.Errorf("Expected no loops, but found %d", len(loops))
	}
	if !IsAcyclic(cg) {
		t.Error("Expected chain to be acyclic")
	}
}

func TestFindFeedbackLoops_SimpleCycle(t *testing.T) {
	// A -> B -> A
	cg := chain(t, [2]string{"a", "b"}, [2]string{"b", "a"})

	loops := FindFeedbackLoops(cg)
	if len(loops) != 1 {
		t.Fatalf("Expected 1 loop, but found %d", len(loops))
	}
	if diff := cmp.Diff([]string{"a", "b"}, loops[0].Nodes); diff != "" {
		t.Errorf("loop mismatch (-want +got):\n%s", diff)
	}
	if IsAcyclic(cg) {
		t.Error("Expected cyclic graph to be reported as cyclic")
	}
}

func TestFindFeedbackLoops_MultipleCycles(t *testing.T) {
	// Two separate loops: A <-> B and C -> D -> E -> C, joined by B -> C
	cg := chain(t,
		[2]string{"a", "b"}, [2]string{"b", "a"},
		[2]string{"b", "c"},
		[2]string{"c", "d"}, [2]string{"d", "e"}, [2]string{"e", "c"},
	)

	loops := FindFeedbackLoops(cg)
	want := []FeedbackLoop{
		{Nodes: []string{"a", "b"}},
		{Nodes: []string{"c", "d", "e"}},
	}
	if diff := cmp.Diff(want, loops); diff != "" {
		t.Errorf("loops mismatch (-want +got):\n%s", diff)
	}
}

func TestFindFeedbackLoops_DefaultKnowledgeBase(t *testing.T) {
	cg := causal.MustDefault()

	loops := FindFeedbackLoops(cg)
	want := []FeedbackLoop{
		{Nodes: []string{"battery_efficiency", "battery_state", "battery_temp"}},
	}
	if diff := cmp.Diff(want, loops); diff != "" {
		t.Errorf("loops mismatch (-want +got):\n%s", diff)
	}
}
