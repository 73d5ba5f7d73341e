package cycles

import (
	"sort"

	causal "github.com/ritzau/faultgraph/pkg/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// FeedbackLoop is a set of causal nodes that influence each other in a cycle
type FeedbackLoop struct {
	Nodes []string `json:"nodes"` // Node names, sorted
}

// FindFeedbackLoops finds all cycles in the causal graph. Loops are
// returned sorted by their first node name.
func FindFeedbackLoops(cg *causal.CausalGraph) []FeedbackLoop {
	components := newLoopFinder(cg).find()

	loops := make([]FeedbackLoop, 0, len(components))
	for _, names := range components {
		sort.Strings(names)
		loops = append(loops, FeedbackLoop{Nodes: names})
	}

	sort.Slice(loops, func(i, j int) bool {
		return loops[i].Nodes[0] < loops[j].Nodes[0]
	})
	return loops
}

// IsAcyclic reports whether the causal graph is a DAG
func IsAcyclic(cg *causal.CausalGraph) bool {
	_, err := topo.Sort(cg.Graph())
	return err == nil
}
