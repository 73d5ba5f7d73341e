package analysis

import (
	"github.com/ritzau/faultgraph/pkg/anomaly"
	"github.com/ritzau/faultgraph/pkg/logging"
)

// Contribution is the score one anomalous observable lends a root cause
type Contribution struct {
	RootCause string
	Score     float64
	Paths     int // Number of causal paths that reached the root cause
}

// ObservableNode returns the graph node for a telemetry quantity. Names
// without a mapping are used as node names directly.
func (r *Ranker) ObservableNode(observable string) string {
	if node, ok := r.observables[observable]; ok {
		return node
	}
	return observable
}

// Consistency is the fraction of a root cause's expected anomalies that
// were observed. Causes without expectations score a neutral 0.5.
func (r *Ranker) Consistency(rootCause string, anomalies *anomaly.Set) float64 {
	expected := r.expected[rootCause]
	if len(expected) == 0 {
		return 0.5
	}

	seen := make(map[string]bool, len(expected))
	matched := 0
	for _, name := range expected {
		if seen[name] {
			continue
		}
		seen[name] = true
		if anomalies.Has(name) {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

// Trace follows one anomalous observable back to its root causes. Each path
// scores strength * severity * (0.5 + 0.5*consistency), and scores from
// multiple paths to the same root cause are summed. Contributions are
// returned in the order root causes were first reached.
func (r *Ranker) Trace(a anomaly.Anomaly, anomalies *anomaly.Set) []Contribution {
	node := r.ObservableNode(a.Observable)
	paths := r.graph.PathsToRoot(node, r.maxDepth)

	var contributions []Contribution
	index := make(map[string]int)
	for _, path := range paths {
		root := path[0]
		strength := r.graph.PathStrength(path)
		consistency := r.Consistency(root, anomalies)
		score := strength * a.Severity * (0.5 + 0.5*consistency)

		i, ok := index[root]
		if !ok {
			i = len(contributions)
			index[root] = i
			contributions = append(contributions, Contribution{RootCause: root})
		}
		contributions[i].Score += score
		contributions[i].Paths++
	}

	logging.Trace("traced observable", "observable", a.Observable, "node", node,
		"paths", len(paths), "rootCauses", len(contributions))
	return contributions
}
