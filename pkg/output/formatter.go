package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/faultgraph/pkg/anomaly"
	"github.com/ritzau/faultgraph/pkg/cycles"
	"github.com/ritzau/faultgraph/pkg/dsep"
	"github.com/ritzau/faultgraph/pkg/graph"
	"github.com/ritzau/faultgraph/pkg/model"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

const (
	wide   = 70
	widest = 80
)

func rule(w io.Writer, ch string, n int) {
	fmt.Fprintln(w, strings.Repeat(ch, n))
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// PrintDiagnosis prints the detected anomalies followed by the ranked root
// cause hypotheses
func PrintDiagnosis(w io.Writer, anomalies *anomaly.Set, hypotheses []model.Hypothesis) {
	fmt.Fprintln(w)
	rule(w, "=", wide)
	bold.Fprintln(w, "ROOT CAUSE RANKING ANALYSIS")
	rule(w, "=", wide)

	if anomalies != nil && anomalies.Len() > 0 {
		fmt.Fprintln(w, "\nDetected anomalies:")
		for _, a := range anomalies.All() {
			yellow.Fprintf(w, "  %-20s deviation=%6s  severity=%.2f\n",
				a.Observable, percent(a.FractionalDeviation), a.Severity)
		}
	}

	if len(hypotheses) == 0 {
		green.Fprintln(w, "\nNo significant root causes detected.")
		return
	}

	// Ranked summary
	fmt.Fprintln(w, "\nMost Likely Root Causes (by posterior probability):")
	fmt.Fprintln(w)
	for rank, h := range hypotheses {
		c := cyan
		if rank == 0 {
			c = red
		}
		c.Fprintf(w, "%d. %-25s P=%6s  Confidence=%6s\n",
			rank+1, h.Name, percent(h.Probability), percent(h.Confidence))
	}

	// Detailed explanations
	fmt.Fprintln(w)
	rule(w, "-", wide)
	bold.Fprintln(w, "DETAILED EXPLANATIONS:")
	fmt.Fprintln(w)
	for _, h := range hypotheses {
		bold.Fprintf(w, "• %s (P=%s)\n", h.Name, percent(h.Probability))
		fmt.Fprintf(w, "  Evidence: %s\n", strings.Join(h.Evidence, ", "))
		fmt.Fprintf(w, "  Mechanism: %s\n", h.Mechanism)
		fmt.Fprintln(w)
	}
	rule(w, "=", wide)
}

// PrintGraphStructure prints nodes grouped by type and every causal edge
func PrintGraphStructure(w io.Writer, cg *graph.CausalGraph) {
	fmt.Fprintln(w)
	rule(w, "=", wide)
	bold.Fprintln(w, "CAUSAL GRAPH STRUCTURE")
	rule(w, "=", wide)

	groups := []struct {
		nodeType model.NodeType
		names    []string
	}{
		{model.NodeTypeRootCause, cg.RootCauses()},
		{model.NodeTypeIntermediate, cg.Intermediates()},
		{model.NodeTypeObservable, cg.Observables()},
	}
	for _, group := range groups {
		if len(group.names) == 0 {
			continue
		}
		names := group.names
		sort.Strings(names)

		cyan.Fprintf(w, "\n%s:\n", strings.ToUpper(string(group.nodeType)))
		for _, name := range names {
			node, _ := cg.Node(name)
			fmt.Fprintf(w, "  • %-25s - %s\n", name, node.Description)
			if len(node.DegradationModes) > 0 {
				fmt.Fprintf(w, "    Modes: %s\n", strings.Join(node.DegradationModes, ", "))
			}
		}
	}

	edges := cg.Edges()
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Source < edges[j].Source
	})
	cyan.Fprintln(w, "\nCAUSAL EDGES:")
	for _, e := range edges {
		fmt.Fprintf(w, "  %-25s → %-25s (weight=%.2f)\n", e.Source, e.Target, e.Weight)
		if e.Mechanism != "" {
			fmt.Fprintf(w, "    Mechanism: %s\n", e.Mechanism)
		}
	}
	rule(w, "=", wide)
}

// PrintPaths prints causal paths observable-first with their strengths
func PrintPaths(w io.Writer, cg *graph.CausalGraph, node string, paths [][]string) {
	bold.Fprintf(w, "Paths from %s back to root causes:\n", node)
	if len(paths) == 0 {
		yellow.Fprintln(w, "  (none)")
		return
	}
	for i, path := range paths {
		reversed := make([]string, len(path))
		for j, name := range path {
			reversed[len(path)-1-j] = name
		}
		fmt.Fprintf(w, "  Path %d: %s ", i+1, strings.Join(reversed, " ← "))
		cyan.Fprintf(w, "(strength=%.3f)\n", cg.PathStrength(path))
	}
}

// PrintDSeparationReport prints one block per d-separation case
func PrintDSeparationReport(w io.Writer, results []dsep.AssumptionResult) {
	fmt.Fprintln(w)
	rule(w, "=", widest)
	bold.Fprintln(w, "d-SEPARATION ANALYSIS: VALIDATING CAUSAL STRUCTURE")
	rule(w, "=", widest)
	fmt.Fprintln(w, "\nKEY d-SEPARATION TESTS:")
	rule(w, "-", widest)

	for _, r := range results {
		condition := "unconditional"
		if len(r.Given) > 0 {
			condition = "given {" + strings.Join(r.Given, ", ") + "}"
		}

		fmt.Fprintf(w, "\n%s\n", r.Description)
		fmt.Fprintf(w, "  X: %s\n", r.X)
		fmt.Fprintf(w, "  Z: %s\n", r.Z)
		fmt.Fprintf(w, "  Condition: %s\n", condition)
		switch {
		case r.Err != nil:
			red.Fprintf(w, "  Error: %v\n", r.Err)
		case r.Separated:
			green.Fprintln(w, "  d-Separated: ✓ YES")
		default:
			yellow.Fprintln(w, "  d-Separated: ✗ NO")
		}
		switch {
		case r.NoPaths:
			fmt.Fprintln(w, "  Blocking nodes: NO_PATHS")
		case len(r.BlockingNodes) > 0:
			fmt.Fprintf(w, "  Blocking nodes: %s\n", strings.Join(r.BlockingNodes, ", "))
		}
	}
	fmt.Fprintln(w)
	rule(w, "=", widest)
}

// PrintAssumptions prints the assumption checklist and a verdict
func PrintAssumptions(w io.Writer, results []dsep.AssumptionResult) {
	fmt.Fprintln(w)
	rule(w, "=", widest)
	bold.Fprintln(w, "ASSUMPTION VALIDATION")
	rule(w, "=", widest)

	for _, r := range results {
		if r.Valid() {
			fmt.Fprintf(w, "  %-40s ", r.Name)
			green.Fprintln(w, "✓ VALID")
		} else {
			fmt.Fprintf(w, "  %-40s ", r.Name)
			red.Fprintln(w, "✗ INVALID")
		}
	}

	fmt.Fprintln(w)
	if dsep.AllValid(results) {
		green.Fprintln(w, "✓ All causal assumptions validated!")
	} else {
		red.Fprintln(w, "✗ Some assumptions failed validation.")
		fmt.Fprintln(w, "  Review causal graph structure.")
	}
}

// PrintFeedbackLoops lists cycles found in the knowledge base
func PrintFeedbackLoops(w io.Writer, loops []cycles.FeedbackLoop) {
	if len(loops) == 0 {
		green.Fprintln(w, "✓ Knowledge base is acyclic")
		return
	}
	yellow.Fprintf(w, "Feedback loops: %d\n", len(loops))
	for _, loop := range loops {
		fmt.Fprintf(w, "  %s\n", strings.Join(loop.Nodes, " ↔ "))
	}
}
