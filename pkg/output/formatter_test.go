package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/ritzau/faultgraph/pkg/anomaly"
	"github.com/ritzau/faultgraph/pkg/cycles"
	"github.com/ritzau/faultgraph/pkg/dsep"
	"github.com/ritzau/faultgraph/pkg/graph"
	"github.com/ritzau/faultgraph/pkg/model"
)

func init() {
	color.NoColor = true
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDiagnosis(t *testing.T) {
	anomalies := anomaly.NewSet(anomaly.Anomaly{Observable: "solar_input", FractionalDeviation: 0.24, Severity: 0.48})
	hypotheses := []model.Hypothesis{
		{
			Name:        "solar_degradation",
			Probability: 0.75,
			Evidence:    []string{"solar_input deviation"},
			Mechanism:   "Solar panel degradation.\nEvidence: solar_input deviation",
			Confidence:  0.7167,
		},
		{Name: "battery_aging", Probability: 0.25, Evidence: []string{"battery_charge deviation"}, Confidence: 0.65},
	}

	var buf bytes.Buffer
	PrintDiagnosis(&buf, anomalies, hypotheses)

	assertContains(t, buf.String(),
		"ROOT CAUSE RANKING ANALYSIS",
		"solar_input          deviation= 24.0%  severity=0.48",
		"1. solar_degradation         P= 75.0%  Confidence= 71.7%",
		"2. battery_aging             P= 25.0%",
		"• solar_degradation (P=75.0%)",
		"  Evidence: solar_input deviation",
	)
}

func TestPrintDiagnosis_Empty(t *testing.T) {
	var buf bytes.Buffer
	PrintDiagnosis(&buf, anomaly.NewSet(), nil)
	assertContains(t, buf.String(), "No significant root causes detected.")
}

func TestPrintGraphStructure(t *testing.T) {
	var buf bytes.Buffer
	PrintGraphStructure(&buf, graph.MustDefault())

	out := buf.String()
	assertContains(t, out,
		"ROOT_CAUSE:",
		"INTERMEDIATE:",
		"OBSERVABLE:",
		"Modes: panel_aging, dust_accumulation, partial_shadowing",
		"(weight=0.95)",
		"CAUSAL EDGES:",
	)

	// Root causes are listed alphabetically
	if strings.Index(out, "battery_aging") > strings.Index(out, "solar_degradation") {
		t.Error("Expected battery_aging before solar_degradation")
	}
	if got := strings.Count(out, " → "); got != 29 {
		t.Errorf("Expected 29 edges, got %d", got)
	}
}

func TestPrintPaths(t *testing.T) {
	cg := graph.MustDefault()
	var buf bytes.Buffer
	PrintPaths(&buf, cg, "solar_input_measured", cg.PathsToRoot("solar_input_measured", graph.DefaultMaxDepth))

	assertContains(t, buf.String(),
		"Path 1: solar_input_measured ← solar_input ← solar_degradation (strength=0.950)")
}

func TestPrintDSeparation(t *testing.T) {
	a := dsep.New(graph.MustDefault(), 0)

	var buf bytes.Buffer
	PrintDSeparationReport(&buf, a.Check(dsep.ReportCases))
	assertContains(t, buf.String(),
		"Condition: given {battery_state}",
		"Blocking nodes: battery_state",
		"Blocking nodes: NO_PATHS",
		"d-Separated: ✗ NO",
	)

	buf.Reset()
	PrintAssumptions(&buf, a.ValidateAssumptions())
	assertContains(t, buf.String(), "solar_mediated_by_battery", "✓ VALID", "All causal assumptions validated!")
}

func TestPrintFeedbackLoops(t *testing.T) {
	var buf bytes.Buffer
	PrintFeedbackLoops(&buf, cycles.FindFeedbackLoops(graph.MustDefault()))
	assertContains(t, buf.String(), "Feedback loops: 1", "battery_efficiency ↔ battery_state ↔ battery_temp")

	buf.Reset()
	PrintFeedbackLoops(&buf, nil)
	assertContains(t, buf.String(), "acyclic")
}
