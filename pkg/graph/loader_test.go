package graph

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/faultgraph/pkg/model"
)

const sampleKB = `
nodes:
  - name: fan_failure
    type: root_cause
    description: Cooling fan stopped
    degradation_modes: [bearing_wear]
  - name: airflow
    type: intermediate
    description: Air flow through the enclosure
  - name: cpu_temp_measured
    type: observable
    description: Measured CPU temperature
edges:
  - source: fan_failure
    target: airflow
    weight: 0.9
    mechanism: No forced convection
  - source: airflow
    target: cpu_temp_measured
`

func TestLoad(t *testing.T) {
	cg, err := Load(strings.NewReader(sampleKB))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if diff := cmp.Diff([]string{"fan_failure"}, cg.RootCauses()); diff != "" {
		t.Errorf("RootCauses mismatch (-want +got):\n%s", diff)
	}

	// Omitted weight defaults to full strength
	if w, ok := cg.Weight("airflow", "cpu_temp_measured"); !ok || w != 1.0 {
		t.Errorf("Expected default weight 1.0, got %v (ok=%v)", w, ok)
	}

	node, _ := cg.Node("fan_failure")
	if diff := cmp.Diff([]string{"bearing_wear"}, node.DegradationModes); diff != "" {
		t.Errorf("degradation modes mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name: "dangling edge",
			input: `
nodes:
  - {name: a, type: root_cause, description: ""}
edges:
  - {source: a, target: b}
`,
			wantErr: ErrUnknownNode,
		},
		{
			name: "unknown type",
			input: `
nodes:
  - {name: a, type: fault, description: ""}
`,
			wantErr: model.ErrUnknownNodeType,
		},
		{
			name: "bad weight",
			input: `
nodes:
  - {name: a, type: root_cause, description: ""}
  - {name: b, type: observable, description: ""}
edges:
  - {source: a, target: b, weight: 2}
`,
			wantErr: ErrInvalidWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	input := `
nodes:
  - {name: a, type: root_cause, description: "", colour: red}
`
	if _, err := Load(strings.NewReader(input)); err == nil {
		t.Error("Expected an error for an unknown field")
	}
}

func TestLoadEmpty(t *testing.T) {
	if _, err := Load(strings.NewReader("")); err == nil {
		t.Error("Expected an error for an empty knowledge base")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	original := MustDefault()

	var buf bytes.Buffer
	if err := original.Marshal(&buf); err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load() of marshalled graph failed: %v", err)
	}

	if diff := cmp.Diff(original.Snapshot(), loaded.Snapshot()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
