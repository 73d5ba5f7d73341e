package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ritzau/faultgraph/pkg/anomaly"
	"github.com/ritzau/faultgraph/pkg/graph"
	"github.com/ritzau/faultgraph/pkg/logging"
	"github.com/ritzau/faultgraph/pkg/model"
	"github.com/ritzau/faultgraph/pkg/telemetry"
)

// Ranker infers and ranks root causes for a pair of telemetry snapshots.
// It holds no per-analysis state, so one Ranker can serve concurrent calls.
type Ranker struct {
	graph        *graph.CausalGraph
	detector     *anomaly.Detector
	maxDepth     int
	observables  map[string]string
	expected     map[string][]string
	explanations map[string]string
}

// Option configures a Ranker
type Option func(*Ranker)

// WithThreshold sets the fractional deviation threshold for anomaly detection
func WithThreshold(threshold float64) Option {
	return func(r *Ranker) {
		r.detector = anomaly.NewDetector(threshold)
	}
}

// WithMaxDepth bounds the length of traced causal paths
func WithMaxDepth(depth int) Option {
	return func(r *Ranker) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithObservableNode maps a telemetry quantity to an observable graph node
func WithObservableNode(quantity, node string) Option {
	return func(r *Ranker) {
		r.observables[quantity] = node
	}
}

// WithExpectation sets the anomalies a root cause is expected to produce and
// the explanation shown for it
func WithExpectation(rootCause, explanation string, anomalies ...string) Option {
	return func(r *Ranker) {
		r.expected[rootCause] = anomalies
		if explanation != "" {
			r.explanations[rootCause] = explanation
		}
	}
}

// NewRanker creates a ranker over the given knowledge base
func NewRanker(g *graph.CausalGraph, opts ...Option) *Ranker {
	r := &Ranker{
		graph:        g,
		detector:     anomaly.NewDetector(anomaly.DefaultThreshold),
		maxDepth:     graph.DefaultMaxDepth,
		observables:  copyTable(observableNodes),
		expected:     copyTable(expectedAnomalies),
		explanations: copyTable(explanations),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the deviation threshold used for anomaly detection
func (r *Ranker) Threshold() float64 {
	return r.detector.Threshold
}

// Detect finds the anomalous series between two snapshots
func (r *Ranker) Detect(nominal, degraded *telemetry.Record) (*anomaly.Set, error) {
	pairs, err := telemetry.Pairs(nominal, degraded)
	if err != nil {
		return nil, fmt.Errorf("failed to pair telemetry: %w", err)
	}
	return r.detector.Detect(pairs), nil
}

// Analyze compares nominal and degraded telemetry and returns root cause
// hypotheses ordered by probability, highest first. An empty result means
// no diagnosis is available.
func (r *Ranker) Analyze(nominal, degraded *telemetry.Record) ([]model.Hypothesis, error) {
	anomalies, err := r.Detect(nominal, degraded)
	if err != nil {
		return nil, err
	}
	return r.AnalyzeAnomalies(anomalies), nil
}

// accumulator sums scores per root cause in first-seen order
type accumulator struct {
	order    []string
	scores   map[string]float64
	evidence map[string][]string
}

// AnalyzeAnomalies ranks root causes for an already detected anomaly set. A
// nil set ranks like an empty one.
func (r *Ranker) AnalyzeAnomalies(anomalies *anomaly.Set) []model.Hypothesis {
	logging.Debug("ranking root causes", "anomalies", anomalies.Len(), "threshold", r.detector.Threshold)

	acc := &accumulator{
		scores:   make(map[string]float64),
		evidence: make(map[string][]string),
	}
	for _, a := range anomalies.All() {
		for _, c := range r.Trace(a, anomalies) {
			if _, seen := acc.scores[c.RootCause]; !seen {
				acc.order = append(acc.order, c.RootCause)
			}
			acc.scores[c.RootCause] += c.Score
			acc.evidence[c.RootCause] = append(acc.evidence[c.RootCause], a.Observable+" deviation")
		}
	}

	total := 0.0
	for _, cause := range acc.order {
		total += acc.scores[cause]
	}

	hypotheses := make([]model.Hypothesis, 0, len(acc.order))
	if total == 0 {
		logging.Debug("no root cause explains the observations")
		return hypotheses
	}

	for _, cause := range acc.order {
		score := acc.scores[cause]
		if score == 0 {
			continue
		}
		evidence := acc.evidence[cause]
		hypotheses = append(hypotheses, model.Hypothesis{
			Name:        cause,
			Probability: score / total,
			Evidence:    evidence,
			Mechanism:   r.Explain(cause, evidence),
			Confidence:  r.Confidence(cause, evidence, anomalies),
		})
	}

	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].Probability > hypotheses[j].Probability
	})

	if len(hypotheses) > 0 {
		logging.Debug("ranked root causes", "hypotheses", len(hypotheses),
			"top", hypotheses[0].Name, "probability", hypotheses[0].Probability)
	}
	return hypotheses
}

// Confidence scores the evidence behind a hypothesis independently of its
// probability. The evidence bonus saturates at three observations.
func (r *Ranker) Confidence(rootCause string, evidence []string, anomalies *anomaly.Set) float64 {
	confidence := 0.5 + 0.15*float64(min(len(evidence), 3)) + 0.2*r.Consistency(rootCause, anomalies)
	return math.Max(0, math.Min(1, confidence))
}

// Explain renders the mechanism text for a root cause and its evidence
func (r *Ranker) Explain(rootCause string, evidence []string) string {
	base, ok := r.explanations[rootCause]
	if !ok {
		base = unknownMechanism
	}
	if len(evidence) == 0 {
		return base
	}
	return base + "\nEvidence: " + strings.Join(evidence, "; ")
}
