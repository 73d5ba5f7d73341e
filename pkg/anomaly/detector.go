package anomaly

import (
	"math"

	"github.com/ritzau/faultgraph/pkg/logging"
	"github.com/ritzau/faultgraph/pkg/telemetry"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultThreshold is the fractional deviation above which a series is anomalous
	DefaultThreshold = 0.15
	// saturation is the fractional deviation at which severity reaches 1
	saturation = 0.5
)

// Anomaly is a series that deviated from nominal beyond the threshold
type Anomaly struct {
	Observable          string  `json:"observable"`
	FractionalDeviation float64 `json:"fractionalDeviation"` // Mean absolute residual over nominal mean
	Severity            float64 `json:"severity"`            // 0-1, saturates at 50% deviation
}

// Detector flags series whose degraded reading deviates from nominal
type Detector struct {
	Threshold float64
}

// NewDetector creates a detector with the given fractional threshold
func NewDetector(threshold float64) *Detector {
	return &Detector{Threshold: threshold}
}

// Detect returns the anomalous series in input order. A series is flagged
// only when its deviation compares strictly above the threshold, so a NaN
// deviation is never flagged.
func (d *Detector) Detect(pairs []telemetry.SeriesPair) *Set {
	set := &Set{index: make(map[string]int)}
	for _, p := range pairs {
		frac := FractionalDeviation(p.Nominal, p.Degraded)
		if !(frac > d.Threshold) {
			logging.Trace("series within threshold", "observable", p.Name, "deviation", frac)
			continue
		}

		a := Anomaly{
			Observable:          p.Name,
			FractionalDeviation: frac,
			Severity:            Severity(frac),
		}
		logging.Debug("anomaly detected", "observable", a.Observable, "deviation", frac, "severity", a.Severity)
		set.add(a)
	}
	return set
}

// FractionalDeviation is mean(|degraded - nominal|) / mean(nominal). A
// non-positive baseline yields 0 instead of dividing by zero.
func FractionalDeviation(nominal, degraded []float64) float64 {
	if len(nominal) == 0 || len(nominal) != len(degraded) {
		return 0
	}

	baseline := stat.Mean(nominal, nil)
	if !(baseline > 0) {
		return 0
	}
	meanDeviation := floats.Distance(degraded, nominal, 1) / float64(len(nominal))
	return meanDeviation / baseline
}

// Severity maps a fractional deviation linearly onto [0, 1]
func Severity(fractional float64) float64 {
	return math.Max(0, math.Min(1, fractional/saturation))
}
