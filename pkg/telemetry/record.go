package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrSchemaMismatch is returned when only one record of a pair has a thermal section
	ErrSchemaMismatch = errors.New("telemetry records declare different sections")
	// ErrLengthMismatch is returned when paired series differ in length
	ErrLengthMismatch = errors.New("telemetry series lengths differ")
)

// Telemetry quantity names, as used by the anomaly detector and the ranker
const (
	SolarInput     = "solar_input"
	BatteryVoltage = "battery_voltage"
	BatteryCharge  = "battery_charge"
	BusVoltage     = "bus_voltage"
	BatteryTemp    = "battery_temp"
	SolarPanelTemp = "solar_panel_temp"
	PayloadTemp    = "payload_temp"
	BusCurrent     = "bus_current"
)

// PowerSection holds the power subsystem series every record carries
type PowerSection struct {
	SolarInput     []float64 `json:"solar_input"`     // Watts available from the panels
	BatteryVoltage []float64 `json:"battery_voltage"` // Volts
	BatteryCharge  []float64 `json:"battery_charge"`  // Percent
	BusVoltage     []float64 `json:"bus_voltage"`     // Volts, regulated
}

// ThermalSection holds the optional thermal subsystem series
type ThermalSection struct {
	BatteryTemp    []float64 `json:"battery_temp"`
	SolarPanelTemp []float64 `json:"solar_panel_temp"`
	PayloadTemp    []float64 `json:"payload_temp"`
	BusCurrent     []float64 `json:"bus_current"`
}

// Record is one telemetry snapshot. Thermal is nil when the record has no
// thermal subsystem section.
type Record struct {
	Time    []float64       `json:"time,omitempty"`
	Power   PowerSection    `json:"power"`
	Thermal *ThermalSection `json:"thermal,omitempty"`
}

// HasThermal reports whether the record declares a thermal section
func (r *Record) HasThermal() bool {
	return r.Thermal != nil
}

// Series returns the named series in canonical order: power quantities,
// then thermal quantities when the record has them.
func (r *Record) Series() []NamedSeries {
	series := []NamedSeries{
		{SolarInput, r.Power.SolarInput},
		{BatteryVoltage, r.Power.BatteryVoltage},
		{BatteryCharge, r.Power.BatteryCharge},
		{BusVoltage, r.Power.BusVoltage},
	}
	if r.HasThermal() {
		series = append(series,
			NamedSeries{BatteryTemp, r.Thermal.BatteryTemp},
			NamedSeries{SolarPanelTemp, r.Thermal.SolarPanelTemp},
			NamedSeries{PayloadTemp, r.Thermal.PayloadTemp},
			NamedSeries{BusCurrent, r.Thermal.BusCurrent},
		)
	}
	return series
}

// NamedSeries is a single telemetry quantity
type NamedSeries struct {
	Name   string
	Values []float64
}

// SeriesPair is a nominal and degraded reading of the same quantity
type SeriesPair struct {
	Name     string
	Nominal  []float64
	Degraded []float64
}

// Pairs aligns a nominal and a degraded record. Both records must declare
// the same sections and every paired series must have equal length.
func Pairs(nominal, degraded *Record) ([]SeriesPair, error) {
	if nominal.HasThermal() != degraded.HasThermal() {
		return nil, fmt.Errorf("nominal thermal=%t, degraded thermal=%t: %w",
			nominal.HasThermal(), degraded.HasThermal(), ErrSchemaMismatch)
	}

	nom := nominal.Series()
	deg := degraded.Series()
	pairs := make([]SeriesPair, 0, len(nom))
	for i := range nom {
		if len(nom[i].Values) != len(deg[i].Values) {
			return nil, fmt.Errorf("%s: nominal has %d samples, degraded has %d: %w",
				nom[i].Name, len(nom[i].Values), len(deg[i].Values), ErrLengthMismatch)
		}
		pairs = append(pairs, SeriesPair{
			Name:     nom[i].Name,
			Nominal:  nom[i].Values,
			Degraded: deg[i].Values,
		})
	}
	return pairs, nil
}

// Read decodes a JSON telemetry record
func Read(r io.Reader) (*Record, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry: %w", err)
	}
	return &rec, nil
}

// ReadFile decodes a JSON telemetry record from disk
func ReadFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry: %w", err)
	}
	defer f.Close()

	rec, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
