// Package telemetrytest builds synthetic telemetry records for tests.
package telemetrytest

import "github.com/ritzau/faultgraph/pkg/telemetry"

// Samples is the default series length
const Samples = 100

// Nominal levels for each quantity
var Nominal = map[string]float64{
	telemetry.SolarInput:     250,
	telemetry.BatteryVoltage: 28,
	telemetry.BatteryCharge:  85,
	telemetry.BusVoltage:     28,
	telemetry.BatteryTemp:    20,
	telemetry.SolarPanelTemp: 40,
	telemetry.PayloadTemp:    25,
	telemetry.BusCurrent:     10,
}

// Constant returns n samples of value v
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Step returns n samples at level that are multiplied by factor from
// sample index start onwards
func Step(n int, level float64, start int, factor float64) []float64 {
	out := Constant(n, level)
	for i := start; i < n; i++ {
		out[i] = level * factor
	}
	return out
}

// Record builds a record at nominal levels. withThermal adds a thermal section.
func Record(withThermal bool) *telemetry.Record {
	n := Samples
	rec := &telemetry.Record{
		Time: make([]float64, n),
		Power: telemetry.PowerSection{
			SolarInput:     Constant(n, Nominal[telemetry.SolarInput]),
			BatteryVoltage: Constant(n, Nominal[telemetry.BatteryVoltage]),
			BatteryCharge:  Constant(n, Nominal[telemetry.BatteryCharge]),
			BusVoltage:     Constant(n, Nominal[telemetry.BusVoltage]),
		},
	}
	for i := range rec.Time {
		rec.Time[i] = float64(i) * 10
	}
	if withThermal {
		rec.Thermal = &telemetry.ThermalSection{
			BatteryTemp:    Constant(n, Nominal[telemetry.BatteryTemp]),
			SolarPanelTemp: Constant(n, Nominal[telemetry.SolarPanelTemp]),
			PayloadTemp:    Constant(n, Nominal[telemetry.PayloadTemp]),
			BusCurrent:     Constant(n, Nominal[telemetry.BusCurrent]),
		}
	}
	return rec
}

// Fault describes a step change in one quantity
type Fault struct {
	Quantity string
	Start    int     // First affected sample
	Factor   float64 // Multiplier applied from Start onwards
}

// Degraded builds a record at nominal levels with the given faults applied
func Degraded(withThermal bool, faults ...Fault) *telemetry.Record {
	rec := Record(withThermal)
	for _, f := range faults {
		series := Step(Samples, Nominal[f.Quantity], f.Start, f.Factor)
		switch f.Quantity {
		case telemetry.SolarInput:
			rec.Power.SolarInput = series
		case telemetry.BatteryVoltage:
			rec.Power.BatteryVoltage = series
		case telemetry.BatteryCharge:
			rec.Power.BatteryCharge = series
		case telemetry.BusVoltage:
			rec.Power.BusVoltage = series
		case telemetry.BatteryTemp:
			rec.Thermal.BatteryTemp = series
		case telemetry.SolarPanelTemp:
			rec.Thermal.SolarPanelTemp = series
		case telemetry.PayloadTemp:
			rec.Thermal.PayloadTemp = series
		case telemetry.BusCurrent:
			rec.Thermal.BusCurrent = series
		}
	}
	return rec
}
