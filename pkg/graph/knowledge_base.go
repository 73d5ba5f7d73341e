package graph

import (
	"fmt"

	"github.com/ritzau/faultgraph/pkg/model"
)

type nodeSpec struct {
	name        string
	description string
	modes       []string
}

type edgeSpec struct {
	source, target string
	weight         float64
	mechanism      string
}

var rootCauses = []nodeSpec{
	{"solar_degradation", "Solar panel efficiency loss or shadowing", []string{"panel_aging", "dust_accumulation", "partial_shadowing"}},
	{"battery_aging", "Battery cell degradation and capacity loss", []string{"cell_aging", "internal_resistance_rise"}},
	{"battery_thermal", "Excessive battery temperature stress", []string{"thermal_runaway_risk", "efficiency_loss"}},
	{"sensor_bias", "Measurement bias or sensor drift", []string{"calibration_drift", "electronic_aging"}},
	{"panel_insulation_degradation", "Solar panel insulation or radiator fouling", []string{"insulation_loss", "radiator_fouling"}},
	{"battery_heatsink_failure", "Battery thermal management system failure", []string{"heatsink_blockage", "coolant_loss"}},
	{"payload_radiator_degradation", "Payload electronics radiator degradation", []string{"radiator_coating_loss", "micrometeorite_damage"}},
}

var intermediates = []nodeSpec{
	{"solar_input", "Available solar power from panels", nil},
	{"battery_efficiency", "Battery charge/discharge efficiency", nil},
	{"battery_state", "Battery charge capacity and health", nil},
	{"bus_regulation", "Bus voltage regulation quality", nil},
	{"solar_panel_temp", "Solar panel temperature", nil},
	{"battery_temp", "Battery cell temperature", nil},
	{"payload_temp", "Payload electronics temperature", nil},
	{"thermal_stress", "Overall system thermal stress level", nil},
}

var observables = []nodeSpec{
	{"solar_input_measured", "Measured solar input power", nil},
	{"battery_voltage_measured", "Measured battery voltage", nil},
	{"battery_charge_measured", "Measured battery charge state percentage", nil},
	{"bus_voltage_measured", "Measured bus output voltage", nil},
	{"solar_panel_temp_measured", "Measured solar panel temperature", nil},
	{"battery_temp_measured", "Measured battery temperature", nil},
	{"payload_temp_measured", "Measured payload temperature", nil},
	{"bus_current_measured", "Measured bus current (power dissipation proxy)", nil},
}

var edges = []edgeSpec{
	// Power subsystem
	{"solar_degradation", "solar_input", 0.95, "Reduced panel output due to physical degradation or shadowing"},
	{"battery_aging", "battery_efficiency", 0.85, "Increased internal resistance reduces charge/discharge efficiency"},
	{"battery_thermal", "battery_efficiency", 0.75, "High temperature degrades battery electrochemistry and increases losses"},
	{"solar_input", "battery_state", 0.9, "Reduced input power cannot recharge battery to nominal capacity"},
	{"battery_efficiency", "battery_state", 0.85, "Lower efficiency means less power actually stored per unit of solar input"},
	{"battery_state", "bus_regulation", 0.8, "Degraded battery supply makes regulation harder and less stable"},
	{"solar_input", "solar_input_measured", 1.0, "Direct measurement of solar power via sensor"},
	{"battery_state", "battery_voltage_measured", 0.95, "Battery voltage reflects state of charge via electrochemical potential"},
	{"battery_efficiency", "battery_voltage_measured", 0.7, "Efficiency degradation causes voltage droop due to increased internal resistance"},
	{"battery_state", "battery_charge_measured", 0.9, "Charge sensor reports actual state of charge of battery"},
	{"bus_regulation", "bus_voltage_measured", 0.95, "Bus voltage sensor directly measures regulator output"},
	{"battery_state", "bus_voltage_measured", 0.75, "Battery state affects available power for regulation"},
	{"sensor_bias", "battery_voltage_measured", 0.5, "Sensor drift and calibration error add bias to voltage readings"},
	{"sensor_bias", "battery_charge_measured", 0.5, "Sensor drift affects charge state estimation algorithms"},

	// Power-thermal coupling
	{"battery_state", "battery_temp", 0.8, "Low battery state forces higher discharge current, generating more I²R heat"},
	{"solar_input", "solar_panel_temp", 0.85, "Increased solar radiation heats panel (albedo and thermal effects)"},
	{"bus_regulation", "payload_temp", 0.7, "Available regulated power enables payload operation, generating heat"},

	// Thermal subsystem
	{"panel_insulation_degradation", "solar_panel_temp", 0.9, "Poor insulation/radiator coating prevents radiative cooling to space"},
	{"battery_heatsink_failure", "battery_temp", 0.95, "Failed heatsink eliminates primary cooling path for battery heat dissipation"},
	{"payload_radiator_degradation", "payload_temp", 0.9, "Degraded radiator reduces heat dissipation to space"},
	{"battery_temp", "thermal_stress", 0.7, "High battery temperature is critical thermal stress indicator (risk of runaway)"},
	{"payload_temp", "thermal_stress", 0.6, "High payload temperature increases mission risk (reduced margins)"},
	{"solar_panel_temp", "thermal_stress", 0.5, "High panel temperature indicates reduced thermal margin"},
	{"battery_temp", "battery_efficiency", 0.7, "Elevated temperature increases internal resistance and electrochemical losses"},
	{"solar_panel_temp", "solar_panel_temp_measured", 0.98, "Direct temperature sensor measurement via thermistor"},
	{"battery_temp", "battery_temp_measured", 0.95, "Battery thermistor directly measures cell temperature"},
	{"payload_temp", "payload_temp_measured", 0.96, "Payload thermal sensor provides local temperature measurement"},
	{"battery_state", "bus_current_measured", 0.8, "Low battery state increases regulation effort and current draw"},
	{"battery_efficiency", "bus_current_measured", 0.7, "Reduced efficiency requires higher current to deliver same power"},
}

// Default builds the power and thermal subsystem knowledge base: 7 root
// causes, 8 intermediate effects, 8 observables and 29 causal edges.
//
// The graph contains one feedback loop (battery_state -> battery_temp ->
// battery_efficiency -> battery_state).
func Default(opts ...Option) (*CausalGraph, error) {
	cg := New(opts...)

	layers := []struct {
		nodeType model.NodeType
		specs    []nodeSpec
	}{
		{model.NodeTypeRootCause, rootCauses},
		{model.NodeTypeIntermediate, intermediates},
		{model.NodeTypeObservable, observables},
	}
	for _, layer := range layers {
		for _, n := range layer.specs {
			cg.AddNode(n.name, layer.nodeType, n.description, n.modes...)
		}
	}

	for _, e := range edges {
		if err := cg.AddEdge(e.source, e.target, e.weight, e.mechanism); err != nil {
			return nil, fmt.Errorf("building default knowledge base: %w", err)
		}
	}
	return cg, nil
}

// MustDefault is like Default but panics on error
func MustDefault(opts ...Option) *CausalGraph {
	cg, err := Default(opts...)
	if err != nil {
		panic(err)
	}
	return cg
}
