package analysis

import "github.com/ritzau/faultgraph/pkg/telemetry"

// observableNodes maps telemetry quantity names to observable graph nodes
var observableNodes = map[string]string{
	telemetry.SolarInput:     "solar_input_measured",
	telemetry.BatteryVoltage: "battery_voltage_measured",
	telemetry.BatteryCharge:  "battery_charge_measured",
	telemetry.BusVoltage:     "bus_voltage_measured",
	telemetry.SolarPanelTemp: "solar_panel_temp_measured",
	telemetry.BatteryTemp:    "battery_temp_measured",
	telemetry.PayloadTemp:    "payload_temp_measured",
	telemetry.BusCurrent:     "bus_current_measured",
}

// expectedAnomalies lists the telemetry deviations each root cause should produce
var expectedAnomalies = map[string][]string{
	"solar_degradation":            {telemetry.SolarInput, telemetry.BatteryCharge, telemetry.BusVoltage},
	"battery_aging":                {telemetry.BatteryVoltage, telemetry.BatteryCharge, telemetry.BusVoltage},
	"battery_thermal":              {telemetry.BatteryVoltage, telemetry.BatteryCharge},
	"sensor_bias":                  {telemetry.BatteryVoltage, telemetry.BatteryCharge},
	"panel_insulation_degradation": {telemetry.SolarPanelTemp, telemetry.BatteryTemp},
	"battery_heatsink_failure":     {telemetry.BatteryTemp, telemetry.BusCurrent},
	"payload_radiator_degradation": {telemetry.PayloadTemp},
}

const unknownMechanism = "Unknown root cause mechanism."

var explanations = map[string]string{
	"solar_degradation": "Reduced solar input is propagating through the power subsystem. " +
		"This suggests solar panel degradation or shadowing, which reduces " +
		"available power for charging the battery.",
	"battery_aging": "Battery voltage and charge deviations indicate internal degradation. " +
		"This suggests increased internal resistance or cell aging, reducing " +
		"charging efficiency and available capacity.",
	"battery_thermal": "Battery voltage droop under nominal load suggests thermal stress. " +
		"Elevated temperature is degrading electrochemical performance " +
		"and increasing internal losses.",
	"sensor_bias": "Anomalies in voltage and charge measurements may be due to sensor " +
		"calibration drift rather than actual physical degradation. " +
		"Cross-check with other subsystems before taking action.",
	"panel_insulation_degradation": "Elevated solar panel temperature indicates loss of thermal insulation " +
		"or radiator fouling. This reduces panel efficiency and increases " +
		"heat-induced stress on power electronics.",
	"battery_heatsink_failure": "High battery temperature with elevated current draw indicates the " +
		"primary thermal management system has failed. This accelerates battery " +
		"aging and risks thermal runaway if not corrected.",
	"payload_radiator_degradation": "Elevated payload temperature indicates radiator coating degradation " +
		"or micrometeorite damage. Payload must operate at reduced power to " +
		"avoid thermal shutdown.",
}

func copyTable[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
