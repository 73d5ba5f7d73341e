package dsep

// Assumption is a structural independence the diagnosis relies on
type Assumption struct {
	Name        string
	Description string
	X, Z        string
	Given       []string
}

// AssumptionResult is the outcome of checking one assumption
type AssumptionResult struct {
	Assumption
	Result
	Err error `json:"-"`
}

// Valid reports whether the assumption holds
func (r AssumptionResult) Valid() bool {
	return r.Err == nil && r.Separated
}

// Assumptions are the independence properties the power and thermal
// knowledge base is expected to satisfy
var Assumptions = []Assumption{
	{
		Name:        "solar_mediated_by_battery",
		Description: "Solar noise ignored when battery stable",
		X:           "solar_degradation",
		Z:           "bus_voltage_measured",
		Given:       []string{"battery_state"},
	},
	{
		Name:        "aging_distinct_from_thermal",
		Description: "Aging doesn't cause overheating directly",
		X:           "battery_aging",
		Z:           "battery_temp_measured",
		Given:       []string{"battery_efficiency"},
	},
	{
		Name:        "payload_isolated",
		Description: "Payload isolated from power system",
		X:           "payload_radiator_degradation",
		Z:           "bus_voltage_measured",
	},
	{
		Name:        "sensor_bias_identifiable",
		Description: "Sensor bias doesn't change physical state",
		X:           "sensor_bias",
		Z:           "battery_state",
	},
}

// ReportCases are the pairs shown in the d-separation report. Not all of
// them are expected to be separated.
var ReportCases = []Assumption{
	Assumptions[0],
	Assumptions[1],
	Assumptions[2],
	{
		Name:        "solar_payload_independent",
		Description: "Solar and payload are independent",
		X:           "solar_degradation",
		Z:           "payload_temp_measured",
	},
	Assumptions[3],
	{
		Name:        "thermal_via_battery",
		Description: "Thermal affects power only via battery",
		X:           "battery_thermal",
		Z:           "bus_voltage_measured",
	},
	{
		Name:        "insulation_isolated_from_voltage",
		Description: "Panel insulation doesn't affect battery voltage directly",
		X:           "panel_insulation_degradation",
		Z:           "battery_voltage_measured",
	},
}

// Check evaluates each case in order
func (a *Analyzer) Check(cases []Assumption) []AssumptionResult {
	results := make([]AssumptionResult, 0, len(cases))
	for _, c := range cases {
		res, err := a.AreDSeparated(c.X, c.Z, c.Given)
		results = append(results, AssumptionResult{Assumption: c, Result: res, Err: err})
	}
	return results
}

// ValidateAssumptions checks the built-in assumption suite
func (a *Analyzer) ValidateAssumptions() []AssumptionResult {
	return a.Check(Assumptions)
}

// AllValid reports whether every result holds
func AllValid(results []AssumptionResult) bool {
	for _, r := range results {
		if !r.Valid() {
			return false
		}
	}
	return true
}
