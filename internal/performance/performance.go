// Package performance estimates trip fuel and CO2 for an aircraft.
package performance

import "airline_metrics/internal/calc"

const (
	// CO2PerKgFuel is kg of CO2 produced per kg of jet fuel burned.
	CO2PerKgFuel = 3.16

	takeoffShare        = 0.2
	climbShare          = 0.3
	climbReferenceAltFt = 10000.0
	isaSeaLevelTempC    = 15.0
	tempCorrectionPerC  = 0.002
	payloadPenalty      = 0.1

	quadraticCoefficient = 0.0001
	reserveShare         = 0.1
)

// AircraftSpec carries the weights and fuel coefficients a model needs.
type AircraftSpec struct {
	EmptyWeight      float64 `json:"empty_weight"`
	MaxTakeoffWeight float64 `json:"max_takeoff_weight"`
	FuelCapacity     float64 `json:"fuel_capacity"`
	CruiseSpeed      float64 `json:"cruise_speed"`
	BaseFuelFlow     float64 `json:"base_fuel_flow"`
	FuelEfficiency   float64 `json:"fuel_efficiency"`
}

// Validate checks that every field is a non-negative number and the
// aircraft can lift something beyond its own empty weight.
func (a AircraftSpec) Validate() error {
	if err := calc.NonNegativeAll(
		calc.Field{Name: "empty_weight", Value: a.EmptyWeight},
		calc.Field{Name: "max_takeoff_weight", Value: a.MaxTakeoffWeight},
		calc.Field{Name: "fuel_capacity", Value: a.FuelCapacity},
		calc.Field{Name: "cruise_speed", Value: a.CruiseSpeed},
		calc.Field{Name: "base_fuel_flow", Value: a.BaseFuelFlow},
		calc.Field{Name: "fuel_efficiency", Value: a.FuelEfficiency},
	); err != nil {
		return err
	}
	if a.MaxTakeoffWeight <= a.EmptyWeight {
		return calc.Invalid("max_takeoff_weight must exceed empty_weight")
	}
	return nil
}

// MaxPayload is the structural payload ceiling used by the high fidelity model.
func (a AircraftSpec) MaxPayload() float64 {
	return a.MaxTakeoffWeight - a.EmptyWeight
}

// FlightConditions describes a single trip.
type FlightConditions struct {
	Distance    float64 `json:"distance"`
	Altitude    float64 `json:"altitude"`
	Payload     float64 `json:"payload"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
}

func (c FlightConditions) validate() error {
	if err := calc.NonNegative("distance", c.Distance); err != nil {
		return err
	}
	if err := calc.NonNegative("altitude", c.Altitude); err != nil {
		return err
	}
	if err := calc.NonNegative("payload", c.Payload); err != nil {
		return err
	}
	if err := calc.Finite("temperature", c.Temperature); err != nil {
		return err
	}
	return calc.Finite("wind_speed", c.WindSpeed)
}

// Phase names a flight segment.
type Phase string

const (
	PhaseTakeoff Phase = "takeoff"
	PhaseClimb   Phase = "climb"
	PhaseCruise  Phase = "cruise"
)

// Segment is the fuel attributed to one phase.
type Segment struct {
	Phase Phase   `json:"phase"`
	Fuel  float64 `json:"fuel"`
}

// FuelResult is the output of both models. Segments is empty for the
// simplified model.
type FuelResult struct {
	FuelRequired float64   `json:"fuel_required"`
	CO2Emissions float64   `json:"co2_emissions"`
	Segments     []Segment `json:"segments,omitempty"`
}

func (r FuelResult) check() error {
	fields := []calc.Field{
		{Name: "fuel_required", Value: r.FuelRequired},
		{Name: "co2_emissions", Value: r.CO2Emissions},
	}
	for _, seg := range r.Segments {
		fields = append(fields, calc.Field{Name: string(seg.Phase) + " fuel", Value: seg.Fuel})
	}
	return calc.FiniteAll(fields...)
}

// HighFidelity splits fuel into takeoff, climb and cruise, corrects cruise
// for temperature deviation and wind, then scales everything by payload.
// Segment fuel is reported after payload scaling so segments sum to
// FuelRequired.
func HighFidelity(aircraft AircraftSpec, cond FlightConditions) (FuelResult, error) {
	if err := aircraft.Validate(); err != nil {
		return FuelResult{}, err
	}
	if err := cond.validate(); err != nil {
		return FuelResult{}, err
	}

	flow := aircraft.BaseFuelFlow
	takeoff := flow * takeoffShare
	climb := flow * climbShare * (cond.Altitude / climbReferenceAltFt)

	hours, err := calc.Divide(cond.Distance, aircraft.CruiseSpeed, "cruise_speed")
	if err != nil {
		return FuelResult{}, err
	}
	windDrag, err := calc.Divide(cond.WindSpeed, aircraft.CruiseSpeed, "cruise_speed")
	if err != nil {
		return FuelResult{}, err
	}
	tempFactor := 1 + (cond.Temperature-isaSeaLevelTempC)*tempCorrectionPerC
	cruise := hours * flow * tempFactor * (1 + windDrag)

	payloadRatio, err := calc.Divide(cond.Payload, aircraft.MaxPayload(), "max payload")
	if err != nil {
		return FuelResult{}, err
	}
	payloadFactor := 1 + payloadRatio*payloadPenalty

	segments := []Segment{
		{Phase: PhaseTakeoff, Fuel: takeoff * payloadFactor},
		{Phase: PhaseClimb, Fuel: climb * payloadFactor},
		{Phase: PhaseCruise, Fuel: cruise * payloadFactor},
	}
	total := 0.0
	for _, s := range segments {
		total += s.Fuel
	}
	res := FuelResult{
		FuelRequired: total,
		CO2Emissions: total * CO2PerKgFuel,
		Segments:     segments,
	}
	if err := res.check(); err != nil {
		return FuelResult{}, err
	}
	return res, nil
}

// Simplified fits trip fuel to a*d^2 + b*d + c with b the aircraft fuel
// efficiency and c a reserve proportional to base fuel flow.
func Simplified(aircraft AircraftSpec, distance float64) (FuelResult, error) {
	if err := aircraft.Validate(); err != nil {
		return FuelResult{}, err
	}
	if err := calc.NonNegative("distance", distance); err != nil {
		return FuelResult{}, err
	}
	fuel := quadraticCoefficient*distance*distance +
		aircraft.FuelEfficiency*distance +
		aircraft.BaseFuelFlow*reserveShare
	res := FuelResult{
		FuelRequired: fuel,
		CO2Emissions: fuel * CO2PerKgFuel,
	}
	if err := res.check(); err != nil {
		return FuelResult{}, err
	}
	return res, nil
}

// Comparison places both models side by side.
type Comparison struct {
	HighFidelity FuelResult `json:"high_fidelity"`
	Simplified   FuelResult `json:"simplified"`
	// DeltaPercent is (simplified - high fidelity) relative to high fidelity.
	DeltaPercent float64 `json:"delta_percent"`
}

// Compare runs both models for the same trip.
func Compare(aircraft AircraftSpec, cond FlightConditions) (Comparison, error) {
	hf, err := HighFidelity(aircraft, cond)
	if err != nil {
		return Comparison{}, err
	}
	simple, err := Simplified(aircraft, cond.Distance)
	if err != nil {
		return Comparison{}, err
	}
	out := Comparison{HighFidelity: hf, Simplified: simple}
	// zero high fidelity fuel only happens for an aircraft with no fuel flow
	if hf.FuelRequired != 0 {
		delta, err := calc.Percent(simple.FuelRequired-hf.FuelRequired, hf.FuelRequired, "high fidelity fuel")
		if err != nil {
			return Comparison{}, err
		}
		out.DeltaPercent = calc.Round2(delta)
	}
	return out, nil
}
