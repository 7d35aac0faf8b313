package models

type Airport struct {
	ID        string  `json:"id"`
	Ident     string  `json:"ident"`
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	City      string  `json:"city"`
	IATA      string  `json:"iata"`
	ICAO      string  `json:"icao"`
	RunwayM   int     `json:"runway_m"`
}

// Aircraft is a reference type from the catalog. Weights are kg, speeds
// km/h, fuel flow kg/h and fuel efficiency kg per km.
type Aircraft struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	RangeKm        float64 `json:"range_km"`
	Seats          int     `json:"seats"`
	CruiseKmh      float64 `json:"cruise_kmh"`
	CargoVolumeM3  float64 `json:"cargo_volume_m3,omitempty"`
	MaxPayloadKg   float64 `json:"max_payload_kg,omitempty"`
	MTOWKg         float64 `json:"mtow_kg"`
	OEWKg          float64 `json:"oew_kg"`
	FuelCapacityKg float64 `json:"fuel_capacity_kg"`
	BaseFuelFlow   float64 `json:"base_fuel_flow_kg_h"`
	FuelEfficiency float64 `json:"fuel_efficiency_kg_km"`
	EngineType     string  `json:"engine_type,omitempty"`
	IcaoType       string  `json:"icao_type,omitempty"`
}

// ULDType is a standard container or pallet definition.
type ULDType struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	MaxWeightKg float64 `json:"max_weight_kg"`
	VolumeM3    float64 `json:"volume_m3"`
}
