// Package cargo computes freight capacity, utilisation and revenue figures.
package cargo

import "airline_metrics/internal/calc"

// OptimalLoadFactor is the utilisation (percent) both ULD dimensions must
// reach for a container to count as well packed.
const OptimalLoadFactor = 80.0

// AircraftWeights is the subset of an aircraft spec cargo planning needs.
type AircraftWeights struct {
	EmptyWeight      float64 `json:"empty_weight"`
	MaxTakeoffWeight float64 `json:"max_takeoff_weight"`
}

// Params describes a cargo flight.
type Params struct {
	Aircraft    AircraftWeights `json:"aircraft"`
	CargoWeight float64         `json:"cargo_weight"`
	CargoVolume float64         `json:"cargo_volume"`
	MaxVolume   float64         `json:"max_volume"`
	Distance    float64         `json:"distance"`
	FuelLoad    float64         `json:"fuel_load"`
}

// MaxPayload is MTOW less empty weight and fuel. The result is not clamped:
// a negative value means the flight is overweight before any cargo.
func MaxPayload(p Params) float64 {
	return p.Aircraft.MaxTakeoffWeight - p.Aircraft.EmptyWeight - p.FuelLoad
}

// VolumeUtilization is the percentage of hold volume in use. Values above
// 100 are returned as is.
func VolumeUtilization(cargoVolume, maxVolume float64) (float64, error) {
	return calc.Percent(cargoVolume, maxVolume, "max_volume")
}

// LoadFactor is cargo weight as a percentage of available payload.
func LoadFactor(cargoWeight, maxPayload float64) (float64, error) {
	return calc.Percent(cargoWeight, maxPayload, "max payload")
}

// FTK returns freight ton-kilometres.
func FTK(weight, distance float64) float64 {
	return weight * distance
}

// Revenue is FTK priced at revenuePerFTK.
func Revenue(weight, distance, revenuePerFTK float64) float64 {
	return FTK(weight, distance) * revenuePerFTK
}

// BELF is the break-even load factor: operating cost as a percentage of the
// revenue a full aircraft would earn.
func BELF(operatingCost, maxRevenue float64) (float64, error) {
	return calc.Percent(operatingCost, maxRevenue, "max_revenue")
}

// ULD is a container or pallet capacity.
type ULD struct {
	MaxWeight float64 `json:"max_weight"`
	MaxVolume float64 `json:"max_volume"`
}

// ULDLoad reports how full a single ULD is.
type ULDLoad struct {
	WeightLoadFactor float64 `json:"weight_load_factor"`
	VolumeLoadFactor float64 `json:"volume_load_factor"`
	IsOptimal        bool    `json:"is_optimal"`
}

// ULDLoadFactor computes weight and volume utilisation of a ULD.
func ULDLoadFactor(uld ULD, weight, volume float64) (ULDLoad, error) {
	wlf, err := calc.Percent(weight, uld.MaxWeight, "uld max_weight")
	if err != nil {
		return ULDLoad{}, err
	}
	vlf, err := calc.Percent(volume, uld.MaxVolume, "uld max_volume")
	if err != nil {
		return ULDLoad{}, err
	}
	return ULDLoad{
		WeightLoadFactor: wlf,
		VolumeLoadFactor: vlf,
		IsOptimal:        wlf >= OptimalLoadFactor && vlf >= OptimalLoadFactor,
	}, nil
}

// PricingParams drives DynamicPrice. Surcharge and demand are percentages.
type PricingParams struct {
	BaseRate      float64 `json:"base_rate"`
	FuelSurcharge float64 `json:"fuel_surcharge"`
	DemandFactor  float64 `json:"demand_factor"`
}

// DynamicPrice applies fuel surcharge and demand adjustments to the base rate.
func DynamicPrice(p PricingParams) (float64, error) {
	if err := calc.FiniteAll(
		calc.Field{Name: "base_rate", Value: p.BaseRate},
		calc.Field{Name: "fuel_surcharge", Value: p.FuelSurcharge},
		calc.Field{Name: "demand_factor", Value: p.DemandFactor},
	); err != nil {
		return 0, err
	}
	if p.FuelSurcharge < -100 {
		return 0, calc.Invalid("fuel_surcharge must be at least -100")
	}
	if p.DemandFactor < -100 {
		return 0, calc.Invalid("demand_factor must be at least -100")
	}
	price := p.BaseRate * (1 + p.FuelSurcharge/100) * (1 + p.DemandFactor/100)
	if err := calc.Finite("price", price); err != nil {
		return 0, err
	}
	return price, nil
}

// Analysis is the full cargo flight breakdown.
type Analysis struct {
	MaxPayload        float64 `json:"max_payload"`
	LoadFactor        float64 `json:"load_factor"`
	VolumeUtilization float64 `json:"volume_utilization"`
	FTK               float64 `json:"ftk"`
	Revenue           float64 `json:"revenue"`
	MaxRevenue        float64 `json:"max_revenue"`
	BELF              float64 `json:"belf"`
	Profit            float64 `json:"profit"`
	Overweight        bool    `json:"overweight"`
}

// Analyze runs every cargo metric for one flight. MaxRevenue assumes the
// aircraft flies at full payload over the same distance.
func Analyze(p Params, revenuePerFTK, operatingCost float64) (Analysis, error) {
	if err := calc.NonNegativeAll(
		calc.Field{Name: "cargo_weight", Value: p.CargoWeight},
		calc.Field{Name: "cargo_volume", Value: p.CargoVolume},
		calc.Field{Name: "distance", Value: p.Distance},
		calc.Field{Name: "fuel_load", Value: p.FuelLoad},
		calc.Field{Name: "revenue_per_ftk", Value: revenuePerFTK},
		calc.Field{Name: "operating_cost", Value: operatingCost},
	); err != nil {
		return Analysis{}, err
	}
	if err := calc.FiniteAll(
		calc.Field{Name: "aircraft.empty_weight", Value: p.Aircraft.EmptyWeight},
		calc.Field{Name: "aircraft.max_takeoff_weight", Value: p.Aircraft.MaxTakeoffWeight},
		calc.Field{Name: "max_volume", Value: p.MaxVolume},
	); err != nil {
		return Analysis{}, err
	}

	payload := MaxPayload(p)
	if err := calc.Finite("max payload", payload); err != nil {
		return Analysis{}, err
	}
	lf, err := LoadFactor(p.CargoWeight, payload)
	if err != nil {
		return Analysis{}, err
	}
	vu, err := VolumeUtilization(p.CargoVolume, p.MaxVolume)
	if err != nil {
		return Analysis{}, err
	}
	ftk := FTK(p.CargoWeight, p.Distance)
	revenue := Revenue(p.CargoWeight, p.Distance, revenuePerFTK)
	maxRevenue := Revenue(payload, p.Distance, revenuePerFTK)
	if err := calc.FiniteAll(
		calc.Field{Name: "ftk", Value: ftk},
		calc.Field{Name: "revenue", Value: revenue},
		calc.Field{Name: "max_revenue", Value: maxRevenue},
	); err != nil {
		return Analysis{}, err
	}
	belf, err := BELF(operatingCost, maxRevenue)
	if err != nil {
		return Analysis{}, err
	}

	return Analysis{
		MaxPayload:        payload,
		LoadFactor:        lf,
		VolumeUtilization: vu,
		FTK:               ftk,
		Revenue:           revenue,
		MaxRevenue:        maxRevenue,
		BELF:              belf,
		Profit:            revenue - operatingCost,
		Overweight:        payload < 0 || p.CargoWeight > payload,
	}, nil
}
