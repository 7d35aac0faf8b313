package api

import (
	"net/http"

	"airline_metrics/internal/calc"
	"airline_metrics/internal/cargo"
	"airline_metrics/internal/catalog"
	"airline_metrics/internal/crm"
	"airline_metrics/internal/demographics"
	"airline_metrics/internal/passenger"
	"airline_metrics/internal/performance"
)

// route lets a request name airports instead of giving a distance.
type route struct {
	Origin string `json:"origin,omitempty"`
	Dest   string `json:"dest,omitempty"`
}

// distance returns the great circle distance when both ends are set and
// fallback when neither is.
func (s *Server) distance(rt route, fallback float64) (float64, error) {
	switch {
	case rt.Origin == "" && rt.Dest == "":
		return fallback, nil
	case rt.Origin == "" || rt.Dest == "":
		return 0, calc.Invalid("origin and dest must be given together")
	}
	return s.catalog.Distance(rt.Origin, rt.Dest)
}

type performanceRequest struct {
	route
	AircraftID string                       `json:"aircraft_id,omitempty"`
	Aircraft   *performance.AircraftSpec    `json:"aircraft,omitempty"`
	Conditions performance.FlightConditions `json:"conditions"`
}

func (s *Server) resolvePerformance(req performanceRequest) (performance.AircraftSpec, performance.FlightConditions, error) {
	var spec performance.AircraftSpec
	switch {
	case req.Aircraft != nil:
		spec = *req.Aircraft
	case req.AircraftID != "":
		ac, err := s.catalog.FindAircraft(req.AircraftID)
		if err != nil {
			return spec, req.Conditions, err
		}
		spec = catalog.PerformanceSpec(ac)
	default:
		return spec, req.Conditions, calc.Invalid("aircraft or aircraft_id is required")
	}
	cond := req.Conditions
	d, err := s.distance(req.route, cond.Distance)
	if err != nil {
		return spec, cond, err
	}
	cond.Distance = d
	return spec, cond, nil
}

func (s *Server) handleHighFidelity(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "performance_high_fidelity", func(req performanceRequest) (performance.FuelResult, error) {
		spec, cond, err := s.resolvePerformance(req)
		if err != nil {
			return performance.FuelResult{}, err
		}
		return performance.HighFidelity(spec, cond)
	})
}

func (s *Server) handleSimplified(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "performance_simplified", func(req performanceRequest) (performance.FuelResult, error) {
		spec, cond, err := s.resolvePerformance(req)
		if err != nil {
			return performance.FuelResult{}, err
		}
		return performance.Simplified(spec, cond.Distance)
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "performance_compare", func(req performanceRequest) (performance.Comparison, error) {
		spec, cond, err := s.resolvePerformance(req)
		if err != nil {
			return performance.Comparison{}, err
		}
		return performance.Compare(spec, cond)
	})
}

type cargoAnalysisRequest struct {
	route
	cargo.Params
	AircraftID    string  `json:"aircraft_id,omitempty"`
	RevenuePerFTK float64 `json:"revenue_per_ftk"`
	OperatingCost float64 `json:"operating_cost"`
}

func (s *Server) handleCargoAnalysis(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "cargo_analysis", func(req cargoAnalysisRequest) (cargo.Analysis, error) {
		p := req.Params
		if req.AircraftID != "" {
			ac, err := s.catalog.FindAircraft(req.AircraftID)
			if err != nil {
				return cargo.Analysis{}, err
			}
			p.Aircraft = cargo.AircraftWeights{EmptyWeight: ac.OEWKg, MaxTakeoffWeight: ac.MTOWKg}
			if p.MaxVolume == 0 {
				p.MaxVolume = ac.CargoVolumeM3
			}
		}
		d, err := s.distance(req.route, p.Distance)
		if err != nil {
			return cargo.Analysis{}, err
		}
		p.Distance = d
		return cargo.Analyze(p, req.RevenuePerFTK, req.OperatingCost)
	})
}

type uldRequest struct {
	ULD     *cargo.ULD `json:"uld,omitempty"`
	ULDCode string     `json:"uld_code,omitempty"`
	Weight  float64    `json:"weight"`
	Volume  float64    `json:"volume"`
}

func (s *Server) handleULDLoad(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "cargo_uld", func(req uldRequest) (cargo.ULDLoad, error) {
		var uld cargo.ULD
		switch {
		case req.ULD != nil:
			uld = *req.ULD
		case req.ULDCode != "":
			t, err := s.catalog.FindULD(req.ULDCode)
			if err != nil {
				return cargo.ULDLoad{}, err
			}
			uld = cargo.ULD{MaxWeight: t.MaxWeightKg, MaxVolume: t.VolumeM3}
		default:
			return cargo.ULDLoad{}, calc.Invalid("uld or uld_code is required")
		}
		return cargo.ULDLoadFactor(uld, req.Weight, req.Volume)
	})
}

type priceResponse struct {
	Price float64 `json:"price"`
}

func (s *Server) handleDynamicPrice(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "cargo_dynamic_price", func(req cargo.PricingParams) (priceResponse, error) {
		price, err := cargo.DynamicPrice(req)
		return priceResponse{Price: price}, err
	})
}

type passengerAnalysisRequest struct {
	passenger.FlightInput
	AircraftID string `json:"aircraft_id,omitempty"`
}

// seatsFor fills seats from the catalog when the request leaves them zero.
func (s *Server) seatsFor(aircraftID string, seats int) (int, error) {
	if aircraftID == "" || seats != 0 {
		return seats, nil
	}
	ac, err := s.catalog.FindAircraft(aircraftID)
	if err != nil {
		return 0, err
	}
	return ac.Seats, nil
}

func (s *Server) handlePassengerAnalysis(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "passenger_analysis", func(req passengerAnalysisRequest) (passenger.Analysis, error) {
		in := req.FlightInput
		seats, err := s.seatsFor(req.AircraftID, in.Seats)
		if err != nil {
			return passenger.Analysis{}, err
		}
		in.Seats = seats
		return passenger.Analyze(in)
	})
}

type overbookingRequest struct {
	AircraftID        string  `json:"aircraft_id,omitempty"`
	Seats             int     `json:"seats"`
	NoShowRate        float64 `json:"no_show_rate"`
	DesiredLoadFactor float64 `json:"desired_load_factor"`
}

type overbookingResponse struct {
	Seats            int `json:"seats"`
	OverbookingLimit int `json:"overbooking_limit"`
}

func (s *Server) handleOverbooking(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "passenger_overbooking", func(req overbookingRequest) (overbookingResponse, error) {
		seats, err := s.seatsFor(req.AircraftID, req.Seats)
		if err != nil {
			return overbookingResponse{}, err
		}
		limit, err := passenger.OverbookingLimit(seats, req.NoShowRate, req.DesiredLoadFactor)
		return overbookingResponse{Seats: seats, OverbookingLimit: limit}, err
	})
}

type clvResponse struct {
	CLV float64 `json:"clv"`
}

func (s *Server) handleCLV(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "crm_clv", func(req crm.CLVConfig) (clvResponse, error) {
		v, err := crm.CLV(req)
		return clvResponse{CLV: v}, err
	})
}

// segmentsOrDefault lets a request override the configured thresholds.
func (s *Server) segmentsOrDefault(cfg *crm.SegmentConfig) (crm.SegmentConfig, error) {
	if cfg == nil {
		return s.segments, nil
	}
	return *cfg, cfg.Validate()
}

type churnRequest struct {
	LastFlightMonths float64            `json:"last_flight_months"`
	AvgFrequency     float64            `json:"avg_frequency"`
	Segments         *crm.SegmentConfig `json:"segments,omitempty"`
}

type churnResponse struct {
	ChurnProbability float64 `json:"churn_probability"`
}

func (s *Server) handleChurn(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "crm_churn", func(req churnRequest) (churnResponse, error) {
		cfg, err := s.segmentsOrDefault(req.Segments)
		if err != nil {
			return churnResponse{}, err
		}
		p, err := crm.ChurnProbability(req.LastFlightMonths, req.AvgFrequency, cfg)
		return churnResponse{ChurnProbability: p}, err
	})
}

type segmentRequest struct {
	LastFlightMonths float64            `json:"last_flight_months"`
	TotalFlights     float64            `json:"total_flights"`
	FrequencyDrop    float64            `json:"frequency_drop"`
	Segments         *crm.SegmentConfig `json:"segments,omitempty"`
}

type segmentResponse struct {
	Segment crm.Segment `json:"segment"`
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "crm_segment", func(req segmentRequest) (segmentResponse, error) {
		cfg, err := s.segmentsOrDefault(req.Segments)
		if err != nil {
			return segmentResponse{}, err
		}
		if err := calc.Finite("last_flight_months", req.LastFlightMonths); err != nil {
			return segmentResponse{}, err
		}
		return segmentResponse{
			Segment: crm.Categorize(req.LastFlightMonths, req.TotalFlights, req.FrequencyDrop, cfg),
		}, nil
	})
}

type profileRequest struct {
	Customer crm.CustomerInput  `json:"customer"`
	CLV      crm.CLVConfig      `json:"clv"`
	Segments *crm.SegmentConfig `json:"segments,omitempty"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "crm_profile", func(req profileRequest) (crm.CustomerProfile, error) {
		cfg, err := s.segmentsOrDefault(req.Segments)
		if err != nil {
			return crm.CustomerProfile{}, err
		}
		return crm.Profile(req.Customer, cfg, req.CLV)
	})
}

type demographicsRequest struct {
	route
	Day              string  `json:"day"`
	Season           string  `json:"season"`
	TimeOfDay        string  `json:"time_of_day"`
	BookingWindow    string  `json:"booking_window"`
	RouteType        string  `json:"route_type"`
	PriceSensitivity string  `json:"price_sensitivity"`
	Distance         float64 `json:"distance"`
}

func (s *Server) handleDemographics(w http.ResponseWriter, r *http.Request) {
	calculate(s, w, r, "demographics_predict", func(req demographicsRequest) (demographics.Prediction, error) {
		d, err := s.distance(req.route, req.Distance)
		if err != nil {
			return demographics.Prediction{}, err
		}
		in, err := demographics.ParseInput(req.Day, req.Season, req.TimeOfDay,
			req.BookingWindow, req.RouteType, req.PriceSensitivity, d)
		if err != nil {
			return demographics.Prediction{}, err
		}
		return demographics.Predict(in)
	})
}
