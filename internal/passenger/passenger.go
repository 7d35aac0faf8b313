// Package passenger computes seat utilisation and unit revenue metrics.
package passenger

import (
	"math"

	"airline_metrics/internal/calc"
)

// LoadFactor is booked seats as a percentage of available seats.
func LoadFactor(booked, available float64) (float64, error) {
	if err := calc.NonNegative("booked", booked); err != nil {
		return 0, err
	}
	return calc.Percent(booked, available, "available seats")
}

// MaxBookings bounds the magnitude of an overbooking limit.
const MaxBookings = math.MaxInt32

// OverbookingLimit is the number of bookings to accept so that expected
// no-shows still leave the cabin full. noShowRate and desiredLoadFactor are
// fractions (0.08, 1.05).
func OverbookingLimit(seats int, noShowRate, desiredLoadFactor float64) (int, error) {
	if seats < 0 {
		return 0, calc.Invalid("seats must not be negative")
	}
	if err := calc.Finite("no_show_rate", noShowRate); err != nil {
		return 0, err
	}
	if err := calc.Finite("desired_load_factor", desiredLoadFactor); err != nil {
		return 0, err
	}
	s := float64(seats)
	limit := math.Ceil(math.Max(s*(1+noShowRate), s*desiredLoadFactor))
	if err := calc.Finite("overbooking limit", limit); err != nil {
		return 0, err
	}
	if limit > MaxBookings || limit < -MaxBookings {
		return 0, calc.Invalid("overbooking limit %g is out of range", limit)
	}
	return int(limit), nil
}

// RASM is revenue per available seat mile.
func RASM(revenue float64, seats int, milesPerFlight float64, flights int) (float64, error) {
	if err := calc.Finite("revenue", revenue); err != nil {
		return 0, err
	}
	asm := float64(seats) * milesPerFlight * float64(flights)
	return calc.Divide(revenue, asm, "available seat miles")
}

// BreakEvenLoadFactor is the load factor (percent) at which ticket margin
// covers fixed costs.
func BreakEvenLoadFactor(fixedCosts, ticketPrice, variableCost float64, totalSeats int) (float64, error) {
	if err := calc.FiniteAll(
		calc.Field{Name: "fixed_costs", Value: fixedCosts},
		calc.Field{Name: "ticket_price", Value: ticketPrice},
		calc.Field{Name: "variable_cost", Value: variableCost},
	); err != nil {
		return 0, err
	}
	breakEvenSeats, err := calc.Divide(fixedCosts, ticketPrice-variableCost, "ticket margin")
	if err != nil {
		return 0, err
	}
	return calc.Percent(breakEvenSeats, float64(totalSeats), "total_seats")
}

// FlightInput describes one scheduled service for Analyze.
type FlightInput struct {
	Seats             int     `json:"seats"`
	Booked            int     `json:"booked"`
	TicketPrice       float64 `json:"ticket_price"`
	VariableCost      float64 `json:"variable_cost"`
	FixedCosts        float64 `json:"fixed_costs"`
	MilesPerFlight    float64 `json:"miles_per_flight"`
	Flights           int     `json:"flights"`
	NoShowRate        float64 `json:"no_show_rate"`
	DesiredLoadFactor float64 `json:"desired_load_factor"`
}

// Analysis is the passenger flight breakdown.
type Analysis struct {
	LoadFactor          float64 `json:"load_factor"`
	BreakEvenLoadFactor float64 `json:"break_even_load_factor"`
	OverbookingLimit    int     `json:"overbooking_limit"`
	Revenue             float64 `json:"revenue"`
	RASM                float64 `json:"rasm"`
	Profit              float64 `json:"profit"`
	AboveBreakEven      bool    `json:"above_break_even"`
}

// Analyze evaluates every passenger metric for a flight series. Revenue is
// booked seats at the ticket price on every flight.
func Analyze(in FlightInput) (Analysis, error) {
	if in.Seats < 0 || in.Booked < 0 || in.Flights < 0 {
		return Analysis{}, calc.Invalid("seats, booked and flights must not be negative")
	}
	lf, err := LoadFactor(float64(in.Booked), float64(in.Seats))
	if err != nil {
		return Analysis{}, err
	}
	belf, err := BreakEvenLoadFactor(in.FixedCosts, in.TicketPrice, in.VariableCost, in.Seats)
	if err != nil {
		return Analysis{}, err
	}
	limit, err := OverbookingLimit(in.Seats, in.NoShowRate, in.DesiredLoadFactor)
	if err != nil {
		return Analysis{}, err
	}
	revenue := float64(in.Booked) * in.TicketPrice * float64(in.Flights)
	rasm, err := RASM(revenue, in.Seats, in.MilesPerFlight, in.Flights)
	if err != nil {
		return Analysis{}, err
	}
	variable := float64(in.Booked) * in.VariableCost * float64(in.Flights)
	fixed := in.FixedCosts * float64(in.Flights)
	profit := revenue - variable - fixed
	if err := calc.FiniteAll(
		calc.Field{Name: "variable costs", Value: variable},
		calc.Field{Name: "fixed costs", Value: fixed},
		calc.Field{Name: "profit", Value: profit},
	); err != nil {
		return Analysis{}, err
	}

	return Analysis{
		LoadFactor:          lf,
		BreakEvenLoadFactor: belf,
		OverbookingLimit:    limit,
		Revenue:             revenue,
		RASM:                rasm,
		Profit:              profit,
		// a flight that loses money on every seat never breaks even
		AboveBreakEven: in.TicketPrice > in.VariableCost && lf >= belf,
	}, nil
}
