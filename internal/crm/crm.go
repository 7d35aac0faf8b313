// Package crm scores customer value and retention risk for a frequent flyer base.
package crm

import (
	"math"

	"airline_metrics/internal/calc"
)

// CLVConfig drives the lifetime value projection. Rates are percentages.
type CLVConfig struct {
	AverageTicketPrice float64 `json:"average_ticket_price"`
	FlightsPerYear     float64 `json:"flights_per_year"`
	ProjectionYears    int     `json:"projection_years"`
	AnnualGrowthRate   float64 `json:"annual_growth_rate"`
	DiscountRate       float64 `json:"discount_rate"`
}

func (c CLVConfig) validate() error {
	if err := calc.NonNegative("average_ticket_price", c.AverageTicketPrice); err != nil {
		return err
	}
	if err := calc.NonNegative("flights_per_year", c.FlightsPerYear); err != nil {
		return err
	}
	if c.ProjectionYears < 0 {
		return calc.Invalid("projection_years must not be negative")
	}
	if err := calc.Finite("annual_growth_rate", c.AnnualGrowthRate); err != nil {
		return err
	}
	if err := calc.Finite("discount_rate", c.DiscountRate); err != nil {
		return err
	}
	if c.AnnualGrowthRate <= -100 {
		return calc.Invalid("annual_growth_rate must be greater than -100")
	}
	if c.DiscountRate <= -100 {
		return calc.Invalid("discount_rate must be greater than -100")
	}
	return nil
}

// CLV projects yearly ticket revenue over ProjectionYears. Year y revenue is
// grown for y-1 years and discounted for y years; the total is rounded to
// the nearest unit.
func CLV(cfg CLVConfig) (float64, error) {
	if err := cfg.validate(); err != nil {
		return 0, err
	}
	yearly := cfg.AverageTicketPrice * cfg.FlightsPerYear
	growth := 1 + cfg.AnnualGrowthRate/100
	discount := 1 + cfg.DiscountRate/100

	total := 0.0
	for year := 1; year <= cfg.ProjectionYears; year++ {
		growthMultiplier := math.Pow(growth, float64(year-1))
		discountMultiplier := 1 / math.Pow(discount, float64(year))
		total += yearly * growthMultiplier * discountMultiplier
	}
	if err := calc.Finite("clv", total); err != nil {
		return 0, err
	}
	return math.Round(total), nil
}

// SegmentConfig holds the thresholds of the segmentation ladder.
type SegmentConfig struct {
	// NewCustomerPeriod in months since last flight.
	NewCustomerPeriod float64 `json:"new_customer_period" yaml:"new_customer_period"`
	// ChurnThreshold in months since last flight.
	ChurnThreshold float64 `json:"churn_threshold" yaml:"churn_threshold"`
	// AtRiskFrequencyDrop is a percentage drop in flight frequency.
	AtRiskFrequencyDrop float64 `json:"at_risk_frequency_drop" yaml:"at_risk_frequency_drop"`
	LoyalMinFlights     float64 `json:"loyal_min_flights" yaml:"loyal_min_flights"`
}

// DefaultSegmentConfig returns the thresholds used when none are supplied.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		NewCustomerPeriod:   3,
		ChurnThreshold:      12,
		AtRiskFrequencyDrop: 50,
		LoyalMinFlights:     10,
	}
}

// Validate rejects negative or non-finite thresholds.
func (c SegmentConfig) Validate() error {
	return calc.NonNegativeAll(
		calc.Field{Name: "new_customer_period", Value: c.NewCustomerPeriod},
		calc.Field{Name: "churn_threshold", Value: c.ChurnThreshold},
		calc.Field{Name: "at_risk_frequency_drop", Value: c.AtRiskFrequencyDrop},
		calc.Field{Name: "loyal_min_flights", Value: c.LoyalMinFlights},
	)
}

// ChurnProbability scales recency against the churn threshold and
// discounts it by how close the customer flies to the loyal frequency.
// The result is clamped to [0, 1].
func ChurnProbability(lastFlightMonths, avgFrequency float64, cfg SegmentConfig) (float64, error) {
	if err := calc.NonNegative("last_flight_months", lastFlightMonths); err != nil {
		return 0, err
	}
	if err := calc.NonNegative("avg_frequency", avgFrequency); err != nil {
		return 0, err
	}
	recency, err := calc.Divide(lastFlightMonths, cfg.ChurnThreshold, "churn_threshold")
	if err != nil {
		return 0, err
	}
	frequency, err := calc.Divide(avgFrequency, cfg.LoyalMinFlights, "loyal_min_flights")
	if err != nil {
		return 0, err
	}
	return calc.Clamp01(recency * (1 - frequency)), nil
}

// Segment is a customer lifecycle bucket.
type Segment string

const (
	SegmentNew     Segment = "new"
	SegmentChurned Segment = "churned"
	SegmentAtRisk  Segment = "at-risk"
	SegmentLoyal   Segment = "loyal"
)

// Categorize walks the ladder new, churned, at-risk, loyal and stops at the
// first match. Customers matching none are treated as at-risk.
func Categorize(lastFlightMonths, totalFlights, frequencyDrop float64, cfg SegmentConfig) Segment {
	switch {
	case lastFlightMonths <= cfg.NewCustomerPeriod:
		return SegmentNew
	case lastFlightMonths >= cfg.ChurnThreshold:
		return SegmentChurned
	case frequencyDrop >= cfg.AtRiskFrequencyDrop:
		return SegmentAtRisk
	case totalFlights >= cfg.LoyalMinFlights:
		return SegmentLoyal
	default:
		return SegmentAtRisk
	}
}

// CustomerInput describes one customer for Profile.
type CustomerInput struct {
	LastFlightMonths   float64 `json:"last_flight_months"`
	TotalFlights       float64 `json:"total_flights"`
	AvgFrequency       float64 `json:"avg_frequency"`
	FrequencyDrop      float64 `json:"frequency_drop"`
	AverageTicketPrice float64 `json:"average_ticket_price"`
}

// CustomerProfile combines segment, churn risk and value.
type CustomerProfile struct {
	Segment           Segment `json:"segment"`
	ChurnProbability  float64 `json:"churn_probability"`
	CLV               float64 `json:"clv"`
	ValueAtRisk       float64 `json:"value_at_risk"`
	RecommendedAction string  `json:"recommended_action"`
}

// Profile segments a customer and values them with clv, using the
// customer's own ticket price and frequency in place of the config's.
func Profile(in CustomerInput, cfg SegmentConfig, clv CLVConfig) (CustomerProfile, error) {
	if err := cfg.Validate(); err != nil {
		return CustomerProfile{}, err
	}
	churn, err := ChurnProbability(in.LastFlightMonths, in.AvgFrequency, cfg)
	if err != nil {
		return CustomerProfile{}, err
	}
	clv.AverageTicketPrice = in.AverageTicketPrice
	clv.FlightsPerYear = in.AvgFrequency
	value, err := CLV(clv)
	if err != nil {
		return CustomerProfile{}, err
	}
	segment := Categorize(in.LastFlightMonths, in.TotalFlights, in.FrequencyDrop, cfg)
	return CustomerProfile{
		Segment:           segment,
		ChurnProbability:  calc.Round2(churn),
		CLV:               value,
		ValueAtRisk:       math.Round(value * churn),
		RecommendedAction: recommendedAction(segment, churn),
	}, nil
}

func recommendedAction(s Segment, churn float64) string {
	switch s {
	case SegmentNew:
		return "send welcome offer and enrol in loyalty programme"
	case SegmentChurned:
		return "run win-back campaign with a discounted fare"
	case SegmentLoyal:
		if churn >= 0.5 {
			return "assign account manager and offer tier upgrade"
		}
		return "maintain engagement with loyalty rewards"
	default:
		return "target with personalised route promotions"
	}
}
