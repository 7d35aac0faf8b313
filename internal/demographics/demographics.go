// Package demographics estimates the business/leisure passenger mix of a
// flight from booking and schedule signals.
package demographics

import (
	"math"
	"strings"
	"time"

	"airline_metrics/internal/calc"
)

const (
	mixedThreshold = 15.0
	maxConfidence  = 95.0
	maxInsights    = 4
)

// PassengerType is the dominant traveller profile.
type PassengerType string

const (
	Business PassengerType = "Business"
	Leisure  PassengerType = "Leisure"
	Mixed    PassengerType = "Mixed"
)

type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

type TimeOfDay string

const (
	EarlyMorning TimeOfDay = "early_morning"
	Morning      TimeOfDay = "morning"
	Afternoon    TimeOfDay = "afternoon"
	Evening      TimeOfDay = "evening"
	Night        TimeOfDay = "night"
)

type BookingWindow string

const (
	LastMinute BookingWindow = "last_minute"
	ShortTerm  BookingWindow = "short_term"
	Advance    BookingWindow = "advance"
	EarlyBird  BookingWindow = "early_bird"
)

type RouteType string

const (
	BusinessRoute RouteType = "business"
	LeisureRoute  RouteType = "leisure"
	MixedRoute    RouteType = "mixed"
)

type PriceSensitivity string

const (
	LowSensitivity    PriceSensitivity = "low"
	MediumSensitivity PriceSensitivity = "medium"
	HighSensitivity   PriceSensitivity = "high"
)

// Input is one flight's signals.
type Input struct {
	Day              time.Weekday
	Season           Season
	TimeOfDay        TimeOfDay
	BookingWindow    BookingWindow
	RouteType        RouteType
	PriceSensitivity PriceSensitivity
	// Distance in kilometres.
	Distance float64
}

// Prediction is the estimated passenger mix. Percentages are whole numbers.
type Prediction struct {
	BusinessPercentage float64       `json:"business_percentage"`
	LeisurePercentage  float64       `json:"leisure_percentage"`
	MixedPercentage    float64       `json:"mixed_percentage"`
	DominantType       PassengerType `json:"dominant_type"`
	Confidence         float64       `json:"confidence"`
	Insights           []string      `json:"insights"`
}

type scorer struct {
	business, leisure float64
	insights          []string
}

func (s *scorer) add(business, leisure float64, insight string) {
	s.business += business
	s.leisure += leisure
	s.insights = append(s.insights, insight)
}

// Predict scores each signal, converts the scores to shares of the total and
// names the dominant type. Point values are fixed; see the tables below.
func Predict(in Input) (Prediction, error) {
	if err := calc.NonNegative("distance", in.Distance); err != nil {
		return Prediction{}, err
	}
	var s scorer

	switch in.Day {
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday:
		s.add(25, 0, "Mid-week departures are dominated by business travel")
	case time.Friday, time.Sunday:
		s.add(10, 15, "Friday and Sunday flights carry commuters and weekend travellers")
	case time.Saturday:
		s.add(0, 25, "Saturday departures are mostly leisure")
	default:
		return Prediction{}, calc.Invalid("unknown day of week %d", in.Day)
	}

	switch in.TimeOfDay {
	case EarlyMorning, Morning:
		s.add(20, 0, "Morning departures suit same-day business meetings")
	case Afternoon:
		s.add(0, 15, "Afternoon departures attract leisure travellers")
	case Evening:
		s.add(10, 10, "Evening departures serve returning business and leisure travellers")
	case Night:
		s.add(0, 10, "Night departures are favoured by price-driven leisure travellers")
	default:
		return Prediction{}, calc.Invalid("unknown time of day %q", in.TimeOfDay)
	}

	switch in.Season {
	case Summer, Winter:
		s.add(0, 20, "Holiday season lifts leisure demand")
	case Spring, Autumn:
		s.add(10, 5, "Shoulder season keeps business demand steady")
	default:
		return Prediction{}, calc.Invalid("unknown season %q", in.Season)
	}

	switch in.BookingWindow {
	case LastMinute:
		s.add(25, 0, "Last-minute bookings are typical of business travellers")
	case ShortTerm:
		s.add(15, 5, "Short booking windows lean towards business travel")
	case Advance:
		s.add(0, 20, "Advance bookings indicate planned leisure trips")
	case EarlyBird:
		s.add(0, 25, "Early bookings are characteristic of holiday makers")
	default:
		return Prediction{}, calc.Invalid("unknown booking window %q", in.BookingWindow)
	}

	switch in.RouteType {
	case BusinessRoute:
		s.add(25, 0, "Route links major business centres")
	case LeisureRoute:
		s.add(0, 25, "Route serves a leisure destination")
	case MixedRoute:
		s.add(10, 10, "Route serves both business and leisure markets")
	default:
		return Prediction{}, calc.Invalid("unknown route type %q", in.RouteType)
	}

	switch in.PriceSensitivity {
	case LowSensitivity:
		s.add(20, 0, "Low price sensitivity points to corporate travel budgets")
	case MediumSensitivity:
		s.add(10, 10, "Moderate price sensitivity suggests a mixed cabin")
	case HighSensitivity:
		s.add(0, 20, "High price sensitivity is typical of leisure travellers")
	default:
		return Prediction{}, calc.Invalid("unknown price sensitivity %q", in.PriceSensitivity)
	}

	switch {
	case in.Distance < 500:
		s.add(15, 0, "Short-haul sectors see heavy business commuter traffic")
	case in.Distance <= 3000:
		s.add(10, 10, "Medium-haul sectors carry a balanced mix")
	default:
		s.add(0, 15, "Long-haul sectors are weighted towards leisure travel")
	}

	return s.prediction()
}

func (s *scorer) prediction() (Prediction, error) {
	total := s.business + s.leisure
	businessPct, err := calc.Percent(s.business, total, "total score")
	if err != nil {
		return Prediction{}, err
	}
	leisurePct, err := calc.Percent(s.leisure, total, "total score")
	if err != nil {
		return Prediction{}, err
	}
	businessPct = math.Round(businessPct)
	leisurePct = math.Round(leisurePct)
	mixedPct := math.Max(0, 100-businessPct-leisurePct)

	dominant := Mixed
	if math.Abs(businessPct-leisurePct) >= mixedThreshold {
		if businessPct > leisurePct {
			dominant = Business
		} else {
			dominant = Leisure
		}
	}

	confidence := math.Min(maxConfidence, math.Round(math.Abs(s.business-s.leisure)/total*200))

	insights := s.insights
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}

	return Prediction{
		BusinessPercentage: businessPct,
		LeisurePercentage:  leisurePct,
		MixedPercentage:    mixedPct,
		DominantType:       dominant,
		Confidence:         confidence,
		Insights:           insights,
	}, nil
}

// ParseDay accepts English weekday names in any case.
func ParseDay(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return 0, calc.Invalid("unknown day of week %q", s)
}

// ParseInput converts the string form used by HTTP callers.
func ParseInput(day, season, timeOfDay, booking, route, sensitivity string, distance float64) (Input, error) {
	in := Input{Distance: distance}
	var err error
	if in.Day, err = ParseDay(day); err != nil {
		return Input{}, err
	}
	if in.Season, err = ParseSeason(season); err != nil {
		return Input{}, err
	}
	if in.TimeOfDay, err = ParseTimeOfDay(timeOfDay); err != nil {
		return Input{}, err
	}
	if in.BookingWindow, err = ParseBookingWindow(booking); err != nil {
		return Input{}, err
	}
	if in.RouteType, err = ParseRouteType(route); err != nil {
		return Input{}, err
	}
	if in.PriceSensitivity, err = ParsePriceSensitivity(sensitivity); err != nil {
		return Input{}, err
	}
	return in, nil
}

// ParseSeason accepts "fall" as well as "autumn".
func ParseSeason(s string) (Season, error) {
	return parseEnum("season", s, Spring, Summer, Autumn, Winter)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	return parseEnum("time of day", s, EarlyMorning, Morning, Afternoon, Evening, Night)
}

func ParseBookingWindow(s string) (BookingWindow, error) {
	return parseEnum("booking window", s, LastMinute, ShortTerm, Advance, EarlyBird)
}

func ParseRouteType(s string) (RouteType, error) {
	return parseEnum("route type", s, BusinessRoute, LeisureRoute, MixedRoute)
}

func ParsePriceSensitivity(s string) (PriceSensitivity, error) {
	return parseEnum("price sensitivity", s, LowSensitivity, MediumSensitivity, HighSensitivity)
}

func parseEnum[T ~string](what, s string, allowed ...T) (T, error) {
	n := normalize(s)
	for _, v := range allowed {
		if string(v) == n {
			return v, nil
		}
	}
	return "", calc.Invalid("unknown %s %q", what, s)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "fall" {
		return string(Autumn)
	}
	return s
}
