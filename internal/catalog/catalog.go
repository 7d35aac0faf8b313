// Package catalog holds the reference aircraft, airports and ULD types the
// calculators are fed from.
package catalog

import (
	"embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"airline_metrics/internal/models"
	"airline_metrics/internal/performance"
)

//go:embed data/aircraft.json data/airports.csv data/ulds.json
var embedded embed.FS

const earthRadiusKm = 6371.0

// ErrNotFound is returned when an aircraft, airport or ULD is unknown.
var ErrNotFound = errors.New("not found")

// Catalog is safe for concurrent reads once loaded.
type Catalog struct {
	mu       sync.RWMutex
	aircraft []models.Aircraft
	airports []models.Airport
	byIdent  map[string]models.Airport
	ulds     []models.ULDType
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{byIdent: map[string]models.Airport{}}
}

// Load reads the aircraft and airport files. An empty path selects the
// bundled data set.
func Load(aircraftPath, airportsPath string) (*Catalog, error) {
	c := New()

	ac, err := openSource(aircraftPath, "data/aircraft.json")
	if err != nil {
		return nil, fmt.Errorf("failed to open aircraft data: %w", err)
	}
	defer ac.Close()
	list, err := ParseAircraftJSON(ac)
	if err != nil {
		return nil, err
	}
	c.SetAircraft(list)

	ap, err := openSource(airportsPath, "data/airports.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to open airports data: %w", err)
	}
	defer ap.Close()
	airports, err := ParseAirportsCSV(ap)
	if err != nil {
		return nil, err
	}
	c.SetAirports(airports)

	uf, err := embedded.Open("data/ulds.json")
	if err != nil {
		return nil, err
	}
	defer uf.Close()
	var ulds []models.ULDType
	if err := json.NewDecoder(uf).Decode(&ulds); err != nil {
		return nil, fmt.Errorf("failed to parse ULD data: %w", err)
	}
	c.ulds = ulds

	return c, nil
}

func openSource(path, fallback string) (io.ReadCloser, error) {
	if path == "" {
		return embedded.Open(fallback)
	}
	return os.Open(path)
}

// ParseAircraftJSON decodes a JSON array of aircraft types.
func ParseAircraftJSON(r io.Reader) ([]models.Aircraft, error) {
	var list []models.Aircraft
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse aircraft data: %w", err)
	}
	return list, nil
}

// ParseAirportsCSV reads an OurAirports style CSV. Closed airports,
// heliports and seaplane bases are skipped.
func ParseAirportsCSV(r io.Reader) ([]models.Airport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read airports header: %w", err)
	}
	idx := func(name string) int {
		for i, h := range headers {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		return -1
	}
	col := map[string]int{}
	for _, name := range []string{"id", "ident", "type", "name", "latitude_deg", "longitude_deg",
		"iso_country", "iso_region", "municipality", "iata_code", "icao_code"} {
		col[name] = idx(name)
	}
	for _, required := range []string{"ident", "type", "latitude_deg", "longitude_deg"} {
		if col[required] < 0 {
			return nil, fmt.Errorf("airports data is missing column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i := col[name]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var airports []models.Airport
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read airports line %d: %w", line, err)
		}

		t := field(rec, "type")
		if t == "closed" || t == "heliport" || t == "seaplane_base" {
			continue
		}

		lat, err := strconv.ParseFloat(field(rec, "latitude_deg"), 64)
		if err != nil {
			return nil, fmt.Errorf("airports line %d: bad latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(field(rec, "longitude_deg"), 64)
		if err != nil {
			return nil, fmt.Errorf("airports line %d: bad longitude: %w", line, err)
		}

		airports = append(airports, models.Airport{
			ID:        field(rec, "id"),
			Ident:     field(rec, "ident"),
			Type:      t,
			Name:      field(rec, "name"),
			Latitude:  lat,
			Longitude: lon,
			Country:   field(rec, "iso_country"),
			Region:    field(rec, "iso_region"),
			City:      field(rec, "municipality"),
			IATA:      field(rec, "iata_code"),
			ICAO:      field(rec, "icao_code"),
			RunwayM:   runwayMetersForType(t),
		})
	}
	return airports, nil
}

func runwayMetersForType(t string) int {
	switch t {
	case "large_airport":
		return 3200
	case "medium_airport":
		return 2200
	case "small_airport":
		return 1200
	default:
		return 1000
	}
}

func (c *Catalog) SetAircraft(list []models.Aircraft) {
	c.mu.Lock()
	c.aircraft = list
	c.mu.Unlock()
}

func (c *Catalog) Aircraft() []models.Aircraft {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aircraft
}

// SetAirports replaces the airport list and indexes it by ident, IATA and ICAO.
func (c *Catalog) SetAirports(list []models.Airport) {
	byIdent := make(map[string]models.Airport, len(list)*2)
	for _, a := range list {
		for _, key := range []string{a.Ident, a.IATA, a.ICAO} {
			key = strings.ToUpper(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			if _, taken := byIdent[key]; !taken {
				byIdent[key] = a
			}
		}
	}
	c.mu.Lock()
	c.airports = list
	c.byIdent = byIdent
	c.mu.Unlock()
}

// Airports filters by tier: "large", "medium" (medium and large), "small"
// or "" / "all".
func (c *Catalog) Airports(tier string) []models.Airport {
	c.mu.RLock()
	all := c.airports
	c.mu.RUnlock()

	if tier == "" || tier == "all" {
		return all
	}
	tier = strings.ToLower(tier)
	keep := func(t string) bool {
		switch tier {
		case "large":
			return t == "large_airport"
		case "medium":
			return t == "large_airport" || t == "medium_airport"
		case "small":
			return t == "small_airport"
		default:
			return true
		}
	}
	out := make([]models.Airport, 0, len(all))
	for _, a := range all {
		if keep(a.Type) {
			out = append(out, a)
		}
	}
	return out
}

// AirportByIdent returns an airport by ident, IATA or ICAO code.
func (c *Catalog) AirportByIdent(ident string) (models.Airport, bool) {
	ident = strings.ToUpper(strings.TrimSpace(ident))
	c.mu.RLock()
	defer c.mu.RUnlock()
	ap, ok := c.byIdent[ident]
	return ap, ok
}

func (c *Catalog) FindAircraft(id string) (models.Aircraft, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.aircraft {
		if strings.EqualFold(a.ID, id) {
			return a, nil
		}
	}
	return models.Aircraft{}, fmt.Errorf("aircraft type %q: %w", id, ErrNotFound)
}

func (c *Catalog) ULDs() []models.ULDType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ulds
}

func (c *Catalog) FindULD(code string) (models.ULDType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.ulds {
		if strings.EqualFold(u.Code, code) {
			return u, nil
		}
	}
	return models.ULDType{}, fmt.Errorf("ULD type %q: %w", code, ErrNotFound)
}

// Distance is the great circle distance in km between two airports.
func (c *Catalog) Distance(from, to string) (float64, error) {
	a, ok := c.AirportByIdent(from)
	if !ok {
		return 0, fmt.Errorf("airport %q: %w", from, ErrNotFound)
	}
	b, ok := c.AirportByIdent(to)
	if !ok {
		return 0, fmt.Errorf("airport %q: %w", to, ErrNotFound)
	}
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude), nil
}

func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// PerformanceSpec maps a catalog aircraft onto the fuel model's inputs.
func PerformanceSpec(a models.Aircraft) performance.AircraftSpec {
	return performance.AircraftSpec{
		EmptyWeight:      a.OEWKg,
		MaxTakeoffWeight: a.MTOWKg,
		FuelCapacity:     a.FuelCapacityKg,
		CruiseSpeed:      a.CruiseKmh,
		BaseFuelFlow:     a.BaseFuelFlow,
		FuelEfficiency:   a.FuelEfficiency,
	}
}
