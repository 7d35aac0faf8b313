package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airline_metrics/internal/cache"
	"airline_metrics/internal/catalog"
	"airline_metrics/internal/crm"
	"airline_metrics/internal/history"
	"airline_metrics/internal/models"
)

type fakeRecorder struct {
	mu      sync.Mutex
	kinds   []string
	failing bool
}

func (f *fakeRecorder) Record(_ context.Context, kind string, _, _ any) error {
	if f.failing {
		return errors.New("database unavailable")
	}
	f.mu.Lock()
	f.kinds = append(f.kinds, kind)
	f.mu.Unlock()
	return nil
}

func (f *fakeRecorder) List(_ context.Context, kind string, limit int) ([]history.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []history.Record{}
	for _, k := range f.kinds {
		if kind == "" || k == kind {
			out = append(out, history.Record{Kind: k})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	if opts.Catalog == nil {
		c, err := catalog.Load("", "")
		require.NoError(t, err)
		opts.Catalog = c
	}
	opts.Logger = testLogger()
	return New(opts)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCatalogEndpoints(t *testing.T) {
	h := newTestHandler(t, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aircraft/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	aircraft := decode[[]models.Aircraft](t, rec)
	assert.NotEmpty(t, aircraft)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/airports?tier=large", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, a := range decode[[]models.Airport](t, rec) {
		assert.Equal(t, "large_airport", a.Type)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/airports?fields=basic", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	basic := decode[[]map[string]any](t, rec)
	require.NotEmpty(t, basic)
	assert.NotContains(t, basic[0], "runway_m")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cargo/ulds", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.ULDType](t, rec))
}

func TestPerformanceSimplifiedInline(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := post(t, h, "/performance/simplified", `{
		"aircraft": {"empty_weight": 40000, "max_takeoff_weight": 78000, "fuel_capacity": 24000,
		             "cruise_speed": 800, "base_fuel_flow": 2500, "fuel_efficiency": 3},
		"conditions": {"distance": 1000}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[map[string]any](t, rec)
	assert.InDelta(t, 3350.0, out["fuel_required"], 1e-9)
	assert.InDelta(t, 3350.0*3.16, out["co2_emissions"], 1e-6)
}

func TestPerformanceFromCatalogAndAirports(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := post(t, h, "/performance/compare", `{
		"aircraft_id": "A320", "origin": "LHR", "dest": "CDG",
		"conditions": {"altitude": 35000, "payload": 15000, "temperature": 15}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[map[string]map[string]any](t, rec)
	assert.Greater(t, out["high_fidelity"]["fuel_required"], 0.0)
	assert.Greater(t, out["simplified"]["fuel_required"], 0.0)

	rec = post(t, h, "/performance/high-fidelity", `{"aircraft_id": "concorde", "conditions": {"distance": 100}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, h, "/performance/high-fidelity", `{"aircraft_id": "A320", "origin": "LHR"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/performance/high-fidelity", `{"conditions": {"distance": 100}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCargoEndpoints(t *testing.T) {
	h := newTestHandler(t, Options{})

	rec := post(t, h, "/cargo/dynamic-price", `{"base_rate": 2.5, "fuel_surcharge": 0, "demand_factor": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.5, decode[priceResponse](t, rec).Price)

	rec = post(t, h, "/cargo/uld", `{"uld_code": "pmc", "weight": 6804, "volume": 11.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	uld := decode[map[string]any](t, rec)
	assert.Equal(t, true, uld["is_optimal"])

	rec = post(t, h, "/cargo/analysis", `{
		"aircraft": {"empty_weight": 40000, "max_takeoff_weight": 78000},
		"cargo_weight": 10000, "cargo_volume": 20, "max_volume": 0,
		"distance": 1000, "fuel_load": 18000, "revenue_per_ftk": 0.5, "operating_cost": 1000
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "division by zero")

	rec = post(t, h, "/cargo/analysis", `{
		"aircraft_id": "B777F", "cargo_weight": 50000, "cargo_volume": 300,
		"origin": "FRA", "dest": "DXB", "fuel_load": 90000,
		"revenue_per_ftk": 0.4, "operating_cost": 100000
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	analysis := decode[map[string]any](t, rec)
	assert.Greater(t, analysis["ftk"], 0.0)
	assert.InDelta(t, 50000.0/(347800-144379-90000)*100, analysis["load_factor"], 1e-9)
	assert.Equal(t, false, analysis["overweight"])
}

func TestPassengerEndpoints(t *testing.T) {
	h := newTestHandler(t, Options{})

	rec := post(t, h, "/passenger/overbooking", `{"aircraft_id": "A320", "no_show_rate": 0.25, "desired_load_factor": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ob := decode[overbookingResponse](t, rec)
	assert.Equal(t, 180, ob.Seats)
	assert.Equal(t, 225, ob.OverbookingLimit)

	rec = post(t, h, "/passenger/analysis", `{
		"seats": 100, "booked": 80, "ticket_price": 100, "variable_cost": 100,
		"fixed_costs": 1000, "miles_per_flight": 500, "flights": 1
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCRMEndpoints(t *testing.T) {
	h := newTestHandler(t, Options{})

	rec := post(t, h, "/crm/clv", `{"average_ticket_price": 1000, "flights_per_year": 2, "projection_years": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2000.0, decode[clvResponse](t, rec).CLV)

	rec = post(t, h, "/crm/segment", `{"last_flight_months": 0, "total_flights": 100, "frequency_drop": 90}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new", string(decode[segmentResponse](t, rec).Segment))

	rec = post(t, h, "/crm/churn", `{"last_flight_months": 6, "avg_frequency": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.25, decode[churnResponse](t, rec).ChurnProbability, 1e-12)

	rec = post(t, h, "/crm/churn", `{"last_flight_months": 6, "avg_frequency": 5,
		"segments": {"new_customer_period": 3, "churn_threshold": 0, "at_risk_frequency_drop": 50, "loyal_min_flights": 10}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, h, "/crm/profile", `{
		"customer": {"last_flight_months": 6, "total_flights": 14, "avg_frequency": 5,
		             "frequency_drop": 10, "average_ticket_price": 400},
		"clv": {"projection_years": 1}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[map[string]any](t, rec)
	assert.Equal(t, "loyal", profile["segment"])
	assert.Equal(t, 2000.0, profile["clv"])
}

func TestDemographicsEndpoint(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := post(t, h, "/demographics/predict", `{
		"day": "Monday", "season": "spring", "time_of_day": "morning",
		"booking_window": "last_minute", "route_type": "business",
		"price_sensitivity": "low", "distance": 2000
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[map[string]any](t, rec)
	assert.Equal(t, "Business", out["dominant_type"])
	assert.Greater(t, out["business_percentage"], out["leisure_percentage"])

	rec = post(t, h, "/demographics/predict", `{"day": "Caturday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBadJSON(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := post(t, h, "/crm/clv", `{"average_ticket_price": "lots"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decode[map[string]string](t, rec)["error"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/crm/clv", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestResultCache(t *testing.T) {
	mem := cache.NewMemory(time.Minute, 0)
	h := newTestHandler(t, Options{Cache: mem})
	body := `{"average_ticket_price": 500, "flights_per_year": 2, "projection_years": 2,
		"annual_growth_rate": 10, "discount_rate": 10}`

	first := post(t, h, "/crm/clv", body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := post(t, h, "/crm/clv", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, mem.Len())

	failed := post(t, h, "/crm/clv", `{"projection_years": -1}`)
	assert.Equal(t, http.StatusBadRequest, failed.Code)
	assert.Equal(t, 1, mem.Len(), "errors are not cached")
}

func TestCacheKeyFollowsConfiguredSegments(t *testing.T) {
	mem := cache.NewMemory(time.Minute, 0)
	strict := newTestHandler(t, Options{Cache: mem})
	lenient := newTestHandler(t, Options{Cache: mem, Segments: crm.SegmentConfig{
		NewCustomerPeriod: 8, ChurnThreshold: 12, AtRiskFrequencyDrop: 50, LoyalMinFlights: 10,
	}})
	body := `{"last_flight_months": 6, "total_flights": 20, "frequency_drop": 0}`

	rec := post(t, strict, "/crm/segment", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, crm.SegmentLoyal, decode[segmentResponse](t, rec).Segment)

	rec = post(t, lenient, "/crm/segment", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, crm.SegmentNew, decode[segmentResponse](t, rec).Segment)

	rec = post(t, lenient, "/crm/segment", body)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, crm.SegmentNew, decode[segmentResponse](t, rec).Segment)
}

func TestOverflowingInputsAreRejected(t *testing.T) {
	h := newTestHandler(t, Options{})
	tests := []struct {
		name string
		path string
		body string
	}{
		{"overbooking", "/passenger/overbooking", `{"seats": 100, "no_show_rate": 1e300, "desired_load_factor": 1}`},
		{"simplified", "/performance/simplified", `{"aircraft_id": "A320", "conditions": {"distance": 1e160}}`},
		{"dynamic price", "/cargo/dynamic-price", `{"base_rate": 1e308, "fuel_surcharge": 100, "demand_factor": 100}`},
		{"cargo ftk", "/cargo/analysis", `{"aircraft_id": "B777F", "cargo_weight": 1e200, "cargo_volume": 10,
			"distance": 1e200, "revenue_per_ftk": 0.5, "operating_cost": 1000}`},
		{"passenger revenue", "/passenger/analysis", `{"seats": 100, "booked": 100, "ticket_price": 1.7e308,
			"variable_cost": 1, "fixed_costs": 1, "miles_per_flight": 100, "flights": 2, "desired_load_factor": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "invalid input")
		})
	}
}

func TestHistoryRecordingAndListing(t *testing.T) {
	rec := &fakeRecorder{}
	h := newTestHandler(t, Options{History: rec})

	post(t, h, "/cargo/dynamic-price", `{"base_rate": 1}`)
	post(t, h, "/crm/clv", `{"average_ticket_price": 1, "flights_per_year": 1, "projection_years": 1}`)
	post(t, h, "/crm/clv", `{"projection_years": -1}`)

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/history?kind=crm_clv", nil))
	require.Equal(t, http.StatusOK, res.Code)
	records := decode[[]history.Record](t, res)
	require.Len(t, records, 1)
	assert.Equal(t, "crm_clv", records[0].Kind)

	res = httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/history?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHistoryFailureDoesNotFailRequest(t *testing.T) {
	h := newTestHandler(t, Options{History: &fakeRecorder{failing: true}})
	rec := post(t, h, "/cargo/dynamic-price", `{"base_rate": 1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHistoryRouteDisabled(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, Options{})
	post(t, h, "/cargo/dynamic-price", `{"base_rate": 1}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `airline_metrics_calc_calculations_total{kind="cargo_dynamic_price",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/cargo/dynamic-price"`)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, Options{AllowedOrigins: []string{"https://ops.example"}})
	req := httptest.NewRequest(http.MethodOptions, "/crm/clv", nil)
	req.Header.Set("Origin", "https://ops.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://ops.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
