package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"airline_metrics/internal/cache"
	"airline_metrics/internal/calc"
	"airline_metrics/internal/catalog"
	"airline_metrics/internal/crm"
	"airline_metrics/internal/history"
	"airline_metrics/internal/logging"
	"airline_metrics/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Options wires the server's collaborators. Cache, History and RateLimiter
// are optional; nil disables them.
type Options struct {
	Catalog        *catalog.Catalog
	Logger         logrus.FieldLogger
	Metrics        *metrics.Metrics
	Cache          cache.Cache
	History        history.Recorder
	RateLimiter    *RateLimiter
	Segments       crm.SegmentConfig
	AllowedOrigins []string
}

type Server struct {
	catalog  *catalog.Catalog
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	cache    cache.Cache
	history  history.Recorder
	segments crm.SegmentConfig
}

// New constructs the HTTP router wired to the calculators.
func New(opts Options) http.Handler {
	s := &Server{
		catalog:  opts.Catalog,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		cache:    opts.Cache,
		history:  opts.History,
		segments: opts.Segments,
	}
	if s.catalog == nil {
		s.catalog = catalog.New()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.segments == (crm.SegmentConfig{}) {
		s.segments = crm.DefaultSegmentConfig()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.InstrumentHandler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Handler)
		}

		r.Get("/airports", s.handleAirports)
		r.Get("/aircraft/templates", s.handleAircraftTemplates)
		r.Get("/cargo/ulds", s.handleULDTypes)

		r.Post("/performance/high-fidelity", s.handleHighFidelity)
		r.Post("/performance/simplified", s.handleSimplified)
		r.Post("/performance/compare", s.handleCompare)

		r.Post("/cargo/analysis", s.handleCargoAnalysis)
		r.Post("/cargo/uld", s.handleULDLoad)
		r.Post("/cargo/dynamic-price", s.handleDynamicPrice)

		r.Post("/passenger/analysis", s.handlePassengerAnalysis)
		r.Post("/passenger/overbooking", s.handleOverbooking)

		r.Post("/crm/clv", s.handleCLV)
		r.Post("/crm/churn", s.handleChurn)
		r.Post("/crm/segment", s.handleSegment)
		r.Post("/crm/profile", s.handleProfile)

		r.Post("/demographics/predict", s.handleDemographics)

		if s.history != nil {
			r.Get("/history", s.handleHistory)
		}
	})

	return r
}

func (s *Server) handleAirports(w http.ResponseWriter, r *http.Request) {
	tier := r.URL.Query().Get("tier")
	fields := r.URL.Query().Get("fields")
	filtered := s.catalog.Airports(tier)
	if strings.EqualFold(fields, "basic") {
		basic := make([]map[string]interface{}, 0, len(filtered))
		for _, a := range filtered {
			basic = append(basic, map[string]interface{}{
				"ident": a.Ident, "name": a.Name,
				"lat": a.Latitude, "lon": a.Longitude,
				"iata": a.IATA, "icao": a.ICAO,
			})
		}
		writeJSON(w, http.StatusOK, basic)
		return
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) handleAircraftTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Aircraft())
}

func (s *Server) handleULDTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.ULDs())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := s.history.List(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		s.log.WithError(err).Error("history list failed")
		writeJSONError(w, http.StatusInternalServerError, "")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// segmentKinds are the calculations whose result depends on the configured
// segment thresholds when the request does not carry its own.
var segmentKinds = map[string]bool{
	"crm_churn":   true,
	"crm_segment": true,
	"crm_profile": true,
}

// cacheKey hashes the request together with any server configuration the
// result depends on.
func (s *Server) cacheKey(kind string, in any) (string, error) {
	if !segmentKinds[kind] {
		return cache.Key(kind, in)
	}
	return cache.Key(kind, struct {
		Input    any               `json:"input"`
		Segments crm.SegmentConfig `json:"configured_segments"`
	}{in, s.segments})
}

// calculate decodes the request body into In, serves a cached response when
// one exists, otherwise runs fn and caches and records a successful result.
// Cache and history failures are logged and never fail the request.
func calculate[In, Out any](s *Server, w http.ResponseWriter, r *http.Request, kind string, fn func(In) (Out, error)) {
	var in In
	if err := decodeJSON(w, r, &in); err != nil {
		s.metrics.Calculation(kind, "invalid_input")
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	log := s.log.WithFields(logrus.Fields{
		"kind":       kind,
		"request_id": middleware.GetReqID(r.Context()),
	})

	var key string
	if s.cache != nil {
		k, err := s.cacheKey(kind, in)
		if err != nil {
			log.WithError(err).Warn("cache key failed")
		} else {
			key = k
			cached, ok, err := s.cache.Get(r.Context(), key)
			if err != nil {
				log.WithError(err).Warn("cache get failed")
			}
			s.metrics.CacheLookup(kind, ok)
			if ok {
				s.metrics.Calculation(kind, "ok")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				w.Write(cached)
				return
			}
		}
	}

	out, err := fn(in)
	if err != nil {
		s.writeCalcError(w, log, kind, err)
		return
	}
	body, err := json.Marshal(out)
	if err != nil {
		s.writeCalcError(w, log, kind, err)
		return
	}
	body = append(body, '\n')
	s.metrics.Calculation(kind, "ok")

	if key != "" {
		if err := s.cache.Set(r.Context(), key, body); err != nil {
			log.WithError(err).Warn("cache set failed")
		}
		w.Header().Set("X-Cache", "MISS")
	}
	if s.history != nil {
		if err := s.history.Record(r.Context(), kind, in, out); err != nil {
			log.WithError(err).Warn("history record failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ===== helpers =====

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeCalcError maps calculation errors onto HTTP statuses and counts the
// outcome. Unexpected errors are logged and hidden from the caller.
func (s *Server) writeCalcError(w http.ResponseWriter, log logrus.FieldLogger, kind string, err error) {
	switch {
	case errors.Is(err, calc.ErrInvalidInput):
		s.metrics.Calculation(kind, "invalid_input")
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, calc.ErrDivisionByZero):
		s.metrics.Calculation(kind, "division_by_zero")
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		s.metrics.Calculation(kind, "invalid_input")
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		s.metrics.Calculation(kind, "error")
		log.WithError(err).Error("calculation failed")
		writeJSONError(w, http.StatusInternalServerError, "")
	}
}
