package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"airline_metrics/internal/api"
	"airline_metrics/internal/cache"
	"airline_metrics/internal/catalog"
	"airline_metrics/internal/config"
	"airline_metrics/internal/history"
	"airline_metrics/internal/logging"
	"airline_metrics/internal/metrics"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("failed to build logger: %v", err)
	}

	cat, err := catalog.Load(cfg.Catalog.AircraftPath, cfg.Catalog.AirportsPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	log.WithFields(logrus.Fields{
		"aircraft": len(cat.Aircraft()),
		"airports": len(cat.Airports("")),
	}).Info("loaded catalog")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	opts := api.Options{
		Catalog:        cat,
		Logger:         log,
		Metrics:        metrics.New(),
		Segments:       cfg.Segments,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}

	if cfg.Cache.Enabled {
		opts.Cache = newCache(ctx, cfg.Cache, log)
		switch c := opts.Cache.(type) {
		case *cache.Redis:
			defer c.Close()
		case *cache.Memory:
			c.StartCleanup(ctx, time.Minute)
		}
	}

	if cfg.History.Enabled() {
		db, err := history.Connect(cfg.History.DSN, cfg.History.MaxOpenConns, cfg.History.MaxIdleConns)
		if err != nil {
			log.Fatalf("failed to connect history database: %v", err)
		}
		defer db.Close()
		store := history.NewStore(db)
		if err := store.InitSchema(ctx); err != nil {
			log.Fatalf("failed to init history schema: %v", err)
		}
		opts.History = store
		log.Info("calculation history enabled")
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		rl := api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		rl.StartCleanup(ctx, time.Minute)
		opts.RateLimiter = rl
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.New(opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
}

// newCache prefers Redis and falls back to the in-process cache when Redis
// is not configured or not reachable at startup.
func newCache(ctx context.Context, cfg config.CacheConfig, log logrus.FieldLogger) cache.Cache {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory result cache")
		return cache.NewMemory(cfg.TTL, cfg.MaxEntries)
	}
	rc := cache.NewRedis(cfg.RedisAddr, cfg.Password, cfg.DB, cfg.TTL)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory result cache")
		rc.Close()
		return cache.NewMemory(cfg.TTL, cfg.MaxEntries)
	}
	log.WithField("addr", cfg.RedisAddr).Info("using redis result cache")
	return rc
}
