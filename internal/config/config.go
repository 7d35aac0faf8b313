// Package config loads service settings from a YAML file, an optional .env
// file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"airline_metrics/internal/crm"
)

type Config struct {
	Server    ServerConfig      `yaml:"server"`
	CORS      CORSConfig        `yaml:"cors"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	Log       LogConfig         `yaml:"log"`
	Cache     CacheConfig       `yaml:"cache"`
	History   HistoryConfig     `yaml:"history"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	Segments  crm.SegmentConfig `yaml:"segments"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is the listen address for http.Server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig is per client IP. RequestsPerSecond <= 0 disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	IdleTTL           time.Duration `yaml:"idle_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CacheConfig selects the result cache. An empty RedisAddr uses the
// in-process cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`

	// MaxEntries caps the in-memory fallback cache.
	MaxEntries int `yaml:"max_entries"`
}

// HistoryConfig enables the calculation history store when DSN is set.
type HistoryConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

func (h HistoryConfig) Enabled() bool {
	return h.DSN != ""
}

// CatalogConfig paths override the bundled reference data when set.
type CatalogConfig struct {
	AircraftPath string `yaml:"aircraft_path"`
	AirportsPath string `yaml:"airports_path"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            "4000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			IdleTTL:           5 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        10 * time.Minute,
			MaxEntries: 10000,
		},
		History: HistoryConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Segments: crm.DefaultSegmentConfig(),
	}
}

// Load reads path over the defaults. A missing file is not an error. The
// .env file at envPath, if present, is loaded into the environment before
// overrides are applied; existing variables win over .env values.
func Load(path, envPath string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Password = v
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_ENABLED: %w", err)
		}
		c.Cache.Enabled = enabled
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.History.DSN = v
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RequestsPerSecond = rps
	}
	if v := os.Getenv("AIRCRAFT_DATA"); v != "" {
		c.Catalog.AircraftPath = v
	}
	if v := os.Getenv("AIRPORTS_DATA"); v != "" {
		c.Catalog.AirportsPath = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		return errors.New("rate limit burst must be at least 1")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if c.Cache.MaxEntries < 0 {
		return errors.New("cache max_entries must not be negative")
	}
	if err := c.Segments.Validate(); err != nil {
		return fmt.Errorf("segments: %w", err)
	}
	return nil
}
