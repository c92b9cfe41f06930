// Package config loads process configuration from the environment (and an
// optional .env file). It contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBaseURL is the public ANNCSU lookup service.
const DefaultBaseURL = "https://anncsu-api.dataws.it/v1"

// Config holds all process settings.
type Config struct {
	Env  string
	Port int

	// Remote lookup service.
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	RateBurst int

	// Local lookup mirror. Empty LookupDatabaseURL disables the mirror routes.
	LookupDatabaseURL string
	LookupSeed        bool

	SessionMaxAge      time.Duration
	SessionIdleTimeout time.Duration
}

// IsMirrorEnabled reports whether the local lookup mirror should be served.
func (c *Config) IsMirrorEnabled() bool { return c.LookupDatabaseURL != "" }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("PORT must be a positive integer")
	}
	rateLimit, err := strconv.ParseFloat(getEnv("ANNCSU_RATE_LIMIT", "0"), 64)
	if err != nil || rateLimit < 0 {
		return nil, fmt.Errorf("ANNCSU_RATE_LIMIT must be a non-negative number")
	}

	timeout, err := envDuration("ANNCSU_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	rateBurst, err := envInt("ANNCSU_RATE_BURST", "5")
	if err != nil {
		return nil, err
	}
	maxAge, err := envDuration("SESSION_MAX_AGE", "24h")
	if err != nil {
		return nil, err
	}
	idle, err := envDuration("SESSION_IDLE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		Port:               port,
		BaseURL:            strings.TrimRight(getEnv("ANNCSU_BASE_URL", DefaultBaseURL), "/"),
		Timeout:            timeout,
		RateLimit:          rateLimit,
		RateBurst:          rateBurst,
		LookupDatabaseURL:  getEnv("LOOKUP_DATABASE_URL", ""),
		LookupSeed:         strings.EqualFold(getEnv("LOOKUP_SEED", "false"), "true"),
		SessionMaxAge:      maxAge,
		SessionIdleTimeout: idle,
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ANNCSU_BASE_URL cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("ANNCSU_TIMEOUT must be a positive duration")
	}
	if cfg.SessionMaxAge <= 0 || cfg.SessionIdleTimeout <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE and SESSION_IDLE_TIMEOUT must be positive durations")
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
