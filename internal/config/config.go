// Package config loads runtime configuration from environment variables,
// following the teacher's convention of a single Load() returning a plain
// struct plus an error instead of a global mutable singleton.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable the ingestor and detector binaries need. Both
// binaries call Load(); each only reads the fields relevant to it.
type Config struct {
	// Connection strings (not named explicitly in spec.md's env var list,
	// but required by any real deployment).
	DBURL    string
	RedisURL string

	// Detector/enricher tuning, per spec.md §6.
	TickInterval          time.Duration
	RuleRefreshInterval   time.Duration
	WindowMinutesRate     int
	MinConsecutiveErrors  int
	RecoveryThreshold     int
	CooldownSeconds       int
	LLMTimeout            time.Duration
	LLMProvider           string // gemini | openai | none
	BucketTTLSeconds      int
	EnrichWorkers         int
	CurrencyTablePath     string // empty = built-in defaults

	// LLM credentials, read directly from the provider-specific env var so
	// no plaintext key needs to pass through a generic "API_KEY" field.
	GeminiAPIKey string
	OpenAIAPIKey string
}

// Load reads Config from the environment, applying the defaults spec.md
// documents for every optional variable. DB_URL and REDIS_URL have no
// default — a deployment without durable storage cannot run the core.
func Load() (Config, error) {
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		return Config{}, errors.New("REDIS_URL required")
	}

	cfg := Config{
		DBURL:    dbURL,
		RedisURL: redisURL,
	}

	var err error
	if cfg.TickInterval, err = durationSeconds("TICK_INTERVAL_SECONDS", 10); err != nil {
		return Config{}, err
	}
	if cfg.RuleRefreshInterval, err = durationSeconds("RULE_REFRESH_SECONDS", 10); err != nil {
		return Config{}, err
	}
	if cfg.WindowMinutesRate, err = intVar("WINDOW_MINUTES_RATE", 10); err != nil {
		return Config{}, err
	}
	if cfg.MinConsecutiveErrors, err = intVar("MIN_CONSECUTIVE_ERRORS", 8); err != nil {
		return Config{}, err
	}
	if cfg.RecoveryThreshold, err = intVar("RECOVERY_THRESHOLD", 5); err != nil {
		return Config{}, err
	}
	if cfg.CooldownSeconds, err = intVar("COOLDOWN_SECONDS", 600); err != nil {
		return Config{}, err
	}
	if cfg.LLMTimeout, err = durationSeconds("LLM_TIMEOUT_SECONDS", 15); err != nil {
		return Config{}, err
	}
	if cfg.BucketTTLSeconds, err = intVar("BUCKET_TTL_SECONDS", 1800); err != nil {
		return Config{}, err
	}
	if cfg.EnrichWorkers, err = intVar("ENRICH_WORKERS", 4); err != nil {
		return Config{}, err
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "gemini"
	}
	switch cfg.LLMProvider {
	case "gemini", "openai", "none":
	default:
		return Config{}, fmt.Errorf("LLM_PROVIDER must be gemini, openai or none, got %q", cfg.LLMProvider)
	}

	cfg.CurrencyTablePath = strings.TrimSpace(os.Getenv("CURRENCY_TABLE_PATH"))
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	return cfg, nil
}

func intVar(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return v, nil
}

func durationSeconds(name string, defSeconds int) (time.Duration, error) {
	v, err := intVar(name, defSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}
