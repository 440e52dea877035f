package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DB_URL", "REDIS_URL", "TICK_INTERVAL_SECONDS", "RULE_REFRESH_SECONDS",
		"WINDOW_MINUTES_RATE", "MIN_CONSECUTIVE_ERRORS", "RECOVERY_THRESHOLD",
		"COOLDOWN_SECONDS", "LLM_TIMEOUT_SECONDS", "BUCKET_TTL_SECONDS",
		"ENRICH_WORKERS", "LLM_PROVIDER", "CURRENCY_TABLE_PATH",
		"GEMINI_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresDBURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error when DB_URL is unset")
	}
}

func TestLoadRequiresRedisURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/sentinel")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error when REDIS_URL is unset")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/sentinel")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected default LLM_PROVIDER gemini, got %q", cfg.LLMProvider)
	}
	if cfg.WindowMinutesRate != 10 {
		t.Fatalf("expected default window 10, got %d", cfg.WindowMinutesRate)
	}
	if cfg.MinConsecutiveErrors != 8 {
		t.Fatalf("expected default min consecutive errors 8, got %d", cfg.MinConsecutiveErrors)
	}
}

func TestLoadRejectsInvalidLLMProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/sentinel")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("LLM_PROVIDER", "bogus")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unsupported LLM_PROVIDER")
	}
}

func TestLoadRejectsNonIntegerTuning(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/sentinel")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("WINDOW_MINUTES_RATE", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a non-integer WINDOW_MINUTES_RATE")
	}
}
