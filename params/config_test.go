package params

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var envKeys = []string{
	"SCENARIO_FILE", "SIM_STEP_DELAY_MS", "HOLD_AFTER_RUN", "QUOTE_FALLBACK_PRICE",
	"HISTORY_BACKEND", "HISTORY_PATH", "JOURNAL_FILE", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"API_ADDR", "API_ALLOWED_ORIGINS", "LOG_FILE", "LOG_LEVEL",
}

// clearEnv blanks every config key for the test; empty values fall back to defaults
func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("LoadFromEnv() = %+v, want defaults %+v", cfg, Default())
	}
	if cfg.Matching.QuoteFallback != 1 {
		t.Errorf("QuoteFallback = %v, want 1", cfg.Matching.QuoteFallback)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCENARIO_FILE", "runs/a.yaml")
	t.Setenv("SIM_STEP_DELAY_MS", "250")
	t.Setenv("HOLD_AFTER_RUN", "true")
	t.Setenv("QUOTE_FALLBACK_PRICE", "0")
	t.Setenv("HISTORY_BACKEND", "Pebble")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("API_ADDR", ":8080")
	t.Setenv("API_ALLOWED_ORIGINS", "http://a,http://b")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.Sim.ScenarioFile != "runs/a.yaml" {
		t.Errorf("ScenarioFile = %q", cfg.Sim.ScenarioFile)
	}
	if cfg.Sim.StepDelay != 250*time.Millisecond {
		t.Errorf("StepDelay = %v, want 250ms", cfg.Sim.StepDelay)
	}
	if !cfg.Sim.HoldAfterRun {
		t.Error("HoldAfterRun = false, want true")
	}
	if cfg.Matching.QuoteFallback != 0 {
		t.Errorf("QuoteFallback = %v, want 0", cfg.Matching.QuoteFallback)
	}
	if cfg.History.Backend != "pebble" {
		t.Errorf("Backend = %q, want pebble", cfg.History.Backend)
	}
	if want := []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(cfg.Kafka.Brokers, want) {
		t.Errorf("Brokers = %v, want %v", cfg.Kafka.Brokers, want)
	}
	if cfg.API.Addr != ":8080" || len(cfg.API.AllowedOrigins) != 2 {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "SCENARIO_FILE=from-file.yaml\nKAFKA_TOPIC=fills.test\nSIM_STEP_DELAY_MS=oops\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set, even empty ones
	for _, k := range []string{"SCENARIO_FILE", "KAFKA_TOPIC", "SIM_STEP_DELAY_MS"} {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		os.Unsetenv("SCENARIO_FILE")
		os.Unsetenv("KAFKA_TOPIC")
		os.Unsetenv("SIM_STEP_DELAY_MS")
	})

	cfg := LoadFromEnv(path)
	if cfg.Sim.ScenarioFile != "from-file.yaml" {
		t.Errorf("ScenarioFile = %q, want from-file.yaml", cfg.Sim.ScenarioFile)
	}
	if cfg.Kafka.Topic != "fills.test" {
		t.Errorf("Topic = %q, want fills.test", cfg.Kafka.Topic)
	}
	if cfg.Sim.StepDelay != 0 {
		t.Errorf("StepDelay = %v, want 0 for an invalid value", cfg.Sim.StepDelay)
	}
}
