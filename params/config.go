package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Log struct {
	File  string // empty logs to stdout only
	Level string
}

type History struct {
	Backend string // "memory" or "pebble"
	Path    string // pebble directory
	Journal string // optional JSON-lines file of fills
}

type Matching struct {
	// QuoteFallback is the price both sides of a range collapse to on reset
	// when the product has no quote. Kept at 1 pending product-owner review.
	QuoteFallback float64
}

type Kafka struct {
	Brokers []string // empty disables publishing
	Topic   string
}

type API struct {
	Addr           string // empty disables the server
	AllowedOrigins []string
}

type Sim struct {
	ScenarioFile string
	// StepDelay paces the replay in wall time so the API can be watched live
	StepDelay    time.Duration
	HoldAfterRun bool
}

type Config struct {
	Sim      Sim
	Matching Matching
	History  History
	Kafka    Kafka
	API      API
	Log      Log
}

func Default() Config {
	return Config{
		Sim: Sim{
			ScenarioFile: "scenario.yaml",
		},
		Matching: Matching{
			QuoteFallback: 1,
		},
		History: History{
			Backend: "memory",
			Path:    "data/history",
		},
		Kafka: Kafka{
			Topic: "matchsim.fills",
		},
		API: API{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: Log{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// optional: a missing .env is not an error
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Sim.ScenarioFile = getEnv("SCENARIO_FILE", cfg.Sim.ScenarioFile)
	if ms := os.Getenv("SIM_STEP_DELAY_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n >= 0 {
			cfg.Sim.StepDelay = time.Duration(n) * time.Millisecond
		}
	}
	if hold := os.Getenv("HOLD_AFTER_RUN"); hold != "" {
		cfg.Sim.HoldAfterRun = hold == "true" || hold == "1"
	}

	if fb := os.Getenv("QUOTE_FALLBACK_PRICE"); fb != "" {
		if f, err := strconv.ParseFloat(fb, 64); err == nil {
			cfg.Matching.QuoteFallback = f
		}
	}

	cfg.History.Backend = strings.ToLower(getEnv("HISTORY_BACKEND", cfg.History.Backend))
	cfg.History.Path = getEnv("HISTORY_PATH", cfg.History.Path)
	cfg.History.Journal = getEnv("JOURNAL_FILE", cfg.History.Journal)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
