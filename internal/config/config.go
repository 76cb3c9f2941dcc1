// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/spendlens/internal/utils"
)

// Anomaly model names accepted by ANOMALY_MODEL.
const (
	AnomalyModelZScore    = "zscore"
	AnomalyModelIsolation = "isolation"
)

// DefaultCategoryLabels is the label set used when CATEGORY_LABELS is unset.
var DefaultCategoryLabels = []string{
	"groceries",
	"housing",
	"transportation",
	"entertainment",
	"utilities",
	"other",
}

// Config holds application configuration
type Config struct {
	Port      int
	LogLevel  string
	LogPretty bool
	DevMode   bool

	CategoryLabels    []string
	ClassifierWorkers int

	AnomalyModel         string
	AnomalyZThreshold    float64
	AnomalyContamination float64

	ProgressSendTimeout     time.Duration
	StatusBroadcastSchedule string // cron spec, empty disables the status push
	ShutdownTimeout         time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnvAsInt("PORT", 5173),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogPretty:               getEnvAsBool("LOG_PRETTY", true),
		DevMode:                 getEnvAsBool("DEV_MODE", false),
		CategoryLabels:          getEnvAsList("CATEGORY_LABELS", DefaultCategoryLabels),
		ClassifierWorkers:       getEnvAsInt("CLASSIFIER_WORKERS", 4),
		AnomalyModel:            strings.ToLower(getEnv("ANOMALY_MODEL", AnomalyModelZScore)),
		AnomalyZThreshold:       getEnvAsFloat("ANOMALY_Z_THRESHOLD", 2.0),
		AnomalyContamination:    getEnvAsFloat("ANOMALY_CONTAMINATION", 0.1),
		ProgressSendTimeout:     getEnvAsDuration("PROGRESS_SEND_TIMEOUT", 2*time.Second),
		StatusBroadcastSchedule: os.Getenv("STATUS_BROADCAST_SCHEDULE"),
		ShutdownTimeout:         getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if _, set := os.LookupEnv("STATUS_BROADCAST_SCHEDULE"); !set {
		cfg.StatusBroadcastSchedule = "@every 30s"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if len(c.CategoryLabels) == 0 {
		return fmt.Errorf("category label set must not be empty")
	}
	seen := make(map[string]bool, len(c.CategoryLabels))
	for _, label := range c.CategoryLabels {
		if seen[label] {
			return fmt.Errorf("duplicate category label %q", label)
		}
		seen[label] = true
	}
	if c.ClassifierWorkers < 1 {
		return fmt.Errorf("classifier workers must be at least 1, got %d", c.ClassifierWorkers)
	}
	switch c.AnomalyModel {
	case AnomalyModelZScore:
		if c.AnomalyZThreshold <= 0 {
			return fmt.Errorf("anomaly z threshold must be positive, got %v", c.AnomalyZThreshold)
		}
	case AnomalyModelIsolation:
		if c.AnomalyContamination <= 0 || c.AnomalyContamination >= 0.5 {
			return fmt.Errorf("anomaly contamination must be in (0, 0.5), got %v", c.AnomalyContamination)
		}
	default:
		return fmt.Errorf("unknown anomaly model %q", c.AnomalyModel)
	}
	if c.ProgressSendTimeout <= 0 {
		return fmt.Errorf("progress send timeout must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, trimming blanks and dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	items := utils.SplitList(os.Getenv(key))
	if len(items) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return items
}
