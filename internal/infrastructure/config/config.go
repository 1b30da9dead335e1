// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	opts := cfg.Reconciliation.Options()
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
)

// Config represents the entire application configuration
type Config struct {
	Storage        StorageConfig        `yaml:"storage"`
	Archive        ArchiveConfig        `yaml:"archive"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	API            APIConfig            `yaml:"api"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ArchiveConfig holds the optional MongoDB report archive settings.
// The archive is disabled when MongoURI is empty.
type ArchiveConfig struct {
	MongoURI string `yaml:"mongo_uri"`
	Database string `yaml:"database"`
}

// Enabled reports whether an archive is configured
func (a ArchiveConfig) Enabled() bool {
	return a.MongoURI != ""
}

// ReconciliationConfig holds the default run options
type ReconciliationConfig struct {
	Currency            string `yaml:"currency"`
	ToleranceMinorUnits int64  `yaml:"tolerance_minor_units"`
	MaxCombinationSize  int    `yaml:"max_combination_size"`
	MaxSubsetsPerTarget int    `yaml:"max_subsets_per_target"`
}

// Options converts the configuration to engine options
func (r ReconciliationConfig) Options() reconcile.Options {
	return reconcile.Options{
		Currency:            strings.ToUpper(r.Currency),
		ToleranceMinorUnits: r.ToleranceMinorUnits,
		MaxCombinationSize:  r.MaxCombinationSize,
		MaxSubsetsPerTarget: r.MaxSubsetsPerTarget,
	}
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" (Maven-style) or "json"
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: "reconciler.db",
		},
		Reconciliation: ReconciliationConfig{
			Currency:            "EUR",
			ToleranceMinorUnits: money.DefaultTolerance,
			MaxCombinationSize:  matcher.DefaultMaxCombinationSize,
			MaxSubsetsPerTarget: matcher.DefaultMaxSubsetsPerTarget,
		},
		API: APIConfig{
			Port:           8085,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${MONGO_URI})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Reconciliation.Options().Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconciliation settings in %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := Default()
	return &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILER_DB_PATH", d.Storage.DatabasePath),
		},
		Archive: ArchiveConfig{
			MongoURI: os.Getenv("RECONCILER_MONGO_URI"),
			Database: getEnv("RECONCILER_MONGO_DATABASE", ""),
		},
		Reconciliation: ReconciliationConfig{
			Currency:            getEnv("RECONCILER_CURRENCY", d.Reconciliation.Currency),
			ToleranceMinorUnits: int64(getEnvInt("RECONCILER_TOLERANCE", int(d.Reconciliation.ToleranceMinorUnits))),
			MaxCombinationSize:  getEnvInt("RECONCILER_MAX_COMBINATION", d.Reconciliation.MaxCombinationSize),
			MaxSubsetsPerTarget: getEnvInt("RECONCILER_MAX_SUBSETS", d.Reconciliation.MaxSubsetsPerTarget),
		},
		API: APIConfig{
			Port:           getEnvInt("RECONCILER_PORT", d.API.Port),
			AllowedOrigins: getEnvList("RECONCILER_ALLOWED_ORIGINS", d.API.AllowedOrigins),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList retrieves a comma-separated environment variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
