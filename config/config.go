package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Backends      BackendsConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	Environment   string
}

// BackendsConfig holds annotation backend configurations. A backend with no
// API key is treated as not configured and is not registered.
type BackendsConfig struct {
	Supervisely SuperviselyConfig
	Roboflow    RoboflowConfig
	LabelStudio LabelStudioConfig
}

// SuperviselyConfig holds Supervisely backend configuration
type SuperviselyConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// RoboflowConfig holds Roboflow backend configuration
type RoboflowConfig struct {
	APIKey     string
	BaseURL    string
	Workspace  string
	Timeout    time.Duration
	MaxRetries int
}

// LabelStudioConfig holds Label Studio backend configuration
type LabelStudioConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// CacheConfig holds the local annotation cache configuration
type CacheConfig struct {
	Enabled bool
	Path    string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New loads configuration from the environment, reading a .env file first
// when one exists.
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Backends: BackendsConfig{
			Supervisely: SuperviselyConfig{
				APIKey:     getEnv("SUPERVISELY_API_KEY", ""),
				BaseURL:    getEnv("SUPERVISELY_BASE_URL", "https://app.supervisely.com/public/api/v3"),
				Timeout:    getEnvAsDuration("SUPERVISELY_TIMEOUT", 30*time.Second),
				MaxRetries: getEnvAsInt("SUPERVISELY_MAX_RETRIES", 3),
			},
			Roboflow: RoboflowConfig{
				APIKey:     getEnv("ROBOFLOW_API_KEY", ""),
				BaseURL:    getEnv("ROBOFLOW_BASE_URL", "https://api.roboflow.com"),
				Workspace:  getEnv("ROBOFLOW_WORKSPACE", ""),
				Timeout:    getEnvAsDuration("ROBOFLOW_TIMEOUT", 30*time.Second),
				MaxRetries: getEnvAsInt("ROBOFLOW_MAX_RETRIES", 3),
			},
			LabelStudio: LabelStudioConfig{
				APIKey:     getEnv("LABELSTUDIO_API_KEY", ""),
				BaseURL:    getEnv("LABELSTUDIO_BASE_URL", "http://localhost:8080"),
				Timeout:    getEnvAsDuration("LABELSTUDIO_TIMEOUT", 30*time.Second),
				MaxRetries: getEnvAsInt("LABELSTUDIO_MAX_RETRIES", 3),
			},
		},
		Cache: CacheConfig{
			Enabled: getEnvAsBool("CACHE_ENABLED", true),
			Path:    getEnv("CACHE_PATH", defaultCachePath()),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	switch c.Observability.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.Observability.LogFormat)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache path is required when the cache is enabled")
	}
	return nil
}

// ConfiguredBackends returns the names of backends that have an API key set
func (c *Config) ConfiguredBackends() []string {
	var names []string
	if c.Backends.Supervisely.APIKey != "" {
		names = append(names, "supervisely")
	}
	if c.Backends.Roboflow.APIKey != "" {
		names = append(names, "roboflow")
	}
	if c.Backends.LabelStudio.APIKey != "" {
		names = append(names, "labelstudio")
	}
	return names
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// defaultCachePath places the cache database under the user's home directory
func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".openlabel", "cache.db")
	}
	return filepath.Join(home, ".openlabel", "cache.db")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
