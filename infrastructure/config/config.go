package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from an
// optional YAML file (CONFIG_FILE) overridden by environment variables.
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production"`
	LogLevel      string `yaml:"log_level"`

	// Storage configuration
	DatabaseURL string `yaml:"database_url" validate:"required"`

	// Capabilities describe optional schema columns, resolved here once
	// instead of probed per request.
	HasCitationColumns   bool `yaml:"has_citation_columns"`
	HasSourceQueryColumn bool `yaml:"has_source_query_column"`

	// External bibliographic lookup
	LookupBaseURL    string `yaml:"lookup_base_url" validate:"required,url"`
	LookupThrottleMs int    `yaml:"lookup_throttle_ms" validate:"gte=0"`
	LookupTimeoutMs  int    `yaml:"lookup_timeout_ms" validate:"gt=0"`

	// Graph construction
	EnrichTimeoutMs int `yaml:"enrich_timeout_ms" validate:"gt=0"`

	// Features
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableCORS    bool `yaml:"enable_cors"`
}

// LoadConfig loads configuration from the optional YAML file and the
// environment, then validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:        ":8080",
		Environment:          "development",
		LogLevel:             "info",
		HasCitationColumns:   true,
		HasSourceQueryColumn: true,
		LookupBaseURL:        "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
		LookupThrottleMs:     200,
		LookupTimeoutMs:      20000,
		EnrichTimeoutMs:      30000,
		EnableMetrics:        true,
		EnableCORS:           true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.HasCitationColumns = getEnvBool("HAS_CITATION_COLUMNS", cfg.HasCitationColumns)
	cfg.HasSourceQueryColumn = getEnvBool("HAS_SOURCE_QUERY_COLUMN", cfg.HasSourceQueryColumn)
	cfg.LookupBaseURL = getEnv("LOOKUP_BASE_URL", cfg.LookupBaseURL)
	cfg.LookupThrottleMs = getEnvInt("LOOKUP_THROTTLE_MS", cfg.LookupThrottleMs)
	cfg.LookupTimeoutMs = getEnvInt("LOOKUP_TIMEOUT_MS", cfg.LookupTimeoutMs)
	cfg.EnrichTimeoutMs = getEnvInt("ENRICH_TIMEOUT_MS", cfg.EnrichTimeoutMs)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
