// Package config loads gateway settings from an optional YAML file and the
// environment. Environment variables always win over file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AuthModeRemote = "remote"
	AuthModeJWT    = "jwt"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// AWS
	Region           string `yaml:"region"`
	EndpointOverride string `yaml:"endpoint_override"`
	OrdersTable      string `yaml:"orders_table"`
	QueueURL         string `yaml:"queue_url"`

	// Idempotent create is enabled when IdempotencyTable is set.
	IdempotencyTable string        `yaml:"idempotency_table"`
	IdempotencyTTL   time.Duration `yaml:"idempotency_ttl"`

	// Authentication
	AuthMode       string        `yaml:"auth_mode"`
	AuthServiceURL string        `yaml:"auth_service_url"`
	AuthTimeout    time.Duration `yaml:"auth_timeout"`
	JWTSecret      string        `yaml:"jwt_secret"`
	JWTPublicKey   string        `yaml:"jwt_public_key"`
	JWTIssuer      string        `yaml:"jwt_issuer"`
	JWTAudience    string        `yaml:"jwt_audience"`

	// Metrics
	EnableMetrics    bool   `yaml:"enable_metrics"`
	MetricsNamespace string `yaml:"metrics_namespace"`

	// Local HTTP mode instead of Lambda.
	RunLocal  bool   `yaml:"run_local"`
	LocalAddr string `yaml:"local_addr"`
}

func defaults() *Config {
	return &Config{
		Environment:      "production",
		LogLevel:         "info",
		Region:           "us-east-1",
		OrdersTable:      "orders",
		IdempotencyTTL:   48 * time.Hour,
		AuthMode:         AuthModeRemote,
		AuthTimeout:      5 * time.Second,
		MetricsNamespace: "OrderGateway",
		LocalAddr:        ":8080",
	}
}

// LoadConfig reads CONFIG_FILE when set, then applies environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Region = getEnv("AWS_REGION", cfg.Region)
	cfg.EndpointOverride = getEnv("AWS_ENDPOINT_OVERRIDE", cfg.EndpointOverride)
	cfg.OrdersTable = getEnv("ORDERS_TABLE", cfg.OrdersTable)
	cfg.QueueURL = getEnv("ORDERS_QUEUE_URL", cfg.QueueURL)
	cfg.IdempotencyTable = getEnv("IDEMPOTENCY_TABLE", cfg.IdempotencyTable)
	cfg.IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.AuthMode = getEnv("AUTH_MODE", cfg.AuthMode)
	cfg.AuthServiceURL = getEnv("AUTH_SERVICE_URL", cfg.AuthServiceURL)
	cfg.AuthTimeout = getEnvDuration("AUTH_TIMEOUT", cfg.AuthTimeout)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTPublicKey = getEnv("JWT_PUBLIC_KEY", cfg.JWTPublicKey)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTAudience = getEnv("JWT_AUDIENCE", cfg.JWTAudience)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.MetricsNamespace = getEnv("METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.RunLocal = getEnvBool("RUN_LOCAL", cfg.RunLocal)
	cfg.LocalAddr = getEnv("LOCAL_ADDR", cfg.LocalAddr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.OrdersTable == "" {
		return fmt.Errorf("ORDERS_TABLE is required")
	}

	switch c.AuthMode {
	case AuthModeRemote:
		if c.AuthServiceURL == "" {
			return fmt.Errorf("AUTH_SERVICE_URL is required when AUTH_MODE=%s", AuthModeRemote)
		}
	case AuthModeJWT:
		if c.JWTSecret == "" && c.JWTPublicKey == "" {
			return fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY is required when AUTH_MODE=%s", AuthModeJWT)
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}

	if c.IdempotencyTable != "" && c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return value == "yes"
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
