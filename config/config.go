package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Price sources accepted by PRICE_SOURCE
const (
	PriceSourceClient  = "client"
	PriceSourceCatalog = "catalog"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL   string
	Port          string
	GoEnv         string
	LogLevel      string
	Auth0Domain   string
	Auth0Audience string

	// Payment gateway
	StripeSecretKey     string
	StripeWebhookSecret string
	DefaultCurrency     string
	GatewayTimeout      time.Duration
	WebhookTimeout      time.Duration

	// Order lifecycle
	StrictStatusTransitions bool
	PriceSource             string

	// Optional infrastructure; empty disables it
	RedisURL string
	AMQPURL  string

	// Webhook payload archive
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In production, environment variables are set directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		Port:                    getEnv("PORT", "8080"),
		GoEnv:                   getEnv("GO_ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		Auth0Domain:             getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:           getEnv("AUTH0_AUDIENCE", ""),
		StripeSecretKey:         getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:     getEnv("STRIPE_WEBHOOK_SECRET", ""),
		DefaultCurrency:         strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		GatewayTimeout:          getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		WebhookTimeout:          getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		StrictStatusTransitions: getEnvBool("STRICT_STATUS_TRANSITIONS", false),
		PriceSource:             strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceClient)),
		RedisURL:                getEnv("REDIS_URL", ""),
		AMQPURL:                 getEnv("AMQP_URL", ""),
		AWSRegion:               getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:             getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	current = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PriceSource != PriceSourceClient && c.PriceSource != PriceSourceCatalog {
		return fmt.Errorf("PRICE_SOURCE must be %q or %q, got %q", PriceSourceClient, PriceSourceCatalog, c.PriceSource)
	}
	if c.IsProduction() {
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
		}
		if c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
		}
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// UsesCatalogPrices reports whether order lines are priced from the menu
// instead of the prices submitted by the client.
func (c *Config) UsesCatalogPrices() bool {
	return c.PriceSource == PriceSourceCatalog
}

// GetConfig returns the configuration produced by the last successful Load
func GetConfig() *Config {
	return current
}

// SetConfig replaces the current configuration (primarily for testing)
func SetConfig(cfg *Config) {
	current = cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid boolean for %s=%q, using default %t", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("Invalid duration for %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
