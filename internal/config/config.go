package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Printful    PrintfulConfig
	Stripe      StripeConfig
	Sync        SyncConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PrintfulConfig struct {
	APIKey  string
	BaseURL string
}

type StripeConfig struct {
	TestKey           string
	LiveKey           string
	WebhookSecretTest string
	WebhookSecretLive string
	BaseURL           string
}

type SyncConfig struct {
	Currency         string
	DryRun           bool
	MaxGalleryImages int
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PRINTFUL_BASE_URL", "https://api.printful.com")
	viper.SetDefault("STRIPE_BASE_URL", "https://api.stripe.com/v1")
	viper.SetDefault("CURRENCY", "cad")
	viper.SetDefault("SYNC_MAX_GALLERY_IMAGES", "8")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "podsync"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Printful: PrintfulConfig{
			APIKey:  getEnvOrViper("PRINTFUL_API_KEY", ""),
			BaseURL: getEnvOrViper("PRINTFUL_BASE_URL", "https://api.printful.com"),
		},
		Stripe: StripeConfig{
			TestKey:           getEnvOrViper("STRIPE_TEST_KEY", ""),
			LiveKey:           getEnvOrViper("STRIPE_LIVE_KEY", ""),
			WebhookSecretTest: getEnvOrViper("STRIPE_WEBHOOK_SECRET_TEST", ""),
			WebhookSecretLive: getEnvOrViper("STRIPE_WEBHOOK_SECRET_LIVE", ""),
			BaseURL:           getEnvOrViper("STRIPE_BASE_URL", "https://api.stripe.com/v1"),
		},
		Sync: SyncConfig{
			Currency:         getEnvOrViper("CURRENCY", "cad"),
			DryRun:           viper.GetBool("SYNC_DRY_RUN"),
			MaxGalleryImages: viper.GetInt("SYNC_MAX_GALLERY_IMAGES"),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields. Missing credentials are fatal at startup.
	if cfg.Printful.APIKey == "" {
		return nil, fmt.Errorf("PRINTFUL_API_KEY is required")
	}
	if cfg.Stripe.TestKey == "" && cfg.Stripe.LiveKey == "" {
		return nil, fmt.Errorf("at least one of STRIPE_TEST_KEY or STRIPE_LIVE_KEY is required")
	}
	if cfg.Stripe.TestKey != "" && cfg.Stripe.WebhookSecretTest == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET_TEST is required when STRIPE_TEST_KEY is set")
	}
	if cfg.Stripe.LiveKey != "" && cfg.Stripe.WebhookSecretLive == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET_LIVE is required when STRIPE_LIVE_KEY is set")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
