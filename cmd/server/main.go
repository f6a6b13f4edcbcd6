package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/api"
	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/printful"
	"github.com/merchbay/podsync/internal/repository/postgres"
	"github.com/merchbay/podsync/internal/stripe"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)

	// Upstream clients: one Printful client, one Stripe client per
	// configured environment. Keys are never mixed across environments.
	source := printful.NewClient(cfg.Printful, logger)

	targets := make(map[domain.Environment]*stripe.Client)
	if cfg.Stripe.TestKey != "" {
		targets[domain.EnvironmentTest] = stripe.NewClient(cfg.Stripe.BaseURL, cfg.Stripe.TestKey, domain.EnvironmentTest, logger)
	}
	if cfg.Stripe.LiveKey != "" {
		targets[domain.EnvironmentLive] = stripe.NewClient(cfg.Stripe.BaseURL, cfg.Stripe.LiveKey, domain.EnvironmentLive, logger)
	}

	router := api.NewRouter(&api.Deps{
		Config:   cfg,
		Printful: source,
		Stripe:   targets,
		Repos:    repos,
		Logger:   logger,
	})

	logger.Info("Starting server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Bool("dry_run", cfg.Sync.DryRun),
	)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
