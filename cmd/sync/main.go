package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/printful"
	"github.com/merchbay/podsync/internal/repository/postgres"
	"github.com/merchbay/podsync/internal/stripe"
	syncpkg "github.com/merchbay/podsync/internal/sync"
)

func main() {
	envFlag := flag.String("env", "", "environment to reconcile: test, live, or empty for both")
	dryRun := flag.Bool("dry-run", false, "log every mutation instead of performing it")
	dedupeOnly := flag.Bool("dedupe-only", false, "only collapse duplicate products, skip the sync pass")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Sync.DryRun = true
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	source := printful.NewClient(cfg.Printful, logger)

	keys := map[domain.Environment]string{
		domain.EnvironmentTest: cfg.Stripe.TestKey,
		domain.EnvironmentLive: cfg.Stripe.LiveKey,
	}

	var envs []domain.Environment
	if *envFlag != "" {
		env, err := domain.ParseEnvironment(*envFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		envs = []domain.Environment{env}
	} else {
		envs = domain.Environments()
	}

	failed := false
	for _, env := range envs {
		key := keys[env]
		if key == "" {
			logger.Warn("Skipping environment without a Stripe key", zap.String("environment", string(env)))
			continue
		}

		target := stripe.NewClient(cfg.Stripe.BaseURL, key, env, logger)
		engine := syncpkg.NewEngine(env, source, target, repos.Mappings, cfg.Sync, logger)

		var summary *syncpkg.Summary
		if *dedupeOnly {
			summary, err = engine.RunDedupeOnly(context.Background())
		} else {
			summary, err = engine.Run(context.Background())
		}
		if err != nil {
			logger.Error("Reconciliation run failed",
				zap.String("environment", string(env)),
				zap.Error(err),
			)
			failed = true
		}

		fmt.Printf("[%s] created=%d updated=%d skipped=%d errored=%d deduped=%d dry_run=%v\n",
			env, summary.Created, summary.Updated, summary.Skipped, summary.Errored, summary.Deduped, summary.DryRun)
	}

	if failed {
		os.Exit(1)
	}
}
