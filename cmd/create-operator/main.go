package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run cmd/create-operator/main.go <operator-name> <api-key>")
		fmt.Println("Example: go run cmd/create-operator/main.go \"store admin\" \"ops-api-key-12345\"")
		os.Exit(1)
	}

	operatorName := os.Args[1]
	apiKey := os.Args[2]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
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

	// Hash the API key
	apiKeyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	// Create repositories
	repos := postgres.NewRepositories(db, logger)

	// Create operator
	operator := &domain.Operator{
		Name:       operatorName,
		APIKeyHash: string(apiKeyHash),
		IsActive:   true,
	}

	err = repos.Operators.Create(context.Background(), operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create operator: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Operator created successfully!\n\n")
	fmt.Printf("Operator ID: %s\n", operator.ID.String())
	fmt.Printf("Operator Name: %s\n", operator.Name)
	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("\nSave this API key securely, it cannot be shown again.\n")
	fmt.Printf("\nUse it in the Authorization header:\n")
	fmt.Printf("Authorization: Bearer %s\n", apiKey)
}
