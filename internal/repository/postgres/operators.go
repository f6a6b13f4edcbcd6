package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

type operatorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOperatorRepository creates a new operator repository
func NewOperatorRepository(db *sql.DB, logger *zap.Logger) *operatorRepository {
	return &operatorRepository{
		db:     db,
		logger: logger,
	}
}

func (r *operatorRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Operator, error) {
	// bcrypt hashes are salted, so there is no direct lookup; iterate
	// active operators and verify the key against each hash.
	query := `
		SELECT id, name, api_key_hash, is_active, created_at, updated_at
		FROM operators
		WHERE is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query operators", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var operator domain.Operator

		err := rows.Scan(
			&operator.ID,
			&operator.Name,
			&operator.APIKeyHash,
			&operator.IsActive,
			&operator.CreatedAt,
			&operator.UpdatedAt,
		)
		if err != nil {
			continue
		}

		if err := bcrypt.CompareHashAndPassword([]byte(operator.APIKeyHash), []byte(apiKey)); err == nil {
			return &operator, nil
		}
	}

	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *operatorRepository) Create(ctx context.Context, operator *domain.Operator) error {
	query := `
		INSERT INTO operators (id, name, api_key_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now()
	if operator.ID == uuid.Nil {
		operator.ID = uuid.New()
	}
	if operator.CreatedAt.IsZero() {
		operator.CreatedAt = now
	}
	if operator.UpdatedAt.IsZero() {
		operator.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		operator.ID,
		operator.Name,
		operator.APIKeyHash,
		operator.IsActive,
		operator.CreatedAt,
		operator.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create operator", zap.Error(err))
		return err
	}

	return nil
}
