package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

type fulfillmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFulfillmentRepository creates a new session-fulfillment repository
func NewFulfillmentRepository(db *sql.DB, logger *zap.Logger) *fulfillmentRepository {
	return &fulfillmentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *fulfillmentRepository) Create(ctx context.Context, record *domain.SessionFulfillment) error {
	query := `
		INSERT INTO session_fulfillments (session_id, environment, printful_order_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		record.SessionID,
		string(record.Environment),
		record.PrintfulOrderID,
		record.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to record session fulfillment", zap.Error(err),
			zap.String("session_id", record.SessionID),
		)
		return err
	}

	return nil
}

func (r *fulfillmentRepository) GetBySessionID(ctx context.Context, sessionID string, env domain.Environment) (*domain.SessionFulfillment, error) {
	query := `
		SELECT session_id, environment, printful_order_id, created_at
		FROM session_fulfillments
		WHERE session_id = $1 AND environment = $2
	`

	var record domain.SessionFulfillment
	var envStr string

	err := r.db.QueryRowContext(ctx, query, sessionID, string(env)).Scan(
		&record.SessionID,
		&envStr,
		&record.PrintfulOrderID,
		&record.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "session fulfillment", ID: sessionID}
	}
	if err != nil {
		r.logger.Error("Failed to get session fulfillment", zap.Error(err))
		return nil, err
	}

	record.Environment = domain.Environment(envStr)
	return &record, nil
}
