package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

type mappingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *sql.DB, logger *zap.Logger) *mappingRepository {
	return &mappingRepository{
		db:     db,
		logger: logger,
	}
}

func (r *mappingRepository) Upsert(ctx context.Context, record *domain.MappingRecord) error {
	query := `
		INSERT INTO variant_mappings
			(source_variant_id, environment, stripe_price_id, variant_name, color, size, image_url, retail_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_variant_id, environment) DO UPDATE SET
			stripe_price_id = EXCLUDED.stripe_price_id,
			variant_name = EXCLUDED.variant_name,
			color = EXCLUDED.color,
			size = EXCLUDED.size,
			image_url = EXCLUDED.image_url,
			retail_price = EXCLUDED.retail_price,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		record.SourceVariantID,
		string(record.Environment),
		record.StripePriceID,
		record.VariantName,
		record.Color,
		record.Size,
		record.ImageURL,
		record.RetailPrice,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to upsert mapping", zap.Error(err),
			zap.Int64("source_variant_id", record.SourceVariantID),
			zap.String("environment", string(record.Environment)),
		)
		return err
	}

	return nil
}

const mappingColumns = `
	source_variant_id, environment, stripe_price_id, variant_name, color, size, image_url, retail_price, created_at, updated_at
`

func scanMapping(row interface{ Scan(...interface{}) error }) (*domain.MappingRecord, error) {
	var record domain.MappingRecord
	var env string

	err := row.Scan(
		&record.SourceVariantID,
		&env,
		&record.StripePriceID,
		&record.VariantName,
		&record.Color,
		&record.Size,
		&record.ImageURL,
		&record.RetailPrice,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Environment = domain.Environment(env)
	return &record, nil
}

func (r *mappingRepository) GetByVariant(ctx context.Context, variantID int64, env domain.Environment) (*domain.MappingRecord, error) {
	query := `SELECT ` + mappingColumns + ` FROM variant_mappings WHERE source_variant_id = $1 AND environment = $2`

	record, err := scanMapping(r.db.QueryRowContext(ctx, query, variantID, string(env)))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "mapping", ID: string(env)}
	}
	if err != nil {
		r.logger.Error("Failed to get mapping by variant", zap.Error(err))
		return nil, err
	}

	return record, nil
}

func (r *mappingRepository) GetByPriceID(ctx context.Context, priceID string, env domain.Environment) (*domain.MappingRecord, error) {
	query := `SELECT ` + mappingColumns + ` FROM variant_mappings WHERE stripe_price_id = $1 AND environment = $2`

	record, err := scanMapping(r.db.QueryRowContext(ctx, query, priceID, string(env)))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "mapping", ID: priceID}
	}
	if err != nil {
		r.logger.Error("Failed to get mapping by price", zap.Error(err))
		return nil, err
	}

	return record, nil
}

func (r *mappingRepository) ListByEnvironment(ctx context.Context, env domain.Environment) ([]domain.MappingRecord, error) {
	query := `SELECT ` + mappingColumns + ` FROM variant_mappings WHERE environment = $1 ORDER BY source_variant_id`

	rows, err := r.db.QueryContext(ctx, query, string(env))
	if err != nil {
		r.logger.Error("Failed to list mappings", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var records []domain.MappingRecord
	for rows.Next() {
		record, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}
