package repository

import (
	"context"

	"github.com/merchbay/podsync/internal/domain"
)

// MappingStore is the persisted correlation table between source variant
// ids and Stripe price ids, unique on (source_variant_id, environment).
type MappingStore interface {
	Upsert(ctx context.Context, record *domain.MappingRecord) error
	GetByVariant(ctx context.Context, variantID int64, env domain.Environment) (*domain.MappingRecord, error)
	GetByPriceID(ctx context.Context, priceID string, env domain.Environment) (*domain.MappingRecord, error)
	ListByEnvironment(ctx context.Context, env domain.Environment) ([]domain.MappingRecord, error)
}

// FulfillmentStore ties checkout sessions to the Printful orders they
// produced, so redelivered webhooks don't fulfill twice.
type FulfillmentStore interface {
	Create(ctx context.Context, record *domain.SessionFulfillment) error
	GetBySessionID(ctx context.Context, sessionID string, env domain.Environment) (*domain.SessionFulfillment, error)
}

// OperatorStore holds the operators allowed to call admin endpoints.
type OperatorStore interface {
	Create(ctx context.Context, operator *domain.Operator) error
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Operator, error)
}

// Repositories aggregates all repository implementations
type Repositories struct {
	Mappings     MappingStore
	Fulfillments FulfillmentStore
	Operators    OperatorStore
}
