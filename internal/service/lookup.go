package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/stripe"
	syncpkg "github.com/merchbay/podsync/internal/sync"
	"github.com/merchbay/podsync/pkg/errors"
)

// PriceCatalog is the Stripe surface lookups read from.
type PriceCatalog interface {
	syncpkg.ProductSearcher
	ListProducts(ctx context.Context, activeOnly bool) ([]stripe.Product, error)
	ListPrices(ctx context.Context, productID string) ([]stripe.Price, error)
}

// PriceLookup is what the storefront needs to start a checkout for one
// variant.
type PriceLookup struct {
	StripePriceID string            `json:"stripe_price_id"`
	Currency      string            `json:"currency"`
	Amount        int64             `json:"amount"`
	Metadata      map[string]string `json:"metadata"`
	Product       string            `json:"product"`
}

type lookupService struct {
	target PriceCatalog
	logger *zap.Logger
}

// NewLookupService creates a new price lookup service
func NewLookupService(target PriceCatalog, logger *zap.Logger) *lookupService {
	return &lookupService{
		target: target,
		logger: logger,
	}
}

// ByVariantID finds the active price for a sync variant id using the
// same canonical-metadata signal the reconciliation engine writes.
func (s *lookupService) ByVariantID(ctx context.Context, variantID int64) (*PriceLookup, error) {
	id := strconv.FormatInt(variantID, 10)
	matches, err := s.target.SearchProductsByMetadata(ctx, domain.MetaSyncVariantID, id)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id}
	}

	keeper := syncpkg.SelectKeeper(matches)
	return s.activePriceOf(ctx, keeper)
}

// ByProductName finds the active price by normalized composed name,
// the identity resolver's fallback signal, applied identically here so
// lookup and reconciliation agree.
func (s *lookupService) ByProductName(ctx context.Context, name string) (*PriceLookup, error) {
	products, err := s.target.ListProducts(ctx, true)
	if err != nil {
		return nil, err
	}

	group := syncpkg.GroupByNormalizedName(products)[syncpkg.NormalizeName(name)]
	if len(group) == 0 {
		return nil, &errors.ErrNotFound{Resource: "product", ID: name}
	}

	keeper := syncpkg.SelectKeeper(group)
	return s.activePriceOf(ctx, keeper)
}

func (s *lookupService) activePriceOf(ctx context.Context, product *stripe.Product) (*PriceLookup, error) {
	prices, err := s.target.ListPrices(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	for _, p := range prices {
		if !p.Active {
			continue
		}
		return &PriceLookup{
			StripePriceID: p.ID,
			Currency:      p.Currency,
			Amount:        p.UnitAmount,
			Metadata:      domain.CanonicalizeMetadata(p.Metadata),
			Product:       product.Name,
		}, nil
	}

	return nil, &errors.ErrNotFound{Resource: "active price", ID: product.ID}
}
