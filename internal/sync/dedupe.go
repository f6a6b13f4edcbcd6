package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/stripe"
	"github.com/merchbay/podsync/pkg/errors"
)

// dedupe collapses groups of active products sharing a normalized name
// down to one keeper each. Removal deactivates prices first because the
// backend refuses to delete a product with active prices.
func (e *Engine) dedupe(ctx context.Context, sum *Summary) error {
	products, err := e.target.ListProducts(ctx, true)
	if err != nil {
		return err
	}

	for name, group := range GroupByNormalizedName(products) {
		if len(group) < 2 {
			continue
		}

		if ambiguousKeeper(group) {
			// two products claiming different variant identities under one
			// name; automatic deletion could destroy a live mapping
			e.logger.Error("Duplicate group needs manual intervention",
				zap.String("normalized_name", name),
				zap.Int("count", len(group)),
				zap.Error(&errors.ConsistencyError{Message: "duplicate group claims multiple variant identities: " + name}),
			)
			sum.Errored++
			continue
		}

		keeper := SelectKeeper(group)
		e.logger.Info("Collapsing duplicate products",
			zap.String("normalized_name", name),
			zap.Int("count", len(group)),
			zap.String("keeper", keeper.ID),
		)

		for _, p := range group {
			if p.ID == keeper.ID {
				continue
			}
			if err := e.removeProduct(ctx, p); err != nil {
				if isStructural(err) {
					return err
				}
				e.logger.Error("Failed to remove duplicate product",
					zap.String("product_id", p.ID),
					zap.Error(err),
				)
				sum.Errored++
				continue
			}
			sum.Deduped++
		}
	}
	return nil
}

// ambiguousKeeper reports whether more than one distinct variant identity
// is claimed within a duplicate group.
func ambiguousKeeper(group []stripe.Product) bool {
	ids := make(map[string]bool)
	for _, p := range group {
		if id, ok := domain.VariantIDFromMetadata(p.Metadata); ok {
			ids[id] = true
		}
	}
	return len(ids) > 1
}

// removeProduct deactivates a duplicate's active prices then deletes it,
// falling back to deactivation when the backend refuses the delete.
func (e *Engine) removeProduct(ctx context.Context, p stripe.Product) error {
	if e.dryRun {
		e.logger.Info("dry-run: would remove duplicate product",
			zap.String("product_id", p.ID),
			zap.String("name", p.Name),
		)
		return nil
	}

	prices, err := e.target.ListPrices(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, price := range prices {
		if !price.Active {
			continue
		}
		if err := e.target.DeactivatePrice(ctx, price.ID); err != nil {
			return err
		}
	}

	if err := e.target.DeleteProduct(ctx, p.ID); err != nil {
		if isStructural(err) {
			return err
		}
		e.logger.Warn("Could not delete duplicate product, deactivating instead",
			zap.String("product_id", p.ID),
			zap.Error(err),
		)
		return e.target.DeactivateProduct(ctx, p.ID)
	}
	return nil
}
