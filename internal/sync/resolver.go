package sync

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/stripe"
)

// ProductSearcher is the server-side metadata filter the resolver's first
// identity signal runs through.
type ProductSearcher interface {
	SearchProductsByMetadata(ctx context.Context, key, value string) ([]stripe.Product, error)
}

// Resolver decides whether a Stripe product already represents a source
// variant. The same chain runs during sync, duplicate cleanup and price
// lookup; if those paths diverged, reconciliation and fulfillment would
// disagree about identity.
type Resolver struct {
	searcher ProductSearcher
	logger   *zap.Logger
}

// NewResolver creates a new identity resolver
func NewResolver(searcher ProductSearcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		searcher: searcher,
		logger:   logger,
	}
}

var strippedRunes = runes.Remove(runes.Predicate(func(r rune) bool {
	switch r {
	case '"', '\'', '`', '‘', '’', '“', '”', '[', ']', '(', ')', '{', '}', '|', '\\':
		return true
	}
	return false
}))

// NormalizeName folds a product name into its comparison form:
// NFKD fold, strip quote/apostrophe/bracket/pipe/backslash characters,
// collapse whitespace, lowercase, trim.
func NormalizeName(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, strippedRunes), name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// ComposedName is the display name a variant syncs under.
func ComposedName(v domain.SourceVariant) string {
	return v.ProductName + " - " + v.VariantName
}

// GroupByNormalizedName indexes active products by their comparison name.
func GroupByNormalizedName(products []stripe.Product) map[string][]stripe.Product {
	byName := make(map[string][]stripe.Product)
	for _, p := range products {
		if !p.Active {
			continue
		}
		key := NormalizeName(p.Name)
		byName[key] = append(byName[key], p)
	}
	return byName
}

// Resolve applies the priority-ordered identity chain. byName is a
// snapshot of the active catalog grouped by normalized name, taken once
// per run. A nil product with nil error means no match: create.
func (r *Resolver) Resolve(ctx context.Context, variant domain.SourceVariant, byName map[string][]stripe.Product) (*stripe.Product, error) {
	variantID := strconv.FormatInt(variant.ID, 10)

	// 1. server-side match on the canonical metadata key
	matches, err := r.searcher.SearchProductsByMetadata(ctx, domain.MetaSyncVariantID, variantID)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		if len(matches) > 1 {
			r.logger.Warn("Multiple products share one sync_variant_id",
				zap.String("sync_variant_id", variantID),
				zap.Int("count", len(matches)),
			)
			return SelectKeeper(matches), nil
		}
		return &matches[0], nil
	}

	// 2. normalized composed name
	group := byName[NormalizeName(ComposedName(variant))]
	switch len(group) {
	case 0:
		return nil, nil
	case 1:
		return &group[0], nil
	default:
		// 3. duplicate group: pick the keeper
		return SelectKeeper(group), nil
	}
}

// SelectKeeper picks the product that survives a duplicate group:
// prefer one carrying any recognized variant-id metadata key, then the
// most recently created.
func SelectKeeper(group []stripe.Product) *stripe.Product {
	if len(group) == 0 {
		return nil
	}

	candidates := make([]stripe.Product, 0, len(group))
	for _, p := range group {
		if domain.HasVariantIdentity(p.Metadata) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = group
	}

	keeper := candidates[0]
	for _, p := range candidates[1:] {
		if p.Created > keeper.Created {
			keeper = p
		}
	}
	return &keeper
}
