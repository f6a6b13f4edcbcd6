package sync

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/printful"
	"github.com/merchbay/podsync/internal/repository"
	"github.com/merchbay/podsync/internal/stripe"
	"github.com/merchbay/podsync/pkg/errors"
)

// SourceCatalog is the read side of the Printful client the engine needs.
type SourceCatalog interface {
	ListSyncProducts(ctx context.Context) ([]printful.SyncProductSummary, error)
	GetSyncProduct(ctx context.Context, id int64) (*printful.SyncProductDetail, error)
}

// TargetCatalog is the Stripe surface the engine reconciles against.
type TargetCatalog interface {
	ProductSearcher
	ListProducts(ctx context.Context, activeOnly bool) ([]stripe.Product, error)
	CreateProduct(ctx context.Context, params stripe.ProductParams) (*stripe.Product, error)
	UpdateProduct(ctx context.Context, id string, params stripe.ProductParams) (*stripe.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	DeactivateProduct(ctx context.Context, id string) error
	ListPrices(ctx context.Context, productID string) ([]stripe.Price, error)
	CreatePrice(ctx context.Context, params stripe.PriceParams) (*stripe.Price, error)
	UpdatePriceMetadata(ctx context.Context, id string, metadata map[string]string) (*stripe.Price, error)
	DeactivatePrice(ctx context.Context, id string) error
}

// Summary is the per-run outcome count. Dry runs produce the same shape
// so operators can diff expected against actual effect.
type Summary struct {
	Environment domain.Environment `json:"environment"`
	DryRun      bool               `json:"dry_run"`
	Created     int                `json:"created"`
	Updated     int                `json:"updated"`
	Skipped     int                `json:"skipped"`
	Errored     int                `json:"errored"`
	Deduped     int                `json:"deduped"`
}

// Engine drives one environment's reconciliation pass. Every step is
// independently idempotent: an interrupted run leaves the catalog in a
// valid intermediate state and a re-run converges.
type Engine struct {
	env              domain.Environment
	source           SourceCatalog
	target           TargetCatalog
	mappings         repository.MappingStore
	resolver         *Resolver
	currency         string
	maxGalleryImages int
	dryRun           bool
	logger           *zap.Logger
}

// NewEngine creates a reconciliation engine bound to one environment.
func NewEngine(
	env domain.Environment,
	source SourceCatalog,
	target TargetCatalog,
	mappings repository.MappingStore,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *Engine {
	maxImages := cfg.MaxGalleryImages
	if maxImages <= 0 {
		maxImages = 8
	}
	return &Engine{
		env:              env,
		source:           source,
		target:           target,
		mappings:         mappings,
		resolver:         NewResolver(target, logger),
		currency:         strings.ToLower(cfg.Currency),
		maxGalleryImages: maxImages,
		dryRun:           cfg.DryRun,
		logger:           logger.With(zap.String("environment", string(env))),
	}
}

// Run executes a full reconciliation pass: upsert every sync-ready
// variant, enforce the single-active-price invariant, upsert mappings,
// then collapse duplicate products.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{Environment: e.env, DryRun: e.dryRun}

	snapshot, err := e.target.ListProducts(ctx, false)
	if err != nil {
		return sum, fmt.Errorf("failed to list target products: %w", err)
	}
	byName := GroupByNormalizedName(snapshot)

	products, err := e.source.ListSyncProducts(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to list source products: %w", err)
	}

	for _, summary := range products {
		if summary.IsIgnored {
			sum.Skipped++
			continue
		}

		detail, err := e.source.GetSyncProduct(ctx, summary.ID)
		if err != nil {
			if isStructural(err) {
				return sum, err
			}
			e.logger.Error("Failed to fetch source product",
				zap.Int64("source_product_id", summary.ID),
				zap.Error(err),
			)
			sum.Errored++
			continue
		}

		gallery := buildGallery(detail, e.maxGalleryImages)

		for _, sv := range detail.Variants {
			variant := sv.ToDomain(detail.Product)
			if err := e.syncVariant(ctx, variant, gallery, byName, sum); err != nil {
				if isStructural(err) {
					return sum, err
				}
				e.logger.Error("Failed to sync variant",
					zap.Int64("source_variant_id", variant.ID),
					zap.String("name", ComposedName(variant)),
					zap.Error(err),
				)
				sum.Errored++
			}
		}
	}

	if err := e.dedupe(ctx, sum); err != nil {
		return sum, err
	}

	e.logger.Info("Reconciliation pass finished",
		zap.Bool("dry_run", sum.DryRun),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("errored", sum.Errored),
		zap.Int("deduped", sum.Deduped),
	)
	return sum, nil
}

// RunDedupeOnly runs just the duplicate-collapse pass, leaving the rest
// of the catalog untouched. Useful after a bad import created duplicates.
func (e *Engine) RunDedupeOnly(ctx context.Context) (*Summary, error) {
	sum := &Summary{Environment: e.env, DryRun: e.dryRun}
	if err := e.dedupe(ctx, sum); err != nil {
		return sum, err
	}
	e.logger.Info("Dedupe pass finished",
		zap.Bool("dry_run", sum.DryRun),
		zap.Int("errored", sum.Errored),
		zap.Int("deduped", sum.Deduped),
	)
	return sum, nil
}

func (e *Engine) syncVariant(
	ctx context.Context,
	v domain.SourceVariant,
	gallery []string,
	byName map[string][]stripe.Product,
	sum *Summary,
) error {
	if v.IsDeleted || v.IsIgnored {
		sum.Skipped++
		return nil
	}
	if ready, reason := v.SyncReady(); !ready {
		e.logger.Info("Skipping variant",
			zap.Int64("source_variant_id", v.ID),
			zap.String("reason", reason),
		)
		sum.Skipped++
		return nil
	}

	product, err := e.resolver.Resolve(ctx, v, byName)
	if err != nil {
		return err
	}

	if product == nil {
		product, err = e.createProduct(ctx, v, gallery)
		if err != nil {
			return err
		}
		sum.Created++
		if product == nil {
			// dry run: nothing to hang a price or mapping on
			return nil
		}
		// keep the in-run snapshot consistent with what was just written
		key := NormalizeName(product.Name)
		byName[key] = append(byName[key], *product)
	} else {
		changed, err := e.updateProductIfChanged(ctx, product, v, gallery)
		if err != nil {
			return err
		}
		if changed {
			sum.Updated++
		} else {
			sum.Skipped++
		}
	}

	priceID, err := e.ensureActivePrice(ctx, product.ID, v)
	if err != nil {
		return err
	}
	if priceID == "" {
		return nil
	}

	return e.upsertMapping(ctx, v, priceID)
}

func (e *Engine) createProduct(ctx context.Context, v domain.SourceVariant, gallery []string) (*stripe.Product, error) {
	name := ComposedName(v)
	if e.dryRun {
		e.logger.Info("dry-run: would create product",
			zap.Int64("source_variant_id", v.ID),
			zap.String("name", name),
		)
		e.logger.Info("dry-run: would create price",
			zap.Int64("source_variant_id", v.ID),
			zap.String("retail_price", v.RetailPrice),
			zap.String("currency", e.currency),
		)
		return nil, nil
	}

	return e.target.CreateProduct(ctx, stripe.ProductParams{
		Name:     name,
		Images:   gallery,
		Metadata: domain.CanonicalMetadataFor(v),
	})
}

func (e *Engine) updateProductIfChanged(ctx context.Context, product *stripe.Product, v domain.SourceVariant, gallery []string) (bool, error) {
	desiredName := ComposedName(v)
	desiredMeta := domain.CanonicalMetadataFor(v)
	currentMeta := domain.CanonicalizeMetadata(product.Metadata)

	if product.Active &&
		product.Name == desiredName &&
		metadataEqual(currentMeta, desiredMeta) &&
		stringsEqual(product.Images, gallery) {
		return false, nil
	}

	if e.dryRun {
		e.logger.Info("dry-run: would update product",
			zap.String("product_id", product.ID),
			zap.String("name", desiredName),
		)
		return true, nil
	}

	active := true
	updated, err := e.target.UpdateProduct(ctx, product.ID, stripe.ProductParams{
		Name:     desiredName,
		Images:   gallery,
		Metadata: domain.MetadataUpdatePayload(product.Metadata, desiredMeta),
		Active:   &active,
	})
	if err != nil {
		return false, err
	}
	*product = *updated
	return true, nil
}

// ensureActivePrice converges the product on exactly one active price
// carrying the variant's identity. Returns the surviving price id, or ""
// when a dry run suppressed the write that would have produced it.
func (e *Engine) ensureActivePrice(ctx context.Context, productID string, v domain.SourceVariant) (string, error) {
	amount, err := priceMinorUnits(v.RetailPrice)
	if err != nil {
		return "", err
	}
	variantID := strconv.FormatInt(v.ID, 10)
	desiredMeta := map[string]string{
		domain.MetaSyncVariantID: variantID,
		domain.MetaSKU:           variantID,
	}
	if v.SKU != "" {
		desiredMeta[domain.MetaSKU] = v.SKU
	}

	prices, err := e.target.ListPrices(ctx, productID)
	if err != nil {
		return "", err
	}

	var active []stripe.Price
	for _, p := range prices {
		if p.Active {
			active = append(active, p)
		}
	}

	if len(active) == 0 {
		if e.dryRun {
			e.logger.Info("dry-run: would create price",
				zap.String("product_id", productID),
				zap.Int64("unit_amount", amount),
				zap.String("currency", e.currency),
			)
			return "", nil
		}
		price, err := e.target.CreatePrice(ctx, stripe.PriceParams{
			ProductID:  productID,
			UnitAmount: amount,
			Currency:   e.currency,
			Metadata:   desiredMeta,
		})
		if err != nil {
			return "", err
		}
		return price.ID, nil
	}

	// keeper: the price claiming this variant's identity, else the first
	keeper := active[0]
	for _, p := range active {
		if id, ok := domain.VariantIDFromMetadata(p.Metadata); ok && id == variantID {
			keeper = p
			break
		}
	}

	for _, p := range active {
		if p.ID == keeper.ID {
			continue
		}
		if e.dryRun {
			e.logger.Info("dry-run: would deactivate extra price", zap.String("price_id", p.ID))
			continue
		}
		if err := e.target.DeactivatePrice(ctx, p.ID); err != nil {
			return "", err
		}
	}

	// amounts are immutable: a retail price change rotates the price
	if keeper.UnitAmount != amount || !strings.EqualFold(keeper.Currency, e.currency) {
		if e.dryRun {
			e.logger.Info("dry-run: would rotate price",
				zap.String("price_id", keeper.ID),
				zap.Int64("old_amount", keeper.UnitAmount),
				zap.Int64("new_amount", amount),
			)
			return "", nil
		}
		replacement, err := e.target.CreatePrice(ctx, stripe.PriceParams{
			ProductID:  productID,
			UnitAmount: amount,
			Currency:   e.currency,
			Metadata:   desiredMeta,
		})
		if err != nil {
			return "", err
		}
		if err := e.target.DeactivatePrice(ctx, keeper.ID); err != nil {
			return "", err
		}
		return replacement.ID, nil
	}

	if !metadataEqual(domain.CanonicalizeMetadata(keeper.Metadata), desiredMeta) {
		if e.dryRun {
			e.logger.Info("dry-run: would rewrite price metadata", zap.String("price_id", keeper.ID))
			return "", nil
		}
		if _, err := e.target.UpdatePriceMetadata(ctx, keeper.ID, domain.MetadataUpdatePayload(keeper.Metadata, desiredMeta)); err != nil {
			return "", err
		}
	}

	return keeper.ID, nil
}

func (e *Engine) upsertMapping(ctx context.Context, v domain.SourceVariant, priceID string) error {
	if e.dryRun {
		e.logger.Info("dry-run: would upsert mapping",
			zap.Int64("source_variant_id", v.ID),
			zap.String("stripe_price_id", priceID),
		)
		return nil
	}
	return e.mappings.Upsert(ctx, &domain.MappingRecord{
		SourceVariantID: v.ID,
		Environment:     e.env,
		StripePriceID:   priceID,
		VariantName:     v.VariantName,
		Color:           v.Color,
		Size:            v.Size,
		ImageURL:        v.PreviewImageURL,
		RetailPrice:     v.RetailPrice,
	})
}

// buildGallery assembles the image gallery: product thumbnail first, then
// up to max variant previews, insertion order, duplicates removed by URL.
func buildGallery(detail *printful.SyncProductDetail, max int) []string {
	seen := make(map[string]bool)
	var gallery []string

	if detail.Product.ThumbnailURL != "" {
		seen[detail.Product.ThumbnailURL] = true
		gallery = append(gallery, detail.Product.ThumbnailURL)
	}

	variantImages := 0
	for _, sv := range detail.Variants {
		if variantImages >= max {
			break
		}
		url := sv.PreviewImage("")
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		gallery = append(gallery, url)
		variantImages++
	}
	return gallery
}

// priceMinorUnits converts a decimal retail price string into minor
// currency units, e.g. "25.00" -> 2500.
func priceMinorUnits(retail string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(retail), 64)
	if err != nil {
		return 0, &errors.ValidationError{Item: retail, Reason: "unparseable retail price"}
	}
	return int64(math.Round(f * 100)), nil
}

// isStructural reports whether an upstream error invalidates the whole
// run (auth failures) rather than the single item.
func isStructural(err error) bool {
	upstream, ok := err.(*errors.UpstreamError)
	return ok && upstream.IsStructural()
}

func metadataEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
