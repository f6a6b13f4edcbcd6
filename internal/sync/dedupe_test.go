package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/stripe"
	"github.com/merchbay/podsync/pkg/errors"
)

func seedDuplicate(t *testing.T, target *fakeTarget, metadata map[string]string, withPrice bool) *stripe.Product {
	t.Helper()
	product, err := target.CreateProduct(context.Background(), stripe.ProductParams{
		Name:     "Tee - Black / M",
		Metadata: metadata,
		Images:   []string{"https://img.example/tee-thumb.png", "https://img.example/tee-black-m.png"},
	})
	require.NoError(t, err)
	if withPrice {
		_, err = target.CreatePrice(context.Background(), stripe.PriceParams{
			ProductID: product.ID, UnitAmount: 2500, Currency: "cad", Metadata: metadata,
		})
		require.NoError(t, err)
	}
	return product
}

func TestRun_CollapsesDuplicates(t *testing.T) {
	target := newFakeTarget()

	keeper := seedDuplicate(t, target, map[string]string{
		domain.MetaSyncVariantID: "501", domain.MetaSKU: "501",
		domain.MetaVariantName: "Black / M", domain.MetaColor: "Black", domain.MetaSize: "M",
	}, true)
	// the bare copy is newer but carries no identity, so it loses
	dup := seedDuplicate(t, target, nil, true)

	sum, err := newTestEngine(teeSource(), target, newMockMappings(), false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Deduped)
	assert.Equal(t, 0, sum.Errored)
	assert.Contains(t, target.products, keeper.ID)
	assert.NotContains(t, target.products, dup.ID)

	// the duplicate's price was deactivated on the way out
	for _, p := range target.prices {
		if p.ProductID == dup.ID {
			assert.False(t, p.Active)
		}
	}
}

func TestRun_AmbiguousDuplicatesAreLeftAlone(t *testing.T) {
	target := newFakeTarget()

	a := seedDuplicate(t, target, map[string]string{
		domain.MetaSyncVariantID: "501", domain.MetaSKU: "501",
		domain.MetaVariantName: "Black / M", domain.MetaColor: "Black", domain.MetaSize: "M",
	}, true)
	b := seedDuplicate(t, target, map[string]string{domain.MetaSyncVariantID: "777"}, true)

	core, logs := observer.New(zap.ErrorLevel)
	engine := NewEngine(
		domain.EnvironmentTest,
		teeSource(),
		target,
		newMockMappings(),
		config.SyncConfig{Currency: "cad", MaxGalleryImages: 8},
		zap.New(core),
	)

	sum, err := engine.Run(context.Background())
	require.NoError(t, err)

	// conflicting identities under one name need a human decision
	assert.Equal(t, 0, sum.Deduped)
	assert.Equal(t, 1, sum.Errored)
	assert.Contains(t, target.products, a.ID)
	assert.Contains(t, target.products, b.ID)

	var logged *errors.ConsistencyError
	for _, entry := range logs.All() {
		for _, field := range entry.Context {
			if ce, ok := field.Interface.(*errors.ConsistencyError); ok {
				logged = ce
			}
		}
	}
	require.NotNil(t, logged)
	assert.Contains(t, logged.Message, "tee - black / m")
}

func TestRun_DeactivatesDuplicateWhenDeleteRefused(t *testing.T) {
	target := newFakeTarget()
	target.refuseDelete = true

	seedDuplicate(t, target, map[string]string{
		domain.MetaSyncVariantID: "501", domain.MetaSKU: "501",
		domain.MetaVariantName: "Black / M", domain.MetaColor: "Black", domain.MetaSize: "M",
	}, true)
	dup := seedDuplicate(t, target, nil, true)

	sum, err := newTestEngine(teeSource(), target, newMockMappings(), false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Deduped)
	require.Contains(t, target.products, dup.ID)
	assert.False(t, target.products[dup.ID].Active)
}

func TestRun_DryRunLeavesDuplicatesInPlace(t *testing.T) {
	target := newFakeTarget()

	seedDuplicate(t, target, map[string]string{
		domain.MetaSyncVariantID: "501", domain.MetaSKU: "501",
		domain.MetaVariantName: "Black / M", domain.MetaColor: "Black", domain.MetaSize: "M",
	}, true)
	dup := seedDuplicate(t, target, nil, true)

	before := target.mutation
	sum, err := newTestEngine(teeSource(), target, newMockMappings(), true).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Deduped)
	assert.Contains(t, target.products, dup.ID)
	assert.Equal(t, before, target.mutation)
}
