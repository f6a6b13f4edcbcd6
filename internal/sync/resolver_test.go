package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/stripe"
)

type mockSearcher struct {
	results map[string][]stripe.Product
	err     error
}

func (m *mockSearcher) SearchProductsByMetadata(_ context.Context, key, value string) ([]stripe.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results[key+"="+value], nil
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Tee - Black / M":         "tee - black / m",
		"  Tee   -  Black / M  ":  "tee - black / m",
		`"Tee" - Black [M]`:       "tee - black m",
		"Tee | Black \\ M":        "tee black m",
		"Tee - Black / M (copy)":  "tee - black / m copy",
		"it's a tee - 'Black' /M": "its a tee - black /m",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), "input %q", in)
	}

	// NFKD makes composed and decomposed spellings compare equal
	assert.Equal(t, NormalizeName("Teé Shirt"), NormalizeName("Teé Shirt"))
}

func TestComposedName(t *testing.T) {
	v := domain.SourceVariant{ProductName: "Tee", VariantName: "Black / M"}
	assert.Equal(t, "Tee - Black / M", ComposedName(v))
}

func TestSelectKeeper_PrefersVariantIdentity(t *testing.T) {
	// the product carrying identity metadata wins regardless of age
	older := stripe.Product{
		ID:       "prod_with_id",
		Created:  100,
		Metadata: map[string]string{domain.MetaSyncVariantID: "501"},
	}
	newer := stripe.Product{ID: "prod_bare", Created: 200}

	keeper := SelectKeeper([]stripe.Product{newer, older})
	require.NotNil(t, keeper)
	assert.Equal(t, "prod_with_id", keeper.ID)
}

func TestSelectKeeper_LegacyKeysCountAsIdentity(t *testing.T) {
	legacy := stripe.Product{
		ID:       "prod_legacy",
		Created:  100,
		Metadata: map[string]string{domain.MetaLegacyVariantID: "501"},
	}
	bare := stripe.Product{ID: "prod_bare", Created: 200}

	keeper := SelectKeeper([]stripe.Product{bare, legacy})
	require.NotNil(t, keeper)
	assert.Equal(t, "prod_legacy", keeper.ID)
}

func TestSelectKeeper_FallsBackToMostRecent(t *testing.T) {
	a := stripe.Product{ID: "a", Created: 100}
	b := stripe.Product{ID: "b", Created: 300}
	c := stripe.Product{ID: "c", Created: 200}

	keeper := SelectKeeper([]stripe.Product{a, b, c})
	require.NotNil(t, keeper)
	assert.Equal(t, "b", keeper.ID)
}

func TestSelectKeeper_Empty(t *testing.T) {
	assert.Nil(t, SelectKeeper(nil))
}

func TestResolve_MetadataSearchWins(t *testing.T) {
	hit := stripe.Product{ID: "prod_501", Metadata: map[string]string{domain.MetaSyncVariantID: "501"}}
	searcher := &mockSearcher{results: map[string][]stripe.Product{
		"sync_variant_id=501": {hit},
	}}
	r := NewResolver(searcher, zap.NewNop())

	// the name index points elsewhere; the server-side match still wins
	decoy := stripe.Product{ID: "prod_decoy", Name: "Tee - Black / M", Active: true}
	byName := GroupByNormalizedName([]stripe.Product{decoy})

	v := domain.SourceVariant{ID: 501, ProductName: "Tee", VariantName: "Black / M"}
	got, err := r.Resolve(context.Background(), v, byName)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "prod_501", got.ID)
}

func TestResolve_NameFallback(t *testing.T) {
	searcher := &mockSearcher{}
	r := NewResolver(searcher, zap.NewNop())

	existing := stripe.Product{ID: "prod_name", Name: `Tee - "Black" / M`, Active: true}
	byName := GroupByNormalizedName([]stripe.Product{existing})

	v := domain.SourceVariant{ID: 501, ProductName: "Tee", VariantName: "Black / M"}
	got, err := r.Resolve(context.Background(), v, byName)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "prod_name", got.ID)
}

func TestResolve_DuplicateGroupUsesKeeperRule(t *testing.T) {
	searcher := &mockSearcher{}
	r := NewResolver(searcher, zap.NewNop())

	withID := stripe.Product{
		ID: "prod_keep", Name: "Tee - Black / M", Active: true, Created: 100,
		Metadata: map[string]string{domain.MetaSyncVariantID: "501"},
	}
	bare := stripe.Product{ID: "prod_dup", Name: "Tee - Black / M", Active: true, Created: 200}
	byName := GroupByNormalizedName([]stripe.Product{bare, withID})

	v := domain.SourceVariant{ID: 501, ProductName: "Tee", VariantName: "Black / M"}
	got, err := r.Resolve(context.Background(), v, byName)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "prod_keep", got.ID)
}

func TestResolve_NoMatchMeansCreate(t *testing.T) {
	r := NewResolver(&mockSearcher{}, zap.NewNop())

	v := domain.SourceVariant{ID: 501, ProductName: "Tee", VariantName: "Black / M"}
	got, err := r.Resolve(context.Background(), v, map[string][]stripe.Product{})

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGroupByNormalizedName_SkipsInactive(t *testing.T) {
	active := stripe.Product{ID: "a", Name: "Tee - Black / M", Active: true}
	inactive := stripe.Product{ID: "b", Name: "Tee - Black / M", Active: false}

	groups := GroupByNormalizedName([]stripe.Product{active, inactive})
	require.Len(t, groups["tee - black / m"], 1)
	assert.Equal(t, "a", groups["tee - black / m"][0].ID)
}
