package printful

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.PrintfulConfig{APIKey: "pf_key", BaseURL: srv.URL}, zap.NewNop())
}

func TestListSyncProducts_DrainsAllPages(t *testing.T) {
	var offsets []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pf_key", r.Header.Get("Authorization"))
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)

		page := []SyncProductSummary{}
		start := 0
		fmt.Sscanf(offset, "%d", &start)
		for i := start; i < start+100 && i < 150; i++ {
			page = append(page, SyncProductSummary{ID: int64(i + 1), Name: fmt.Sprintf("Product %d", i+1)})
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":   200,
			"result": page,
			"paging": map[string]int{"total": 150, "offset": start, "limit": 100},
		})
	})

	products, err := client.ListSyncProducts(context.Background())
	require.NoError(t, err)

	assert.Len(t, products, 150)
	assert.Equal(t, []string{"0", "100"}, offsets)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(150), products[149].ID)
}

func TestGetSyncProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/42", r.URL.Path)
		w.Write([]byte(`{
			"code": 200,
			"result": {
				"sync_product": {"id": 42, "name": "Tee", "thumbnail_url": "https://img.example/thumb.png"},
				"sync_variants": [
					{"id": 501, "name": "Black / M", "retail_price": "25.00",
					 "files": [{"type": "preview", "preview_url": "https://img.example/m.png"}]}
				]
			}
		}`))
	})

	detail, err := client.GetSyncProduct(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, "Tee", detail.Product.Name)
	require.Len(t, detail.Variants, 1)
	assert.Equal(t, int64(501), detail.Variants[0].ID)
	assert.Equal(t, "https://img.example/m.png", detail.Variants[0].PreviewImage(""))
}

func TestGetVariant_Exists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"result":{"sync_variant":{"id":501,"is_deleted":false}}}`))
	})

	exists, err := client.GetVariant(context.Background(), 501)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetVariant_NotFoundIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":404,"error":{"message":"Not found"}}`))
	})

	exists, err := client.GetVariant(context.Background(), 501)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetVariant_DeletedCountsAsGone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"result":{"sync_variant":{"id":501,"is_deleted":true}}}`))
	})

	exists, err := client.GetVariant(context.Background(), 501)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetVariant_AuthFailureSurfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":401,"error":{"message":"Invalid token"}}`))
	})

	_, err := client.GetVariant(context.Background(), 501)
	require.Error(t, err)
	upstream, ok := err.(*errors.UpstreamError)
	require.True(t, ok)
	assert.True(t, upstream.IsStructural())
	assert.Contains(t, upstream.Message, "Invalid token")
}

func TestCreateOrder_AlwaysDraft(t *testing.T) {
	var gotBody orderRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("confirm"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Write([]byte(`{"code":200,"result":{"id":9001,"status":"draft"}}`))
	})

	order := domain.FulfillmentOrder{
		ExternalID: "cs_1",
		Recipient:  domain.Recipient{Name: "Pat Buyer", Address1: "12 Main St", City: "Toronto", CountryCode: "CA", Zip: "M5V 1A1"},
		Items:      []domain.FulfillmentItem{{SyncVariantID: 501, Quantity: 2}},
	}

	orderID, err := client.CreateOrder(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, int64(9001), orderID)
	assert.False(t, gotBody.Confirm)
	assert.Equal(t, "cs_1", gotBody.ExternalID)
	require.Len(t, gotBody.Items, 1)
	assert.Equal(t, int64(501), gotBody.Items[0].SyncVariantID)
}
