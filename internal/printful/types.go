package printful

import (
	"encoding/json"

	"github.com/merchbay/podsync/internal/domain"
)

// envelope is the wrapper Printful puts around every response
type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Paging *paging         `json:"paging,omitempty"`
	Error  *apiError       `json:"error,omitempty"`
}

type paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type apiError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// SyncProductSummary is one row of the paginated product listing.
type SyncProductSummary struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	Name         string `json:"name"`
	Variants     int    `json:"variants"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsIgnored    bool   `json:"is_ignored"`
}

// SyncProductDetail is the full product with its variants and files.
type SyncProductDetail struct {
	Product  SyncProductSummary `json:"sync_product"`
	Variants []SyncVariant      `json:"sync_variants"`
}

// SyncVariant is Printful's variant shape. Available is a pointer because
// the field is sometimes absent, in which case it defaults to true.
type SyncVariant struct {
	ID            int64         `json:"id"`
	SyncProductID int64         `json:"sync_product_id"`
	Name          string        `json:"name"`
	SKU           string        `json:"sku"`
	RetailPrice   string        `json:"retail_price"`
	Available     *bool         `json:"available,omitempty"`
	IsDeleted     bool          `json:"is_deleted"`
	IsIgnored     bool          `json:"is_ignored"`
	Size          string        `json:"size"`
	Color         string        `json:"color"`
	Files         []VariantFile `json:"files"`
}

// VariantFile is an uploaded or generated asset attached to a variant.
type VariantFile struct {
	Type       string `json:"type"`
	PreviewURL string `json:"preview_url"`
}

// PreviewImage picks the variant's preview image: the generated mockup
// first, then any file with a preview, then the product thumbnail.
func (v SyncVariant) PreviewImage(fallback string) string {
	for _, f := range v.Files {
		if f.Type == "preview" && f.PreviewURL != "" {
			return f.PreviewURL
		}
	}
	for _, f := range v.Files {
		if f.PreviewURL != "" {
			return f.PreviewURL
		}
	}
	return fallback
}

// ToDomain converts the variant into the catalog-neutral shape the
// reconciliation engine works with.
func (v SyncVariant) ToDomain(product SyncProductSummary) domain.SourceVariant {
	available := true
	if v.Available != nil {
		available = *v.Available
	}
	return domain.SourceVariant{
		ID:              v.ID,
		ProductID:       v.SyncProductID,
		ProductName:     product.Name,
		VariantName:     v.Name,
		Size:            v.Size,
		Color:           v.Color,
		SKU:             v.SKU,
		RetailPrice:     v.RetailPrice,
		PreviewImageURL: v.PreviewImage(product.ThumbnailURL),
		Available:       available,
		IsDeleted:       v.IsDeleted,
		IsIgnored:       v.IsIgnored,
	}
}

// orderRequest is the POST /orders body. Confirm is always false: this
// system only ever creates drafts.
type orderRequest struct {
	ExternalID string                   `json:"external_id"`
	Recipient  domain.Recipient         `json:"recipient"`
	Items      []domain.FulfillmentItem `json:"items"`
	Confirm    bool                     `json:"confirm"`
}

type orderResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}
