package service

// CheckoutSessionRequest is the storefront's session-creation payload.
// Environment selects which Stripe key creates the session; fulfillment
// never trusts this field, only the webhook signature.
type CheckoutSessionRequest struct {
	LineItems         []CheckoutLineItem `json:"line_items" binding:"required,min=1"`
	Email             string             `json:"email"`
	Environment       string             `json:"environment" binding:"required"`
	SuccessURL        string             `json:"success_url"`
	CancelURL         string             `json:"cancel_url"`
	ShippingCountries []string           `json:"shipping_countries"`
}

type CheckoutLineItem struct {
	Price    string `json:"price" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,min=1"`
}

// CheckoutSessionResponse carries the hosted checkout URL.
type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

// PriceLookupRequest resolves a storefront item to its Stripe price.
// Exactly one of ProductName or SyncVariantID must be set.
type PriceLookupRequest struct {
	ProductName   string `json:"product_name"`
	SyncVariantID int64  `json:"sync_variant_id"`
	Mode          string `json:"mode" binding:"required"`
}

// SyncRequest triggers a reconciliation pass from the admin API.
type SyncRequest struct {
	Environment string `json:"environment" binding:"required"`
	DryRun      bool   `json:"dry_run"`
}
