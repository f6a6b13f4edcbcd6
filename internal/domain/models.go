package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceVariant is one sellable unit in the Printful catalog. It is
// created and mutated entirely upstream; this system only reads it.
type SourceVariant struct {
	ID              int64
	ProductID       int64
	ProductName     string
	VariantName     string
	Size            string
	Color           string
	SKU             string
	RetailPrice     string
	PreviewImageURL string
	Available       bool
	IsDeleted       bool
	IsIgnored       bool
}

// SyncReady reports whether the variant can be pushed to Stripe, with a
// human-readable reason when it can't. Not sync-ready is a skip, not an error.
func (v SourceVariant) SyncReady() (bool, string) {
	if v.IsDeleted {
		return false, "variant is deleted upstream"
	}
	if v.IsIgnored {
		return false, "variant is ignored upstream"
	}
	if !v.Available {
		return false, "variant is not available for fulfillment"
	}
	if v.PreviewImageURL == "" {
		return false, "no resolvable preview image"
	}
	if v.RetailPrice == "" {
		return false, "no retail price"
	}
	return true, ""
}

// MappingRecord correlates a Printful sync variant with the Stripe price
// that sells it in one environment. Unique on (source variant, environment).
type MappingRecord struct {
	SourceVariantID int64       `json:"source_variant_id"`
	Environment     Environment `json:"environment"`
	StripePriceID   string      `json:"stripe_price_id"`
	VariantName     string      `json:"variant_name"`
	Color           string      `json:"color"`
	Size            string      `json:"size"`
	ImageURL        string      `json:"image_url"`
	RetailPrice     string      `json:"retail_price"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// SessionFulfillment records that a checkout session has already produced
// a Printful order, so redelivered webhooks don't fulfill twice.
type SessionFulfillment struct {
	SessionID       string
	Environment     Environment
	PrintfulOrderID int64
	CreatedAt       time.Time
}

// Operator is an authenticated caller of the admin endpoints.
type Operator struct {
	ID         uuid.UUID
	Name       string
	APIKeyHash string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Address is a shipping destination in Printful's recipient shape.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CheckoutSession is the parsed object of a checkout.session.completed
// event. Transient; never persisted beyond fulfillment processing.
type CheckoutSession struct {
	ID              string `json:"id"`
	Livemode        bool   `json:"livemode"`
	CustomerDetails struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
	ShippingDetails struct {
		Name    string  `json:"name"`
		Address Address `json:"address"`
	} `json:"shipping_details"`
}

// Recipient is the destination block of a Printful order.
type Recipient struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
}

// FulfillmentItem is one line of a Printful order.
type FulfillmentItem struct {
	SyncVariantID int64 `json:"sync_variant_id"`
	Quantity      int   `json:"quantity"`
}

// FulfillmentOrder is the outbound draft order sent to Printful. Orders
// are always created unconfirmed; confirmation is a separate human step.
type FulfillmentOrder struct {
	ExternalID string            `json:"external_id"`
	Recipient  Recipient         `json:"recipient"`
	Items      []FulfillmentItem `json:"items"`
}
