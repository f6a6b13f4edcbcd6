package stripe

// Product is a Stripe catalog entry.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
	Active      bool              `json:"active"`
	Created     int64             `json:"created"`
}

// Price is a price point attached to a product. Stripe never hard-deletes
// prices; deactivation is the only removal primitive.
type Price struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product"`
	UnitAmount int64             `json:"unit_amount"`
	Currency   string            `json:"currency"`
	Metadata   map[string]string `json:"metadata"`
	Active     bool              `json:"active"`
	Created    int64             `json:"created"`
}

// ProductParams is the writable subset of a product.
type ProductParams struct {
	Name        string
	Description string
	Images      []string
	Metadata    map[string]string
	Active      *bool
}

// PriceParams is the writable subset of a price.
type PriceParams struct {
	ProductID  string
	UnitAmount int64
	Currency   string
	Metadata   map[string]string
}

// SessionLineItem is one line of a checkout session, with its price
// expanded so metadata is available. ID is the line item's own id, which
// is what cursor pagination keys on.
type SessionLineItem struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
	Price    Price  `json:"price"`
}

// CheckoutSessionParams is the input for creating a hosted checkout page.
type CheckoutSessionParams struct {
	LineItems         []CheckoutLineItem
	CustomerEmail     string
	SuccessURL        string
	CancelURL         string
	ShippingCountries []string
}

type CheckoutLineItem struct {
	Price    string
	Quantity int64
}

// CheckoutSession is the created session; URL is where the buyer goes.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type productList struct {
	Data    []Product `json:"data"`
	HasMore bool      `json:"has_more"`
}

type priceList struct {
	Data    []Price `json:"data"`
	HasMore bool    `json:"has_more"`
}

type lineItemList struct {
	Data    []SessionLineItem `json:"data"`
	HasMore bool              `json:"has_more"`
}

type searchResult struct {
	Data     []Product `json:"data"`
	HasMore  bool      `json:"has_more"`
	NextPage string    `json:"next_page"`
}

type deleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
