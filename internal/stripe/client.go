package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

const pageSize = 100

// Client talks to the Stripe API with one environment-scoped key.
// Test and live catalogs get separate clients; they are never mixed.
type Client struct {
	baseURL    string
	apiKey     string
	env        domain.Environment
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a Stripe client bound to one environment.
func NewClient(baseURL, apiKey string, env domain.Environment, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		env:     env,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(25), 25),
		logger:  logger,
	}
}

// Environment returns the environment this client's key is scoped to.
func (c *Client) Environment() domain.Environment {
	return c.env
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	fullURL := c.baseURL + path
	if form != nil {
		if method == http.MethodGet {
			fullURL += "?" + form.Encode()
		} else {
			body = strings.NewReader(form.Encode())
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope errorEnvelope
		msg := string(respBody)
		if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return &errors.UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// ListProducts follows cursor pagination until the catalog is exhausted.
func (c *Client) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	var all []Product
	startingAfter := ""

	for {
		form := url.Values{"limit": {strconv.Itoa(pageSize)}}
		if activeOnly {
			form.Set("active", "true")
		}
		if startingAfter != "" {
			form.Set("starting_after", startingAfter)
		}

		var page productList
		if err := c.do(ctx, http.MethodGet, "/products", form, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.HasMore || len(page.Data) == 0 {
			return all, nil
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
}

// SearchProductsByMetadata runs a server-side metadata filter.
func (c *Client) SearchProductsByMetadata(ctx context.Context, key, value string) ([]Product, error) {
	var all []Product
	nextPage := ""

	for {
		form := url.Values{
			"query": {fmt.Sprintf("metadata['%s']:'%s'", key, value)},
			"limit": {strconv.Itoa(pageSize)},
		}
		if nextPage != "" {
			form.Set("page", nextPage)
		}

		var page searchResult
		if err := c.do(ctx, http.MethodGet, "/products/search", form, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.HasMore || page.NextPage == "" {
			return all, nil
		}
		nextPage = page.NextPage
	}
}

// CreateProduct creates a catalog entry.
func (c *Client) CreateProduct(ctx context.Context, params ProductParams) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPost, "/products", productForm(params), &product); err != nil {
		return nil, err
	}
	c.logger.Info("Created Stripe product",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("environment", string(c.env)),
	)
	return &product, nil
}

// UpdateProduct updates name, description, images, metadata and active flag.
func (c *Client) UpdateProduct(ctx context.Context, id string, params ProductParams) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPost, "/products/"+id, productForm(params), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct hard-deletes a product. Stripe refuses while the product
// still has prices attached; deactivate them first.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	var result deleteResult
	if err := c.do(ctx, http.MethodDelete, "/products/"+id, nil, &result); err != nil {
		return err
	}
	if !result.Deleted {
		return &errors.UpstreamError{Status: http.StatusConflict, Message: "product was not deleted: " + id}
	}
	return nil
}

// DeactivateProduct is the fallback when deletion is refused.
func (c *Client) DeactivateProduct(ctx context.Context, id string) error {
	form := url.Values{"active": {"false"}}
	return c.do(ctx, http.MethodPost, "/products/"+id, form, nil)
}

// ListPrices lists every price of a product, active or not.
func (c *Client) ListPrices(ctx context.Context, productID string) ([]Price, error) {
	var all []Price
	startingAfter := ""

	for {
		form := url.Values{
			"product": {productID},
			"limit":   {strconv.Itoa(pageSize)},
		}
		if startingAfter != "" {
			form.Set("starting_after", startingAfter)
		}

		var page priceList
		if err := c.do(ctx, http.MethodGet, "/prices", form, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.HasMore || len(page.Data) == 0 {
			return all, nil
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
}

// CreatePrice creates a price in minor currency units.
func (c *Client) CreatePrice(ctx context.Context, params PriceParams) (*Price, error) {
	form := url.Values{
		"product":     {params.ProductID},
		"unit_amount": {strconv.FormatInt(params.UnitAmount, 10)},
		"currency":    {params.Currency},
	}
	addMetadata(form, params.Metadata)

	var price Price
	if err := c.do(ctx, http.MethodPost, "/prices", form, &price); err != nil {
		return nil, err
	}
	c.logger.Info("Created Stripe price",
		zap.String("price_id", price.ID),
		zap.String("product_id", params.ProductID),
		zap.Int64("unit_amount", params.UnitAmount),
		zap.String("environment", string(c.env)),
	)
	return &price, nil
}

// UpdatePriceMetadata rewrites a price's metadata in place. Amounts are
// immutable; metadata is the only writable part this system touches.
func (c *Client) UpdatePriceMetadata(ctx context.Context, id string, metadata map[string]string) (*Price, error) {
	form := url.Values{}
	addMetadata(form, metadata)

	var price Price
	if err := c.do(ctx, http.MethodPost, "/prices/"+id, form, &price); err != nil {
		return nil, err
	}
	return &price, nil
}

// DeactivatePrice retires a price. There is no hard delete.
func (c *Client) DeactivatePrice(ctx context.Context, id string) error {
	form := url.Values{"active": {"false"}}
	return c.do(ctx, http.MethodPost, "/prices/"+id, form, nil)
}

// ListSessionLineItems fetches a checkout session's line items with
// prices expanded, so price metadata is available for fulfillment.
func (c *Client) ListSessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error) {
	var all []SessionLineItem
	startingAfter := ""

	for {
		form := url.Values{
			"limit":    {strconv.Itoa(pageSize)},
			"expand[]": {"data.price"},
		}
		if startingAfter != "" {
			form.Set("starting_after", startingAfter)
		}

		var page lineItemList
		path := fmt.Sprintf("/checkout/sessions/%s/line_items", sessionID)
		if err := c.do(ctx, http.MethodGet, path, form, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.HasMore || len(page.Data) == 0 {
			return all, nil
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
}

// CreateCheckoutSession creates a hosted checkout page for the storefront.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{
		"mode":                 {"payment"},
		"shipping_address_collection[allowed_countries][]": params.ShippingCountries,
	}
	if params.SuccessURL != "" {
		form.Set("success_url", params.SuccessURL)
	}
	if params.CancelURL != "" {
		form.Set("cancel_url", params.CancelURL)
	}
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	for i, item := range params.LineItems {
		form.Set(fmt.Sprintf("line_items[%d][price]", i), item.Price)
		form.Set(fmt.Sprintf("line_items[%d][quantity]", i), strconv.FormatInt(item.Quantity, 10))
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func productForm(params ProductParams) url.Values {
	form := url.Values{}
	if params.Name != "" {
		form.Set("name", params.Name)
	}
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	for i, img := range params.Images {
		form.Set(fmt.Sprintf("images[%d]", i), img)
	}
	addMetadata(form, params.Metadata)
	if params.Active != nil {
		form.Set("active", strconv.FormatBool(*params.Active))
	}
	return form
}

func addMetadata(form url.Values, metadata map[string]string) {
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
}
