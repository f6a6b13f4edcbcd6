package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

const listPageSize = 100

// Client talks to the Printful store API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new Printful API client
func NewClient(cfg config.PrintfulConfig, logger *zap.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Printful allows 120 requests/minute per store
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		logger:  logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &errors.UpstreamError{Status: resp.StatusCode, Message: string(respBody)}
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := string(respBody)
		if env.Error != nil {
			msg = env.Error.Message
		}
		return nil, &errors.UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	return &env, nil
}

// ListSyncProducts drains the paginated product listing. Pages are
// followed transparently until the reported total is reached.
func (c *Client) ListSyncProducts(ctx context.Context) ([]SyncProductSummary, error) {
	var all []SyncProductSummary
	offset := 0

	for {
		path := fmt.Sprintf("/products?offset=%d&limit=%d", offset, listPageSize)
		env, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var page []SyncProductSummary
		if err := json.Unmarshal(env.Result, &page); err != nil {
			return nil, fmt.Errorf("failed to parse product list: %w", err)
		}
		all = append(all, page...)

		if env.Paging == nil || offset+len(page) >= env.Paging.Total || len(page) == 0 {
			return all, nil
		}
		offset += len(page)
	}
}

// GetSyncProduct fetches one product with its variants and files.
func (c *Client) GetSyncProduct(ctx context.Context, id int64) (*SyncProductDetail, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var detail SyncProductDetail
	if err := json.Unmarshal(env.Result, &detail); err != nil {
		return nil, fmt.Errorf("failed to parse product detail: %w", err)
	}
	return &detail, nil
}

// GetVariant checks that a sync variant still exists and is not deleted.
// A 404 means gone, not an error; anything else surfaces to the caller.
func (c *Client) GetVariant(ctx context.Context, id int64) (bool, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/variants/%d", id), nil)
	if err != nil {
		if upstream, ok := err.(*errors.UpstreamError); ok && upstream.Status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}

	var result struct {
		SyncVariant SyncVariant `json:"sync_variant"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return false, fmt.Errorf("failed to parse variant: %w", err)
	}
	return !result.SyncVariant.IsDeleted, nil
}

// CreateOrder submits a draft fulfillment order. The order is never
// auto-confirmed: confirm=false both in the query and the body.
func (c *Client) CreateOrder(ctx context.Context, order domain.FulfillmentOrder) (int64, error) {
	body := orderRequest{
		ExternalID: order.ExternalID,
		Recipient:  order.Recipient,
		Items:      order.Items,
		Confirm:    false,
	}

	path := "/orders?" + url.Values{"confirm": {"false"}}.Encode()
	env, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return 0, err
	}

	var result orderResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return 0, fmt.Errorf("failed to parse order response: %w", err)
	}

	c.logger.Info("Created Printful draft order",
		zap.Int64("order_id", result.ID),
		zap.String("external_id", order.ExternalID),
		zap.String("status", result.Status),
	)
	return result.ID, nil
}
