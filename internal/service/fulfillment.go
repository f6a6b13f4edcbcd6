package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/repository"
	"github.com/merchbay/podsync/internal/stripe"
	"github.com/merchbay/podsync/pkg/errors"
)

// Status is the terminal state of webhook fulfillment processing.
type Status string

const (
	// StatusSubmitted means a draft order was created at Printful.
	StatusSubmitted Status = "submitted"
	// StatusSkipped means nothing was fulfillable; the sender must not retry.
	StatusSkipped Status = "skipped"
	// StatusDuplicate means this session already produced an order.
	StatusDuplicate Status = "duplicate"
)

// Result is what a processed checkout session came to.
type Result struct {
	Status          Status `json:"status"`
	PrintfulOrderID int64  `json:"printful_order_id,omitempty"`
	Resolved        int    `json:"resolved_items"`
	Dropped         int    `json:"dropped_items"`
}

// SourceValidator re-checks that a variant still exists upstream before
// an order references it.
type SourceValidator interface {
	GetVariant(ctx context.Context, id int64) (bool, error)
	CreateOrder(ctx context.Context, order domain.FulfillmentOrder) (int64, error)
}

// LineItemLister fetches a session's line items with price metadata.
type LineItemLister interface {
	ListSessionLineItems(ctx context.Context, sessionID string) ([]stripe.SessionLineItem, error)
}

type fulfillmentService struct {
	source   SourceValidator
	target   LineItemLister
	mappings repository.MappingStore
	sessions repository.FulfillmentStore
	env      domain.Environment
	logger   *zap.Logger
}

// NewFulfillmentService creates a fulfillment translator bound to the
// environment the webhook's signature verified under.
func NewFulfillmentService(
	source SourceValidator,
	target LineItemLister,
	repos *repository.Repositories,
	env domain.Environment,
	logger *zap.Logger,
) *fulfillmentService {
	return &fulfillmentService{
		source:   source,
		target:   target,
		mappings: repos.Mappings,
		sessions: repos.Fulfillments,
		env:      env,
		logger:   logger.With(zap.String("environment", string(env))),
	}
}

// ProcessSession turns a verified checkout.session.completed event into
// at most one draft fulfillment order. Unresolvable line items are
// dropped with a warning; only upstream submission failures are errors.
func (s *fulfillmentService) ProcessSession(ctx context.Context, session domain.CheckoutSession) (*Result, error) {
	// a redelivered event for an already-fulfilled session is a no-op
	if existing, err := s.sessions.GetBySessionID(ctx, session.ID, s.env); err == nil {
		s.logger.Info("Session already fulfilled, skipping",
			zap.String("session_id", session.ID),
			zap.Int64("printful_order_id", existing.PrintfulOrderID),
		)
		return &Result{Status: StatusDuplicate, PrintfulOrderID: existing.PrintfulOrderID}, nil
	} else if _, notFound := err.(*errors.ErrNotFound); !notFound {
		return nil, err
	}

	lineItems, err := s.target.ListSessionLineItems(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	result := &Result{Status: StatusSkipped}
	var items []domain.FulfillmentItem

	for _, li := range lineItems {
		variantID, ok := s.resolveVariantID(ctx, li)
		if !ok {
			result.Dropped++
			continue
		}

		exists, err := s.source.GetVariant(ctx, variantID)
		if err != nil {
			s.logger.Warn("Could not re-validate variant, dropping line item",
				zap.Int64("source_variant_id", variantID),
				zap.Error(err),
			)
			result.Dropped++
			continue
		}
		if !exists {
			s.logger.Warn("Variant no longer exists upstream, dropping line item",
				zap.Int64("source_variant_id", variantID),
				zap.String("price_id", li.Price.ID),
			)
			result.Dropped++
			continue
		}

		quantity := int(li.Quantity)
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, domain.FulfillmentItem{
			SyncVariantID: variantID,
			Quantity:      quantity,
		})
		result.Resolved++
	}

	if len(items) == 0 {
		s.logger.Warn("No fulfillable line items in session",
			zap.String("session_id", session.ID),
			zap.Int("dropped", result.Dropped),
		)
		return result, nil
	}

	order := domain.FulfillmentOrder{
		ExternalID: session.ID,
		Recipient:  recipientFromSession(session),
		Items:      items,
	}

	orderID, err := s.source.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, &domain.SessionFulfillment{
		SessionID:       session.ID,
		Environment:     s.env,
		PrintfulOrderID: orderID,
	}); err != nil {
		// the order exists either way; losing the record only weakens
		// duplicate detection for this one session
		s.logger.Warn("Failed to record session fulfillment",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	result.Status = StatusSubmitted
	result.PrintfulOrderID = orderID
	return result, nil
}

// resolveVariantID extracts the source variant id from price metadata,
// canonical key first, legacy keys next, mapping store as last resort.
func (s *fulfillmentService) resolveVariantID(ctx context.Context, li stripe.SessionLineItem) (int64, bool) {
	if raw, ok := domain.VariantIDFromMetadata(li.Price.Metadata); ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			return id, true
		}
		s.logger.Warn("Price metadata carries a non-numeric variant id",
			zap.String("price_id", li.Price.ID),
			zap.String("value", raw),
		)
	}

	if li.Price.ID != "" {
		if mapping, err := s.mappings.GetByPriceID(ctx, li.Price.ID, s.env); err == nil {
			return mapping.SourceVariantID, true
		}
	}

	s.logger.Warn("Could not resolve line item to a source variant",
		zap.String("price_id", li.Price.ID),
	)
	return 0, false
}

func recipientFromSession(session domain.CheckoutSession) domain.Recipient {
	name := session.ShippingDetails.Name
	if name == "" {
		name = session.CustomerDetails.Name
	}
	addr := session.ShippingDetails.Address
	return domain.Recipient{
		Name:        name,
		Email:       session.CustomerDetails.Email,
		Address1:    addr.Line1,
		Address2:    addr.Line2,
		City:        addr.City,
		StateCode:   addr.State,
		CountryCode: addr.Country,
		Zip:         addr.PostalCode,
	}
}
