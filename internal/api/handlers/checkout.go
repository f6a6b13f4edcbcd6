package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/service"
	"github.com/merchbay/podsync/internal/stripe"
)

// HandleCreateCheckoutSession handles POST /v1/checkout/session. The
// environment field only selects which key creates the session; nothing
// downstream trusts it.
func HandleCreateCheckoutSession(targets map[domain.Environment]*stripe.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CheckoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		env, err := domain.ParseEnvironment(req.Environment)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		target, ok := targets[env]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "environment not configured"})
			return
		}

		params := stripe.CheckoutSessionParams{
			CustomerEmail:     req.Email,
			SuccessURL:        req.SuccessURL,
			CancelURL:         req.CancelURL,
			ShippingCountries: req.ShippingCountries,
		}
		for _, item := range req.LineItems {
			params.LineItems = append(params.LineItems, stripe.CheckoutLineItem{
				Price:    item.Price,
				Quantity: item.Quantity,
			})
		}

		session, err := target.CreateCheckoutSession(c.Request.Context(), params)
		if err != nil {
			logger.Error("Failed to create checkout session", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create checkout session"})
			return
		}

		c.JSON(http.StatusOK, service.CheckoutSessionResponse{URL: session.URL})
	}
}
