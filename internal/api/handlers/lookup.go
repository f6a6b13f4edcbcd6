package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/service"
	"github.com/merchbay/podsync/internal/stripe"
	"github.com/merchbay/podsync/pkg/errors"
)

// HandlePriceLookup handles POST /v1/lookup/price: resolve a storefront
// item (by sync variant id or product name) to its active Stripe price.
func HandlePriceLookup(targets map[domain.Environment]*stripe.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.PriceLookupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}
		if req.SyncVariantID == 0 && req.ProductName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "one of sync_variant_id or product_name is required"})
			return
		}

		env, err := domain.ParseEnvironment(req.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		target, ok := targets[env]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "environment not configured"})
			return
		}

		svc := service.NewLookupService(target, logger)

		var lookup *service.PriceLookup
		if req.SyncVariantID != 0 {
			lookup, err = svc.ByVariantID(c.Request.Context(), req.SyncVariantID)
		} else {
			lookup, err = svc.ByProductName(c.Request.Context(), req.ProductName)
		}

		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "no matching price"})
				return
			}
			logger.Error("Price lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, lookup)
	}
}
