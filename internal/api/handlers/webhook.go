package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/printful"
	"github.com/merchbay/podsync/internal/repository"
	"github.com/merchbay/podsync/internal/service"
	"github.com/merchbay/podsync/internal/stripe"
	"github.com/merchbay/podsync/internal/webhook"
)

// checkoutEvent is the envelope of a Stripe webhook event. Only parsed
// after the raw body's signature has been verified.
type checkoutEvent struct {
	Type string `json:"type"`
	Data struct {
		Object domain.CheckoutSession `json:"object"`
	} `json:"data"`
}

// HandleWebhook handles POST /webhook: verify, parse, translate to a
// draft fulfillment order. 200 on every terminal state except signature
// failure (401), malformed input (400) and downstream failure (5xx).
func HandleWebhook(
	cfg *config.Config,
	source *printful.Client,
	targets map[domain.Environment]*stripe.Client,
	repos *repository.Repositories,
	logger *zap.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		// environment comes from which secret verifies, never from the
		// event's own livemode flag
		env, err := webhook.ResolveEnvironment(
			payload,
			c.GetHeader(webhook.SignatureHeader),
			cfg.Stripe.WebhookSecretLive,
			cfg.Stripe.WebhookSecretTest,
			webhook.DefaultTolerance,
		)
		if err != nil {
			logger.Warn("Rejected webhook", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}

		var event checkoutEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}

		if event.Type != "checkout.session.completed" {
			c.JSON(http.StatusOK, gin.H{"status": "skipped", "reason": "unhandled event type"})
			return
		}
		if event.Data.Object.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event has no session id"})
			return
		}

		target, ok := targets[env]
		if !ok {
			logger.Error("No Stripe client for verified environment", zap.String("environment", string(env)))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "environment not configured"})
			return
		}

		svc := service.NewFulfillmentService(source, target, repos, env, logger)
		result, err := svc.ProcessSession(c.Request.Context(), event.Data.Object)
		if err != nil {
			// surfacing 5xx lets the sender's retry policy redeliver
			logger.Error("Fulfillment processing failed",
				zap.String("session_id", event.Data.Object.ID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fulfillment failed"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
