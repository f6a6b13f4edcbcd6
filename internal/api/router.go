package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/api/handlers"
	"github.com/merchbay/podsync/internal/api/middleware"
	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/printful"
	"github.com/merchbay/podsync/internal/repository"
	"github.com/merchbay/podsync/internal/stripe"
)

// Deps bundles everything the handlers close over.
type Deps struct {
	Config   *config.Config
	Printful *printful.Client
	Stripe   map[domain.Environment]*stripe.Client
	Repos    *repository.Repositories
	Logger   *zap.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(deps *Deps) *gin.Engine {
	if deps.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(deps.Logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Webhook endpoint: verification happens inside the handler, on the
	// raw body, before anything is parsed
	router.POST("/webhook", handlers.HandleWebhook(deps.Config, deps.Printful, deps.Stripe, deps.Repos, deps.Logger))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Storefront routes (unauthenticated)
		v1.POST("/checkout/session", handlers.HandleCreateCheckoutSession(deps.Stripe, deps.Logger))
		v1.POST("/lookup/price", handlers.HandlePriceLookup(deps.Stripe, deps.Logger))

		// Admin routes (operator API key)
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AuthMiddleware(deps.Repos, deps.Logger))
		{
			adminRoutes.POST("/sync", handlers.HandleTriggerSync(deps.Config, deps.Printful, deps.Stripe, deps.Repos, deps.Logger))
			adminRoutes.GET("/mappings", handlers.HandleListMappings(deps.Repos, deps.Logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
