package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/config"
	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/printful"
	"github.com/merchbay/podsync/internal/repository"
	"github.com/merchbay/podsync/internal/service"
	"github.com/merchbay/podsync/internal/stripe"
	syncpkg "github.com/merchbay/podsync/internal/sync"
)

// HandleTriggerSync handles POST /v1/admin/sync: run one environment's
// reconciliation pass and return its summary. The request's dry_run flag
// can only tighten: a server configured dry-run stays dry-run.
func HandleTriggerSync(
	cfg *config.Config,
	source *printful.Client,
	targets map[domain.Environment]*stripe.Client,
	repos *repository.Repositories,
	logger *zap.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SyncRequest
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

		syncCfg := cfg.Sync
		syncCfg.DryRun = syncCfg.DryRun || req.DryRun

		engine := syncpkg.NewEngine(env, source, target, repos.Mappings, syncCfg, logger)
		summary, err := engine.Run(c.Request.Context())
		if err != nil {
			logger.Error("Reconciliation run failed",
				zap.String("environment", string(env)),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "reconciliation failed",
				"summary": summary,
			})
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

// HandleListMappings handles GET /v1/admin/mappings?environment=test
func HandleListMappings(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		env, err := domain.ParseEnvironment(c.DefaultQuery("environment", string(domain.EnvironmentTest)))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		records, err := repos.Mappings.ListByEnvironment(c.Request.Context(), env)
		if err != nil {
			logger.Error("Failed to list mappings", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"environment": env,
			"count":       len(records),
			"mappings":    records,
		})
	}
}
