package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/internal/repository"
)

const operatorContextKey = "operator"

// AuthMiddleware authenticates operators by bearer API key.
func AuthMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		if apiKey == "" || apiKey == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		operator, err := repos.Operators.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			logger.Warn("Rejected admin request", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(operatorContextKey, operator)
		c.Next()
	}
}

// GetOperatorFromContext returns the authenticated operator, if any.
func GetOperatorFromContext(c *gin.Context) (*domain.Operator, bool) {
	val, ok := c.Get(operatorContextKey)
	if !ok {
		return nil, false
	}
	operator, ok := val.(*domain.Operator)
	return operator, ok
}
