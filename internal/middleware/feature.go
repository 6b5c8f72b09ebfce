package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
	"github.com/noah-isme/academy-scheduling/pkg/response"
)

// FeatureGate answers FEATURE_DISABLED for route groups switched off by configuration.
func FeatureGate(enabled bool, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enabled {
			c.Next()
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureUnavailable, feature+" is disabled"))
		c.Abort()
	}
}
