package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduling/internal/middleware"
	"github.com/noah-isme/academy-scheduling/internal/models"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantFromContext returns the caller's tenant. Superadmins are not tenant scoped.
func tenantFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role == models.RoleSuperAdmin {
		return ""
	}
	return claims.TenantID
}

// bindOptionalJSON binds a request body that may be omitted entirely.
func bindOptionalJSON(c *gin.Context, dst interface{}, message string) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
	}
	return nil
}
