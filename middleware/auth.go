package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// PrincipalKey is the gin context key holding the authenticated caller.
const PrincipalKey = "principal"

// Authenticator resolves an access token to the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Principal, *services.ServiceError)
}

// Auth requires a Bearer access token and stores the resolved principal.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No access token provided."})
			return
		}

		principal, svcErr := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if svcErr != nil {
			c.AbortWithStatusJSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
			return
		}
		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequireRoles lets the request through when the principal holds any of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		if principal != nil {
			for _, role := range roles {
				if principal.HasRole(role) {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized."})
	}
}

// CurrentPrincipal returns the principal set by Auth, or nil.
func CurrentPrincipal(c *gin.Context) *models.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*models.Principal); ok {
			return p
		}
	}
	return nil
}
