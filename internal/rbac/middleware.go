package rbac

import (
	"net/http"

	"github.com/SomuG25/devcall/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole allows access if the caller holds any of the provided roles.
// The check runs against the full role set from the access token, not just
// the session's primary role, so a developer acting as a customer passes
// customer-gated routes once the customer role has been granted.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		held := []string{role}
		if rs, err := auth.Roles(c.Request.Context()); err == nil {
			held = rs
		}

		for _, r := range held {
			if _, ok := allowedSet[r]; ok {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
