package middleware

import (
	"net/http"
	"strings"

	jwtutil "trackdash/backend/app/jwt"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

type Auth struct{ Signer *jwtutil.Signer }

func bearer(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authz, "Bearer ")
}

// RequireAuth rejects requests without a valid bearer token. The channel
// handshake goes through it too, so a bad token fails the upgrade with 401.
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := a.Signer.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.Signer.Parse(bearer(c))
		if err != nil || claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}
