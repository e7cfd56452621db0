package middleware

import (
	jwtutil "trackdash/backend/app/jwt"

	"github.com/gin-gonic/gin"
)

func GetClaims(c *gin.Context) *jwtutil.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*jwtutil.Claims); ok {
			return claims
		}
	}
	return nil
}
