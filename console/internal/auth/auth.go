package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the session token the console reads. The signature
// is not verified here; the server remains the authority.
type Claims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

func ParseClaims(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	c := &Claims{}
	switch uid := mc["uid"].(type) {
	case string:
		c.UserID = uid
	case float64:
		c.UserID = fmt.Sprintf("%.0f", uid)
	}
	if c.UserID == "" {
		c.UserID, _ = mc.GetSubject()
	}
	if name, ok := mc["uname"].(string); ok {
		c.Username = name
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// TokenExpired reports whether token is a JWT whose exp claim has passed.
// Empty tokens count as expired; opaque tokens are left to the server.
func TokenExpired(token string) bool {
	return tokenExpiredAt(token, time.Now())
}

func tokenExpiredAt(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	c, err := ParseClaims(token)
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}
