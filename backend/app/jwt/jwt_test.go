package jwtutil

import (
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignParse(t *testing.T) {
	s := &Signer{Secret: []byte("k"), Issuer: "trackdash", ExpMin: 5}
	tok, err := s.Sign(7, "alice", "user")
	require.NoError(t, err)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user", claims.Role)
}

func TestParseRejects(t *testing.T) {
	s := &Signer{Secret: []byte("k"), Issuer: "trackdash", ExpMin: 5}
	other := &Signer{Secret: []byte("other"), Issuer: "trackdash", ExpMin: 5}
	expired := &Signer{Secret: []byte("k"), Issuer: "trackdash", ExpMin: -1}

	tok, err := other.Sign(1, "a", "user")
	require.NoError(t, err)
	_, err = s.Parse(tok)
	assert.Error(t, err)

	tok, err = expired.Sign(1, "a", "user")
	require.NoError(t, err)
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = s.Parse("not-a-token")
	assert.Error(t, err)
}
