package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "user-1", 15*time.Minute)
	require.NoError(t, err)

	c, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)

	_, err = ParseAccessToken("other", tok.Token)
	assert.Error(t, err)
}

func TestRefreshToken_NotAnAccessToken(t *testing.T) {
	now := time.Now()
	ref, err := NewRefreshToken("s3cret", "user-1", now, time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken("s3cret", ref.Raw)
	assert.True(t, errors.Is(err, ErrTokenType))

	c, err := ParseRefreshToken("s3cret", ref.Raw, now)
	require.NoError(t, err)
	assert.Equal(t, ref.ID, c.ID)

	_, err = ParseRefreshToken("s3cret", ref.Raw, now.Add(2*time.Hour))
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestRefreshTokens_AreUnique(t *testing.T) {
	now := time.Now()
	a, err := NewRefreshToken("s3cret", "user-1", now, time.Hour)
	require.NoError(t, err)
	b, err := NewRefreshToken("s3cret", "user-1", now, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a.Raw, b.Raw)
}

func TestHashRefresh(t *testing.T) {
	raw := "header.payload.signature-that-is-much-longer-than-seventy-two-bytes-so-bcrypt-would-truncate-it"
	hash, err := HashRefresh(raw, bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, raw, hash)
	assert.NotContains(t, hash, raw)
	assert.True(t, VerifyRefresh(hash, raw))
	assert.False(t, VerifyRefresh(hash, raw+"x"))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "battery staple"))
}
