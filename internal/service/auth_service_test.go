package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/storefront/config"
)

func newTestAuth(t *testing.T) *authService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(
		config.JWTConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "storefront"},
		config.AdminConfig{Username: "admin", PasswordHash: string(hash)},
	).(*authService)
}

func TestLoginAndParse(t *testing.T) {
	s := newTestAuth(t)
	tok, err := s.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)

	claims, err := s.ParseToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestAuth(t)
	_, err := s.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(context.Background(), "root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	empty := NewAuthService(config.JWTConfig{Secret: "x"}, config.AdminConfig{Username: "admin"})
	_, err = empty.Login(context.Background(), "admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejections(t *testing.T) {
	s := newTestAuth(t)
	tok, err := s.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.ParseToken(tok.AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	s.now = time.Now

	other := newTestAuth(t)
	other.jwt.Secret = "another-secret"
	_, err = other.ParseToken(tok.AccessToken)
	assert.Error(t, err)

	_, err = s.ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}
