package jwt

import (
	"testing"
	"time"

	"chat-system/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(ttl time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:            "test-secret-key",
		ExpireTime:        ttl,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "chat-system-test",
	})
}

func TestAccessToken_RoundTrip(t *testing.T) {
	s := newTestService(time.Hour)

	token, err := s.GenerateAccessToken(42, "alice", "ADMIN")
	require.NoError(t, err)

	claims, err := s.ValidateAccessToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, time.Hour, s.AccessTTL())
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	s := newTestService(time.Hour)

	refresh, err := s.GenerateRefreshToken(1, "alice")
	require.NoError(t, err)
	access, err := s.GenerateAccessToken(1, "alice", "USER")
	require.NoError(t, err)

	_, err = s.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = s.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = s.ValidateRefreshToken(refresh)
	assert.NoError(t, err)
}

func TestValidateToken_Rejects(t *testing.T) {
	s := newTestService(time.Hour)

	_, err := s.ValidateToken("")
	assert.ErrorIs(t, err, ErrEmptyToken)

	_, err = s.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTService(config.JWTConfig{Secret: "other", ExpireTime: time.Hour, Issuer: "chat-system-test"})
	foreign, err := other.GenerateAccessToken(1, "mallory", "ADMIN")
	require.NoError(t, err)
	_, err = s.ValidateAccessToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	s := newTestService(-time.Minute)

	token, err := s.GenerateAccessToken(1, "alice", "USER")
	require.NoError(t, err)

	_, err = s.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerate_RequiresUserID(t *testing.T) {
	_, err := newTestService(time.Hour).GenerateAccessToken(0, "x", "USER")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Empty(t, BearerToken("Bearer "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
