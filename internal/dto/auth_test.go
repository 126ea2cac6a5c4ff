package dto

import (
	"encoding/json"
	"testing"
	"time"

	"chat-system/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alice() *model.User {
	return &model.User{ID: 1, Username: "alice", Email: "a@x.com", Role: model.RoleUser, IsActive: true}
}

func TestNewAuthResponse(t *testing.T) {
	resp := NewAuthResponse("tok1", "ref1", 3600000*time.Millisecond, alice())

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "tok1", resp.AccessToken)
	assert.Equal(t, "ref1", resp.RefreshToken)
	assert.Equal(t, int64(3600000), resp.ExpiresIn)
	require.NotNil(t, resp.User)
	assert.Equal(t, uint(1), resp.User.UserID)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "a@x.com", resp.User.Email)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.True(t, resp.User.IsActive)
}

func TestNewAuthResponse_NilUser(t *testing.T) {
	resp := NewAuthResponse("tok", "", time.Hour, nil)
	assert.Equal(t, TokenTypeBearer, resp.TokenType)
	assert.Nil(t, resp.User)
}

func TestAuthResponse_JSONShape(t *testing.T) {
	raw, err := json.Marshal(NewAuthResponse("tok1", "ref1", time.Hour, alice()))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"accessToken": "tok1",
		"refreshToken": "ref1",
		"tokenType": "Bearer",
		"expiresIn": 3600000,
		"user": {"userId": 1, "username": "alice", "email": "a@x.com", "role": "USER", "isActive": true}
	}`, string(raw))
}
