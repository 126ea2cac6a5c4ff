package mapper

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"chat-system/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserMapper_NilInput(t *testing.T) {
	m := NewUserMapper()
	assert.Nil(t, m.ToDTO(nil))
	assert.Nil(t, m.ToDTOList(nil))
}

func TestUserMapper_ToDTO_CopiesAllFields(t *testing.T) {
	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	seen := created.Add(2 * time.Hour)
	login := created.Add(time.Hour)
	u := &model.User{
		ID:           9,
		Username:     "bob",
		Email:        "bob@x.com",
		PhoneNumber:  strPtr("+1-555-0100"),
		AvatarURL:    strPtr("https://cdn.example/bob.png"),
		PasswordHash: "secret-hash",
		Role:         model.RoleAdmin,
		IsActive:     true,
		IsOnline:     true,
		CreatedAt:    created,
		UpdatedAt:    seen,
		LastLogin:    &login,
		LastSeen:     &seen,
	}

	d := NewUserMapper().ToDTO(u)
	require.NotNil(t, d)
	assert.Equal(t, u.ID, d.UserID)
	assert.Equal(t, u.Username, d.Username)
	assert.Equal(t, u.Email, d.Email)
	assert.Equal(t, u.PhoneNumber, d.PhoneNumber)
	assert.Equal(t, u.AvatarURL, d.AvatarURL)
	assert.Equal(t, u.Role, d.Role)
	assert.Equal(t, u.IsActive, d.IsActive)
	assert.Equal(t, u.IsOnline, d.IsOnline)
	assert.Equal(t, u.LastSeen, d.LastSeen)
	assert.Equal(t, u.CreatedAt, d.CreatedAt)
	assert.Equal(t, u.LastLogin, d.LastLogin)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Len(t, fields, 11)
	assert.NotContains(t, string(raw), "secret-hash")
}

func TestUserMapper_ToDTO_OptionalFieldsStayNil(t *testing.T) {
	u := &model.User{ID: 1, Username: "alice", Email: "a@x.com", Role: model.RoleUser, IsActive: true}

	d := NewUserMapper().ToDTO(u)
	require.NotNil(t, d)
	assert.Equal(t, uint(1), d.UserID)
	assert.Equal(t, "alice", d.Username)
	assert.Equal(t, "a@x.com", d.Email)
	assert.Equal(t, model.RoleUser, d.Role)
	assert.True(t, d.IsActive)
	assert.Nil(t, d.PhoneNumber)
	assert.Nil(t, d.AvatarURL)
	assert.Nil(t, d.LastSeen)
	assert.Nil(t, d.LastLogin)
	assert.False(t, d.IsOnline)
}

func TestUserMapper_ToDTOList_PreservesOrder(t *testing.T) {
	m := NewUserMapper()
	users := make([]*model.User, 0, 5)
	for i := 5; i >= 1; i-- {
		users = append(users, &model.User{ID: uint(i), Username: fmt.Sprintf("u%d", i)})
	}

	out := m.ToDTOList(users)
	require.Len(t, out, len(users))
	for i := range users {
		assert.Equal(t, users[i].ID, out[i].UserID)
		assert.Equal(t, users[i].Username, out[i].Username)
	}

	empty := m.ToDTOList([]*model.User{})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
