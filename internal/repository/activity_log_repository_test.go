package repository

import (
	"sort"
	"testing"
	"time"

	"chat-system/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLogRepository_FindRecentByEntity_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewActivityLogRepository(db)
	alice := createUser(t, users, "alice")

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	first := &model.ActivityLog{UserID: alice.ID, Action: model.ActionUpdateProfile, EntityType: model.EntityUser, EntityID: 7, CreatedAt: t1}
	second := &model.ActivityLog{UserID: alice.ID, Action: model.ActionUpdateProfile, EntityType: model.EntityUser, EntityID: 7, CreatedAt: t2}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))
	require.NoError(t, repo.Create(&model.ActivityLog{UserID: alice.ID, Action: model.ActionLogin, EntityType: model.EntityUser, EntityID: 8, CreatedAt: t2}))

	logs, err := repo.FindRecentByEntity(model.EntityUser, 7)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, second.ID, logs[0].ID)
	assert.Equal(t, first.ID, logs[1].ID)
}

func TestActivityLogRepository_FindRecentByUser_SortedAndScoped(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewActivityLogRepository(db)
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	offsets := []int{5, 1, 9, 3, 3, 7}
	for i, off := range offsets {
		require.NoError(t, repo.Create(&model.ActivityLog{
			UserID:     alice.ID,
			Action:     model.ActionLogin,
			EntityType: model.EntitySession,
			EntityID:   uint(i + 1),
			CreatedAt:  base.Add(time.Duration(off) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(&model.ActivityLog{UserID: bob.ID, Action: model.ActionLogin, EntityType: model.EntitySession, EntityID: 1, CreatedAt: base}))

	logs, err := repo.FindRecentByUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, logs, len(offsets))

	assert.True(t, sort.SliceIsSorted(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	}))
	for i := 1; i < len(logs); i++ {
		assert.False(t, logs[i].CreatedAt.After(logs[i-1].CreatedAt))
		assert.Equal(t, alice.ID, logs[i].UserID)
	}

	limited, err := repo.FindRecentByUserLimit(alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, logs[0].ID, limited[0].ID)
}

func TestActivityLogRepository_NoMatchReturnsEmpty(t *testing.T) {
	repo := NewActivityLogRepository(newTestDB(t))

	byUser, err := repo.FindRecentByUser(42)
	require.NoError(t, err)
	assert.NotNil(t, byUser)
	assert.Empty(t, byUser)

	byEntity, err := repo.FindRecentByEntity(model.EntityChannel, 1)
	require.NoError(t, err)
	assert.NotNil(t, byEntity)
	assert.Empty(t, byEntity)
}

func TestActivityLogRepository_FindRecentByEntityLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityLogRepository(db)
	alice := createUser(t, NewUserRepository(db), "alice")

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Create(&model.ActivityLog{
			UserID:     alice.ID,
			Action:     model.ActionSendMessage,
			EntityType: model.EntityChannel,
			EntityID:   1,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.FindRecentByEntityLimit(model.EntityChannel, 1, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)

	limited, err := repo.FindRecentByEntityLimit(model.EntityChannel, 1, 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, all[0].ID, limited[0].ID)
	assert.Equal(t, all[2].ID, limited[2].ID)
}

func TestActivityLogRepository_CreateRequiresUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityLogRepository(db)

	err := repo.Create(&model.ActivityLog{UserID: 42, Action: model.ActionLogin, EntityType: model.EntityUser, EntityID: 42})
	assert.ErrorIs(t, err, ErrUserNotFound)

	var n int64
	require.NoError(t, db.Model(&model.ActivityLog{}).Count(&n).Error)
	assert.Zero(t, n)
}
