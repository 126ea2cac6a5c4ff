package repository

import (
	"testing"

	"chat-system/internal/model"
	dbPkg "chat-system/pkg/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB 打开内存SQLite，单连接保证所有查询落在同一个库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), dbPkg.GormConfig(false))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ActivityLog{}))
	return db
}

func createUser(t *testing.T, repo *UserRepository, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@x.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(u))
	return u
}
