package db

import (
	"testing"

	"chat-system/config"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(config.DatabaseConfig{
		Host:     "db",
		Port:     3307,
		Username: "u",
		Password: "p",
		Database: "chat",
		Charset:  "utf8mb4",
	})
	parsed, err := mysqldrv.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "u", parsed.User)
	assert.Equal(t, "p", parsed.Passwd)
	assert.Equal(t, "db:3307", parsed.Addr)
	assert.Equal(t, "chat", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestHelpersWithoutInit(t *testing.T) {
	DB = nil
	assert.Error(t, HealthCheck())
	assert.Error(t, AutoMigrate())
	assert.NoError(t, CloseDB())
}

func TestGormConfig_SingularTables(t *testing.T) {
	cfg := GormConfig(false)
	assert.True(t, cfg.SkipDefaultTransaction)
	assert.Equal(t, "user", cfg.NamingStrategy.TableName("User"))
}
