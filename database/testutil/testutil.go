package testutil

import (
	"testing"

	"papertrade/database"
	"papertrade/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database that lives for the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with the given cash and a throwaway password hash.
func CreateUser(t *testing.T, db *gorm.DB, username string, cash string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Hash:     "not-a-real-hash",
		Cash:     decimal.RequireFromString(cash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
