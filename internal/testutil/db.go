// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/database"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", logger.Discard)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
