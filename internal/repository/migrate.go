package repository

import (
	"gorm.io/gorm"

	"kasturi-ledger/internal/model"
)

// AutoMigrate creates or updates every ledger table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Privilege{},
		&model.Role{},
		&model.User{},
		&model.Batch{},
		&model.Wallet{},
		&model.LedgerEntry{},
	)
}
