package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kasturi-ledger/internal/model"
)

type WalletRepository interface {
	Create(tx *gorm.DB, wallet *model.Wallet) error
	FindByUserIDForUpdate(tx *gorm.DB, userID string) (*model.Wallet, error)
	UpdateProjection(tx *gorm.DB, wallet *model.Wallet) error

	FindByUserID(ctx context.Context, userID string) (*model.Wallet, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Wallet, error)
	FindAll(ctx context.Context) ([]model.Wallet, error)
}

type walletRepo struct {
	db *gorm.DB
}

func NewWalletRepo(db *gorm.DB) WalletRepository {
	return &walletRepo{db}
}

func (r *walletRepo) Create(tx *gorm.DB, wallet *model.Wallet) error {
	return tx.Create(wallet).Error
}

func (r *walletRepo) FindByUserIDForUpdate(tx *gorm.DB, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepo) UpdateProjection(tx *gorm.DB, wallet *model.Wallet) error {
	return tx.Model(&model.Wallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"balance":         wallet.Balance,
			"pending_balance": wallet.PendingBalance,
			"tier":            wallet.Tier,
			"updated_at":      time.Now(),
		}).Error
}

func (r *walletRepo) FindByUserID(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepo) FindAll(ctx context.Context) ([]model.Wallet, error) {
	wallets := []model.Wallet{}
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&wallets).Error
	return wallets, err
}
