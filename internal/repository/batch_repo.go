package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kasturi-ledger/internal/model"
)

type BatchRepository interface {
	Create(tx *gorm.DB, batch *model.Batch) error
	CodeExists(tx *gorm.DB, code string) (bool, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Batch, error)
	UpdateProjection(tx *gorm.DB, batch *model.Batch, updatedBy string) error
	SoftDelete(tx *gorm.DB, id uuid.UUID, deletedBy string) error

	FindAll(ctx context.Context) ([]model.Batch, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
}

type batchRepo struct {
	db *gorm.DB
}

func NewBatchRepo(db *gorm.DB) BatchRepository {
	return &batchRepo{db}
}

func (r *batchRepo) Create(tx *gorm.DB, batch *model.Batch) error {
	return tx.Create(batch).Error
}

// CodeExists also looks at deleted batches: codes are never reused.
func (r *batchRepo) CodeExists(tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := tx.Unscoped().Model(&model.Batch{}).Where("batch_code = ?", code).Count(&count).Error
	return count > 0, err
}

// FindByIDForUpdate row-locks the batch for the rest of tx.
func (r *batchRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// UpdateProjection writes the ledger-derived columns back to the batch row.
func (r *batchRepo) UpdateProjection(tx *gorm.DB, batch *model.Batch, updatedBy string) error {
	return tx.Model(&model.Batch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"remaining_quantity": batch.RemainingQuantity,
			"is_active":          batch.IsActive,
			"closed_reason":      batch.ClosedReason,
			"updated_by":         updatedBy,
			"updated_at":         time.Now(),
		}).Error
}

func (r *batchRepo) SoftDelete(tx *gorm.DB, id uuid.UUID, deletedBy string) error {
	return tx.Model(&model.Batch{}).Where("id = ?", id).Updates(map[string]interface{}{
		"deleted_at":    time.Now(),
		"deleted_by":    deletedBy,
		"is_active":     false,
		"closed_reason": model.ClosedManual,
	}).Error
}

func (r *batchRepo) FindAll(ctx context.Context) ([]model.Batch, error) {
	batches := []model.Batch{}
	err := r.db.WithContext(ctx).Order("mfg_date DESC, batch_code ASC").Find(&batches).Error
	return batches, err
}

func (r *batchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}
