package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kasturi-ledger/internal/model"
	"kasturi-ledger/pkg/apperror"
)

// LedgerRepository is the append-only entry store shared by batches and
// wallets. Methods taking tx run inside the caller's transaction.
type LedgerRepository interface {
	Append(tx *gorm.DB, entry *model.LedgerEntry) error
	MarkVoided(tx *gorm.DB, entryID uuid.UUID, actorID string) (bool, error)
	Resolve(tx *gorm.DB, entryID uuid.UUID, status model.EntryStatus, actorID string) (bool, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.LedgerEntry, error)
	FindByReference(tx *gorm.DB, parentType model.ParentType, parentID uuid.UUID, referenceID string) (*model.LedgerEntry, error)
	SumByParent(tx *gorm.DB, parentType model.ParentType, parentID uuid.UUID) (Totals, error)

	FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	ListByParent(ctx context.Context, parentType model.ParentType, parentID uuid.UUID) ([]model.LedgerEntry, error)
}

// Totals is the ledger-derived projection of one aggregate.
type Totals struct {
	Settled int64 // completed, non-voided, signed by action
	Pending int64 // pending, non-voided credits
}

type ledgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db}
}

func (r *ledgerRepo) Append(tx *gorm.DB, entry *model.LedgerEntry) error {
	if entry.Amount <= 0 {
		return apperror.Validation("amount must be a positive integer")
	}
	if entry.Amount > model.MaxAmount {
		return apperror.Validation("amount must not exceed %d", model.MaxAmount)
	}
	if !entry.Action.BelongsTo(entry.ParentType) {
		return apperror.Validation("action %s is not valid for %s entries", entry.Action, entry.ParentType)
	}
	if entry.Status == "" {
		entry.Status = model.StatusCompleted
	}

	var last int64
	err := tx.Model(&model.LedgerEntry{}).
		Where("parent_type = ? AND parent_id = ?", entry.ParentType, entry.ParentID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error
	if err != nil {
		return err
	}

	entry.Seq = last + 1
	entry.IsVoided = false
	entry.CreatedAt = time.Now()
	return tx.Create(entry).Error
}

// MarkVoided flips the void flag and stamps who did it. It reports false
// when the entry was already voided.
func (r *ledgerRepo) MarkVoided(tx *gorm.DB, entryID uuid.UUID, actorID string) (bool, error) {
	var count int64
	if err := tx.Model(&model.LedgerEntry{}).Where("id = ?", entryID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, apperror.NotFound("ledger entry not found")
	}

	now := time.Now()
	res := tx.Model(&model.LedgerEntry{}).
		Where("id = ? AND is_voided = ?", entryID, false).
		Updates(map[string]interface{}{
			"is_voided": true,
			"voided_by": model.Actor(actorID),
			"voided_at": now,
		})
	return res.RowsAffected > 0, res.Error
}

// Resolve moves a PENDING entry to COMPLETED or VOID. It reports false
// when the entry was no longer pending.
func (r *ledgerRepo) Resolve(tx *gorm.DB, entryID uuid.UUID, status model.EntryStatus, actorID string) (bool, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":      status,
		"resolved_by": model.Actor(actorID),
		"resolved_at": now,
	}
	if status == model.StatusVoid {
		updates["is_voided"] = true
		updates["voided_by"] = model.Actor(actorID)
		updates["voided_at"] = now
	}

	res := tx.Model(&model.LedgerEntry{}).
		Where("id = ? AND status = ?", entryID, model.StatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *ledgerRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepo) FindByReference(tx *gorm.DB, parentType model.ParentType, parentID uuid.UUID, referenceID string) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := tx.Where("parent_type = ? AND parent_id = ? AND reference_id = ?", parentType, parentID, referenceID).
		Order("seq ASC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepo) SumByParent(tx *gorm.DB, parentType model.ParentType, parentID uuid.UUID) (Totals, error) {
	var totals Totals
	err := tx.Model(&model.LedgerEntry{}).
		Select(`
			COALESCE(SUM(CASE
				WHEN is_voided = ? OR status <> ? THEN 0
				WHEN action IN (?, ?) THEN amount
				ELSE -amount END), 0) AS settled,
			COALESCE(SUM(CASE
				WHEN is_voided = ? AND status = ? AND action = ? THEN amount
				ELSE 0 END), 0) AS pending
		`,
			true, model.StatusCompleted, model.ActionStockIn, model.ActionCredit,
			false, model.StatusPending, model.ActionCredit,
		).
		Where("parent_type = ? AND parent_id = ?", parentType, parentID).
		Scan(&totals).Error
	return totals, err
}

func (r *ledgerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepo) ListByParent(ctx context.Context, parentType model.ParentType, parentID uuid.UUID) ([]model.LedgerEntry, error) {
	entries := []model.LedgerEntry{}
	err := r.db.WithContext(ctx).
		Where("parent_type = ? AND parent_id = ?", parentType, parentID).
		Order("seq ASC").
		Find(&entries).Error
	return entries, err
}
