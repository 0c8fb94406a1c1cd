package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/metrics"
	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/apperror"
	"kasturi-ledger/pkg/logger"
	"kasturi-ledger/pkg/validator"
)

type BatchService interface {
	CreateBatch(ctx context.Context, actor Actor, req *CreateBatchRequest) (*model.Batch, error)
	StockOut(ctx context.Context, actor Actor, batchID uuid.UUID, req *StockMoveRequest) (*model.Batch, error)
	StockIn(ctx context.Context, actor Actor, batchID uuid.UUID, req *StockMoveRequest) (*model.Batch, error)
	VoidEntry(ctx context.Context, actor Actor, batchID, entryID uuid.UUID) (*model.Batch, error)
	SetActive(ctx context.Context, actor Actor, batchID uuid.UUID, active bool) (*model.Batch, error)
	DeleteBatch(ctx context.Context, actor Actor, batchID uuid.UUID) error
	GetBatch(ctx context.Context, batchID uuid.UUID) (*model.Batch, error)
	ListBatches(ctx context.Context) ([]model.Batch, error)
}

type CreateBatchRequest struct {
	VariantName     string          `json:"variantName" validate:"required,max=255"`
	CostPerUnit     decimal.Decimal `json:"costPerUnit"`
	InitialQuantity int             `json:"initialQuantity" validate:"gte=0,lte=1000000000"`
	MfgDate         string          `json:"mfgDate" validate:"required"`
}

type StockMoveRequest struct {
	Quantity int    `json:"quantity" validate:"gte=1,lte=1000000000"`
	Reason   string `json:"reason" validate:"max=100"`
}

const batchCodeAttempts = 5

type batchService struct {
	db          *gorm.DB
	batchRepo   repository.BatchRepository
	ledgerRepo  repository.LedgerRepository
	locker      lock.Locker
	broadcaster Broadcaster
	loc         *time.Location
	now         func() time.Time
}

// NewBatchService wires the batch aggregate. loc decides which calendar day
// "today" is when validating manufacturing dates; hub may be nil.
func NewBatchService(db *gorm.DB, batchRepo repository.BatchRepository, ledgerRepo repository.LedgerRepository, locker lock.Locker, hub Broadcaster, loc *time.Location) BatchService {
	if hub == nil {
		hub = nopBroadcaster{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &batchService{
		db:          db,
		batchRepo:   batchRepo,
		ledgerRepo:  ledgerRepo,
		locker:      locker,
		broadcaster: hub,
		loc:         loc,
		now:         time.Now,
	}
}

func (s *batchService) CreateBatch(ctx context.Context, actor Actor, req *CreateBatchRequest) (*model.Batch, error) {
	fields := logger.Fields{"actor": actor.ID}
	if err := validator.Check(req); err != nil {
		return nil, rejected("batch.create", err, fields)
	}
	if req.CostPerUnit.IsNegative() {
		return nil, rejected("batch.create", apperror.Validation("costPerUnit must not be negative"), fields)
	}

	mfgDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.MfgDate), s.loc)
	if err != nil {
		return nil, rejected("batch.create", apperror.Validation("mfgDate must be a YYYY-MM-DD date"), fields)
	}
	if mfgDate.After(s.today()) {
		return nil, rejected("batch.create", apperror.Validation("mfgDate cannot be in the future"), fields)
	}

	batch := &model.Batch{
		VariantName:       strings.TrimSpace(req.VariantName),
		CostPerUnit:       req.CostPerUnit.Round(2),
		InitialQuantity:   req.InitialQuantity,
		RemainingQuantity: req.InitialQuantity,
		MfgDate:           mfgDate,
		IsActive:          true,
		History:           []model.LedgerEntry{},
	}
	batch.CreatedBy = actor.ID
	batch.UpdatedBy = actor.ID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.newBatchCode(tx, mfgDate)
		if err != nil {
			return err
		}
		batch.BatchCode = code
		return s.batchRepo.Create(tx, batch)
	})
	if err != nil {
		return nil, rejected("batch.create", err, fields)
	}

	logger.WithFields(logger.Fields{
		"batch":    batch.ID,
		"code":     batch.BatchCode,
		"quantity": batch.InitialQuantity,
		"actor":    actor.ID,
	}).Info("batch created")
	s.publish("batch_created", actor, batch, nil)
	return batch, nil
}

func (s *batchService) StockOut(ctx context.Context, actor Actor, batchID uuid.UUID, req *StockMoveRequest) (*model.Batch, error) {
	return s.move(ctx, actor, batchID, model.ActionStockOut, req)
}

func (s *batchService) StockIn(ctx context.Context, actor Actor, batchID uuid.UUID, req *StockMoveRequest) (*model.Batch, error) {
	return s.move(ctx, actor, batchID, model.ActionStockIn, req)
}

func (s *batchService) move(ctx context.Context, actor Actor, batchID uuid.UUID, action model.LedgerAction, req *StockMoveRequest) (*model.Batch, error) {
	op := "batch.stock_in"
	if action == model.ActionStockOut {
		op = "batch.stock_out"
	}
	fields := logger.Fields{"batch": batchID, "actor": actor.ID}

	if err := validator.Check(req); err != nil {
		return nil, rejected(op, err, fields)
	}

	var entry *model.LedgerEntry
	err := withLock(ctx, s.locker, s.db, lock.BatchKey(batchID.String()), func(tx *gorm.DB) error {
		batch, err := s.batchRepo.FindByIDForUpdate(tx, batchID)
		if err != nil {
			return notFound(err, "batch not found")
		}

		if action == model.ActionStockOut {
			if !batch.IsActive && batch.ClosedReason != model.ClosedExhausted {
				return apperror.Validation("batch %s is inactive", batch.BatchCode)
			}
			if req.Quantity > batch.RemainingQuantity {
				return apperror.New(apperror.KindInsufficientStock,
					"insufficient stock: %d remaining in %s, requested %d",
					batch.RemainingQuantity, batch.BatchCode, req.Quantity)
			}
		}

		entry = &model.LedgerEntry{
			ParentType:  model.ParentBatch,
			ParentID:    batch.ID,
			Action:      action,
			Amount:      int64(req.Quantity),
			Reason:      defaultReason(req.Reason, action),
			Description: fmt.Sprintf("%s %d units", actionVerb(action), req.Quantity),
			Status:      model.StatusCompleted,
			ActorID:     model.Actor(actor.ID),
		}
		if err := s.ledgerRepo.Append(tx, entry); err != nil {
			return err
		}
		return s.reproject(tx, batch, actor.ID)
	})
	if err != nil {
		return nil, rejected(op, err, fields)
	}

	metrics.LedgerEntries.WithLabelValues(string(model.ParentBatch), string(action)).Inc()
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"batch":     batch.ID,
		"action":    action,
		"quantity":  req.Quantity,
		"remaining": batch.RemainingQuantity,
		"actor":     actor.ID,
	}).Info("stock moved")
	s.publish("batch_updated", actor, batch, entry)
	return batch, nil
}

func (s *batchService) VoidEntry(ctx context.Context, actor Actor, batchID, entryID uuid.UUID) (*model.Batch, error) {
	fields := logger.Fields{"batch": batchID, "entry": entryID, "actor": actor.ID}

	changed := false
	err := withLock(ctx, s.locker, s.db, lock.BatchKey(batchID.String()), func(tx *gorm.DB) error {
		batch, err := s.batchRepo.FindByIDForUpdate(tx, batchID)
		if err != nil {
			return notFound(err, "batch not found")
		}

		entry, err := s.ledgerRepo.FindByIDForUpdate(tx, entryID)
		if err != nil {
			return notFound(err, "ledger entry not found")
		}
		if entry.ParentType != model.ParentBatch || entry.ParentID != batch.ID {
			return apperror.NotFound("ledger entry not found in batch %s", batch.BatchCode)
		}
		if entry.IsVoided {
			return nil
		}

		if entry.Action == model.ActionStockIn && int64(batch.RemainingQuantity)-entry.Amount < 0 {
			return apperror.New(apperror.KindInsufficientStock,
				"cannot void: %d units of this stock-in have already left %s", entry.Amount-int64(batch.RemainingQuantity), batch.BatchCode)
		}

		if changed, err = s.ledgerRepo.MarkVoided(tx, entry.ID, actor.ID); err != nil {
			return err
		}
		return s.reproject(tx, batch, actor.ID)
	})
	if err != nil {
		return nil, rejected("batch.void", err, fields)
	}

	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.LedgerVoids.WithLabelValues(string(model.ParentBatch)).Inc()
		logger.WithFields(fields).WithField("remaining", batch.RemainingQuantity).Info("batch entry voided")
		s.publish("batch_updated", actor, batch, nil)
	}
	return batch, nil
}

func (s *batchService) SetActive(ctx context.Context, actor Actor, batchID uuid.UUID, active bool) (*model.Batch, error) {
	fields := logger.Fields{"batch": batchID, "actor": actor.ID, "active": active}

	err := withLock(ctx, s.locker, s.db, lock.BatchKey(batchID.String()), func(tx *gorm.DB) error {
		batch, err := s.batchRepo.FindByIDForUpdate(tx, batchID)
		if err != nil {
			return notFound(err, "batch not found")
		}
		if active && batch.RemainingQuantity == 0 {
			return apperror.Validation("batch %s has no stock left; record a stock-in instead", batch.BatchCode)
		}

		batch.IsActive = active
		batch.ClosedReason = model.ClosedNone
		if !active {
			batch.ClosedReason = model.ClosedManual
		}
		return s.batchRepo.UpdateProjection(tx, batch, actor.ID)
	})
	if err != nil {
		return nil, rejected("batch.set_active", err, fields)
	}

	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	logger.WithFields(fields).Info("batch status changed")
	s.publish("batch_updated", actor, batch, nil)
	return batch, nil
}

func (s *batchService) DeleteBatch(ctx context.Context, actor Actor, batchID uuid.UUID) error {
	fields := logger.Fields{"batch": batchID, "actor": actor.ID}

	var code string
	err := withLock(ctx, s.locker, s.db, lock.BatchKey(batchID.String()), func(tx *gorm.DB) error {
		batch, err := s.batchRepo.FindByIDForUpdate(tx, batchID)
		if err != nil {
			return notFound(err, "batch not found")
		}
		code = batch.BatchCode
		return s.batchRepo.SoftDelete(tx, batch.ID, actor.ID)
	})
	if err != nil {
		return rejected("batch.delete", err, fields)
	}

	logger.WithFields(fields).WithField("code", code).Info("batch deleted")
	s.broadcaster.Publish("batch_deleted", map[string]interface{}{
		"batchId":   batchID,
		"batchCode": code,
		"user":      actor.ID,
	})
	return nil
}

func (s *batchService) GetBatch(ctx context.Context, batchID uuid.UUID) (*model.Batch, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, notFound(err, "batch not found")
	}
	if batch.History, err = s.ledgerRepo.ListByParent(ctx, model.ParentBatch, batch.ID); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *batchService) ListBatches(ctx context.Context) ([]model.Batch, error) {
	batches, err := s.batchRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range batches {
		history, err := s.ledgerRepo.ListByParent(ctx, model.ParentBatch, batches[i].ID)
		if err != nil {
			return nil, err
		}
		batches[i].History = history
	}
	return batches, nil
}

// reproject recomputes remaining stock from the ledger and writes it back.
func (s *batchService) reproject(tx *gorm.DB, batch *model.Batch, actorID string) error {
	totals, err := s.ledgerRepo.SumByParent(tx, model.ParentBatch, batch.ID)
	if err != nil {
		return err
	}

	remaining := int64(batch.InitialQuantity) + totals.Settled
	if remaining < 0 {
		return apperror.New(apperror.KindInsufficientStock, "batch %s would go below zero", batch.BatchCode)
	}
	settleRemaining(batch, int(remaining))
	return s.batchRepo.UpdateProjection(tx, batch, actorID)
}

// settleRemaining stores remaining on batch, closing it when it empties and
// re-opening it when stock returns to a batch closed for being empty.
func settleRemaining(batch *model.Batch, remaining int) {
	batch.RemainingQuantity = remaining

	switch {
	case remaining == 0 && batch.IsActive:
		batch.IsActive = false
		batch.ClosedReason = model.ClosedExhausted
	case remaining > 0 && batch.ClosedReason == model.ClosedExhausted:
		batch.IsActive = true
		batch.ClosedReason = model.ClosedNone
	}
}

func (s *batchService) newBatchCode(tx *gorm.DB, mfgDate time.Time) (string, error) {
	for i := 0; i < batchCodeAttempts; i++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
		code := fmt.Sprintf("KM-%s-%s", mfgDate.Format("20060102"), suffix)

		exists, err := s.batchRepo.CodeExists(tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique batch code")
}

func (s *batchService) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *batchService) publish(event string, actor Actor, batch *model.Batch, entry *model.LedgerEntry) {
	payload := map[string]interface{}{
		"batch": map[string]interface{}{
			"id":                batch.ID,
			"batchCode":         batch.BatchCode,
			"variantName":       batch.VariantName,
			"remainingQuantity": batch.RemainingQuantity,
			"isActive":          batch.IsActive,
		},
		"user": map[string]interface{}{
			"id":    actor.ID,
			"name":  actor.Name,
			"email": actor.Email,
		},
	}
	if entry != nil {
		payload["entry"] = entry
		payload["message"] = fmt.Sprintf("%s %s %d units of %s", displayName(actor), strings.ToLower(actionVerb(entry.Action)), entry.Amount, batch.VariantName)
	}
	s.broadcaster.Publish(event, payload)
}

func defaultReason(reason string, action model.LedgerAction) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	if action == model.ActionStockIn {
		return "Restock"
	}
	return "Offline Sale"
}

func actionVerb(action model.LedgerAction) string {
	switch action {
	case model.ActionStockIn:
		return "Added"
	case model.ActionStockOut:
		return "Removed"
	case model.ActionCredit:
		return "Credited"
	default:
		return "Debited"
	}
}

func displayName(actor Actor) string {
	switch {
	case actor.Name != "":
		return actor.Name
	case actor.Email != "":
		return actor.Email
	case actor.ID != "":
		return actor.ID
	default:
		return "system"
	}
}
