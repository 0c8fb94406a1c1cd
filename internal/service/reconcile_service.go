package service

import (
	"context"

	"gorm.io/gorm"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/logger"
)

// Drift is a cached projection that disagrees with its ledger.
type Drift struct {
	ParentType model.ParentType `json:"parentType"`
	ID         string           `json:"id"`
	Label      string           `json:"label"`
	Field      string           `json:"field"`
	Cached     int64            `json:"cached"`
	Ledger     int64            `json:"ledger"`
	Fixed      bool             `json:"fixed"`
}

type ReconcileService interface {
	Reconcile(ctx context.Context, fix bool) ([]Drift, error)
}

type reconcileService struct {
	db         *gorm.DB
	batchRepo  repository.BatchRepository
	walletRepo repository.WalletRepository
	ledgerRepo repository.LedgerRepository
	locker     lock.Locker
	tiers      coins.Tiers
}

func NewReconcileService(db *gorm.DB, batchRepo repository.BatchRepository, walletRepo repository.WalletRepository, ledgerRepo repository.LedgerRepository, locker lock.Locker, tiers coins.Tiers) ReconcileService {
	return &reconcileService{
		db:         db,
		batchRepo:  batchRepo,
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		locker:     locker,
		tiers:      tiers,
	}
}

// Reconcile replays every ledger in memory and compares the result with
// the cached columns. With fix set, drifted rows are rewritten from the
// replay under the aggregate lock.
func (s *reconcileService) Reconcile(ctx context.Context, fix bool) ([]Drift, error) {
	drifts := []Drift{}

	batches, err := s.batchRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		history, err := s.ledgerRepo.ListByParent(ctx, model.ParentBatch, b.ID)
		if err != nil {
			return nil, err
		}
		expected := model.RemainingFrom(b.InitialQuantity, history)
		if expected == b.RemainingQuantity {
			continue
		}

		d := Drift{
			ParentType: model.ParentBatch,
			ID:         b.ID.String(),
			Label:      b.BatchCode,
			Field:      "remainingQuantity",
			Cached:     int64(b.RemainingQuantity),
			Ledger:     int64(expected),
		}
		if fix {
			if err := s.fixBatch(ctx, b); err != nil {
				return drifts, err
			}
			d.Fixed = true
		}
		drifts = append(drifts, d)
	}

	wallets, err := s.walletRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range wallets {
		history, err := s.ledgerRepo.ListByParent(ctx, model.ParentWallet, w.ID)
		if err != nil {
			return nil, err
		}
		balance, pending := model.BalancesFrom(history)

		var found []Drift
		if balance != w.Balance {
			found = append(found, Drift{ParentType: model.ParentWallet, ID: w.ID.String(), Label: w.UserID, Field: "balance", Cached: w.Balance, Ledger: balance})
		}
		if pending != w.PendingBalance {
			found = append(found, Drift{ParentType: model.ParentWallet, ID: w.ID.String(), Label: w.UserID, Field: "pendingBalance", Cached: w.PendingBalance, Ledger: pending})
		}
		if len(found) > 0 && fix {
			if err := s.fixWallet(ctx, w.UserID); err != nil {
				return drifts, err
			}
			for i := range found {
				found[i].Fixed = true
			}
		}
		drifts = append(drifts, found...)
	}

	for _, d := range drifts {
		logger.WithFields(logger.Fields{
			"parent": d.ParentType,
			"id":     d.ID,
			"field":  d.Field,
			"cached": d.Cached,
			"ledger": d.Ledger,
			"fixed":  d.Fixed,
		}).Warn("projection drift")
	}
	return drifts, nil
}

func (s *reconcileService) fixBatch(ctx context.Context, b model.Batch) error {
	return withLock(ctx, s.locker, s.db, lock.BatchKey(b.ID.String()), func(tx *gorm.DB) error {
		batch, err := s.batchRepo.FindByIDForUpdate(tx, b.ID)
		if err != nil {
			return err
		}
		totals, err := s.ledgerRepo.SumByParent(tx, model.ParentBatch, batch.ID)
		if err != nil {
			return err
		}
		settleRemaining(batch, batch.InitialQuantity+int(totals.Settled))
		return s.batchRepo.UpdateProjection(tx, batch, "reconcile")
	})
}

func (s *reconcileService) fixWallet(ctx context.Context, userID string) error {
	return withLock(ctx, s.locker, s.db, lock.WalletKey(userID), func(tx *gorm.DB) error {
		wallet, err := s.walletRepo.FindByUserIDForUpdate(tx, userID)
		if err != nil {
			return err
		}
		totals, err := s.ledgerRepo.SumByParent(tx, model.ParentWallet, wallet.ID)
		if err != nil {
			return err
		}
		wallet.Balance = totals.Settled
		wallet.PendingBalance = totals.Pending
		wallet.Tier = s.tiers.For(totals.Settled)
		return s.walletRepo.UpdateProjection(tx, wallet)
	})
}
