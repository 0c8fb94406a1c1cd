package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
)

func TestReconcileFindsAndFixesDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch := createBatch(t, f, 40)
	_, err := f.batches.StockOut(ctx, admin, batch.ID, &StockMoveRequest{Quantity: 15})
	require.NoError(t, err)
	w := credit(t, f, 120, model.StatusCompleted)

	require.NoError(t, f.db.Model(&model.Batch{}).Where("id = ?", batch.ID).Update("remaining_quantity", 99).Error)
	require.NoError(t, f.db.Model(&model.Wallet{}).Where("id = ?", w.ID).Update("balance", 7).Error)

	svc := NewReconcileService(f.db, repository.NewBatchRepo(f.db), repository.NewWalletRepo(f.db), f.ledger,
		lock.NewKeyedMutex(), coins.DefaultTiers())

	drifts, err := svc.Reconcile(ctx, false)
	require.NoError(t, err)
	require.Len(t, drifts, 2)
	require.Equal(t, model.ParentBatch, drifts[0].ParentType)
	require.EqualValues(t, 99, drifts[0].Cached)
	require.EqualValues(t, 25, drifts[0].Ledger)
	require.False(t, drifts[0].Fixed)
	require.Equal(t, "balance", drifts[1].Field)
	require.EqualValues(t, 120, drifts[1].Ledger)

	drifts, err = svc.Reconcile(ctx, true)
	require.NoError(t, err)
	require.Len(t, drifts, 2)
	require.True(t, drifts[0].Fixed)

	drifts, err = svc.Reconcile(ctx, false)
	require.NoError(t, err)
	require.Empty(t, drifts)

	got, err := f.batches.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, 25, got.RemainingQuantity)
}
