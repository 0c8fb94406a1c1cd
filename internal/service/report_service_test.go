package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/apperror"
)

func TestInventoryAndWalletStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reports := NewReportService(repository.NewReportRepo(f.db), 10, ist)

	a := createBatch(t, f, 100)
	b := createBatch(t, f, 12)
	_, err := f.batches.StockOut(ctx, admin, b.ID, &StockMoveRequest{Quantity: 5})
	require.NoError(t, err)
	_, err = f.batches.SetActive(ctx, admin, a.ID, false)
	require.NoError(t, err)

	stats, err := reports.GetInventoryStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.TotalBatches)
	require.EqualValues(t, 1, stats.ActiveBatches)
	require.EqualValues(t, 1, stats.LowStockCount)
	require.EqualValues(t, 107, stats.TotalUnits)
	require.True(t, stats.TotalValuation.Equal(decimal.RequireFromString("4547.5")), stats.TotalValuation.String())

	credit(t, f, 250, model.StatusCompleted)
	credit(t, f, 50, model.StatusPending)

	ws, err := reports.GetWalletStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, ws.Wallets)
	require.EqualValues(t, 250, ws.ActiveCoins)
	require.EqualValues(t, 50, ws.PendingCoins)
	require.True(t, ws.ActiveValue.Equal(decimal.NewFromInt(200)))
	require.True(t, ws.PendingValue.Equal(decimal.NewFromInt(40)))
}

func TestStockMovementDaysBounds(t *testing.T) {
	f := newFixture(t)
	reports := NewReportService(repository.NewReportRepo(f.db), 10, ist)

	_, err := reports.GetStockMovement(context.Background(), 0)
	require.ErrorIs(t, err, apperror.ErrValidation)
	_, err = reports.GetStockMovement(context.Background(), 400)
	require.ErrorIs(t, err, apperror.ErrValidation)

	data, err := reports.GetStockMovement(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, data)
}
