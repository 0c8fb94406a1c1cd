package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/internal/testutil"
)

func newBatch(code string, mfg time.Time) *model.Batch {
	return &model.Batch{
		BatchCode:         code,
		VariantName:       "Chaat Masala 50g",
		CostPerUnit:       decimal.RequireFromString("18.25"),
		InitialQuantity:   30,
		RemainingQuantity: 30,
		MfgDate:           mfg,
		IsActive:          true,
	}
}

func TestBatchRepoLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewBatchRepo(db)
	ctx := context.Background()

	older := newBatch("KM-20260901-AAAAAA", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	newer := newBatch("KM-20261001-BBBBBB", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(db, older))
	require.NoError(t, repo.Create(db, newer))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, newer.BatchCode, all[0].BatchCode, "newest manufacturing date first")

	older.RemainingQuantity = 0
	older.IsActive = false
	older.ClosedReason = model.ClosedExhausted
	require.NoError(t, repo.UpdateProjection(db, older, "ops"))

	got, err := repo.FindByID(ctx, older.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.RemainingQuantity)
	require.False(t, got.IsActive)
	require.Equal(t, model.ClosedExhausted, got.ClosedReason)
	require.Equal(t, "ops", got.UpdatedBy)

	require.NoError(t, repo.SoftDelete(db, older.ID, "ops"))
	_, err = repo.FindByID(ctx, older.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	exists, err := repo.CodeExists(db, older.BatchCode)
	require.NoError(t, err)
	require.True(t, exists, "deleted codes stay reserved")

	exists, err = repo.CodeExists(db, "KM-20261001-CCCCCC")
	require.NoError(t, err)
	require.False(t, exists)
}
