package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/internal/testutil"
)

func TestWalletRepo(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewWalletRepo(db)
	ctx := context.Background()

	w := &model.Wallet{UserID: "uid-1", Tier: coins.TierBronze}
	require.NoError(t, repo.Create(db, w))
	require.Error(t, repo.Create(db, &model.Wallet{UserID: "uid-1", Tier: coins.TierBronze}), "one wallet per user")

	w.Balance, w.PendingBalance, w.Tier = 250, 40, coins.TierSilver
	require.NoError(t, repo.UpdateProjection(db, w))

	got, err := repo.FindByUserID(ctx, "uid-1")
	require.NoError(t, err)
	require.EqualValues(t, 250, got.Balance)
	require.EqualValues(t, 40, got.PendingBalance)
	require.Equal(t, coins.TierSilver, got.Tier)

	byID, err := repo.FindByID(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, "uid-1", byID.UserID)

	_, err = repo.FindByUserID(ctx, "uid-2")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
