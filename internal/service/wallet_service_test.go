package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/model"
	"kasturi-ledger/pkg/apperror"
)

const shopper = "firebase-uid-7"

func credit(t *testing.T, f *fixture, amount int64, status model.EntryStatus) *model.Wallet {
	t.Helper()
	_, err := f.wallets.EnsureWallet(context.Background(), shopper)
	require.NoError(t, err)
	w, err := f.wallets.Credit(context.Background(), admin, &CreditRequest{
		UserID: shopper, Amount: amount, Reason: "MANUAL_REWARD", Status: status,
	})
	require.NoError(t, err)
	return w
}

func TestEnsureWalletIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.wallets.EnsureWallet(ctx, shopper)
	require.NoError(t, err)
	second, err := f.wallets.EnsureWallet(ctx, shopper)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.EqualValues(t, 0, second.Balance)
	require.Equal(t, coins.TierBronze, second.Tier)

	_, err = f.wallets.EnsureWallet(ctx, "  ")
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreditCompletedAndPending(t *testing.T) {
	f := newFixture(t)

	w := credit(t, f, 50, model.StatusCompleted)
	require.EqualValues(t, 50, w.Balance)
	require.EqualValues(t, 0, w.PendingBalance)

	w = credit(t, f, 30, model.StatusPending)
	require.EqualValues(t, 50, w.Balance)
	require.EqualValues(t, 30, w.PendingBalance)
	require.Len(t, w.History, 2)

	_, err := f.wallets.Credit(context.Background(), admin, &CreditRequest{UserID: shopper, Amount: 0})
	require.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.wallets.Credit(context.Background(), admin, &CreditRequest{UserID: shopper, Amount: 5, Status: model.StatusVoid})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDebitCannotSpendPendingCoins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	credit(t, f, 50, model.StatusCompleted)
	credit(t, f, 100, model.StatusPending)

	_, err := f.wallets.Debit(ctx, admin, &DebitRequest{UserID: shopper, Amount: 60})
	require.ErrorIs(t, err, apperror.ErrInsufficientBalance)

	summary, err := f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.EqualValues(t, 50, summary.Balance)
	require.Len(t, summary.History, 2, "rejected debit appends nothing")

	w, err := f.wallets.Debit(ctx, admin, &DebitRequest{UserID: shopper, Amount: 50, Reason: "CHECKOUT"})
	require.NoError(t, err)
	require.EqualValues(t, 0, w.Balance)
	require.EqualValues(t, 100, w.PendingBalance)
}

func TestAdjustByAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	credit(t, f, 40, model.StatusCompleted)

	_, err := f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
		UserID: shopper, Type: model.ActionDebit, Amount: 50, Reason: model.ReasonCorrection, AdminNote: "duplicate reward",
	})
	require.ErrorIs(t, err, apperror.ErrInsufficientBalance)

	w, err := f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.EqualValues(t, 40, w.Balance)
	require.Len(t, w.History, 1, "rejected debit appends nothing")

	_, err = f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
		UserID: shopper, Type: model.ActionCredit, Amount: 10, Reason: model.ReasonPromotion,
	})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
		UserID: shopper, Type: model.ActionCredit, Amount: 10, Reason: model.ReasonOrderEarn, AdminNote: "n",
	})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
		UserID: shopper, Type: "REFUND", Amount: 10, Reason: model.ReasonOther, AdminNote: "n",
	})
	require.ErrorIs(t, err, apperror.ErrValidation)

	adjusted, err := f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
		UserID: shopper, Type: model.ActionCredit, Amount: 25, Reason: model.ReasonCompensation,
		Description: "Late delivery", AdminNote: "ticket #812",
	})
	require.NoError(t, err)
	require.EqualValues(t, 65, adjusted.Balance)

	last := adjusted.History[len(adjusted.History)-1]
	require.Equal(t, "COMPENSATION", last.Reason)
	require.Equal(t, "ticket #812", last.AdminNote)
	require.Equal(t, "Late delivery", last.Description)
	require.Equal(t, admin.ID, *last.ActorID)
}

func TestResolvePendingExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := credit(t, f, 80, model.StatusPending)
	entryID := w.History[0].ID

	w, err := f.wallets.ResolvePending(ctx, admin, &ResolveRequest{EntryID: entryID, Action: model.StatusCompleted})
	require.NoError(t, err)
	require.EqualValues(t, 80, w.Balance)
	require.EqualValues(t, 0, w.PendingBalance)
	require.Equal(t, admin.ID, *w.History[0].ResolvedBy)

	_, err = f.wallets.ResolvePending(ctx, admin, &ResolveRequest{EntryID: entryID, Action: model.StatusVoid})
	require.ErrorIs(t, err, apperror.ErrAlreadyResolved)

	summary, err := f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.EqualValues(t, 80, summary.Balance)
}

func TestResolvePendingToVoid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	credit(t, f, 10, model.StatusCompleted)
	w := credit(t, f, 80, model.StatusPending)

	w, err := f.wallets.ResolvePending(ctx, admin, &ResolveRequest{EntryID: w.History[1].ID, Action: model.StatusVoid})
	require.NoError(t, err)
	require.EqualValues(t, 10, w.Balance)
	require.EqualValues(t, 0, w.PendingBalance)
	require.True(t, w.History[1].IsVoided)
	require.Equal(t, model.StatusVoid, w.History[1].Status)

	_, err = f.wallets.ResolvePending(ctx, admin, &ResolveRequest{EntryID: w.History[0].ID, Action: model.StatusCompleted})
	require.ErrorIs(t, err, apperror.ErrAlreadyResolved)
}

func TestTierFollowsActiveBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := credit(t, f, 199, model.StatusCompleted)
	require.Equal(t, coins.TierBronze, w.Tier)
	credit(t, f, 500, model.StatusPending)

	summary, err := f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.Equal(t, coins.TierBronze, summary.Tier, "pending coins do not count")
	require.Equal(t, coins.TierSilver, summary.NextTier)
	require.EqualValues(t, 1, summary.CoinsToNext)
	require.Equal(t, 99, summary.Progress.Progress)

	w = credit(t, f, 1, model.StatusCompleted)
	require.Equal(t, coins.TierSilver, w.Tier)

	w, err = f.wallets.Debit(ctx, admin, &DebitRequest{UserID: shopper, Amount: 1})
	require.NoError(t, err)
	require.Equal(t, coins.TierBronze, w.Tier)

	w = credit(t, f, 801, model.StatusCompleted)
	require.Equal(t, coins.TierGold, w.Tier)
	summary, err = f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.Equal(t, 100, summary.Progress.Progress)
	require.True(t, summary.BalanceValue.Equal(decimal.RequireFromString("800")))
}

func TestOrderEventsPrepaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placed := &OrderEventRequest{OrderID: "ORD-1001", UserID: shopper, OrderValue: decimal.NewFromInt(1299), Status: "PLACED"}

	res, err := f.wallets.ApplyOrderEvent(ctx, Actor{}, placed)
	require.NoError(t, err)
	require.Equal(t, OutcomeCredited, res.Outcome)
	require.EqualValues(t, 64, res.Coins)
	require.EqualValues(t, 64, res.Wallet.Balance)

	res, err = f.wallets.ApplyOrderEvent(ctx, Actor{}, placed)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, res.Outcome)

	res, err = f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{OrderID: "ORD-1001", UserID: shopper, Status: "refunded"})
	require.NoError(t, err)
	require.Equal(t, OutcomeVoided, res.Outcome)

	summary, err := f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.EqualValues(t, 0, summary.Balance)
	require.Len(t, summary.History, 1)
	require.Nil(t, summary.History[0].ActorID)
	require.Equal(t, string(model.ReasonOrderEarn), summary.History[0].Reason)
	require.Equal(t, "ORD-1001", summary.History[0].ReferenceID)
}

func TestOrderEventsCashOnDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apply := func(order, status string) *OrderEventResult {
		t.Helper()
		res, err := f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{
			OrderID: order, UserID: shopper, OrderValue: decimal.NewFromInt(1000), Status: status,
		})
		require.NoError(t, err)
		return res
	}

	require.Equal(t, OutcomePending, apply("COD-1", "PLACED_COD").Outcome)
	require.Equal(t, OutcomePending, apply("COD-2", "cod").Outcome)
	require.Equal(t, OutcomeIgnored, apply("COD-1", "On the way").Outcome)
	require.Equal(t, OutcomeIgnored, apply("COD-1", "OUT_FOR_DELIVERY").Outcome)

	res := apply("COD-1", "Delivered")
	require.Equal(t, OutcomeSettled, res.Outcome)
	require.EqualValues(t, 50, res.Wallet.Balance)
	require.EqualValues(t, 50, res.Wallet.PendingBalance)

	require.Equal(t, OutcomeIgnored, apply("COD-1", "DELIVERED").Outcome, "settled credit is not resolved twice")

	res = apply("COD-2", "rto-delivered")
	require.Equal(t, OutcomeVoided, res.Outcome)
	require.EqualValues(t, 50, res.Wallet.Balance)
	require.EqualValues(t, 0, res.Wallet.PendingBalance)

	require.Equal(t, OutcomeIgnored, apply("COD-2", "CANCELLED").Outcome)
	require.Equal(t, OutcomeIgnored, apply("COD-404", "DELIVERED").Outcome)

	_, err := f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{OrderID: "COD-3", UserID: shopper, Status: "LOST_IN_SPACE"})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestOrderReversalNeedsCoinsStillHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{
		OrderID: "ORD-9", UserID: shopper, OrderValue: decimal.NewFromInt(2000), Status: "PAID",
	})
	require.NoError(t, err)
	_, err = f.wallets.Debit(ctx, admin, &DebitRequest{UserID: shopper, Amount: 90})
	require.NoError(t, err)

	_, err = f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{OrderID: "ORD-9", UserID: shopper, Status: "CANCELLED"})
	require.ErrorIs(t, err, apperror.ErrInsufficientBalance)

	summary, err := f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.EqualValues(t, 10, summary.Balance)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	credit(t, f, 100, model.StatusCompleted)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.wallets.Debit(context.Background(), admin, &DebitRequest{UserID: shopper, Amount: 20})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.True(t, errors.Is(err, apperror.ErrInsufficientBalance), err)
	}
	require.Equal(t, 5, ok)

	summary, err := f.wallets.Summary(context.Background(), shopper)
	require.NoError(t, err)
	require.EqualValues(t, 0, summary.Balance)
}

func TestRedemptionQuoteAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wallets.FindWallet(ctx, shopper)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	quote, err := f.wallets.RedemptionQuote(ctx, shopper, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.EqualValues(t, 0, quote.MaxCoins, "below the minimum redeemable balance")

	credit(t, f, 500, model.StatusCompleted)
	quote, err = f.wallets.RedemptionQuote(ctx, shopper, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.EqualValues(t, 375, quote.MaxCoins)
	require.True(t, quote.Discount.Equal(decimal.NewFromInt(300)))

	_, err = f.wallets.RedemptionQuote(ctx, shopper, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, apperror.ErrValidation)

	found, err := f.wallets.FindWallet(ctx, shopper)
	require.NoError(t, err)
	require.EqualValues(t, 500, found.Balance)
	require.Equal(t, coins.TierSilver, found.Tier)
}

func TestWritesToUnknownWalletAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
		UserID: "typo-user", Type: model.ActionCredit, Amount: 500, Reason: model.ReasonPromotion, AdminNote: "festive",
	})
	require.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.wallets.Credit(ctx, admin, &CreditRequest{UserID: "typo-user", Amount: 5})
	require.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.wallets.Debit(ctx, admin, &DebitRequest{UserID: "typo-user", Amount: 5})
	require.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.wallets.FindWallet(ctx, "typo-user")
	require.ErrorIs(t, err, apperror.ErrNotFound)

	var count int64
	require.NoError(t, f.db.Model(&model.Wallet{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUserIDIsTrimmedOnEveryPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wallet, err := f.wallets.EnsureWallet(ctx, shopper)
	require.NoError(t, err)

	adjusted, err := f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
		UserID: shopper + " ", Type: model.ActionCredit, Amount: 50, Reason: model.ReasonPromotion, AdminNote: "welcome",
	})
	require.NoError(t, err)
	require.Equal(t, wallet.ID, adjusted.ID)

	debited, err := f.wallets.Debit(ctx, admin, &DebitRequest{UserID: "\t" + shopper, Amount: 10})
	require.NoError(t, err)
	require.Equal(t, wallet.ID, debited.ID)

	res, err := f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{
		OrderID: " ORD-77 ", UserID: " " + shopper, OrderValue: decimal.NewFromInt(200), Status: "PLACED",
	})
	require.NoError(t, err)
	require.Equal(t, wallet.ID, res.Wallet.ID)

	summary, err := f.wallets.Summary(ctx, shopper)
	require.NoError(t, err)
	require.EqualValues(t, 50, summary.Balance)
	require.Equal(t, "ORD-77", summary.History[2].ReferenceID)

	var count int64
	require.NoError(t, f.db.Model(&model.Wallet{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWalletAmountsAreBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wallets.EnsureWallet(ctx, shopper)
	require.NoError(t, err)

	for _, amount := range []int64{model.MaxAmount + 1, math.MaxInt64} {
		_, err = f.wallets.Credit(ctx, admin, &CreditRequest{UserID: shopper, Amount: amount})
		require.ErrorIs(t, err, apperror.ErrValidation, amount)
		_, err = f.wallets.AdjustByAdmin(ctx, admin, &AdjustRequest{
			UserID: shopper, Type: model.ActionCredit, Amount: amount, Reason: model.ReasonOther, AdminNote: "n",
		})
		require.ErrorIs(t, err, apperror.ErrValidation, amount)
	}

	w := credit(t, f, model.MaxAmount, model.StatusCompleted)
	require.Equal(t, model.MaxAmount, w.Balance)
	w = credit(t, f, 1, model.StatusCompleted)
	require.Equal(t, model.MaxAmount+1, w.Balance)

	_, err = f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{
		OrderID: "ORD-BIG", UserID: shopper, OrderValue: decimal.RequireFromString("1e30"), Status: "PLACED",
	})
	require.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.wallets.ApplyOrderEvent(ctx, Actor{}, &OrderEventRequest{
		OrderID: "ORD-NEG", UserID: shopper, OrderValue: decimal.NewFromInt(-10), Status: "PLACED",
	})
	require.ErrorIs(t, err, apperror.ErrValidation)
}
