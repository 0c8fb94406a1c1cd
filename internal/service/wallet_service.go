package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/metrics"
	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/apperror"
	"kasturi-ledger/pkg/logger"
	"kasturi-ledger/pkg/validator"
)

type WalletService interface {
	EnsureWallet(ctx context.Context, userID string) (*model.Wallet, error)
	Credit(ctx context.Context, actor Actor, req *CreditRequest) (*model.Wallet, error)
	Debit(ctx context.Context, actor Actor, req *DebitRequest) (*model.Wallet, error)
	ResolvePending(ctx context.Context, actor Actor, req *ResolveRequest) (*model.Wallet, error)
	AdjustByAdmin(ctx context.Context, actor Actor, req *AdjustRequest) (*model.Wallet, error)
	ApplyOrderEvent(ctx context.Context, actor Actor, req *OrderEventRequest) (*OrderEventResult, error)

	Summary(ctx context.Context, userID string) (*WalletSummary, error)
	FindWallet(ctx context.Context, userID string) (*WalletSummary, error)
	RedemptionQuote(ctx context.Context, userID string, cartValue decimal.Decimal) (*coins.Quote, error)
}

type CreditRequest struct {
	UserID      string            `json:"userId" validate:"required,max=128"`
	Amount      int64             `json:"amount" validate:"gte=1,lte=1000000000"`
	Reason      string            `json:"reason" validate:"max=100"`
	Description string            `json:"description"`
	Status      model.EntryStatus `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
	ReferenceID string            `json:"referenceId" validate:"max=100"`
	AdminNote   string            `json:"-"`
}

type DebitRequest struct {
	UserID      string `json:"userId" validate:"required,max=128"`
	Amount      int64  `json:"amount" validate:"gte=1,lte=1000000000"`
	Reason      string `json:"reason" validate:"max=100"`
	Description string `json:"description"`
	ReferenceID string `json:"referenceId" validate:"max=100"`
	AdminNote   string `json:"-"`
}

type ResolveRequest struct {
	EntryID uuid.UUID         `json:"transactionId" validate:"uuid_required"`
	Action  model.EntryStatus `json:"action" validate:"required,oneof=COMPLETED VOID"`
}

type AdjustRequest struct {
	UserID      string             `json:"userId" validate:"required,max=128"`
	Type        model.LedgerAction `json:"type" validate:"required,oneof=CREDIT DEBIT"`
	Amount      int64              `json:"amount" validate:"gte=1,lte=1000000000"`
	Reason      model.AdjustReason `json:"reason" validate:"required"`
	Description string             `json:"description"`
	AdminNote   string             `json:"adminNote" validate:"required"`
}

type OrderEventRequest struct {
	OrderID    string          `json:"orderId" validate:"required,max=100"`
	UserID     string          `json:"userId" validate:"required,max=128"`
	OrderValue decimal.Decimal `json:"orderValue"`
	Status     string          `json:"status" validate:"required"`
}

var maxOrderValue = decimal.NewFromInt(model.MaxAmount)

// OrderOutcome describes what an order event did to the wallet.
type OrderOutcome string

const (
	OutcomeCredited  OrderOutcome = "CREDITED"
	OutcomePending   OrderOutcome = "PENDING"
	OutcomeSettled   OrderOutcome = "SETTLED"
	OutcomeVoided    OrderOutcome = "VOIDED"
	OutcomeDuplicate OrderOutcome = "DUPLICATE"
	OutcomeIgnored   OrderOutcome = "IGNORED"
)

type OrderEventResult struct {
	Event   model.OrderEvent `json:"event"`
	Outcome OrderOutcome     `json:"outcome"`
	Coins   int64            `json:"coins"`
	Wallet  *model.Wallet    `json:"wallet,omitempty"`
}

// WalletSummary is the shopper-facing view of a wallet.
type WalletSummary struct {
	UserID         string `json:"userId"`
	Balance        int64  `json:"balance"`
	PendingBalance int64  `json:"pendingBalance"`
	coins.Progress
	BalanceValue decimal.Decimal     `json:"balanceValue"`
	History      []model.LedgerEntry `json:"history"`
}

type walletService struct {
	db          *gorm.DB
	walletRepo  repository.WalletRepository
	ledgerRepo  repository.LedgerRepository
	locker      lock.Locker
	broadcaster Broadcaster
	tiers       coins.Tiers
}

func NewWalletService(db *gorm.DB, walletRepo repository.WalletRepository, ledgerRepo repository.LedgerRepository, locker lock.Locker, hub Broadcaster, tiers coins.Tiers) WalletService {
	if hub == nil {
		hub = nopBroadcaster{}
	}
	return &walletService{
		db:          db,
		walletRepo:  walletRepo,
		ledgerRepo:  ledgerRepo,
		locker:      locker,
		broadcaster: hub,
		tiers:       tiers,
	}
}

func (s *walletService) EnsureWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.Validation("userId is required")
	}

	if wallet, err := s.walletRepo.FindByUserID(ctx, userID); err == nil {
		return wallet, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var wallet *model.Wallet
	err := withLock(ctx, s.locker, s.db, lock.WalletKey(userID), func(tx *gorm.DB) error {
		var err error
		wallet, err = s.lockWallet(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *walletService) Credit(ctx context.Context, actor Actor, req *CreditRequest) (*model.Wallet, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	fields := logger.Fields{"user": req.UserID, "actor": actor.ID}
	if err := validator.Check(req); err != nil {
		return nil, rejected("wallet.credit", err, fields)
	}

	status := req.Status
	if status == "" {
		status = model.StatusCompleted
	}
	return s.post(ctx, actor, "wallet.credit", req.UserID, &model.LedgerEntry{
		Action:      model.ActionCredit,
		Amount:      req.Amount,
		Reason:      req.Reason,
		Description: req.Description,
		AdminNote:   req.AdminNote,
		Status:      status,
		ReferenceID: req.ReferenceID,
	})
}

func (s *walletService) Debit(ctx context.Context, actor Actor, req *DebitRequest) (*model.Wallet, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	fields := logger.Fields{"user": req.UserID, "actor": actor.ID}
	if err := validator.Check(req); err != nil {
		return nil, rejected("wallet.debit", err, fields)
	}

	return s.post(ctx, actor, "wallet.debit", req.UserID, &model.LedgerEntry{
		Action:      model.ActionDebit,
		Amount:      req.Amount,
		Reason:      req.Reason,
		Description: req.Description,
		AdminNote:   req.AdminNote,
		Status:      model.StatusCompleted,
		ReferenceID: req.ReferenceID,
	})
}

// post appends entry to the existing wallet of userID. Debits are checked
// against the settled balance only; pending coins are not spendable.
func (s *walletService) post(ctx context.Context, actor Actor, op, userID string, entry *model.LedgerEntry) (*model.Wallet, error) {
	fields := logger.Fields{"user": userID, "actor": actor.ID, "amount": entry.Amount}

	var wallet *model.Wallet
	err := withLock(ctx, s.locker, s.db, lock.WalletKey(userID), func(tx *gorm.DB) error {
		var err error
		if wallet, err = s.walletRepo.FindByUserIDForUpdate(tx, userID); err != nil {
			return notFound(err, "wallet not found for user %s", userID)
		}

		if entry.Action == model.ActionDebit && entry.Amount > wallet.Balance {
			return apperror.New(apperror.KindInsufficientBalance,
				"insufficient balance: %d coins available, %d requested", wallet.Balance, entry.Amount)
		}

		entry.ParentType = model.ParentWallet
		entry.ParentID = wallet.ID
		entry.ActorID = model.Actor(actor.ID)
		if entry.Description == "" {
			entry.Description = fmt.Sprintf("%s %d coins", actionVerb(entry.Action), entry.Amount)
		}
		if err := s.ledgerRepo.Append(tx, entry); err != nil {
			return err
		}
		return s.reproject(tx, wallet)
	})
	if err != nil {
		return nil, rejected(op, err, fields)
	}

	metrics.LedgerEntries.WithLabelValues(string(model.ParentWallet), string(entry.Action)).Inc()
	logger.WithFields(fields).WithFields(logger.Fields{
		"action":  entry.Action,
		"status":  entry.Status,
		"balance": wallet.Balance,
		"pending": wallet.PendingBalance,
	}).Info("wallet entry posted")
	s.publish(actor, wallet, entry)
	return s.withHistory(ctx, wallet)
}

func (s *walletService) ResolvePending(ctx context.Context, actor Actor, req *ResolveRequest) (*model.Wallet, error) {
	fields := logger.Fields{"entry": req.EntryID, "actor": actor.ID}
	if err := validator.Check(req); err != nil {
		return nil, rejected("wallet.resolve", err, fields)
	}

	entry, err := s.ledgerRepo.FindByID(ctx, req.EntryID)
	if err != nil {
		return nil, rejected("wallet.resolve", notFound(err, "transaction not found"), fields)
	}
	if entry.ParentType != model.ParentWallet {
		return nil, rejected("wallet.resolve", apperror.NotFound("transaction not found"), fields)
	}
	owner, err := s.walletRepo.FindByID(ctx, entry.ParentID)
	if err != nil {
		return nil, rejected("wallet.resolve", notFound(err, "wallet not found"), fields)
	}

	var wallet *model.Wallet
	err = withLock(ctx, s.locker, s.db, lock.WalletKey(owner.UserID), func(tx *gorm.DB) error {
		var err error
		if wallet, err = s.walletRepo.FindByUserIDForUpdate(tx, owner.UserID); err != nil {
			return notFound(err, "wallet not found")
		}
		return s.resolve(tx, wallet, req.EntryID, req.Action, actor.ID)
	})
	if err != nil {
		return nil, rejected("wallet.resolve", err, fields)
	}

	if req.Action == model.StatusVoid {
		metrics.LedgerVoids.WithLabelValues(string(model.ParentWallet)).Inc()
	}
	logger.WithFields(fields).WithFields(logger.Fields{
		"user":    wallet.UserID,
		"status":  req.Action,
		"balance": wallet.Balance,
	}).Info("pending entry resolved")
	s.publish(actor, wallet, nil)
	return s.withHistory(ctx, wallet)
}

// resolve settles one pending entry and reprojects the wallet. It must run
// under the wallet's lock.
func (s *walletService) resolve(tx *gorm.DB, wallet *model.Wallet, entryID uuid.UUID, status model.EntryStatus, actorID string) error {
	entry, err := s.ledgerRepo.FindByIDForUpdate(tx, entryID)
	if err != nil {
		return notFound(err, "transaction not found")
	}
	if entry.ParentType != model.ParentWallet || entry.ParentID != wallet.ID {
		return apperror.NotFound("transaction not found")
	}
	if entry.Status != model.StatusPending {
		return apperror.New(apperror.KindAlreadyResolved, "transaction already %s", strings.ToLower(string(entry.Status)))
	}

	changed, err := s.ledgerRepo.Resolve(tx, entryID, status, actorID)
	if err != nil {
		return err
	}
	if !changed {
		return apperror.New(apperror.KindAlreadyResolved, "transaction already resolved")
	}
	return s.reproject(tx, wallet)
}

func (s *walletService) AdjustByAdmin(ctx context.Context, actor Actor, req *AdjustRequest) (*model.Wallet, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	fields := logger.Fields{"user": req.UserID, "actor": actor.ID}
	if err := validator.Check(req); err != nil {
		return nil, rejected("wallet.adjust", err, fields)
	}
	if strings.TrimSpace(req.AdminNote) == "" {
		return nil, rejected("wallet.adjust", apperror.Validation("adminNote is required"), fields)
	}
	if !req.Reason.AdminSelectable() {
		return nil, rejected("wallet.adjust", apperror.Validation("reason %q is not an adjustment code", req.Reason), fields)
	}

	description := strings.TrimSpace(req.Description)
	if req.Type == model.ActionDebit {
		return s.Debit(ctx, actor, &DebitRequest{
			UserID:      req.UserID,
			Amount:      req.Amount,
			Reason:      string(req.Reason),
			Description: description,
			AdminNote:   req.AdminNote,
		})
	}
	return s.Credit(ctx, actor, &CreditRequest{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Reason:      string(req.Reason),
		Description: description,
		Status:      model.StatusCompleted,
		AdminNote:   req.AdminNote,
	})
}

func (s *walletService) ApplyOrderEvent(ctx context.Context, actor Actor, req *OrderEventRequest) (*OrderEventResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.OrderID = strings.TrimSpace(req.OrderID)
	fields := logger.Fields{"order": req.OrderID, "user": req.UserID, "status": req.Status}
	if err := validator.Check(req); err != nil {
		return nil, rejected("wallet.order_event", err, fields)
	}
	if req.OrderValue.IsNegative() || req.OrderValue.GreaterThan(maxOrderValue) {
		return nil, rejected("wallet.order_event", apperror.Validation("orderValue is out of range"), fields)
	}
	event, err := model.ParseOrderEvent(req.Status)
	if err != nil {
		return nil, rejected("wallet.order_event", apperror.Validation("%s", err.Error()), fields)
	}

	result := &OrderEventResult{Event: event, Outcome: OutcomeIgnored}
	var posted *model.LedgerEntry

	err = withLock(ctx, s.locker, s.db, lock.WalletKey(req.UserID), func(tx *gorm.DB) error {
		wallet, err := s.lockWallet(tx, req.UserID)
		if err != nil {
			return err
		}
		result.Wallet = wallet

		existing, err := s.ledgerRepo.FindByReference(tx, model.ParentWallet, wallet.ID, req.OrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if earns, pending := event.Earns(); earns {
			if existing != nil {
				result.Outcome = OutcomeDuplicate
				result.Coins = existing.Amount
				return nil
			}
			amount := coins.EarnedCoins(req.OrderValue)
			if amount <= 0 {
				return nil
			}

			posted = &model.LedgerEntry{
				ParentType:  model.ParentWallet,
				ParentID:    wallet.ID,
				Action:      model.ActionCredit,
				Amount:      amount,
				Reason:      string(model.ReasonOrderEarn),
				Description: fmt.Sprintf("Earned on order %s", req.OrderID),
				Status:      model.StatusCompleted,
				ReferenceID: req.OrderID,
				ActorID:     model.Actor(actor.ID),
			}
			result.Outcome = OutcomeCredited
			if pending {
				posted.Status = model.StatusPending
				result.Outcome = OutcomePending
			}
			result.Coins = amount
			if err := s.ledgerRepo.Append(tx, posted); err != nil {
				return err
			}
			return s.reproject(tx, wallet)
		}

		settle, ok := event.Settlement()
		if !ok || existing == nil || existing.IsVoided {
			return nil
		}
		result.Coins = existing.Amount

		switch {
		case existing.Status == model.StatusPending:
			if settle == model.StatusCompleted {
				result.Outcome = OutcomeSettled
			} else {
				result.Outcome = OutcomeVoided
			}
			return s.resolve(tx, wallet, existing.ID, settle, actor.ID)

		case settle == model.StatusVoid:
			// Prepaid coins were spendable from the start; take them back
			// only while the wallet still holds them.
			if existing.Amount > wallet.Balance {
				return apperror.New(apperror.KindInsufficientBalance,
					"cannot reverse %d coins for order %s: %d available", existing.Amount, req.OrderID, wallet.Balance)
			}
			if _, err := s.ledgerRepo.MarkVoided(tx, existing.ID, actor.ID); err != nil {
				return err
			}
			result.Outcome = OutcomeVoided
			return s.reproject(tx, wallet)
		}
		return nil
	})
	if err != nil {
		return nil, rejected("wallet.order_event", err, fields)
	}

	switch result.Outcome {
	case OutcomeCredited, OutcomePending:
		metrics.LedgerEntries.WithLabelValues(string(model.ParentWallet), string(model.ActionCredit)).Inc()
	case OutcomeVoided:
		metrics.LedgerVoids.WithLabelValues(string(model.ParentWallet)).Inc()
	}
	logger.WithFields(fields).WithFields(logger.Fields{
		"event":   event,
		"outcome": result.Outcome,
		"coins":   result.Coins,
	}).Info("order event applied")

	if result.Outcome != OutcomeIgnored && result.Outcome != OutcomeDuplicate {
		s.publish(actor, result.Wallet, posted)
	}
	return result, nil
}

func (s *walletService) Summary(ctx context.Context, userID string) (*WalletSummary, error) {
	wallet, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, wallet)
}

func (s *walletService) FindWallet(ctx context.Context, userID string) (*WalletSummary, error) {
	wallet, err := s.walletRepo.FindByUserID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, notFound(err, "wallet not found for user %s", userID)
	}
	return s.summarize(ctx, wallet)
}

func (s *walletService) RedemptionQuote(ctx context.Context, userID string, cartValue decimal.Decimal) (*coins.Quote, error) {
	if cartValue.IsNegative() {
		return nil, apperror.Validation("cartValue must not be negative")
	}
	wallet, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	quote := coins.RedemptionQuote(wallet.Balance, cartValue)
	return &quote, nil
}

func (s *walletService) summarize(ctx context.Context, wallet *model.Wallet) (*WalletSummary, error) {
	wallet, err := s.withHistory(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return &WalletSummary{
		UserID:         wallet.UserID,
		Balance:        wallet.Balance,
		PendingBalance: wallet.PendingBalance,
		Progress:       s.tiers.ProgressOf(wallet.Balance),
		BalanceValue:   coins.Value(wallet.Balance),
		History:        wallet.History,
	}, nil
}

// lockWallet row-locks the wallet of userID, creating it on first use.
func (s *walletService) lockWallet(tx *gorm.DB, userID string) (*model.Wallet, error) {
	wallet, err := s.walletRepo.FindByUserIDForUpdate(tx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = &model.Wallet{UserID: userID, Tier: s.tiers.For(0)}
	if err := s.walletRepo.Create(tx, wallet); err != nil {
		return nil, err
	}
	logger.WithFields(logger.Fields{"user": userID, "wallet": wallet.ID}).Info("wallet created")
	return wallet, nil
}

func (s *walletService) reproject(tx *gorm.DB, wallet *model.Wallet) error {
	totals, err := s.ledgerRepo.SumByParent(tx, model.ParentWallet, wallet.ID)
	if err != nil {
		return err
	}
	if totals.Settled < 0 {
		return apperror.New(apperror.KindInsufficientBalance, "wallet %s would go below zero", wallet.UserID)
	}

	wallet.Balance = totals.Settled
	wallet.PendingBalance = totals.Pending
	wallet.Tier = s.tiers.For(totals.Settled)
	return s.walletRepo.UpdateProjection(tx, wallet)
}

func (s *walletService) withHistory(ctx context.Context, wallet *model.Wallet) (*model.Wallet, error) {
	history, err := s.ledgerRepo.ListByParent(ctx, model.ParentWallet, wallet.ID)
	if err != nil {
		return nil, err
	}
	wallet.History = history
	return wallet, nil
}

func (s *walletService) publish(actor Actor, wallet *model.Wallet, entry *model.LedgerEntry) {
	payload := map[string]interface{}{
		"userId":         wallet.UserID,
		"balance":        wallet.Balance,
		"pendingBalance": wallet.PendingBalance,
		"tier":           wallet.Tier,
		"user":           displayName(actor),
	}
	if entry != nil {
		payload["entry"] = entry
	}
	s.broadcaster.Publish("wallet_updated", payload)
}
