package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kasturi-ledger/internal/coins"
)

// Wallet is a shopper's coin account. Balance and PendingBalance are
// materialized from the ledger on every write.
type Wallet struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"userId"`
	Balance        int64      `gorm:"not null" json:"balance"`
	PendingBalance int64      `gorm:"not null" json:"pendingBalance"`
	Tier           coins.Tier `gorm:"type:varchar(10);not null" json:"tier"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	History []LedgerEntry `gorm:"-" json:"history"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// BalancesFrom projects active and pending balances from a wallet history.
func BalancesFrom(history []LedgerEntry) (balance, pending int64) {
	for _, e := range history {
		balance += e.Delta()
		if !e.IsVoided && e.Status == StatusPending && e.Action == ActionCredit {
			pending += e.Amount
		}
	}
	return balance, pending
}

// AdjustReason is the reporting code attached to manual wallet adjustments.
type AdjustReason string

const (
	ReasonManualReward  AdjustReason = "MANUAL_REWARD"
	ReasonCompensation  AdjustReason = "COMPENSATION"
	ReasonPromotion     AdjustReason = "PROMOTION"
	ReasonCorrection    AdjustReason = "CORRECTION"
	ReasonFraudReversal AdjustReason = "FRAUD_REVERSAL"
	ReasonExpiry        AdjustReason = "EXPIRY"
	ReasonOther         AdjustReason = "OTHER"

	// Reasons written by the order pipeline, not selectable by admins.
	ReasonOrderEarn AdjustReason = "ORDER_EARN"
)

var adminReasons = map[AdjustReason]bool{
	ReasonManualReward:  true,
	ReasonCompensation:  true,
	ReasonPromotion:     true,
	ReasonCorrection:    true,
	ReasonFraudReversal: true,
	ReasonExpiry:        true,
	ReasonOther:         true,
}

func (r AdjustReason) AdminSelectable() bool {
	return adminReasons[r]
}
