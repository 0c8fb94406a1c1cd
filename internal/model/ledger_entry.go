package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParentType names the aggregate a ledger entry belongs to.
type ParentType string

const (
	ParentBatch  ParentType = "BATCH"
	ParentWallet ParentType = "WALLET"
)

// MaxAmount bounds a single entry so projections stay far from int64 overflow.
const MaxAmount int64 = 1_000_000_000

type LedgerAction string

const (
	ActionStockIn  LedgerAction = "STOCK_IN"
	ActionStockOut LedgerAction = "STOCK_OUT"
	ActionCredit   LedgerAction = "CREDIT"
	ActionDebit    LedgerAction = "DEBIT"
)

// Sign is +1 for actions that add to the balance and -1 for those that take from it.
func (a LedgerAction) Sign() int64 {
	switch a {
	case ActionStockIn, ActionCredit:
		return 1
	case ActionStockOut, ActionDebit:
		return -1
	default:
		return 0
	}
}

// BelongsTo reports whether the action is valid on the given aggregate.
func (a LedgerAction) BelongsTo(p ParentType) bool {
	switch p {
	case ParentBatch:
		return a == ActionStockIn || a == ActionStockOut
	case ParentWallet:
		return a == ActionCredit || a == ActionDebit
	default:
		return false
	}
}

type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusCompleted EntryStatus = "COMPLETED"
	StatusVoid      EntryStatus = "VOID"
)

// LedgerEntry is one append-only quantity or coin movement. Only the
// void and resolution columns are ever updated after insert.
type LedgerEntry struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ParentType  ParentType   `gorm:"type:varchar(10);not null;index:idx_ledger_parent,priority:1" json:"parentType"`
	ParentID    uuid.UUID    `gorm:"type:uuid;not null;index:idx_ledger_parent,priority:2" json:"parentId"`
	Seq         int64        `gorm:"not null;index:idx_ledger_parent,priority:3" json:"seq"`
	Action      LedgerAction `gorm:"type:varchar(12);not null" json:"action"`
	Amount      int64        `gorm:"not null" json:"amount"` // quantity for batches, coins for wallets
	Reason      string       `gorm:"type:varchar(100)" json:"reason"`
	Description string       `gorm:"type:text" json:"description"`
	AdminNote   string       `gorm:"type:text" json:"adminNote,omitempty"`
	Status      EntryStatus  `gorm:"type:varchar(10);not null" json:"status"`
	ReferenceID string       `gorm:"type:varchar(100);index" json:"referenceId,omitempty"`
	ActorID     *string      `gorm:"type:varchar(255)" json:"actorId"`
	CreatedAt   time.Time    `gorm:"not null" json:"timestamp"`

	IsVoided   bool       `gorm:"not null" json:"isVoided"`
	VoidedBy   *string    `gorm:"type:varchar(255)" json:"voidedBy,omitempty"`
	VoidedAt   *time.Time `json:"voidedAt,omitempty"`
	ResolvedBy *string    `gorm:"type:varchar(255)" json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Settled reports whether the entry counts toward the usable balance.
func (e LedgerEntry) Settled() bool {
	return !e.IsVoided && e.Status == StatusCompleted
}

// Delta is the signed contribution of the entry to the settled balance.
func (e LedgerEntry) Delta() int64 {
	if !e.Settled() {
		return 0
	}
	return e.Action.Sign() * e.Amount
}

// Actor returns a pointer suitable for ActorID; empty means system.
func Actor(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
