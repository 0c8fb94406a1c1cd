package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosedReason records why a batch was deactivated.
type ClosedReason string

const (
	ClosedNone      ClosedReason = ""
	ClosedExhausted ClosedReason = "EXHAUSTED"
	ClosedManual    ClosedReason = "MANUAL"
)

// Batch is a production lot of one product variant. RemainingQuantity is a
// materialized view of the ledger, rewritten in the same transaction as
// every entry that changes it.
type Batch struct {
	BaseModel
	BatchCode         string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"batchCode"`
	VariantName       string          `gorm:"type:varchar(255);not null" json:"variantName"`
	CostPerUnit       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"costPerUnit"`
	InitialQuantity   int             `gorm:"not null" json:"initialQuantity"`
	RemainingQuantity int             `gorm:"not null" json:"remainingQuantity"`
	MfgDate           time.Time       `gorm:"type:date;not null" json:"mfgDate"`
	IsActive          bool            `gorm:"not null" json:"isActive"`
	ClosedReason      ClosedReason    `gorm:"type:varchar(12)" json:"closedReason,omitempty"`

	History []LedgerEntry `gorm:"-" json:"history"`
}

// RemainingFrom projects the remaining quantity from a batch history.
func RemainingFrom(initial int, history []LedgerEntry) int {
	remaining := int64(initial)
	for _, e := range history {
		remaining += e.Delta()
	}
	return int(remaining)
}

// StockValue is remaining quantity priced at cost.
func (b *Batch) StockValue() decimal.Decimal {
	return b.CostPerUnit.Mul(decimal.NewFromInt(int64(b.RemainingQuantity)))
}
