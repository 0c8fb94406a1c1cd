// Package coins holds the Kasturi coin economics: earn and redemption
// policy plus tier derivation. The wallet ledger only tracks balances;
// checkout is expected to honour these rules before it debits.
package coins

import (
	"github.com/shopspring/decimal"
)

var (
	// RupeesPerCoin is the fixed redemption value of one coin.
	RupeesPerCoin = decimal.RequireFromString("0.80")
	// EarnRate is the share of order value credited back as coins.
	EarnRate = decimal.RequireFromString("0.05")
	// RedemptionCap is the largest share of a cart payable with coins.
	RedemptionCap = decimal.RequireFromString("0.30")
)

// MinRedeemableBalance is the balance below which coins cannot be spent.
const MinRedeemableBalance int64 = 100

// EarnedCoins returns the whole coins earned on an order of orderValue rupees.
func EarnedCoins(orderValue decimal.Decimal) int64 {
	if !orderValue.IsPositive() {
		return 0
	}
	return orderValue.Mul(EarnRate).Floor().IntPart()
}

// Value converts coins to rupees.
func Value(coins int64) decimal.Decimal {
	return decimal.NewFromInt(coins).Mul(RupeesPerCoin)
}

type Quote struct {
	MaxCoins int64           `json:"maxCoins"`
	Discount decimal.Decimal `json:"discount"`
}

// RedemptionQuote returns how many coins a wallet holding balance may spend
// on a cart worth cartValue rupees.
func RedemptionQuote(balance int64, cartValue decimal.Decimal) Quote {
	if balance < MinRedeemableBalance || !cartValue.IsPositive() {
		return Quote{Discount: decimal.Zero}
	}

	capCoins := cartValue.Mul(RedemptionCap).Div(RupeesPerCoin).Floor().IntPart()
	maxCoins := min(balance, capCoins)
	return Quote{MaxCoins: maxCoins, Discount: Value(maxCoins)}
}
