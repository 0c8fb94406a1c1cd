package coins

type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
)

// Tiers holds the active-balance thresholds at which a wallet is promoted.
// Bronze starts at zero.
type Tiers struct {
	Silver int64
	Gold   int64
}

func DefaultTiers() Tiers {
	return Tiers{Silver: 200, Gold: 1000}
}

// For derives the tier of an active balance.
func (t Tiers) For(balance int64) Tier {
	switch {
	case balance >= t.Gold:
		return TierGold
	case balance >= t.Silver:
		return TierSilver
	default:
		return TierBronze
	}
}

// Progress describes where a balance sits between its tier and the next one.
type Progress struct {
	Tier        Tier  `json:"tier"`
	NextTier    Tier  `json:"nextTier"`
	Progress    int   `json:"progress"`
	CoinsToNext int64 `json:"coinsToNext"`
}

// ProgressOf returns tier progress for balance. Gold wallets report an empty
// NextTier and 100% progress.
func (t Tiers) ProgressOf(balance int64) Progress {
	if balance < 0 {
		balance = 0
	}

	var floor, ceiling int64
	var next Tier
	switch tier := t.For(balance); tier {
	case TierGold:
		return Progress{Tier: TierGold, Progress: 100}
	case TierSilver:
		floor, ceiling, next = t.Silver, t.Gold, TierGold
	default:
		floor, ceiling, next = 0, t.Silver, TierSilver
	}

	return Progress{
		Tier:        t.For(balance),
		NextTier:    next,
		Progress:    int((balance - floor) * 100 / (ceiling - floor)),
		CoinsToNext: ceiling - balance,
	}
}
