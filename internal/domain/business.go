package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business is the tenant scope for ambassadors, referrals and events. Its
// reward policy is snapshotted onto each referral at completion time, so a
// later policy change never rewrites past payouts.
type Business struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	LandingURL   string          `json:"landing_url" db:"landing_url"`
	RewardType   RewardType      `json:"reward_type" db:"reward_type"`
	RewardAmount decimal.Decimal `json:"reward_amount" db:"reward_amount"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// RewardPolicy is the snapshot of a business's reward settings applied to a
// completing referral.
type RewardPolicy struct {
	Type   RewardType      `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}
