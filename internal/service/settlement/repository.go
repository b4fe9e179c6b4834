package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
)

// CreditStore mutates ambassador balances. The increment must be a single
// atomic conditional write; the engine never reads-then-writes a balance.
type CreditStore interface {
	// AddCredits atomically increments the ambassador's balance by a
	// positive amount and returns the new balance.
	AddCredits(ctx context.Context, ambassadorID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// RewardStamper stamps rewarded_at on a referral, at most once. A referral
// that is completed but unstamped marks the reconciliation window between
// completion and settlement.
type RewardStamper interface {
	StampRewarded(ctx context.Context, businessID, referralID string, at time.Time) error
}

// Ledger appends to the optional credit ledger. Written in addition to the
// balance mutation, never instead of it.
type Ledger interface {
	Append(ctx context.Context, entry domain.CreditLedgerEntry) error
}

// Notifier delivers the ambassador-facing reward confirmation. Failures are
// logged and never roll back the credit.
type Notifier interface {
	RewardReleased(ctx context.Context, amb *domain.Ambassador, ref *domain.Referral, amount decimal.Decimal) error
}
