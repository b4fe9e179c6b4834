package referral

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
)

// Repository defines the data access contract for referrals.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new pending referral.
	Create(ctx context.Context, r *domain.Referral) error

	// Get returns a single referral scoped to a business. Returns
	// ErrNotFound if it doesn't exist.
	Get(ctx context.Context, businessID, id string) (*domain.Referral, error)

	// FindOrCreateByOrderReference inserts the referral unless one with
	// the same (business, order reference) already exists, and returns the
	// surviving row. The created flag reports whether this call inserted.
	// The insert must be conflict-safe (ON CONFLICT DO NOTHING), so two
	// concurrent calls for the same order reference converge on one row.
	FindOrCreateByOrderReference(ctx context.Context, r *domain.Referral) (*domain.Referral, bool, error)

	// Complete transitions pending→completed with one atomic conditional
	// write storing the transaction fields and reward snapshot. Returns
	// the updated referral, ErrAlreadyCompleted if the row exists but is
	// already terminal, or ErrNotFound if there is no such row.
	Complete(ctx context.Context, p CompleteParams) (*domain.Referral, error)
}

// CompleteParams carries the conditional-completion write.
type CompleteParams struct {
	BusinessID       string
	ReferralID       string
	TransactionValue *decimal.Decimal
	TransactionDate  *time.Time
	RewardType       domain.RewardType
	RewardAmount     decimal.Decimal
	ServiceType      *string
}
