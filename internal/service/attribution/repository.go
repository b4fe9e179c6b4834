package attribution

import (
	"context"

	"github.com/referlabs/referral-engine/internal/domain"
)

// Repository defines the data access contract for ambassador lookups.
// Implementations must be safe for concurrent use.
//
// The code lookups return every match for the already-normalized
// (lowercased, trimmed) code so the resolver can detect uniqueness
// violations instead of silently picking a row.
type Repository interface {
	// ByReferralCode returns all ambassadors whose referral code matches.
	ByReferralCode(ctx context.Context, code string) ([]domain.Ambassador, error)

	// ByDiscountCode returns all ambassadors whose discount code matches.
	ByDiscountCode(ctx context.Context, code string) ([]domain.Ambassador, error)

	// ByID returns a single ambassador by id. Returns ErrNotFound if it
	// doesn't exist.
	ByID(ctx context.Context, id string) (*domain.Ambassador, error)
}
