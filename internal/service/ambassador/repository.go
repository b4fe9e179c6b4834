package ambassador

import (
	"context"

	"github.com/referlabs/referral-engine/internal/domain"
)

// Repository defines the data access contract for ambassador profiles.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new ambassador. Returns ErrCodeTaken if either code
	// collides with an existing one in the same business.
	Create(ctx context.Context, a *domain.Ambassador) error

	// Get returns a single ambassador scoped to a business. Returns
	// ErrNotFound if it doesn't exist.
	Get(ctx context.Context, businessID, id string) (*domain.Ambassador, error)

	// AdvanceStatus transitions status from one value to another with a
	// conditional write. A non-matching current status is a silent no-op.
	AdvanceStatus(ctx context.Context, id string, from, to domain.AmbassadorStatus) error
}
