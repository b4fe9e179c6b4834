package business

import (
	"context"

	"github.com/referlabs/referral-engine/internal/domain"
)

// Repository defines the data access contract for businesses.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new business.
	Create(ctx context.Context, b *domain.Business) error

	// Get returns a single business. Returns ErrNotFound if it doesn't
	// exist.
	Get(ctx context.Context, id string) (*domain.Business, error)
}
