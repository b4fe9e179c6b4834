package delivery

import (
	"context"
	"time"

	"github.com/referlabs/referral-engine/internal/domain"
)

// Repository defines the data access contract for campaign messages.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new message row in queued/sent status.
	Create(ctx context.Context, m *domain.CampaignMessage) error

	// ByProviderMessageID returns the message correlated to a provider
	// message id. Returns ErrNotFound when there is no match.
	ByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.CampaignMessage, error)

	// ApplyStatus writes a terminal status with one conditional update
	// that only matches non-terminal rows. Returns the number of rows
	// changed (0 means the row was already terminal — a replay no-op).
	ApplyStatus(ctx context.Context, id string, status domain.MessageStatus, deliveredAt *time.Time, errMsg string) (int64, error)
}
