package notify

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
)

// LogNotifier records reward confirmations to the log instead of sending
// email. Used when notifications are disabled and in development.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) RewardReleased(_ context.Context, amb *domain.Ambassador, ref *domain.Referral, amount decimal.Decimal) error {
	logger.Info("reward released",
		"ambassador_id", amb.ID,
		"referral_id", ref.ID,
		"amount", amount.String(),
	)
	return nil
}
