package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
	"github.com/referlabs/referral-engine/internal/service/eventlog"
)

// Engine applies the monetary effect of a completed referral.
type Engine struct {
	credits  CreditStore
	stamper  RewardStamper
	events   eventlog.Recorder
	ledger   Ledger // nil when the credit-ledger capability is off
	notifier Notifier
}

// NewEngine creates a settlement engine. ledger and notifier may be nil.
func NewEngine(credits CreditStore, stamper RewardStamper, events eventlog.Recorder, ledger Ledger, notifier Notifier) *Engine {
	return &Engine{credits: credits, stamper: stamper, events: events, ledger: ledger, notifier: notifier}
}

// Settle releases the reward snapshotted on a just-completed referral.
// Must be called exactly once per referral; the caller's conditional
// completion transition is the guard.
//
// Only the credit reward type moves money. A non-positive amount is a
// no-op on the balance (booking-only conversions carry zero reward), not
// an error. The payout event is recorded for every settlement so the audit
// trail shows the outcome even when no money moved.
func (e *Engine) Settle(ctx context.Context, amb *domain.Ambassador, ref *domain.Referral) error {
	amount := decimal.Zero
	rewardType := domain.RewardCredit
	if ref.RewardType != nil {
		rewardType = *ref.RewardType
	}
	if ref.RewardAmount != nil {
		amount = *ref.RewardAmount
	}

	credited := decimal.Zero
	if rewardType == domain.RewardCredit && amount.IsPositive() {
		newBalance, err := e.credits.AddCredits(ctx, amb.ID, amount)
		if err != nil {
			return fmt.Errorf("credit ambassador %s: %w", amb.ID, err)
		}
		credited = amount

		if e.ledger != nil {
			entry := domain.CreditLedgerEntry{
				ID:           uuid.New().String(),
				BusinessID:   ref.BusinessID,
				AmbassadorID: amb.ID,
				ReferralID:   ref.ID,
				Amount:       amount,
				BalanceAfter: newBalance,
			}
			if err := e.ledger.Append(ctx, entry); err != nil {
				// The balance write is the source of truth; a ledger
				// miss is recoverable from the event log.
				logger.Warn("credit ledger append failed",
					"ambassador_id", amb.ID, "referral_id", ref.ID, "error", err)
			}
		}
	}

	now := time.Now().UTC()
	if err := e.stamper.StampRewarded(ctx, ref.BusinessID, ref.ID, now); err != nil {
		return fmt.Errorf("stamp rewarded_at for referral %s: %w", ref.ID, err)
	}

	if err := e.events.Append(ctx, domain.ReferralEvent{
		BusinessID:   ref.BusinessID,
		AmbassadorID: &amb.ID,
		ReferralID:   &ref.ID,
		EventType:    domain.EventPayoutReleased,
		Metadata: map[string]any{
			"reward_type": string(rewardType),
			"amount":      credited.String(),
		},
	}); err != nil {
		logger.Warn("payout event append failed", "referral_id", ref.ID, "error", err)
	}

	e.notify(amb, ref, credited)
	return nil
}

// notify dispatches the reward confirmation without blocking settlement.
func (e *Engine) notify(amb *domain.Ambassador, ref *domain.Referral, amount decimal.Decimal) {
	if e.notifier == nil {
		return
	}
	ambCopy := *amb
	refCopy := *ref
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.notifier.RewardReleased(ctx, &ambCopy, &refCopy, amount); err != nil {
			logger.Warn("reward notification failed",
				"ambassador_id", ambCopy.ID, "referral_id", refCopy.ID, "error", err)
		}
	}()
}
