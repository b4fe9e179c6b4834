package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
	"github.com/referlabs/referral-engine/internal/service/eventlog"
)

// Service tracks campaign message delivery.
type Service struct {
	repo   Repository
	events eventlog.Recorder
}

// NewService creates a delivery tracking service.
func NewService(repo Repository, events eventlog.Recorder) *Service {
	return &Service{repo: repo, events: events}
}

// RegisterInput holds the fields for registering an outbound message.
type RegisterInput struct {
	BusinessID        string `json:"business_id" validate:"required"`
	CustomerID        string `json:"customer_id" validate:"required"`
	CampaignID        string `json:"campaign_id" validate:"required"`
	ProviderMessageID string `json:"provider_message_id" validate:"required"`
	Channel           string `json:"channel" validate:"oneof=sms email"`
}

// Register records an outbound message so later delivery webhooks can
// correlate against its provider message id.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.CampaignMessage, error) {
	m := &domain.CampaignMessage{
		ID:                uuid.New().String(),
		BusinessID:        input.BusinessID,
		CustomerID:        input.CustomerID,
		CampaignID:        input.CampaignID,
		ProviderMessageID: strings.TrimSpace(input.ProviderMessageID),
		Channel:           input.Channel,
		Status:            domain.MessageSent,
	}
	if m.ProviderMessageID == "" {
		return nil, fmt.Errorf("provider_message_id is required")
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ApplyStatus applies a normalized delivery status to the message
// correlated with a provider message id.
//
// Unknown ids return ErrNotFound (callers treat as no-op). Replays of a
// terminal status change nothing and emit nothing. Only an actual
// transition appends a campaign_message_delivered/failed event.
func (s *Service) ApplyStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not a terminal delivery status", status)
	}

	m, err := s.repo.ByProviderMessageID(ctx, strings.TrimSpace(providerMessageID))
	if err != nil {
		return err
	}

	var deliveredAt *time.Time
	if status == domain.MessageDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	changed, err := s.repo.ApplyStatus(ctx, m.ID, status, deliveredAt, errMsg)
	if err != nil {
		return err
	}
	if changed == 0 {
		logger.Debug("delivery status replay ignored",
			"provider_message_id", providerMessageID, "status", string(status))
		return nil
	}

	eventType := domain.EventCampaignMessageDelivered
	if status == domain.MessageFailed {
		eventType = domain.EventCampaignMessageFailed
	}
	ev := domain.ReferralEvent{
		BusinessID: m.BusinessID,
		EventType:  eventType,
		Metadata: map[string]any{
			"campaign_id":         m.CampaignID,
			"customer_id":         m.CustomerID,
			"provider_message_id": m.ProviderMessageID,
			"channel":             m.Channel,
		},
	}
	if errMsg != "" {
		ev.Metadata["error"] = errMsg
	}
	if err := s.events.Append(ctx, ev); err != nil {
		logger.Warn("delivery event append failed", "provider_message_id", providerMessageID, "error", err)
	}
	return nil
}
