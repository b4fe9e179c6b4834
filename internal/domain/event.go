package domain

import "time"

// EventType enumerates the attribution-relevant occurrences recorded in the
// append-only event log.
type EventType string

const (
	EventLinkVisit                EventType = "link_visit"
	EventSignupSubmitted          EventType = "signup_submitted"
	EventConversionCompleted      EventType = "conversion_completed"
	EventPayoutReleased           EventType = "payout_released"
	EventCampaignMessageDelivered EventType = "campaign_message_delivered"
	EventCampaignMessageFailed    EventType = "campaign_message_failed"
)

// ReferralEvent is one append-only ledger entry. Entries are immutable once
// written; they form the audit trail and feed the attribution health check.
type ReferralEvent struct {
	ID           string         `json:"id" db:"id"`
	BusinessID   string         `json:"business_id" db:"business_id"`
	AmbassadorID *string        `json:"ambassador_id,omitempty" db:"ambassador_id"`
	ReferralID   *string        `json:"referral_id,omitempty" db:"referral_id"`
	EventType    EventType      `json:"event_type" db:"event_type"`
	Metadata     map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// AttributionHealth summarizes signup attribution over a trailing window.
type AttributionHealth struct {
	WindowDays      int     `json:"window_days"`
	SignupCount     int     `json:"signup_count"`
	AttributedCount int     `json:"attributed_count"`
	AttributionRate float64 `json:"attribution_rate"`
	Status          string  `json:"status"` // "good", "warning", "critical", "no_data"
}
