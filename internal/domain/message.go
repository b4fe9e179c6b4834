package domain

import "time"

// MessageStatus enumerates the delivery lifecycle of one outbound campaign
// message. Transitions are monotonic: queued → sent → delivered|failed.
// Re-reporting the same terminal status is a no-op.
type MessageStatus string

const (
	MessageQueued    MessageStatus = "queued"
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageFailed    MessageStatus = "failed"
)

// IsTerminal reports whether the status admits no further transition.
func (s MessageStatus) IsTerminal() bool {
	return s == MessageDelivered || s == MessageFailed
}

// CampaignMessage correlates one outbound SMS/email with the asynchronous
// delivery-status webhooks reported by the messaging provider. The
// provider message id is the unique correlation key.
type CampaignMessage struct {
	ID                string        `json:"id" db:"id"`
	BusinessID        string        `json:"business_id" db:"business_id"`
	CustomerID        string        `json:"customer_id" db:"customer_id"`
	CampaignID        string        `json:"campaign_id" db:"campaign_id"`
	ProviderMessageID string        `json:"provider_message_id" db:"provider_message_id"`
	Channel           string        `json:"channel" db:"channel"` // "sms" or "email"
	Status            MessageStatus `json:"status" db:"status"`
	DeliveredAt       *time.Time    `json:"delivered_at,omitempty" db:"delivered_at"`
	Error             string        `json:"error,omitempty" db:"error"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}
