package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralStatus enumerates the lifecycle states of a referral.
// The only forward transition is pending → completed; completion is
// idempotent and never regresses.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// RewardType enumerates how a business rewards a completed referral.
// Only RewardCredit has a monetary effect on the ambassador balance; the
// other types are recorded on the referral but settle without crediting.
type RewardType string

const (
	RewardCredit   RewardType = "credit"
	RewardUpgrade  RewardType = "upgrade"
	RewardDiscount RewardType = "discount"
	RewardPoints   RewardType = "points"
)

// Referral is one tracked instance of a prospective customer arriving via an
// ambassador. It belongs to exactly one ambassador and one business; the
// ambassador link is immutable after creation.
type Referral struct {
	ID            string         `json:"id" db:"id"`
	BusinessID    string         `json:"business_id" db:"business_id"`
	AmbassadorID  string         `json:"ambassador_id" db:"ambassador_id"`
	ReferredName  string         `json:"referred_name,omitempty" db:"referred_name"`
	ReferredEmail string         `json:"referred_email,omitempty" db:"referred_email"`
	ReferredPhone string         `json:"referred_phone,omitempty" db:"referred_phone"`
	Status        ReferralStatus `json:"status" db:"status"`
	ConsentGiven  bool           `json:"consent_given" db:"consent_given"`
	Locale        string         `json:"locale,omitempty" db:"locale"`

	// OrderReference is the caller-supplied idempotency key for conversions
	// captured through the redeem endpoint. Unique per business when set.
	OrderReference *string `json:"order_reference,omitempty" db:"order_reference"`

	TransactionValue *decimal.Decimal `json:"transaction_value,omitempty" db:"transaction_value"`
	TransactionDate  *time.Time       `json:"transaction_date,omitempty" db:"transaction_date"`

	// RewardType/RewardAmount are snapshotted from the business's reward
	// policy at completion time; RewardedAt is stamped exactly once.
	RewardType   *RewardType      `json:"reward_type,omitempty" db:"reward_type"`
	RewardAmount *decimal.Decimal `json:"reward_amount,omitempty" db:"reward_amount"`
	RewardedAt   *time.Time       `json:"rewarded_at,omitempty" db:"rewarded_at"`

	ServiceType *string   `json:"service_type,omitempty" db:"service_type"`
	CampaignID  *string   `json:"campaign_id,omitempty" db:"campaign_id"`
	CreatedBy   *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IsCompleted reports whether the referral has reached its terminal state.
func (r *Referral) IsCompleted() bool {
	return r.Status == ReferralCompleted
}
