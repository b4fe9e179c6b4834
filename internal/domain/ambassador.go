package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmbassadorStatus enumerates the lifecycle states of an ambassador.
type AmbassadorStatus string

const (
	AmbassadorPending  AmbassadorStatus = "pending"
	AmbassadorVerified AmbassadorStatus = "verified"
	AmbassadorActive   AmbassadorStatus = "active"
	AmbassadorInactive AmbassadorStatus = "inactive"
)

// Ambassador is a customer who holds a referral code and a discount code and
// can earn rewards for referrals. Codes are globally unique
// (case-insensitive) because attribution resolves a bare code, and credits
// only increase, via reward settlement.
type Ambassador struct {
	ID           string           `json:"id" db:"id"`
	BusinessID   string           `json:"business_id" db:"business_id"`
	Name         string           `json:"name" db:"name"`
	Email        string           `json:"email,omitempty" db:"email"`
	Phone        string           `json:"phone,omitempty" db:"phone"`
	ReferralCode string           `json:"referral_code" db:"referral_code"`
	DiscountCode string           `json:"discount_code" db:"discount_code"`
	Credits      decimal.Decimal  `json:"credits" db:"credits"`
	Status       AmbassadorStatus `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}
