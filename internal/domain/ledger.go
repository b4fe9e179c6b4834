package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditLedgerEntry is one append-only record of a credit balance change.
// The ledger is an optional capability written in addition to the balance
// mutation, never instead of it.
type CreditLedgerEntry struct {
	ID           string          `json:"id" db:"id"`
	BusinessID   string          `json:"business_id" db:"business_id"`
	AmbassadorID string          `json:"ambassador_id" db:"ambassador_id"`
	ReferralID   string          `json:"referral_id" db:"referral_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
