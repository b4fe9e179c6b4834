package ambassador

import "errors"

// Sentinel errors for the ambassador service layer.
var (
	ErrNotFound = errors.New("ambassador not found")

	// ErrCodeTaken means a referral or discount code already exists for
	// the business (case-insensitive). Surfaced from the storage layer's
	// unique index, which is the authoritative enforcement point.
	ErrCodeTaken = errors.New("code already in use for this business")
)
