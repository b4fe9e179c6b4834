package referral

import "errors"

// Sentinel errors for the referral lifecycle.
var (
	// ErrNotFound means the referral doesn't exist in the business scope.
	// Terminal for the caller; retrying cannot help.
	ErrNotFound = errors.New("referral not found")

	// ErrAlreadyCompleted is returned by the repository when the
	// conditional pending→completed write matched a row that is already
	// terminal. The service maps it to a no-op success.
	ErrAlreadyCompleted = errors.New("referral already completed")

	// ErrAmbassadorMismatch means the ambassador doesn't exist or belongs
	// to a different business. Terminal validation error.
	ErrAmbassadorMismatch = errors.New("ambassador does not belong to business")
)
