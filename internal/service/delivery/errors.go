package delivery

import "errors"

// Sentinel errors for the delivery tracking layer.
var (
	// ErrNotFound means no message matches the provider message id. The
	// webhook gateway maps this to a 200 no-op, never an error response.
	ErrNotFound = errors.New("campaign message not found")
)
