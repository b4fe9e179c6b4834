package eventlog

import (
	"context"
	"time"

	"github.com/referlabs/referral-engine/internal/domain"
)

// Recorder appends events to the log. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// Append writes one immutable event. The ID and CreatedAt fields are
	// assigned by the implementation when left empty.
	Append(ctx context.Context, ev domain.ReferralEvent) error
}

// HealthReader reports attribution health over a trailing window. It is a
// read-only diagnostic and not part of the attribution critical path.
type HealthReader interface {
	// AttributionWindow returns the number of signup_submitted events in
	// the window and how many of them carried an ambassador link.
	AttributionWindow(ctx context.Context, window time.Duration) (signups, attributed int, err error)
}

// Health grades an attribution window. Thresholds: below 50% attributed is
// critical, below 80% is a warning; an empty window reports no_data.
func Health(windowDays, signups, attributed int) domain.AttributionHealth {
	h := domain.AttributionHealth{
		WindowDays:      windowDays,
		SignupCount:     signups,
		AttributedCount: attributed,
	}
	if signups == 0 {
		h.Status = "no_data"
		return h
	}
	h.AttributionRate = float64(attributed) / float64(signups)
	switch {
	case h.AttributionRate < 0.5:
		h.Status = "critical"
	case h.AttributionRate < 0.8:
		h.Status = "warning"
	default:
		h.Status = "good"
	}
	return h
}
