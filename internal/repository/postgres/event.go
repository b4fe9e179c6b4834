package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/referlabs/referral-engine/internal/domain"
)

// EventRepo implements eventlog.Recorder and eventlog.HealthReader against
// PostgreSQL. The table is append-only; there is no update path.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event log.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, ev domain.ReferralEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var metadata []byte
	if len(ev.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(ev.Metadata); err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO referral_events (id, business_id, ambassador_id,
			referral_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.BusinessID, ev.AmbassadorID, ev.ReferralID,
		ev.EventType, metadata, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// AttributionWindow counts signup events in the trailing window and how many
// of them carried an ambassador link.
func (r *EventRepo) AttributionWindow(ctx context.Context, window time.Duration) (int, int, error) {
	since := time.Now().UTC().Add(-window)

	var signups, attributed int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(ambassador_id)
		FROM referral_events
		WHERE event_type = $1 AND created_at >= $2
	`, domain.EventSignupSubmitted, since).Scan(&signups, &attributed)
	if err != nil {
		return 0, 0, fmt.Errorf("attribution window: %w", err)
	}
	return signups, attributed, nil
}

// Recent returns the newest events for a business, newest first. Used by the
// operational event feed.
func (r *EventRepo) Recent(ctx context.Context, businessID string, limit int) ([]domain.ReferralEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, ambassador_id, referral_id, event_type,
		       metadata, created_at
		FROM referral_events
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.ReferralEvent
	for rows.Next() {
		var (
			ev       domain.ReferralEvent
			metadata []byte
		)
		if err := rows.Scan(&ev.ID, &ev.BusinessID, &ev.AmbassadorID,
			&ev.ReferralID, &ev.EventType, &metadata, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
