package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/delivery"
)

// MessageRepo implements delivery.Repository against PostgreSQL.
type MessageRepo struct{ db *sql.DB }

// NewMessageRepo creates a Postgres-backed campaign message repository.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Create(ctx context.Context, m *domain.CampaignMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaign_messages (id, business_id, customer_id,
			campaign_id, provider_message_id, channel, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, m.ID, m.BusinessID, m.CustomerID, m.CampaignID,
		m.ProviderMessageID, m.Channel, m.Status)
	if err != nil {
		return fmt.Errorf("create campaign message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.CampaignMessage, error) {
	m := &domain.CampaignMessage{}
	var (
		deliveredAt sql.NullTime
		errMsg      sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, business_id, customer_id, campaign_id,
		       provider_message_id, channel, status, delivered_at, error,
		       created_at, updated_at
		FROM campaign_messages
		WHERE provider_message_id = $1
	`, providerMessageID).Scan(
		&m.ID, &m.BusinessID, &m.CustomerID, &m.CampaignID,
		&m.ProviderMessageID, &m.Channel, &m.Status, &deliveredAt, &errMsg,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, delivery.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign message: %w", err)
	}
	if deliveredAt.Valid {
		m.DeliveredAt = &deliveredAt.Time
	}
	m.Error = errMsg.String
	return m, nil
}

// ApplyStatus only matches non-terminal rows, so terminal replays report
// zero rows changed.
func (r *MessageRepo) ApplyStatus(ctx context.Context, id string, status domain.MessageStatus, deliveredAt *time.Time, errMsg string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_messages
		SET status = $2, delivered_at = $3, error = NULLIF($4,''),
		    updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('delivered', 'failed')
	`, id, status, deliveredAt, errMsg)
	if err != nil {
		return 0, fmt.Errorf("apply message status: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("apply message status: %w", err)
	}
	return changed, nil
}
