package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/business"
)

// BusinessRepo implements business.Repository against PostgreSQL.
type BusinessRepo struct{ db *sql.DB }

// NewBusinessRepo creates a Postgres-backed business repository.
func NewBusinessRepo(db *sql.DB) *BusinessRepo { return &BusinessRepo{db: db} }

func (r *BusinessRepo) Create(ctx context.Context, b *domain.Business) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, landing_url, reward_type,
			reward_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, b.ID, b.Name, b.LandingURL, b.RewardType, b.RewardAmount)
	if err != nil {
		return fmt.Errorf("create business: %w", err)
	}
	return nil
}

func (r *BusinessRepo) Get(ctx context.Context, id string) (*domain.Business, error) {
	b := &domain.Business{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(landing_url,''), reward_type,
		       reward_amount, created_at
		FROM businesses
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.LandingURL, &b.RewardType,
		&b.RewardAmount, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, business.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}
