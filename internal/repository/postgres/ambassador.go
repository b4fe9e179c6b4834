package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/ambassador"
	"github.com/referlabs/referral-engine/internal/service/attribution"
)

// AmbassadorRepo implements ambassador.Repository, attribution.Repository and
// settlement.CreditStore against PostgreSQL.
type AmbassadorRepo struct{ db *sql.DB }

// NewAmbassadorRepo creates a Postgres-backed ambassador repository.
func NewAmbassadorRepo(db *sql.DB) *AmbassadorRepo { return &AmbassadorRepo{db: db} }

const ambassadorCols = `
	id, business_id, name, COALESCE(email,''), COALESCE(phone,''),
	referral_code, discount_code, credits, status, created_at, updated_at`

func scanAmbassador(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Ambassador, error) {
	a := &domain.Ambassador{}
	err := row.Scan(
		&a.ID, &a.BusinessID, &a.Name, &a.Email, &a.Phone,
		&a.ReferralCode, &a.DiscountCode, &a.Credits, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AmbassadorRepo) Create(ctx context.Context, a *domain.Ambassador) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ambassadors (id, business_id, name, email, phone,
			referral_code, discount_code, credits, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7, $8, $9, NOW(), NOW())
	`, a.ID, a.BusinessID, a.Name, a.Email, a.Phone,
		a.ReferralCode, a.DiscountCode, a.Credits, a.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ambassador.ErrCodeTaken
		}
		return fmt.Errorf("create ambassador: %w", err)
	}
	return nil
}

func (r *AmbassadorRepo) Get(ctx context.Context, businessID, id string) (*domain.Ambassador, error) {
	a, err := scanAmbassador(r.db.QueryRowContext(ctx, `
		SELECT `+ambassadorCols+`
		FROM ambassadors
		WHERE id = $1 AND business_id = $2
	`, id, businessID))
	if err == sql.ErrNoRows {
		return nil, ambassador.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ambassador: %w", err)
	}
	return a, nil
}

func (r *AmbassadorRepo) ByID(ctx context.Context, id string) (*domain.Ambassador, error) {
	a, err := scanAmbassador(r.db.QueryRowContext(ctx, `
		SELECT `+ambassadorCols+`
		FROM ambassadors
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, attribution.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ambassador by id: %w", err)
	}
	return a, nil
}

func (r *AmbassadorRepo) ByReferralCode(ctx context.Context, code string) ([]domain.Ambassador, error) {
	return r.byCode(ctx, "referral_code", code)
}

func (r *AmbassadorRepo) ByDiscountCode(ctx context.Context, code string) ([]domain.Ambassador, error) {
	return r.byCode(ctx, "discount_code", code)
}

// byCode returns every row matching the normalized code so callers can spot
// uniqueness violations.
func (r *AmbassadorRepo) byCode(ctx context.Context, column, code string) ([]domain.Ambassador, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ambassadorCols+`
		FROM ambassadors
		WHERE LOWER(`+column+`) = $1
		ORDER BY created_at
	`, code)
	if err != nil {
		return nil, fmt.Errorf("lookup ambassador by %s: %w", column, err)
	}
	defer rows.Close()

	var out []domain.Ambassador
	for rows.Next() {
		a, err := scanAmbassador(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ambassador: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AmbassadorRepo) AdvanceStatus(ctx context.Context, id string, from, to domain.AmbassadorStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ambassadors
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("advance ambassador status: %w", err)
	}
	return nil
}

// AddCredits increments the balance in one atomic write and returns the new
// balance. It never reads the old balance first.
func (r *AmbassadorRepo) AddCredits(ctx context.Context, ambassadorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		UPDATE ambassadors
		SET credits = credits + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING credits
	`, ambassadorID, amount).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, ambassador.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("add credits: %w", err)
	}
	return balance, nil
}
