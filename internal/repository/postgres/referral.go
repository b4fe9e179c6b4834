package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/referral"
)

// ReferralRepo implements referral.Repository and settlement.RewardStamper
// against PostgreSQL.
type ReferralRepo struct{ db *sql.DB }

// NewReferralRepo creates a Postgres-backed referral repository.
func NewReferralRepo(db *sql.DB) *ReferralRepo { return &ReferralRepo{db: db} }

const referralCols = `
	id, business_id, ambassador_id, COALESCE(referred_name,''),
	COALESCE(referred_email,''), COALESCE(referred_phone,''), status,
	consent_given, COALESCE(locale,''), order_reference,
	transaction_value, transaction_date, reward_type, reward_amount,
	rewarded_at, service_type, campaign_id, created_by, created_at, updated_at`

func scanReferral(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Referral, error) {
	var (
		ref         domain.Referral
		txnValue    decimal.NullDecimal
		rewardAmt   decimal.NullDecimal
		rewardType  sql.NullString
		txnDate     sql.NullTime
		rewardedAt  sql.NullTime
		orderRef    sql.NullString
		serviceType sql.NullString
		campaignID  sql.NullString
		createdBy   sql.NullString
	)
	err := row.Scan(
		&ref.ID, &ref.BusinessID, &ref.AmbassadorID, &ref.ReferredName,
		&ref.ReferredEmail, &ref.ReferredPhone, &ref.Status,
		&ref.ConsentGiven, &ref.Locale, &orderRef,
		&txnValue, &txnDate, &rewardType, &rewardAmt,
		&rewardedAt, &serviceType, &campaignID, &createdBy,
		&ref.CreatedAt, &ref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if orderRef.Valid {
		ref.OrderReference = &orderRef.String
	}
	if txnValue.Valid {
		ref.TransactionValue = &txnValue.Decimal
	}
	if txnDate.Valid {
		ref.TransactionDate = &txnDate.Time
	}
	if rewardType.Valid {
		rt := domain.RewardType(rewardType.String)
		ref.RewardType = &rt
	}
	if rewardAmt.Valid {
		ref.RewardAmount = &rewardAmt.Decimal
	}
	if rewardedAt.Valid {
		ref.RewardedAt = &rewardedAt.Time
	}
	if serviceType.Valid {
		ref.ServiceType = &serviceType.String
	}
	if campaignID.Valid {
		ref.CampaignID = &campaignID.String
	}
	if createdBy.Valid {
		ref.CreatedBy = &createdBy.String
	}
	return &ref, nil
}

func (r *ReferralRepo) Create(ctx context.Context, ref *domain.Referral) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO referrals (id, business_id, ambassador_id, referred_name,
			referred_email, referred_phone, status, consent_given, locale,
			order_reference, campaign_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''),
			$7, $8, NULLIF($9,''), $10, $11, $12, NOW(), NOW())
	`, ref.ID, ref.BusinessID, ref.AmbassadorID, ref.ReferredName,
		ref.ReferredEmail, ref.ReferredPhone, ref.Status, ref.ConsentGiven,
		ref.Locale, ref.OrderReference, ref.CampaignID, ref.CreatedBy)
	if err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

func (r *ReferralRepo) Get(ctx context.Context, businessID, id string) (*domain.Referral, error) {
	ref, err := scanReferral(r.db.QueryRowContext(ctx, `
		SELECT `+referralCols+`
		FROM referrals
		WHERE id = $1 AND business_id = $2
	`, id, businessID))
	if err == sql.ErrNoRows {
		return nil, referral.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get referral: %w", err)
	}
	return ref, nil
}

// FindOrCreateByOrderReference races safely on the unique
// (business_id, lower(order_reference)) index. The insert does nothing on
// conflict, then the surviving row is read back.
func (r *ReferralRepo) FindOrCreateByOrderReference(ctx context.Context, ref *domain.Referral) (*domain.Referral, bool, error) {
	if ref.OrderReference == nil || *ref.OrderReference == "" {
		return nil, false, fmt.Errorf("order reference is required")
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO referrals (id, business_id, ambassador_id, referred_name,
			referred_email, referred_phone, status, consent_given, locale,
			order_reference, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''),
			$7, $8, NULLIF($9,''), $10, $11, NOW(), NOW())
		ON CONFLICT (business_id, lower(order_reference)) DO NOTHING
	`, ref.ID, ref.BusinessID, ref.AmbassadorID, ref.ReferredName,
		ref.ReferredEmail, ref.ReferredPhone, ref.Status, ref.ConsentGiven,
		ref.Locale, *ref.OrderReference, ref.CreatedBy)
	if err != nil {
		return nil, false, fmt.Errorf("insert referral by order reference: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert referral by order reference: %w", err)
	}

	row, err := scanReferral(r.db.QueryRowContext(ctx, `
		SELECT `+referralCols+`
		FROM referrals
		WHERE business_id = $1 AND lower(order_reference) = lower($2)
	`, ref.BusinessID, *ref.OrderReference))
	if err != nil {
		return nil, false, fmt.Errorf("load referral by order reference: %w", err)
	}
	return row, inserted == 1, nil
}

// Complete performs the pending→completed transition as one conditional
// update. Exactly one caller can win; losers are told why.
func (r *ReferralRepo) Complete(ctx context.Context, p referral.CompleteParams) (*domain.Referral, error) {
	var txnValue decimal.NullDecimal
	if p.TransactionValue != nil {
		txnValue = decimal.NullDecimal{Decimal: *p.TransactionValue, Valid: true}
	}
	txnDate := time.Now().UTC()
	if p.TransactionDate != nil {
		txnDate = *p.TransactionDate
	}

	ref, err := scanReferral(r.db.QueryRowContext(ctx, `
		UPDATE referrals
		SET status = 'completed',
		    transaction_value = $3,
		    transaction_date = $4,
		    reward_type = $5,
		    reward_amount = $6,
		    service_type = COALESCE($7, service_type),
		    updated_at = NOW()
		WHERE id = $2 AND business_id = $1 AND status = 'pending'
		RETURNING `+referralCols+`
	`, p.BusinessID, p.ReferralID, txnValue, txnDate,
		string(p.RewardType), p.RewardAmount, p.ServiceType))
	if err == nil {
		return ref, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("complete referral: %w", err)
	}

	// Lost the conditional write. Distinguish a missing row from a row
	// that already reached the terminal state.
	var status string
	err = r.db.QueryRowContext(ctx, `
		SELECT status FROM referrals WHERE id = $1 AND business_id = $2
	`, p.ReferralID, p.BusinessID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, referral.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("complete referral status probe: %w", err)
	}
	return nil, referral.ErrAlreadyCompleted
}

// StampRewarded sets rewarded_at at most once.
func (r *ReferralRepo) StampRewarded(ctx context.Context, businessID, referralID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE referrals
		SET rewarded_at = $3, updated_at = NOW()
		WHERE id = $2 AND business_id = $1 AND rewarded_at IS NULL
	`, businessID, referralID, at)
	if err != nil {
		return fmt.Errorf("stamp rewarded: %w", err)
	}
	return nil
}
