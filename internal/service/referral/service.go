package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
	"github.com/referlabs/referral-engine/internal/service/ambassador"
	"github.com/referlabs/referral-engine/internal/service/eventlog"
)

// AmbassadorDirectory is the slice of the ambassador service the lifecycle
// needs: existence/ownership checks and engagement-driven status advances.
type AmbassadorDirectory interface {
	Get(ctx context.Context, businessID, id string) (*domain.Ambassador, error)
	MarkVerified(ctx context.Context, id string) error
	MarkActive(ctx context.Context, id string) error
}

// Settler releases the reward for a referral this service just completed.
type Settler interface {
	Settle(ctx context.Context, amb *domain.Ambassador, ref *domain.Referral) error
}

// Service drives referrals through their lifecycle.
type Service struct {
	repo        Repository
	ambassadors AmbassadorDirectory
	events      eventlog.Recorder
	settler     Settler
}

// NewService creates a referral lifecycle service.
func NewService(repo Repository, ambassadors AmbassadorDirectory, events eventlog.Recorder, settler Settler) *Service {
	return &Service{repo: repo, ambassadors: ambassadors, events: events, settler: settler}
}

// CreateInput holds the fields for recording a new referral.
type CreateInput struct {
	BusinessID    string
	AmbassadorID  string
	ReferredName  string
	ReferredEmail string
	ReferredPhone string
	ConsentGiven  bool
	Locale        string
	CampaignID    string
	CreatedBy     string
}

// Create records a new pending referral and emits signup_submitted. The
// ambassador must exist and belong to the same business; a mismatch is a
// terminal validation error, never retried.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Referral, error) {
	if input.BusinessID == "" || input.AmbassadorID == "" {
		return nil, fmt.Errorf("business_id and ambassador_id are required: %w", ErrAmbassadorMismatch)
	}

	amb, err := s.ambassadors.Get(ctx, input.BusinessID, input.AmbassadorID)
	if errors.Is(err, ambassador.ErrNotFound) {
		return nil, fmt.Errorf("ambassador %s: %w", input.AmbassadorID, ErrAmbassadorMismatch)
	}
	if err != nil {
		// Storage trouble, not a bad request; the caller may retry.
		return nil, fmt.Errorf("load ambassador %s: %w", input.AmbassadorID, err)
	}

	r := &domain.Referral{
		ID:            uuid.New().String(),
		BusinessID:    input.BusinessID,
		AmbassadorID:  amb.ID,
		ReferredName:  strings.TrimSpace(input.ReferredName),
		ReferredEmail: strings.TrimSpace(input.ReferredEmail),
		ReferredPhone: strings.TrimSpace(input.ReferredPhone),
		Status:        domain.ReferralPending,
		ConsentGiven:  input.ConsentGiven,
		Locale:        input.Locale,
	}
	if input.CampaignID != "" {
		r.CampaignID = &input.CampaignID
	}
	if input.CreatedBy != "" {
		r.CreatedBy = &input.CreatedBy
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, domain.ReferralEvent{
		BusinessID:   r.BusinessID,
		AmbassadorID: &r.AmbassadorID,
		ReferralID:   &r.ID,
		EventType:    domain.EventSignupSubmitted,
		Metadata:     map[string]any{"locale": r.Locale, "consent": r.ConsentGiven},
	})

	// First confirmed engagement through this ambassador's link.
	if err := s.ambassadors.MarkVerified(ctx, amb.ID); err != nil {
		logger.Warn("ambassador verify failed", "ambassador_id", amb.ID, "error", err)
	}

	return r, nil
}

// CompleteInput holds the fields for completing a referral.
type CompleteInput struct {
	BusinessID       string
	ReferralID       string
	TransactionValue *decimal.Decimal
	TransactionDate  *time.Time
	Policy           domain.RewardPolicy
	ServiceType      string
}

// Complete transitions a referral to completed and settles its reward.
//
// The transition is one conditional write; if the referral is already
// completed the call is a no-op success (completedNow=false) and neither
// events nor the settlement engine fire again. This is the idempotency
// guard the webhook gateway relies on under at-least-once redelivery.
func (s *Service) Complete(ctx context.Context, input CompleteInput) (ref *domain.Referral, completedNow bool, err error) {
	p := CompleteParams{
		BusinessID:       input.BusinessID,
		ReferralID:       input.ReferralID,
		TransactionValue: input.TransactionValue,
		TransactionDate:  input.TransactionDate,
		RewardType:       input.Policy.Type,
		RewardAmount:     input.Policy.Amount,
	}
	if input.ServiceType != "" {
		p.ServiceType = &input.ServiceType
	}

	ref, err = s.repo.Complete(ctx, p)
	if errors.Is(err, ErrAlreadyCompleted) {
		prior, getErr := s.repo.Get(ctx, input.BusinessID, input.ReferralID)
		if getErr != nil {
			return nil, false, getErr
		}
		return prior, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.appendEvent(ctx, domain.ReferralEvent{
		BusinessID:   ref.BusinessID,
		AmbassadorID: &ref.AmbassadorID,
		ReferralID:   &ref.ID,
		EventType:    domain.EventConversionCompleted,
		Metadata:     completionMetadata(ref),
	})

	amb, err := s.ambassadors.Get(ctx, ref.BusinessID, ref.AmbassadorID)
	if err != nil {
		return nil, false, fmt.Errorf("load ambassador for settlement: %w", err)
	}

	if err := s.settler.Settle(ctx, amb, ref); err != nil {
		// The referral is durably completed but the reward is not
		// applied. The completed-but-unstamped row is the reconciliation
		// marker; an operator (or a sweep) re-runs settlement from it.
		logger.Error("settlement failed, reconciliation required",
			"business_id", ref.BusinessID, "referral_id", ref.ID,
			"ambassador_id", ref.AmbassadorID, "error", err)
		return ref, true, fmt.Errorf("settle referral %s: %w", ref.ID, err)
	}

	if err := s.ambassadors.MarkActive(ctx, ref.AmbassadorID); err != nil {
		logger.Warn("ambassador activate failed", "ambassador_id", ref.AmbassadorID, "error", err)
	}

	return ref, true, nil
}

// Get returns a single referral.
func (s *Service) Get(ctx context.Context, businessID, id string) (*domain.Referral, error) {
	return s.repo.Get(ctx, businessID, id)
}

// FindOrCreatePending locates the referral for an order reference or
// creates a new pending one attributed to the given ambassador. Safe to
// call concurrently for the same order reference.
func (s *Service) FindOrCreatePending(ctx context.Context, businessID string, amb *domain.Ambassador, orderRef, createdBy string) (*domain.Referral, error) {
	orderRef = strings.TrimSpace(orderRef)
	r := &domain.Referral{
		ID:             uuid.New().String(),
		BusinessID:     businessID,
		AmbassadorID:   amb.ID,
		Status:         domain.ReferralPending,
		OrderReference: &orderRef,
	}
	if createdBy != "" {
		r.CreatedBy = &createdBy
	}

	got, created, err := s.repo.FindOrCreateByOrderReference(ctx, r)
	if err != nil {
		return nil, err
	}
	if created {
		s.appendEvent(ctx, domain.ReferralEvent{
			BusinessID:   got.BusinessID,
			AmbassadorID: &got.AmbassadorID,
			ReferralID:   &got.ID,
			EventType:    domain.EventSignupSubmitted,
			Metadata:     map[string]any{"order_reference": orderRef, "source": "redemption"},
		})
	}
	return got, nil
}

func (s *Service) appendEvent(ctx context.Context, ev domain.ReferralEvent) {
	if err := s.events.Append(ctx, ev); err != nil {
		logger.Warn("event append failed", "event_type", string(ev.EventType), "error", err)
	}
}

func completionMetadata(ref *domain.Referral) map[string]any {
	md := map[string]any{}
	if ref.TransactionValue != nil {
		md["transaction_value"] = ref.TransactionValue.String()
	}
	if ref.OrderReference != nil {
		md["order_reference"] = *ref.OrderReference
	}
	if ref.ServiceType != nil {
		md["service_type"] = *ref.ServiceType
	}
	return md
}
