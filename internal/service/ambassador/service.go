package ambassador

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
)

// Service implements ambassador business logic.
type Service struct {
	repo Repository
}

// NewService creates an ambassador service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput holds the fields for quick-adding an ambassador. Codes are
// optional; missing ones are generated.
type CreateInput struct {
	BusinessID   string `json:"business_id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// Create quick-adds an ambassador in pending status with zero credits.
// Explicit codes that collide return ErrCodeTaken; generated codes retry on
// collision a few times before giving up.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Ambassador, error) {
	if input.BusinessID == "" {
		return nil, fmt.Errorf("business_id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}

	// A collision involving an explicitly supplied code can never be
	// resolved by regenerating the other one.
	explicit := input.ReferralCode != "" || input.DiscountCode != ""

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		a := &domain.Ambassador{
			ID:           uuid.New().String(),
			BusinessID:   input.BusinessID,
			Name:         strings.TrimSpace(input.Name),
			Email:        strings.TrimSpace(input.Email),
			Phone:        strings.TrimSpace(input.Phone),
			ReferralCode: input.ReferralCode,
			DiscountCode: input.DiscountCode,
			Credits:      decimal.Zero,
			Status:       domain.AmbassadorPending,
		}
		if a.ReferralCode == "" {
			a.ReferralCode = generateCode(6)
		}
		if a.DiscountCode == "" {
			a.DiscountCode = generateCode(8)
		}

		err := s.repo.Create(ctx, a)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, ErrCodeTaken) || explicit {
			return nil, err
		}
		logger.Debug("generated code collided, retrying", "attempt", attempt+1)
	}
	return nil, fmt.Errorf("could not generate unique codes: %w", ErrCodeTaken)
}

// Get returns a single ambassador.
func (s *Service) Get(ctx context.Context, businessID, id string) (*domain.Ambassador, error) {
	return s.repo.Get(ctx, businessID, id)
}

// MarkVerified advances a pending ambassador to verified. Called on the
// first confirmed engagement (a signup through their link). No-op for any
// other current status.
func (s *Service) MarkVerified(ctx context.Context, id string) error {
	return s.repo.AdvanceStatus(ctx, id, domain.AmbassadorPending, domain.AmbassadorVerified)
}

// MarkActive advances a verified ambassador to active. Called when one of
// their referrals completes. No-op for any other current status.
func (s *Service) MarkActive(ctx context.Context, id string) error {
	if err := s.repo.AdvanceStatus(ctx, id, domain.AmbassadorPending, domain.AmbassadorVerified); err != nil {
		return err
	}
	return s.repo.AdvanceStatus(ctx, id, domain.AmbassadorVerified, domain.AmbassadorActive)
}

// codeAlphabet avoids ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func generateCode(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	out := make([]byte, n)
	for i, c := range b {
		out[i] = codeAlphabet[int(c)%len(codeAlphabet)]
	}
	return string(out)
}
