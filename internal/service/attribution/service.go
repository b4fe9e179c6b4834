package attribution

import (
	"context"
	"strings"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
)

// Service resolves inbound signals to ambassadors.
type Service struct {
	repo Repository
}

// NewService creates an attribution resolver backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ByReferralCode resolves a referral-link code to its ambassador.
func (s *Service) ByReferralCode(ctx context.Context, code string) (*domain.Ambassador, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	matches, err := s.repo.ByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return single(matches, "referral_code", code)
}

// ByDiscountCode resolves a checkout discount code to its ambassador.
func (s *Service) ByDiscountCode(ctx context.Context, code string) (*domain.Ambassador, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	matches, err := s.repo.ByDiscountCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return single(matches, "discount_code", code)
}

// ByID resolves an explicit ambassador id (manual selection).
func (s *Service) ByID(ctx context.Context, id string) (*domain.Ambassador, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrBlankCode
	}
	return s.repo.ByID(ctx, id)
}

// normalizeCode trims and lowercases a lookup code. Blank input is a
// validation error, never a NotFound.
func normalizeCode(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", ErrBlankCode
	}
	return code, nil
}

func single(matches []domain.Ambassador, kind, code string) (*domain.Ambassador, error) {
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		a := matches[0]
		return &a, nil
	default:
		logger.Error("code uniqueness violated", "kind", kind, "code", code, "matches", len(matches))
		return nil, ErrAmbiguous
	}
}
