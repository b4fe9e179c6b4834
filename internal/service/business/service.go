// Package business exposes tenant records and their reward policy. The
// policy is read at completion time and snapshotted onto the referral, so
// later policy edits never rewrite past payouts.
package business

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
)

// Service implements business logic for tenants.
type Service struct {
	repo Repository
}

// NewService creates a business service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput holds the fields for onboarding a business.
type CreateInput struct {
	Name         string `json:"name"`
	LandingURL   string `json:"landing_url"`
	RewardType   string `json:"reward_type"`
	RewardAmount string `json:"reward_amount"`
}

// Create onboards a business with its reward policy.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Business, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	amount := decimal.Zero
	if input.RewardAmount != "" {
		var err error
		if amount, err = decimal.NewFromString(input.RewardAmount); err != nil {
			return nil, fmt.Errorf("invalid reward_amount: %w", err)
		}
	}
	rewardType := domain.RewardType(input.RewardType)
	if rewardType == "" {
		rewardType = domain.RewardCredit
	}

	b := &domain.Business{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		LandingURL:   input.LandingURL,
		RewardType:   rewardType,
		RewardAmount: amount,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns a single business.
func (s *Service) Get(ctx context.Context, id string) (*domain.Business, error) {
	return s.repo.Get(ctx, id)
}

// RewardPolicy returns the current reward settings for a business.
func (s *Service) RewardPolicy(ctx context.Context, id string) (domain.RewardPolicy, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.RewardPolicy{}, err
	}
	return domain.RewardPolicy{Type: b.RewardType, Amount: b.RewardAmount}, nil
}
