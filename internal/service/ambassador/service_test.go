package ambassador_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/ambassador"
)

// memRepo is an in-memory ambassador repository enforcing global
// case-insensitive code uniqueness, like the real unique indexes do.
type memRepo struct {
	mu          sync.Mutex
	ambassadors map[string]*domain.Ambassador
	creates     int
}

func newMemRepo() *memRepo {
	return &memRepo{ambassadors: make(map[string]*domain.Ambassador)}
}

func (m *memRepo) Create(_ context.Context, a *domain.Ambassador) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	for _, other := range m.ambassadors {
		if strings.EqualFold(other.ReferralCode, a.ReferralCode) ||
			strings.EqualFold(other.DiscountCode, a.DiscountCode) {
			return ambassador.ErrCodeTaken
		}
	}
	cp := *a
	m.ambassadors[cp.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, businessID, id string) (*domain.Ambassador, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.ambassadors[id]
	if !ok || a.BusinessID != businessID {
		return nil, ambassador.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) AdvanceStatus(_ context.Context, id string, from, to domain.AmbassadorStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.ambassadors[id]; ok && a.Status == from {
		a.Status = to
	}
	return nil
}

const bizID = "biz-1"

func TestCreateGeneratesCodes(t *testing.T) {
	svc := ambassador.NewService(newMemRepo())
	a, err := svc.Create(context.Background(), ambassador.CreateInput{
		BusinessID: bizID, Name: "Jamie", Email: "jamie@example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ReferralCode == "" || a.DiscountCode == "" {
		t.Fatal("expected generated codes")
	}
	if a.Status != domain.AmbassadorPending {
		t.Fatalf("status = %s, want pending", a.Status)
	}
	if !a.Credits.IsZero() {
		t.Fatalf("credits = %s, want 0", a.Credits)
	}
}

func TestCreateExplicitCodeCollision(t *testing.T) {
	repo := newMemRepo()
	svc := ambassador.NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, ambassador.CreateInput{
		BusinessID: bizID, Name: "A", ReferralCode: "ABC123", DiscountCode: "SAVE10",
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Case-insensitive collision on explicit codes is an integrity error,
	// not something to retry.
	_, err = svc.Create(ctx, ambassador.CreateInput{
		BusinessID: bizID, Name: "B", ReferralCode: "abc123", DiscountCode: "other99",
	})
	if err == nil {
		t.Fatal("expected ErrCodeTaken")
	}
}

func TestCreateCodeTakenAcrossBusinesses(t *testing.T) {
	// Codes resolve attribution without a business discriminator, so
	// uniqueness holds across businesses, not just within one.
	svc := ambassador.NewService(newMemRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, ambassador.CreateInput{
		BusinessID: "biz-1", Name: "A", ReferralCode: "ABC123", DiscountCode: "SAVE10",
	}); err != nil {
		t.Fatalf("create biz-1: %v", err)
	}
	_, err := svc.Create(ctx, ambassador.CreateInput{
		BusinessID: "biz-2", Name: "B", ReferralCode: "XYZ789", DiscountCode: "SAVE10",
	})
	if !errors.Is(err, ambassador.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken across businesses, got %v", err)
	}
}

func TestCreateSingleExplicitCodeCollisionIsTerminal(t *testing.T) {
	repo := newMemRepo()
	svc := ambassador.NewService(repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, ambassador.CreateInput{
		BusinessID: bizID, Name: "A", ReferralCode: "ABC123", DiscountCode: "SAVE10",
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	before := repo.creates

	// Only the referral code is supplied; regenerating the discount code
	// can never resolve the collision, so there must be no retries.
	_, err := svc.Create(ctx, ambassador.CreateInput{
		BusinessID: bizID, Name: "B", ReferralCode: "abc123",
	})
	if !errors.Is(err, ambassador.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
	if got := repo.creates - before; got != 1 {
		t.Fatalf("create attempts = %d, want 1", got)
	}
}

func TestStatusProgression(t *testing.T) {
	repo := newMemRepo()
	svc := ambassador.NewService(repo)
	ctx := context.Background()

	a, _ := svc.Create(ctx, ambassador.CreateInput{BusinessID: bizID, Name: "A"})

	if err := svc.MarkVerified(ctx, a.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	got, _ := svc.Get(ctx, bizID, a.ID)
	if got.Status != domain.AmbassadorVerified {
		t.Fatalf("status = %s, want verified", got.Status)
	}

	// MarkVerified again is a no-op, not a regression.
	svc.MarkVerified(ctx, a.ID)
	got, _ = svc.Get(ctx, bizID, a.ID)
	if got.Status != domain.AmbassadorVerified {
		t.Fatalf("status regressed to %s", got.Status)
	}

	if err := svc.MarkActive(ctx, a.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, _ = svc.Get(ctx, bizID, a.ID)
	if got.Status != domain.AmbassadorActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
}

func TestMarkActiveFromPending(t *testing.T) {
	// A conversion can land before any signup event verified the
	// ambassador; activation walks through both steps.
	repo := newMemRepo()
	svc := ambassador.NewService(repo)
	ctx := context.Background()

	a, _ := svc.Create(ctx, ambassador.CreateInput{BusinessID: bizID, Name: "A"})
	if err := svc.MarkActive(ctx, a.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, _ := svc.Get(ctx, bizID, a.ID)
	if got.Status != domain.AmbassadorActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
}
