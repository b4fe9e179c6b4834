package attribution_test

import (
	"context"
	"strings"
	"testing"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/attribution"
)

// memRepo is an in-memory lookup repository for unit testing.
type memRepo struct {
	ambassadors []domain.Ambassador
}

func (m *memRepo) ByReferralCode(_ context.Context, code string) ([]domain.Ambassador, error) {
	var out []domain.Ambassador
	for _, a := range m.ambassadors {
		if strings.ToLower(a.ReferralCode) == code {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) ByDiscountCode(_ context.Context, code string) ([]domain.Ambassador, error) {
	var out []domain.Ambassador
	for _, a := range m.ambassadors {
		if strings.ToLower(a.DiscountCode) == code {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) ByID(_ context.Context, id string) (*domain.Ambassador, error) {
	for _, a := range m.ambassadors {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, attribution.ErrNotFound
}

func newSvc(ambs ...domain.Ambassador) *attribution.Service {
	return attribution.NewService(&memRepo{ambassadors: ambs})
}

func TestByDiscountCodeCaseInsensitive(t *testing.T) {
	svc := newSvc(domain.Ambassador{ID: "a1", DiscountCode: "VIP100"})

	for _, code := range []string{"VIP100", "vip100", "  Vip100  "} {
		got, err := svc.ByDiscountCode(context.Background(), code)
		if err != nil {
			t.Fatalf("resolve %q: %v", code, err)
		}
		if got.ID != "a1" {
			t.Fatalf("resolve %q: got %s", code, got.ID)
		}
	}
}

func TestByReferralCodeNotFound(t *testing.T) {
	svc := newSvc(domain.Ambassador{ID: "a1", ReferralCode: "ABC123"})
	_, err := svc.ByReferralCode(context.Background(), "XYZ999")
	if err != attribution.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBlankCodeIsValidationError(t *testing.T) {
	svc := newSvc()
	for _, code := range []string{"", "   ", "\t"} {
		if _, err := svc.ByDiscountCode(context.Background(), code); err != attribution.ErrBlankCode {
			t.Fatalf("blank %q: expected ErrBlankCode, got %v", code, err)
		}
	}
	if _, err := svc.ByID(context.Background(), " "); err != attribution.ErrBlankCode {
		t.Fatalf("blank id: expected ErrBlankCode, got %v", err)
	}
}

func TestAmbiguousIsIntegrityError(t *testing.T) {
	svc := newSvc(
		domain.Ambassador{ID: "a1", DiscountCode: "save10"},
		domain.Ambassador{ID: "a2", DiscountCode: "SAVE10"},
	)
	_, err := svc.ByDiscountCode(context.Background(), "SAVE10")
	if err != attribution.ErrAmbiguous {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
}

func TestByID(t *testing.T) {
	svc := newSvc(domain.Ambassador{ID: "a1", ReferralCode: "ABC123"})
	got, err := svc.ByID(context.Background(), "a1")
	if err != nil || got.ID != "a1" {
		t.Fatalf("ByID: %v %v", got, err)
	}
}
