package referral_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/ambassador"
	"github.com/referlabs/referral-engine/internal/service/referral"
)

// memRepo is an in-memory referral repository. Complete holds the mutex for
// the whole check-and-set, mirroring the single conditional UPDATE the real
// repository issues.
type memRepo struct {
	mu        sync.Mutex
	referrals map[string]*domain.Referral
	byOrder   map[string]string // businessID+"/"+lower(orderRef) → referral id
}

func newMemRepo() *memRepo {
	return &memRepo{
		referrals: make(map[string]*domain.Referral),
		byOrder:   make(map[string]string),
	}
}

func (m *memRepo) Create(_ context.Context, r *domain.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.referrals[cp.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, businessID, id string) (*domain.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[id]
	if !ok || r.BusinessID != businessID {
		return nil, referral.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) FindOrCreateByOrderReference(_ context.Context, r *domain.Referral) (*domain.Referral, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := r.BusinessID + "/" + *r.OrderReference
	if id, ok := m.byOrder[key]; ok {
		cp := *m.referrals[id]
		return &cp, false, nil
	}
	cp := *r
	m.referrals[cp.ID] = &cp
	m.byOrder[key] = cp.ID
	out := cp
	return &out, true, nil
}

func (m *memRepo) Complete(_ context.Context, p referral.CompleteParams) (*domain.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[p.ReferralID]
	if !ok || r.BusinessID != p.BusinessID {
		return nil, referral.ErrNotFound
	}
	if r.Status != domain.ReferralPending {
		// Wrapped like a real repository would; the service must match
		// the sentinel through the wrapping.
		return nil, fmt.Errorf("referral %s: %w", p.ReferralID, referral.ErrAlreadyCompleted)
	}
	r.Status = domain.ReferralCompleted
	r.TransactionValue = p.TransactionValue
	r.TransactionDate = p.TransactionDate
	rt := p.RewardType
	amt := p.RewardAmount
	r.RewardType = &rt
	r.RewardAmount = &amt
	r.ServiceType = p.ServiceType
	cp := *r
	return &cp, nil
}

// memDirectory is a minimal ambassador directory.
type memDirectory struct {
	mu          sync.Mutex
	ambassadors map[string]*domain.Ambassador
	getErr      error // forced storage failure
}

func newMemDirectory(ambs ...*domain.Ambassador) *memDirectory {
	d := &memDirectory{ambassadors: make(map[string]*domain.Ambassador)}
	for _, a := range ambs {
		d.ambassadors[a.ID] = a
	}
	return d
}

func (d *memDirectory) Get(_ context.Context, businessID, id string) (*domain.Ambassador, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.getErr != nil {
		return nil, d.getErr
	}
	a, ok := d.ambassadors[id]
	if !ok || a.BusinessID != businessID {
		return nil, ambassador.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (d *memDirectory) MarkVerified(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.ambassadors[id]; ok && a.Status == domain.AmbassadorPending {
		a.Status = domain.AmbassadorVerified
	}
	return nil
}

func (d *memDirectory) MarkActive(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.ambassadors[id]; ok {
		a.Status = domain.AmbassadorActive
	}
	return nil
}

type countingSettler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSettler) Settle(context.Context, *domain.Ambassador, *domain.Referral) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []domain.ReferralEvent
}

func (m *memEvents) Append(_ context.Context, ev domain.ReferralEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memEvents) count(t domain.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.EventType == t {
			n++
		}
	}
	return n
}

const bizID = "biz-1"

func fixture() (*referral.Service, *memRepo, *memDirectory, *countingSettler, *memEvents) {
	repo := newMemRepo()
	dir := newMemDirectory(&domain.Ambassador{
		ID: "amb-1", BusinessID: bizID, Name: "A", Status: domain.AmbassadorPending,
	})
	settler := &countingSettler{}
	events := &memEvents{}
	svc := referral.NewService(repo, dir, events, settler)
	return svc, repo, dir, settler, events
}

func policy() domain.RewardPolicy {
	return domain.RewardPolicy{Type: domain.RewardCredit, Amount: decimal.RequireFromString("25.00")}
}

func TestCreatePending(t *testing.T) {
	svc, _, dir, _, events := fixture()

	r, err := svc.Create(context.Background(), referral.CreateInput{
		BusinessID: bizID, AmbassadorID: "amb-1",
		ReferredEmail: "friend@example.com", ConsentGiven: true, Locale: "en",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != domain.ReferralPending {
		t.Fatalf("status = %s, want pending", r.Status)
	}
	if events.count(domain.EventSignupSubmitted) != 1 {
		t.Fatal("expected one signup_submitted event")
	}
	amb, _ := dir.Get(context.Background(), bizID, "amb-1")
	if amb.Status != domain.AmbassadorVerified {
		t.Fatalf("ambassador status = %s, want verified", amb.Status)
	}
}

func TestCreateBusinessMismatch(t *testing.T) {
	svc, _, _, _, events := fixture()

	_, err := svc.Create(context.Background(), referral.CreateInput{
		BusinessID: "other-biz", AmbassadorID: "amb-1",
	})
	if !errors.Is(err, referral.ErrAmbassadorMismatch) {
		t.Fatalf("expected ErrAmbassadorMismatch, got %v", err)
	}
	if events.count(domain.EventSignupSubmitted) != 0 {
		t.Fatal("mismatch must not emit events")
	}
}

func TestCreateDirectoryOutageIsRetryable(t *testing.T) {
	svc, _, dir, _, _ := fixture()
	dir.getErr = errors.New("connection refused")

	// A storage failure is not a bad request; the mismatch sentinel is
	// reserved for referrals pointing at the wrong business.
	_, err := svc.Create(context.Background(), referral.CreateInput{
		BusinessID: bizID, AmbassadorID: "amb-1",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, referral.ErrAmbassadorMismatch) {
		t.Fatalf("storage outage misclassified as mismatch: %v", err)
	}
	if !errors.Is(err, dir.getErr) {
		t.Fatalf("storage error not propagated: %v", err)
	}
}

func TestCompleteOnce(t *testing.T) {
	svc, _, _, settler, events := fixture()
	ctx := context.Background()

	r, _ := svc.Create(ctx, referral.CreateInput{BusinessID: bizID, AmbassadorID: "amb-1"})

	val := decimal.RequireFromString("100.00")
	now := time.Now()
	got, completedNow, err := svc.Complete(ctx, referral.CompleteInput{
		BusinessID: bizID, ReferralID: r.ID,
		TransactionValue: &val, TransactionDate: &now, Policy: policy(),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !completedNow {
		t.Fatal("first completion should report completedNow")
	}
	if got.Status != domain.ReferralCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	if settler.calls != 1 {
		t.Fatalf("settler calls = %d, want 1", settler.calls)
	}
	if events.count(domain.EventConversionCompleted) != 1 {
		t.Fatal("expected one conversion_completed event")
	}
}

func TestCompleteIdempotent(t *testing.T) {
	svc, _, _, settler, events := fixture()
	ctx := context.Background()

	r, _ := svc.Create(ctx, referral.CreateInput{BusinessID: bizID, AmbassadorID: "amb-1"})

	if _, _, err := svc.Complete(ctx, referral.CompleteInput{
		BusinessID: bizID, ReferralID: r.ID, Policy: policy(),
	}); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	// Second call, even with a different payload, is a no-op success.
	other := decimal.RequireFromString("999.99")
	got, completedNow, err := svc.Complete(ctx, referral.CompleteInput{
		BusinessID: bizID, ReferralID: r.ID,
		TransactionValue: &other, Policy: policy(),
	})
	if err != nil {
		t.Fatalf("replay complete: %v", err)
	}
	if completedNow {
		t.Fatal("replay must not report completedNow")
	}
	if got.Status != domain.ReferralCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	if settler.calls != 1 {
		t.Fatalf("settler calls = %d, want exactly 1", settler.calls)
	}
	if events.count(domain.EventConversionCompleted) != 1 {
		t.Fatal("replay must not re-emit conversion_completed")
	}
}

func TestCompleteConcurrent(t *testing.T) {
	svc, _, _, settler, _ := fixture()
	ctx := context.Background()

	r, _ := svc.Create(ctx, referral.CreateInput{BusinessID: bizID, AmbassadorID: "amb-1"})

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, completedNow, err := svc.Complete(ctx, referral.CompleteInput{
				BusinessID: bizID, ReferralID: r.ID, Policy: policy(),
			})
			if err != nil {
				t.Errorf("complete: %v", err)
				return
			}
			wins <- completedNow
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if settler.calls != 1 {
		t.Fatalf("settler calls = %d, want exactly 1", settler.calls)
	}
}

func TestCompleteUnknownReferral(t *testing.T) {
	svc, _, _, _, _ := fixture()

	_, _, err := svc.Complete(context.Background(), referral.CompleteInput{
		BusinessID: bizID, ReferralID: "nope", Policy: policy(),
	})
	if err != referral.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteWrongBusiness(t *testing.T) {
	svc, _, _, _, _ := fixture()
	ctx := context.Background()

	r, _ := svc.Create(ctx, referral.CreateInput{BusinessID: bizID, AmbassadorID: "amb-1"})

	_, _, err := svc.Complete(ctx, referral.CompleteInput{
		BusinessID: "other-biz", ReferralID: r.ID, Policy: policy(),
	})
	if err != referral.ErrNotFound {
		t.Fatalf("expected ErrNotFound for wrong business, got %v", err)
	}
}

func TestFindOrCreatePendingIdempotent(t *testing.T) {
	svc, _, dir, _, events := fixture()
	ctx := context.Background()
	amb, _ := dir.Get(ctx, bizID, "amb-1")

	r1, err := svc.FindOrCreatePending(ctx, bizID, amb, "ORDER-1", "webhook")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	r2, err := svc.FindOrCreatePending(ctx, bizID, amb, "ORDER-1", "webhook")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if r1.ID != r2.ID {
		t.Fatalf("same order reference produced two referrals: %s vs %s", r1.ID, r2.ID)
	}
	if events.count(domain.EventSignupSubmitted) != 1 {
		t.Fatal("replayed find-or-create must not re-emit signup_submitted")
	}
}
