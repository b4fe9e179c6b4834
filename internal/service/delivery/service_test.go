package delivery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/service/delivery"
)

type memRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.CampaignMessage // by id
	byPMID   map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		messages: make(map[string]*domain.CampaignMessage),
		byPMID:   make(map[string]string),
	}
}

func (m *memRepo) Create(_ context.Context, msg *domain.CampaignMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[cp.ID] = &cp
	m.byPMID[cp.ProviderMessageID] = cp.ID
	return nil
}

func (m *memRepo) ByProviderMessageID(_ context.Context, pmid string) (*domain.CampaignMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPMID[pmid]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	cp := *m.messages[id]
	return &cp, nil
}

func (m *memRepo) ApplyStatus(_ context.Context, id string, status domain.MessageStatus, deliveredAt *time.Time, errMsg string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.Status.IsTerminal() {
		return 0, nil
	}
	msg.Status = status
	msg.DeliveredAt = deliveredAt
	msg.Error = errMsg
	return 1, nil
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

func fixture() (*delivery.Service, *memRepo, *memEvents) {
	repo := newMemRepo()
	events := &memEvents{}
	return delivery.NewService(repo, events), repo, events
}

func register(t *testing.T, svc *delivery.Service, pmid string) *domain.CampaignMessage {
	t.Helper()
	m, err := svc.Register(context.Background(), delivery.RegisterInput{
		BusinessID: "biz-1", CustomerID: "cust-1", CampaignID: "camp-1",
		ProviderMessageID: pmid, Channel: "sms",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return m
}

func TestApplyDelivered(t *testing.T) {
	svc, repo, events := fixture()
	register(t, svc, "SM123")

	if err := svc.ApplyStatus(context.Background(), "SM123", domain.MessageDelivered, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := repo.ByProviderMessageID(context.Background(), "SM123")
	if got.Status != domain.MessageDelivered || got.DeliveredAt == nil {
		t.Fatalf("message = %+v", got)
	}
	if len(events.events) != 1 || events.events[0].EventType != domain.EventCampaignMessageDelivered {
		t.Fatalf("events = %+v", events.events)
	}
}

func TestApplyFailedRecordsError(t *testing.T) {
	svc, repo, events := fixture()
	register(t, svc, "SM124")

	if err := svc.ApplyStatus(context.Background(), "SM124", domain.MessageFailed, "carrier rejected"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := repo.ByProviderMessageID(context.Background(), "SM124")
	if got.Status != domain.MessageFailed || got.Error != "carrier rejected" {
		t.Fatalf("message = %+v", got)
	}
	if events.events[0].EventType != domain.EventCampaignMessageFailed {
		t.Fatalf("event type = %s", events.events[0].EventType)
	}
}

func TestTerminalReplayIsNoOp(t *testing.T) {
	svc, _, events := fixture()
	register(t, svc, "SM125")
	ctx := context.Background()

	svc.ApplyStatus(ctx, "SM125", domain.MessageDelivered, "")
	if err := svc.ApplyStatus(ctx, "SM125", domain.MessageDelivered, ""); err != nil {
		t.Fatalf("replay: %v", err)
	}
	// Terminal states never transition again, even to the other terminal.
	if err := svc.ApplyStatus(ctx, "SM125", domain.MessageFailed, "late failure"); err != nil {
		t.Fatalf("post-terminal: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("events = %d, want 1", len(events.events))
	}
}

func TestUnknownCorrelation(t *testing.T) {
	svc, _, _ := fixture()
	err := svc.ApplyStatus(context.Background(), "unknown", domain.MessageDelivered, "")
	if err != delivery.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNonTerminalStatusRejected(t *testing.T) {
	svc, _, _ := fixture()
	register(t, svc, "SM126")
	if err := svc.ApplyStatus(context.Background(), "SM126", domain.MessageSent, ""); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}
