package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ims_backend/internal/campaigns/repository"
	"ims_backend/internal/events"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRecorder struct {
	mu     sync.Mutex
	keys   map[string]bool
	stored []repository.ReportEvent
	failOn string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{keys: map[string]bool{}}
}

func (f *fakeRecorder) RecordReportEvent(_ context.Context, e repository.ReportEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && e.Email == f.failOn {
		return false, errors.New("db down")
	}
	if f.keys[e.DedupeKey] {
		return false, nil
	}
	f.keys[e.DedupeKey] = true
	f.stored = append(f.stored, e)
	return true, nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *fakeMetrics) WebhookEvent(event, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[event+"/"+outcome]++
}

func event(id, name, email string, campaignID uuid.UUID) MandrillEvent {
	return MandrillEvent{
		ID:    id,
		TS:    1767225600,
		Event: name,
		Msg: MandrillMessage{
			ID:       "msg-" + id,
			Email:    email,
			Metadata: map[string]interface{}{"campaignId": campaignID.String()},
		},
	}
}

func TestProcessBatch_StoresEveryElement(t *testing.T) {
	rec := newFakeRecorder()
	svc := NewService(rec, nil, nil, logger.Discard())
	campaignID := uuid.New()

	batch := []MandrillEvent{
		event("1", "send", "a@example.com", campaignID),
		event("2", "open", "a@example.com", campaignID),
		event("3", "delivered", "b@example.com", campaignID),
	}
	click := event("4", "click", "b@example.com", campaignID)
	click.URL = "https://example.com/menu"
	batch = append(batch, click)

	result, err := svc.ProcessBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Received != 4 || result.Stored != 4 {
		t.Fatalf("expected 4 received and stored, got %+v", result)
	}
	if len(rec.stored) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rec.stored))
	}
	last := rec.stored[3]
	if last.ClickURL == nil || *last.ClickURL != "https://example.com/menu" {
		t.Fatalf("expected click url to be kept, got %v", last.ClickURL)
	}
	if last.CampaignID != campaignID {
		t.Fatalf("expected campaign id %s, got %s", campaignID, last.CampaignID)
	}
}

func TestProcessBatch_RetryIsIdempotent(t *testing.T) {
	rec := newFakeRecorder()
	svc := NewService(rec, nil, nil, logger.Discard())
	batch := []MandrillEvent{event("1", "open", "a@example.com", uuid.New())}

	if _, err := svc.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	result, err := svc.ProcessBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.Stored != 0 || result.Skipped != 1 {
		t.Fatalf("expected retry to be skipped, got %+v", result)
	}
	if len(rec.stored) != 1 {
		t.Fatalf("expected one stored row, got %d", len(rec.stored))
	}
}

func TestProcessBatch_SkipsUntrackedEvents(t *testing.T) {
	rec := newFakeRecorder()
	metrics := &fakeMetrics{}
	svc := NewService(rec, nil, metrics, logger.Discard())

	noCampaign := event("1", "open", "a@example.com", uuid.New())
	noCampaign.Msg.Metadata = nil
	badCampaign := event("2", "open", "a@example.com", uuid.New())
	badCampaign.Msg.Metadata = map[string]interface{}{"campaignId": "not-a-uuid"}
	unknown := event("3", "spam", "a@example.com", uuid.New())

	result, err := svc.ProcessBatch(context.Background(), []MandrillEvent{noCampaign, badCampaign, unknown})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != 3 || result.Stored != 0 {
		t.Fatalf("expected all skipped, got %+v", result)
	}
	if metrics.counts["spam/ignored"] != 1 {
		t.Fatalf("expected ignored metric, got %v", metrics.counts)
	}
}

func TestProcessBatch_PartialFailureContinues(t *testing.T) {
	rec := newFakeRecorder()
	rec.failOn = "broken@example.com"
	svc := NewService(rec, nil, nil, logger.Discard())
	campaignID := uuid.New()

	batch := []MandrillEvent{
		event("1", "open", "a@example.com", campaignID),
		event("2", "open", "broken@example.com", campaignID),
		event("3", "open", "c@example.com", campaignID),
	}
	result, err := svc.ProcessBatch(context.Background(), batch)
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if result.Stored != 2 || result.Failed != 1 {
		t.Fatalf("expected 2 stored and 1 failed, got %+v", result)
	}
}

func TestProcessBatch_BouncePublishesEvenWhenDuplicate(t *testing.T) {
	rec := newFakeRecorder()
	bus := events.NewInMemoryBus(logger.Discard())
	var mu sync.Mutex
	var bounced []string
	bus.Subscribe(events.ClientBounced{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		bounced = append(bounced, e.(events.ClientBounced).Email)
		return nil
	}))
	svc := NewService(rec, bus, nil, logger.Discard())
	batch := []MandrillEvent{event("1", "hard_bounce", "gone@example.com", uuid.New())}

	for i := 0; i < 2; i++ {
		if _, err := svc.ProcessBatch(context.Background(), batch); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}
	if len(bounced) != 2 || bounced[0] != "gone@example.com" {
		t.Fatalf("expected bounce published on every pass, got %v", bounced)
	}
}

func TestDedupeKey_DiffersPerClickURL(t *testing.T) {
	a := event("1", "click", "a@example.com", uuid.New())
	b := a
	a.URL = "https://example.com/a"
	b.URL = "https://example.com/b"
	if dedupeKey(a) == dedupeKey(b) {
		t.Fatalf("expected different keys for different urls")
	}
}
