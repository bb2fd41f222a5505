package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"ims_backend/internal/campaigns/domain"
	"ims_backend/internal/campaigns/repository"
	"ims_backend/internal/email"
	"ims_backend/internal/events"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"
	"ims_backend/platform/distlock"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fakeRepo struct {
	campaigns map[uuid.UUID]*repository.Campaign
	order     []uuid.UUID
	reports   map[string]repository.ReportEvent
	// reverseClaims returns claimed rows newest first, like an unordered RETURNING.
	reverseClaims bool
	failMark      map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{campaigns: map[uuid.UUID]*repository.Campaign{}, reports: map[string]repository.ReportEvent{}}
}

func (f *fakeRepo) Create(_ context.Context, c repository.Campaign) (repository.Campaign, error) {
	c.ID = uuid.New()
	c.CreatedAt = testNow
	f.campaigns[c.ID] = &c
	f.order = append(f.order, c.ID)
	return c, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Campaign, error) {
	if c, ok := f.campaigns[id]; ok {
		return *c, nil
	}
	return repository.Campaign{}, apperr.NotFound("campaign not found")
}

func (f *fakeRepo) List(context.Context, repository.ListParams) (paging.Page[repository.Campaign], error) {
	return paging.Page[repository.Campaign]{}, nil
}

func (f *fakeRepo) ListDue(_ context.Context, now time.Time) ([]repository.Campaign, error) {
	var out []repository.Campaign
	for _, id := range f.order {
		c := f.campaigns[id]
		if c.Status == domain.StatusPending && !c.SendOn.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) ClaimDue(_ context.Context, now, staleBefore time.Time, limit int) ([]repository.Campaign, error) {
	var due []repository.Campaign
	for _, id := range f.order {
		c := f.campaigns[id]
		if c.SendOn.After(now) {
			continue
		}
		stale := c.Status == domain.StatusSending && c.UpdatedAt.Before(staleBefore)
		if c.Status != domain.StatusPending && !stale {
			continue
		}
		if len(due) == limit {
			break
		}
		c.Status = domain.StatusSending
		c.UpdatedAt = now
		due = append(due, *c)
	}
	if f.reverseClaims {
		slices.Reverse(due)
	}
	return due, nil
}

func (f *fakeRepo) MarkCompleted(_ context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	c := f.campaigns[id]
	if c.Status != domain.StatusPending && c.Status != domain.StatusSending {
		return false, nil
	}
	c.Status = domain.StatusCompleted
	c.SentAt = &sentAt
	return true, nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string, maxAttempts int) (string, error) {
	if f.failMark[id] {
		return "", errors.New("connection reset")
	}
	c := f.campaigns[id]
	c.Attempts++
	c.LastError = reason
	if c.Attempts >= maxAttempts {
		c.Status = domain.StatusCancelled
	} else {
		c.Status = domain.StatusPending
	}
	return c.Status, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	c := f.campaigns[id]
	for _, s := range from {
		if c.Status == s {
			c.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CancelPendingBySource(_ context.Context, kind, sourceType string, sourceID uuid.UUID) (int64, error) {
	var n int64
	for _, c := range f.campaigns {
		if c.Type == domain.TypeAuto && c.Kind == kind && c.Status == domain.StatusPending &&
			c.SourceEntityType != nil && *c.SourceEntityType == sourceType &&
			c.SourceEntityID != nil && *c.SourceEntityID == sourceID {
			c.Status = domain.StatusCancelled
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ExistsForSourceSince(_ context.Context, kind, sourceType string, sourceID uuid.UUID, since time.Time) (bool, error) {
	for _, c := range f.campaigns {
		if c.Kind == kind && c.Status != domain.StatusCancelled && !c.CreatedAt.Before(since) &&
			c.SourceEntityType != nil && *c.SourceEntityType == sourceType &&
			c.SourceEntityID != nil && *c.SourceEntityID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) InsertReportEvent(_ context.Context, e repository.ReportEvent) (bool, error) {
	if _, ok := f.campaigns[e.CampaignID]; !ok {
		return false, nil
	}
	if _, dup := f.reports[e.DedupeKey]; dup {
		return false, nil
	}
	f.reports[e.DedupeKey] = e
	return true, nil
}

func (f *fakeRepo) ListReportRows(_ context.Context, campaignID uuid.UUID) ([]domain.ReportRow, error) {
	var out []domain.ReportRow
	for _, e := range f.reports {
		if e.CampaignID != campaignID {
			continue
		}
		row := domain.ReportRow{Email: e.Email, Event: e.Event}
		if e.ClickURL != nil {
			row.ClickURL = *e.ClickURL
		}
		out = append(out, row)
	}
	return out, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, key string, vars map[string]interface{}) (Rendered, error) {
	if key == "broken" {
		return Rendered{}, errors.New("template not found")
	}
	return Rendered{Subject: key, HTML: "<p>" + vars["name"].(string) + "</p>"}, nil
}

func (fakeRenderer) RenderSource(subject, html string, _ map[string]interface{}) (Rendered, error) {
	if strings.Contains(html, "{%") {
		return Rendered{}, errors.New("syntax error")
	}
	return Rendered{Subject: subject, HTML: html}, nil
}

type fakeSender struct {
	sent []email.Message
	fail bool
}

func (f *fakeSender) Send(_ context.Context, m email.Message) error {
	if f.fail {
		return errors.New("vendor unavailable")
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeInquiries struct {
	sent []string
}

func (f *fakeInquiries) MarkFollowUpSent(_ context.Context, _ uuid.UUID, key string) error {
	f.sent = append(f.sent, key)
	return nil
}

type fakeClients struct {
	wished []uuid.UUID
}

func (f *fakeClients) StampWished(_ context.Context, id uuid.UUID) error {
	f.wished = append(f.wished, id)
	return nil
}

type fakeAudience struct {
	members []domain.Recipient
}

func (f *fakeAudience) ListRecipients(context.Context, string) ([]domain.Recipient, error) {
	return f.members, nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

type testConfig struct{}

func (testConfig) GetSendWindowStartHour() int     { return 5 }
func (testConfig) GetSendWindowEndHour() int       { return 15 }
func (testConfig) GetSendLocation() *time.Location { return time.UTC }
func (testConfig) GetCampaignMaxAttempts() int     { return 2 }

type harness struct {
	svc       *Service
	repo      *fakeRepo
	sender    *fakeSender
	inquiries *fakeInquiries
	clients   *fakeClients
	audience  *fakeAudience
	bus       *events.InMemoryBus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Discard()
	h := &harness{
		repo:      newFakeRepo(),
		sender:    &fakeSender{},
		inquiries: &fakeInquiries{},
		clients:   &fakeClients{},
		audience:  &fakeAudience{},
		bus:       events.NewInMemoryBus(log),
	}
	h.svc = New(Deps{
		Repo:     h.repo,
		Tx:       db.NoopTxRunner{},
		Renderer: fakeRenderer{},
		Sender:   h.sender,
		Bus:      h.bus,
		Config:   testConfig{},
		Log:      log,
	})
	h.svc.now = func() time.Time { return testNow }
	h.svc.SetPorts(Ports{Audience: h.audience, Inquiries: h.inquiries, Clients: h.clients})
	return h
}

func (h *harness) followUp(t *testing.T, inquiryID uuid.UUID, template string, sendOn time.Time) repository.Campaign {
	t.Helper()
	c, err := h.svc.Enqueue(context.Background(), AutoInput{
		Name:        "Follow-up",
		Kind:        domain.KindFollowUp,
		TemplateKey: template,
		SendOn:      sendOn,
		SourceType:  domain.SourceInquiry,
		SourceID:    inquiryID,
		Recipients:  []domain.Recipient{{Email: "Ann@Example.com", Name: "Ann", CC: []string{"ops@example.com"}}},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return c
}

func TestDispatch_CompletesFollowUpAndMarksSent(t *testing.T) {
	h := newHarness(t)
	c := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(-time.Hour))

	res, err := h.svc.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Completed != 1 {
		t.Fatalf("expected 1 completed, got %+v", res)
	}
	if got := h.repo.campaigns[c.ID].Status; got != domain.StatusCompleted {
		t.Fatalf("expected %s, got %s", domain.StatusCompleted, got)
	}
	if len(h.inquiries.sent) != 1 || h.inquiries.sent[0] != "follow-up-1" {
		t.Fatalf("expected follow-up-1 marked sent, got %v", h.inquiries.sent)
	}

	msg := h.sender.sent[0]
	if msg.CampaignID != c.ID.String() {
		t.Fatalf("expected campaign id metadata, got %q", msg.CampaignID)
	}
	if len(msg.To) != 2 || msg.To[0].Email != "ann@example.com" || msg.To[1].Type != email.RecipientCC {
		t.Fatalf("unexpected recipients %+v", msg.To)
	}
}

func TestDispatch_SkipsFutureCampaigns(t *testing.T) {
	h := newHarness(t)
	h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(time.Hour))

	res, err := h.svc.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Claimed != 0 || len(h.sender.sent) != 0 {
		t.Fatalf("expected nothing dispatched, got %+v", res)
	}
}

func TestDispatch_RetriesThenCancels(t *testing.T) {
	h := newHarness(t)
	h.sender.fail = true
	c := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(-time.Hour))

	res, err := h.svc.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if res.Retrying != 1 || h.repo.campaigns[c.ID].Status != domain.StatusPending {
		t.Fatalf("expected campaign back to pending, got %+v / %s", res, h.repo.campaigns[c.ID].Status)
	}

	res, err = h.svc.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if res.Cancelled != 1 || h.repo.campaigns[c.ID].Status != domain.StatusCancelled {
		t.Fatalf("expected campaign cancelled after max attempts, got %+v / %s", res, h.repo.campaigns[c.ID].Status)
	}
	if h.repo.campaigns[c.ID].Attempts != 2 || h.repo.campaigns[c.ID].LastError == "" {
		t.Fatalf("expected attempts and last error recorded, got %+v", h.repo.campaigns[c.ID])
	}
	if len(h.inquiries.sent) != 0 {
		t.Fatal("expected no follow-up marked sent on failure")
	}
}

func TestDispatch_ContinuesWhenRecordingFailureFails(t *testing.T) {
	h := newHarness(t)
	h.sender.fail = true
	first := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(-2*time.Hour))
	second := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(-time.Hour))
	h.repo.failMark = map[uuid.UUID]bool{first.ID: true}

	res, err := h.svc.Dispatch(context.Background())
	if err == nil || !strings.Contains(err.Error(), first.ID.String()) {
		t.Fatalf("expected error naming %s, got %v", first.ID, err)
	}
	if res.Claimed != 2 || res.Retrying != 1 {
		t.Fatalf("expected both claimed and one retrying, got %+v", res)
	}
	got := h.repo.campaigns[second.ID]
	if got.Status != domain.StatusPending || got.Attempts != 1 {
		t.Fatalf("expected second campaign back to pending after one attempt, got %s / %d", got.Status, got.Attempts)
	}
}

func TestDispatch_SendsClaimedInCreationOrder(t *testing.T) {
	h := newHarness(t)
	h.repo.reverseClaims = true
	older := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(-time.Hour))
	newer := h.followUp(t, uuid.New(), "follow-up-2", testNow.Add(-time.Hour))
	h.repo.campaigns[older.ID].CreatedAt = testNow.Add(-time.Hour)

	if _, err := h.svc.Dispatch(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(h.sender.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(h.sender.sent))
	}
	if h.sender.sent[0].CampaignID != older.ID.String() || h.sender.sent[1].CampaignID != newer.ID.String() {
		t.Fatalf("expected oldest campaign first, got %s then %s", h.sender.sent[0].CampaignID, h.sender.sent[1].CampaignID)
	}
}

func TestDispatch_ReclaimsStaleSending(t *testing.T) {
	h := newHarness(t)
	stale := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(-time.Hour))
	live := h.followUp(t, uuid.New(), "follow-up-2", testNow.Add(-time.Hour))
	h.repo.campaigns[stale.ID].Status = domain.StatusSending
	h.repo.campaigns[stale.ID].UpdatedAt = testNow.Add(-claimLease - time.Minute)
	h.repo.campaigns[live.ID].Status = domain.StatusSending
	h.repo.campaigns[live.ID].UpdatedAt = testNow.Add(-time.Minute)

	res, err := h.svc.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Claimed != 1 || res.Completed != 1 {
		t.Fatalf("expected only the stale claim taken over, got %+v", res)
	}
	if h.repo.campaigns[stale.ID].Status != domain.StatusCompleted {
		t.Fatalf("expected stale campaign completed, got %s", h.repo.campaigns[stale.ID].Status)
	}
	if h.repo.campaigns[live.ID].Status != domain.StatusSending {
		t.Fatalf("expected live claim untouched, got %s", h.repo.campaigns[live.ID].Status)
	}
}

func TestDispatch_ClosedWindow(t *testing.T) {
	h := newHarness(t)
	h.svc.now = func() time.Time { return time.Date(2026, 5, 4, 16, 0, 0, 0, time.UTC) }
	h.followUp(t, uuid.New(), "follow-up-1", testNow)

	res, err := h.svc.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Skipped || len(h.sender.sent) != 0 {
		t.Fatalf("expected skipped run outside window, got %+v", res)
	}

	due, err := h.svc.GetCronCampaigns(context.Background())
	if err != nil || len(due) != 0 {
		t.Fatalf("expected no cron campaigns outside window, got %d %v", len(due), err)
	}
}

func TestDispatch_LockHeldElsewhere(t *testing.T) {
	h := newHarness(t)
	h.svc.locks = func(string, time.Duration) distlock.Lock { return heldLock{} }
	h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(-time.Hour))

	res, err := h.svc.Dispatch(context.Background())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Skipped || len(h.sender.sent) != 0 {
		t.Fatalf("expected skipped run while lock is held, got %+v", res)
	}
}

func TestComplete_BirthdayStampsClient(t *testing.T) {
	h := newHarness(t)
	clientID := uuid.New()

	queued, err := h.svc.EnqueueBirthday(context.Background(), clientID, "ann@example.com", "Ann", testNow)
	if err != nil || !queued {
		t.Fatalf("expected birthday queued, got %v %v", queued, err)
	}
	queued, err = h.svc.EnqueueBirthday(context.Background(), clientID, "ann@example.com", "Ann", testNow)
	if err != nil || queued {
		t.Fatalf("expected second birthday skipped, got %v %v", queued, err)
	}

	if _, err := h.svc.Dispatch(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(h.clients.wished) != 1 || h.clients.wished[0] != clientID {
		t.Fatalf("expected client stamped, got %v", h.clients.wished)
	}
}

func TestCancelFollowUps_OnlyPendingForInquiry(t *testing.T) {
	h := newHarness(t)
	inquiryID := uuid.New()
	h.followUp(t, inquiryID, "follow-up-1", testNow.Add(24*time.Hour))
	h.followUp(t, inquiryID, "follow-up-2", testNow.Add(48*time.Hour))
	other := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(24*time.Hour))

	n, err := h.svc.CancelFollowUps(context.Background(), inquiryID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 cancelled, got %d", n)
	}
	if h.repo.campaigns[other.ID].Status != domain.StatusPending {
		t.Fatal("expected other inquiry's follow-up untouched")
	}
}

func TestCreate_ResolvesListAndQueuesDispatch(t *testing.T) {
	h := newHarness(t)
	h.audience.members = []domain.Recipient{
		{Email: "a@example.com", Name: "A"},
		{Email: "A@example.com", Name: "A again"},
		{Email: "b@example.com", Name: "B"},
	}

	queued := make(chan events.CampaignQueued, 1)
	h.bus.Subscribe(events.CampaignQueued{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		queued <- e.(events.CampaignQueued)
		return nil
	}))

	c, err := h.svc.Create(context.Background(), CreateInput{
		Name:    "Spring newsletter",
		Subject: "Hello",
		HTML:    "<p>Hi {{ name }}</p>",
		List:    "RETENTION",
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Type != domain.TypeUser || c.Kind != domain.KindNewsletter {
		t.Fatalf("expected USER NEWSLETTER, got %s %s", c.Type, c.Kind)
	}
	if len(c.SendTo) != 2 {
		t.Fatalf("expected deduplicated recipients, got %d", len(c.SendTo))
	}

	h.bus.Wait()
	select {
	case e := <-queued:
		if e.CampaignID != c.ID {
			t.Fatalf("expected queued event for %s, got %s", c.ID, e.CampaignID)
		}
	default:
		t.Fatal("expected campaign queued event")
	}
}

func TestCreate_RejectsBrokenSource(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Create(context.Background(), CreateInput{
		Subject:    "Hello",
		HTML:       "{% if %}",
		Recipients: []domain.Recipient{{Email: "a@example.com"}},
	}, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelThenArchive(t *testing.T) {
	h := newHarness(t)
	c := h.followUp(t, uuid.New(), "follow-up-1", testNow.Add(time.Hour))

	if _, err := h.svc.Archive(context.Background(), c.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected pending campaign archive to fail, got %v", err)
	}
	if _, err := h.svc.Cancel(context.Background(), c.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err := h.svc.Archive(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if got.Status != domain.StatusArchived {
		t.Fatalf("expected %s, got %s", domain.StatusArchived, got.Status)
	}
}

func TestRecordReportEvent_Idempotent(t *testing.T) {
	h := newHarness(t)
	c := h.followUp(t, uuid.New(), "follow-up-1", testNow)
	url := "https://example.com/offer"
	e := repository.ReportEvent{CampaignID: c.ID, Email: "ann@example.com", Event: domain.EventClick, ClickURL: &url, DedupeKey: "k1"}

	for i, want := range []bool{true, false} {
		stored, err := h.svc.RecordReportEvent(context.Background(), e)
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if stored != want {
			t.Fatalf("record %d: expected stored=%v, got %v", i, want, stored)
		}
	}

	report, err := h.svc.Report(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Clicks != 1 || report.Sent != 1 {
		t.Fatalf("expected one click from one recipient, got %+v", report)
	}
}
