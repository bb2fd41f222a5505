package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"ims_backend/internal/clients/repository"
	"ims_backend/internal/events"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	byEmail  map[string]*repository.Client
	wished   map[uuid.UUID]time.Time
	spent    map[uuid.UUID]decimal.Decimal
	birthday []repository.Client
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byEmail: map[string]*repository.Client{},
		wished:  map[uuid.UUID]time.Time{},
		spent:   map[uuid.UUID]decimal.Decimal{},
	}
}

func (f *fakeRepo) InsertOrGet(_ context.Context, c repository.Client, delta int) (repository.Client, bool, error) {
	key := strings.ToLower(c.Email)
	if existing, ok := f.byEmail[key]; ok {
		existing.TotalInquiries += delta
		return *existing, false, nil
	}
	c.ID = uuid.New()
	f.byEmail[key] = &c
	return c, true, nil
}

func (f *fakeRepo) find(id uuid.UUID) *repository.Client {
	for _, c := range f.byEmail {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Client, error) {
	if c := f.find(id); c != nil {
		return *c, nil
	}
	return repository.Client{}, apperr.NotFound("client not found")
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (repository.Client, error) {
	if c, ok := f.byEmail[strings.ToLower(email)]; ok {
		return *c, nil
	}
	return repository.Client{}, apperr.NotFound("client not found")
}

func (f *fakeRepo) List(context.Context, repository.ListParams) (paging.Page[repository.Client], error) {
	return paging.Page[repository.Client]{}, nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, u repository.ClientUpdate) (repository.Client, error) {
	c := f.find(id)
	if c == nil {
		return repository.Client{}, apperr.NotFound("client not found")
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.List != nil {
		c.List = *u.List
	}
	return *c, nil
}

func (f *fakeRepo) Lists(context.Context) ([]string, error) {
	return []string{repository.ListProspects, repository.ListRetention}, nil
}

func (f *fakeRepo) MoveToListByEmail(_ context.Context, email, list string) (int64, error) {
	c, ok := f.byEmail[strings.ToLower(email)]
	if !ok || c.List == list {
		return 0, nil
	}
	c.List = list
	return 1, nil
}

func (f *fakeRepo) SetSubscribed(_ context.Context, id uuid.UUID, subscribed bool) error {
	c := f.find(id)
	if c == nil {
		return apperr.NotFound("client not found")
	}
	c.Subscribed = subscribed
	return nil
}

func (f *fakeRepo) StampWished(_ context.Context, id uuid.UUID, at time.Time) error {
	f.wished[id] = at
	return nil
}

func (f *fakeRepo) IncrementInquiries(_ context.Context, id uuid.UUID) error {
	if c := f.find(id); c != nil {
		c.TotalInquiries++
	}
	return nil
}

func (f *fakeRepo) IncrementEvents(_ context.Context, id uuid.UUID) error {
	if c := f.find(id); c != nil {
		c.TotalEvents++
	}
	return nil
}

func (f *fakeRepo) AddSpent(_ context.Context, id uuid.UUID, amount decimal.Decimal) error {
	f.spent[id] = f.spent[id].Add(amount)
	return nil
}

func (f *fakeRepo) ListBirthdays(context.Context, int, int, int) ([]repository.Client, error) {
	return f.birthday, nil
}

func (f *fakeRepo) ListRecipients(context.Context, string) ([]repository.Client, error) {
	return nil, nil
}

type fakeBirthdays struct {
	seen map[uuid.UUID]bool
}

func (f *fakeBirthdays) EnqueueBirthday(_ context.Context, r BirthdayRecipient, _ time.Time) (bool, error) {
	if f.seen[r.ClientID] {
		return false, nil
	}
	f.seen[r.ClientID] = true
	return true, nil
}

func TestAddClient_DedupsCaseInsensitively(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.Discard())
	ctx := context.Background()

	first, existed, err := svc.AddClient(ctx, AddClientInput{Name: "Ann", Email: "Ann@Example.com"}, OriginInquiry)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if existed {
		t.Fatal("expected first add to create the client")
	}
	if first.TotalInquiries != 1 {
		t.Fatalf("expected total_inquiries 1, got %d", first.TotalInquiries)
	}

	second, existed, err := svc.AddClient(ctx, AddClientInput{Name: "Ann", Email: "ann@EXAMPLE.com "}, OriginInquiry)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if !existed {
		t.Fatal("expected second add to report an existing client")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same client id, got %s and %s", first.ID, second.ID)
	}
	if second.TotalInquiries != 2 {
		t.Fatalf("expected total_inquiries 2 after inquiry origin, got %d", second.TotalInquiries)
	}

	third, existed, err := svc.AddClient(ctx, AddClientInput{Email: "ANN@example.com"}, OriginManual)
	if err != nil {
		t.Fatalf("third add: %v", err)
	}
	if !existed {
		t.Fatal("expected manual add to report an existing client")
	}
	if third.TotalInquiries != 2 {
		t.Fatalf("expected total_inquiries unchanged for manual origin, got %d", third.TotalInquiries)
	}
}

func TestAddClient_ManualStartsAtZeroInquiries(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())

	c, _, err := svc.AddClient(context.Background(), AddClientInput{Email: "bob@example.com", Phone: "020 7946 0958"}, OriginManual)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if c.TotalInquiries != 0 {
		t.Fatalf("expected 0 inquiries, got %d", c.TotalInquiries)
	}
	if c.List != repository.ListProspects {
		t.Fatalf("expected default list %s, got %s", repository.ListProspects, c.List)
	}
}

func TestAddClient_RequiresEmail(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())

	_, _, err := svc.AddClient(context.Background(), AddClientInput{Name: "No Mail"}, OriginManual)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClientBounced_MovesToDeletedList(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.Discard())
	bus := events.NewInMemoryBus(logger.Discard())
	svc.RegisterHandlers(bus)

	ctx := context.Background()
	if _, _, err := svc.AddClient(ctx, AddClientInput{Email: "c@example.com"}, OriginManual); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := bus.PublishSync(ctx, events.ClientBounced{Email: "C@example.com", Event: "hard_bounce"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, _ := repo.GetByEmail(ctx, "c@example.com")
	if got.List != repository.ListDeleted {
		t.Fatalf("expected list %s, got %s", repository.ListDeleted, got.List)
	}
}

func TestScheduleBirthdays_SkipsAlreadyQueued(t *testing.T) {
	repo := newFakeRepo()
	a := repository.Client{ID: uuid.New(), Email: "a@example.com"}
	b := repository.Client{ID: uuid.New(), Email: "b@example.com"}
	repo.birthday = []repository.Client{a, b}

	svc := New(repo, logger.Discard())
	enq := &fakeBirthdays{seen: map[uuid.UUID]bool{a.ID: true}}
	svc.SetBirthdayEnqueuer(enq)

	n, err := svc.ScheduleBirthdays(context.Background(), time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 new campaign, got %d", n)
	}
	if !enq.seen[b.ID] {
		t.Fatal("expected campaign for client b")
	}
}

func TestAddSpent_RejectsNegative(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())

	err := svc.AddSpent(context.Background(), uuid.New(), decimal.NewFromInt(-5))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordInquiry_UnknownClient(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.Discard())
	ctx := context.Background()

	if err := svc.RecordInquiry(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	c, _, err := svc.AddClient(ctx, AddClientInput{Email: "cara@example.com"}, OriginManual)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.RecordInquiry(ctx, c.ID); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, _ := svc.Get(ctx, c.ID)
	if got.TotalInquiries != 1 {
		t.Fatalf("expected total_inquiries 1, got %d", got.TotalInquiries)
	}
}
