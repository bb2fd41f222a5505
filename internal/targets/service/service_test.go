package service

import (
	"context"
	"testing"

	"ims_backend/internal/targets/repository"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	targets map[uuid.UUID]*repository.Target
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{targets: map[uuid.UUID]*repository.Target{}}
}

func (f *fakeRepo) active(month, year int, except uuid.UUID) *repository.Target {
	for _, t := range f.targets {
		if t.ID != except && t.Status == repository.StatusActive && t.Month == month && t.Year == year {
			return t
		}
	}
	return nil
}

func (f *fakeRepo) Create(_ context.Context, t repository.Target) (repository.Target, error) {
	if existing := f.active(t.Month, t.Year, uuid.Nil); existing != nil {
		return repository.Target{}, apperr.Conflict("target already exists for this month").WithDetails(*existing)
	}
	t.ID = uuid.New()
	t.Status = repository.StatusActive
	f.targets[t.ID] = &t
	return t, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Target, error) {
	if t, ok := f.targets[id]; ok && t.Status == repository.StatusActive {
		return *t, nil
	}
	return repository.Target{}, apperr.NotFound("target not found")
}

func (f *fakeRepo) List(_ context.Context, year *int) ([]repository.Target, error) {
	var out []repository.Target
	for _, t := range f.targets {
		if t.Status == repository.StatusActive && (year == nil || t.Year == *year) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, u repository.TargetUpdate) (repository.Target, error) {
	t, ok := f.targets[id]
	if !ok || t.Status != repository.StatusActive {
		return repository.Target{}, apperr.NotFound("target not found")
	}
	if u.Month != nil && f.active(*u.Month, *u.Year, id) != nil {
		return repository.Target{}, apperr.Conflict("target already exists for this month")
	}
	if u.Month != nil {
		t.Month, t.Year = *u.Month, *u.Year
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	return *t, nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	t, ok := f.targets[id]
	if !ok || t.Status != repository.StatusActive {
		return apperr.NotFound("target not found")
	}
	t.Status = repository.StatusDeleted
	return nil
}

func TestCreate_DuplicatePeriodIsConflict(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())
	ctx := context.Background()

	first, err := svc.Create(ctx, 5, 2026, decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.Create(ctx, 5, 2026, decimal.NewFromInt(10))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := svc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Create(ctx, 5, 2026, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("expected period to be free after delete, got %v", err)
	}
}

func TestCreate_RejectsBadInput(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())
	cases := []struct {
		month, year int
		amount      decimal.Decimal
	}{
		{0, 2026, decimal.Zero},
		{13, 2026, decimal.Zero},
		{1, 1990, decimal.Zero},
		{1, 2026, decimal.NewFromInt(-1)},
	}
	for _, tc := range cases {
		_, err := svc.Create(context.Background(), tc.month, tc.year, tc.amount)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}
}

func TestUpdate_MonthOnlyChecksFinalPeriod(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.Discard())
	ctx := context.Background()

	if _, err := svc.Create(ctx, 6, 2026, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("create june: %v", err)
	}
	may, err := svc.Create(ctx, 5, 2026, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("create may: %v", err)
	}

	june := 6
	_, err = svc.Update(ctx, may.ID, repository.TargetUpdate{Month: &june})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict moving into june, got %v", err)
	}

	july := 7
	updated, err := svc.Update(ctx, may.ID, repository.TargetUpdate{Month: &july})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Month != 7 || updated.Year != 2026 {
		t.Fatalf("expected 7/2026, got %d/%d", updated.Month, updated.Year)
	}
}

func TestList_FiltersByYear(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())
	ctx := context.Background()
	for _, year := range []int{2025, 2026, 2026} {
		month := len(mustList(t, svc, nil)) + 1
		if _, err := svc.Create(ctx, month, year, decimal.NewFromInt(1)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	year := 2026
	if got := len(mustList(t, svc, &year)); got != 2 {
		t.Fatalf("expected 2 targets in 2026, got %d", got)
	}
}

func mustList(t *testing.T, svc *Service, year *int) []repository.Target {
	t.Helper()
	items, err := svc.List(context.Background(), year)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return items
}
