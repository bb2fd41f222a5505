package service

import (
	"context"
	"testing"
	"time"

	"ims_backend/internal/international/repository"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	rows map[uuid.UUID]*repository.Inquiry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]*repository.Inquiry{}}
}

func (f *fakeRepo) Create(_ context.Context, i repository.Inquiry) (repository.Inquiry, error) {
	i.ID = uuid.New()
	i.Status = repository.StatusPending
	f.rows[i.ID] = &i
	return i, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Inquiry, error) {
	if i, ok := f.rows[id]; ok {
		return *i, nil
	}
	return repository.Inquiry{}, apperr.NotFound("international inquiry not found")
}

func (f *fakeRepo) List(context.Context, repository.ListParams) (paging.Page[repository.Inquiry], error) {
	return paging.Page[repository.Inquiry]{}, nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, u repository.InquiryUpdate) (repository.Inquiry, error) {
	i, ok := f.rows[id]
	if !ok || i.Status == repository.StatusArchived {
		return repository.Inquiry{}, apperr.NotFound("international inquiry not found")
	}
	if u.Country != nil {
		i.Country = *u.Country
	}
	if u.EndDatetime != nil {
		i.EndDatetime = u.EndDatetime
	}
	return *i, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	i, ok := f.rows[id]
	if !ok || i.Status != from {
		return false, nil
	}
	i.Status = to
	return true, nil
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{repository.StatusPending, repository.StatusConfirm, true},
		{repository.StatusPending, repository.StatusLost, true},
		{repository.StatusConfirm, repository.StatusLost, false},
		{repository.StatusLost, repository.StatusConfirm, false},
		{repository.StatusPending, repository.StatusArchived, true},
		{repository.StatusConfirm, repository.StatusArchived, true},
		{repository.StatusLost, repository.StatusArchived, true},
		{repository.StatusArchived, repository.StatusArchived, false},
		{repository.StatusArchived, repository.StatusPending, false},
		{repository.StatusPending, repository.StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSetStatus_ConfirmThenArchive(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{ContactName: "Ana", ContactEmail: "Ana@Example.com ", Country: "Spain"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ContactEmail != "ana@example.com" {
		t.Fatalf("expected normalized email, got %q", created.ContactEmail)
	}

	confirmed, err := svc.SetStatus(ctx, created.ID, repository.StatusConfirm)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != repository.StatusConfirm {
		t.Fatalf("expected CONFIRM, got %s", confirmed.Status)
	}
	if _, err := svc.SetStatus(ctx, created.ID, repository.StatusLost); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error moving CONFIRM to LOST, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, created.ID, repository.StatusArchived); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := svc.SetStatus(ctx, created.ID, repository.StatusArchived); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected archived to be terminal, got %v", err)
	}
}

func TestCreate_RequiresCountryAndOrderedWindow(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{ContactEmail: "a@example.com"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without country, got %v", err)
	}

	start := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.Create(ctx, CreateInput{ContactEmail: "a@example.com", Country: "France", StartDatetime: &start, EndDatetime: &end})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for reversed window, got %v", err)
	}
}

func TestUpdate_EndBeforeStoredStartRejected(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())
	ctx := context.Background()

	start := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	created, err := svc.Create(ctx, CreateInput{ContactEmail: "a@example.com", Country: "France", StartDatetime: &start})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	end := start.Add(-24 * time.Hour)
	if _, err := svc.Update(ctx, created.ID, repository.InquiryUpdate{EndDatetime: &end}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())
	if _, err := svc.List(context.Background(), repository.ListParams{Status: "DONE"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
