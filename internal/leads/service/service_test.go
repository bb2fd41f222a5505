package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ims_backend/internal/leads/repository"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads map[uuid.UUID]*repository.Lead
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: map[uuid.UUID]*repository.Lead{}}
}

func (f *fakeRepo) Create(_ context.Context, l repository.Lead) (repository.Lead, error) {
	for _, existing := range f.leads {
		if existing.Status == repository.StatusActive && strings.EqualFold(existing.Email, l.Email) {
			return repository.Lead{}, apperr.Conflict("lead already exists").WithDetails(*existing)
		}
	}
	l.ID = uuid.New()
	l.Status = repository.StatusActive
	f.leads[l.ID] = &l
	return l, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	if l, ok := f.leads[id]; ok {
		return *l, nil
	}
	return repository.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeRepo) GetActiveForUpdate(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	if l, ok := f.leads[id]; ok && l.Status == repository.StatusActive {
		return *l, nil
	}
	return repository.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeRepo) List(context.Context, repository.ListParams) (paging.Page[repository.Lead], error) {
	return paging.Page[repository.Lead]{}, nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, _ repository.LeadUpdate) (repository.Lead, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID, inquiryID *uuid.UUID) error {
	l, ok := f.leads[id]
	if !ok || l.Status != repository.StatusActive {
		return apperr.NotFound("lead not found")
	}
	l.Status = repository.StatusDeleted
	if inquiryID != nil {
		l.InquiryID = inquiryID
	}
	return nil
}

type fakeInquiries struct {
	got Conversion
	id  uuid.UUID
	err error
}

func (f *fakeInquiries) CreateFromLead(_ context.Context, c Conversion) (uuid.UUID, error) {
	f.got = c
	return f.id, f.err
}

func TestCreate_DuplicateActiveEmailIsConflict(t *testing.T) {
	svc := New(newFakeRepo(), db.NoopTxRunner{}, logger.Discard())
	ctx := context.Background()
	actor := uuid.New()

	first, err := svc.Create(ctx, CreateInput{Name: "Dana", Email: "dana@example.com"}, actor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Create(ctx, CreateInput{Name: "Dana", Email: "DANA@example.com"}, actor)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	existing, ok := appErr.Details.(repository.Lead)
	if !ok || existing.ID != first.ID {
		t.Fatalf("expected existing lead in details, got %#v", appErr.Details)
	}
}

func TestConvert_RetiresLeadWithInquiryReference(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, db.NoopTxRunner{}, logger.Discard())
	inquiries := &fakeInquiries{id: uuid.New()}
	svc.SetInquiryCreator(inquiries)
	ctx := context.Background()

	assignee := uuid.New()
	lead, err := svc.Create(ctx, CreateInput{Name: "Eli", Email: "eli@example.com", AssignedTo: &assignee}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	start := time.Now().Add(30 * 24 * time.Hour)
	inquiryID, err := svc.Convert(ctx, lead.ID, ConvertInput{EventName: "Gala", Start: start, End: start.Add(4 * time.Hour)}, uuid.New())
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if inquiryID != inquiries.id {
		t.Fatalf("expected inquiry id %s, got %s", inquiries.id, inquiryID)
	}
	if inquiries.got.SalespersonID == nil || *inquiries.got.SalespersonID != assignee {
		t.Fatal("expected salesperson to default to the lead assignee")
	}

	stored := repo.leads[lead.ID]
	if stored.Status != repository.StatusDeleted {
		t.Fatalf("expected lead status %s, got %s", repository.StatusDeleted, stored.Status)
	}
	if stored.InquiryID == nil || *stored.InquiryID != inquiryID {
		t.Fatal("expected lead to reference the new inquiry")
	}

	if _, err := svc.Convert(ctx, lead.ID, ConvertInput{Start: start, End: start}, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected second conversion to fail with not found, got %v", err)
	}
}

func TestConvert_RejectsInvertedWindow(t *testing.T) {
	svc := New(newFakeRepo(), db.NoopTxRunner{}, logger.Discard())
	svc.SetInquiryCreator(&fakeInquiries{})

	now := time.Now()
	_, err := svc.Convert(context.Background(), uuid.New(), ConvertInput{Start: now, End: now.Add(-time.Hour)}, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
