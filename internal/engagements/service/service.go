package service

import (
	"context"
	"strings"
	"time"

	"ims_backend/internal/engagements/repository"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"
	"ims_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the event persistence used by the service.
type Repository interface {
	UpsertForInquiry(ctx context.Context, e repository.Event) (uuid.UUID, bool, error)
	UpdateWindowByInquiry(ctx context.Context, inquiryID uuid.UUID, start, end time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (repository.Event, error)
	GetByInquiry(ctx context.Context, inquiryID uuid.UUID) (repository.Event, error)
	List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Event], error)
	Update(ctx context.Context, id uuid.UUID, u repository.EventUpdate) error
	SetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	SetSoftwareStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	UpsertPortalCode(ctx context.Context, eventID uuid.UUID, code string) error
}

// PaymentEnsurer makes sure a finished event has its payment row.
type PaymentEnsurer interface {
	EnsureForInquiry(ctx context.Context, inquiryID uuid.UUID, clientID *uuid.UUID) error
}

type Service struct {
	repo     Repository
	tx       db.TxRunner
	payments PaymentEnsurer
	log      *logger.Logger
}

func New(repo Repository, tx db.TxRunner, log *logger.Logger) *Service {
	return &Service{repo: repo, tx: tx, log: log}
}

func (s *Service) SetPaymentEnsurer(p PaymentEnsurer) {
	s.payments = p
}

// UpsertForInquiry writes the Event of a confirmed inquiry. created is true
// only when the row is new.
func (s *Service) UpsertForInquiry(ctx context.Context, e repository.Event) (bool, error) {
	id, created, err := s.repo.UpsertForInquiry(ctx, e)
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info("event created", "eventId", id, "inquiryId", e.InquiryID)
	}
	return created, nil
}

func (s *Service) UpdateWindow(ctx context.Context, inquiryID uuid.UUID, start, end time.Time) error {
	return s.repo.UpdateWindowByInquiry(ctx, inquiryID, start, end)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByInquiry(ctx context.Context, inquiryID uuid.UUID) (repository.Event, error) {
	return s.repo.GetByInquiry(ctx, inquiryID)
}

func (s *Service) List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Event], error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, u repository.EventUpdate) (repository.Event, error) {
	u.Name = sanitize.TextPtr(u.Name)
	u.Venue = sanitize.TextPtr(u.Venue)
	if u.Logistics != nil {
		u.Logistics.Notes = sanitize.Notes(u.Logistics.Notes)
		u.Logistics.Software = sanitize.Text(u.Logistics.Software)
	}
	if err := s.repo.Update(ctx, id, u); err != nil {
		return repository.Event{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Finish closes an ACTIVE event and ensures its payment row exists.
func (s *Service) Finish(ctx context.Context, id uuid.UUID) (repository.Event, error) {
	if s.payments == nil {
		return repository.Event{}, apperr.Internal("payments are not configured")
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, event, repository.StatusActive, repository.StatusFinished); err != nil {
			return err
		}
		return s.payments.EnsureForInquiry(ctx, event.InquiryID, event.ClientID)
	})
	if err != nil {
		return repository.Event{}, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (repository.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Event{}, err
	}
	if err := s.transition(ctx, event, repository.StatusActive, repository.StatusCancelled); err != nil {
		return repository.Event{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// ArchiveSoftware marks the event's software setup as archived.
func (s *Service) ArchiveSoftware(ctx context.Context, id uuid.UUID) (repository.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Event{}, err
	}
	if event.SoftwareStatus == repository.SoftwareArchived {
		return event, nil
	}
	if _, err := s.repo.SetSoftwareStatus(ctx, id, repository.SoftwarePending, repository.SoftwareArchived); err != nil {
		return repository.Event{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// SetPortalCode links the event to the reporting portal.
func (s *Service) SetPortalCode(ctx context.Context, id uuid.UUID, code string) (repository.Event, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return repository.Event{}, apperr.Validation("event code is required")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return repository.Event{}, err
	}
	if err := s.repo.UpsertPortalCode(ctx, id, code); err != nil {
		return repository.Event{}, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) transition(ctx context.Context, event repository.Event, from, to string) error {
	if event.Status != from {
		return apperr.Validation("event is " + strings.ToLower(event.Status) + ", expected " + strings.ToLower(from))
	}
	changed, err := s.repo.SetStatus(ctx, event.ID, from, to)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.Conflict("event status changed concurrently")
	}
	s.log.Info("event status changed", "eventId", event.ID, "from", from, "to", to)
	return nil
}
