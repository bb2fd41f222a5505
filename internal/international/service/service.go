package service

import (
	"context"
	"time"

	"ims_backend/internal/international/repository"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"
	"ims_backend/platform/phone"
	"ims_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the international inquiry persistence used by the service.
type Repository interface {
	Create(ctx context.Context, i repository.Inquiry) (repository.Inquiry, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Inquiry, error)
	List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Inquiry], error)
	Update(ctx context.Context, id uuid.UUID, u repository.InquiryUpdate) (repository.Inquiry, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
}

type CreateInput struct {
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Company       string
	Country       string
	EventName     string
	StartDatetime *time.Time
	EndDatetime   *time.Time
	Pax           int
	Notes         string
	SalespersonID *uuid.UUID
}

type Service struct {
	repo Repository
	log  *logger.Logger
}

func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (repository.Inquiry, error) {
	email := sanitize.Email(in.ContactEmail)
	if email == "" {
		return repository.Inquiry{}, apperr.Validation("contact email is required")
	}
	country := sanitize.Text(in.Country)
	if country == "" {
		return repository.Inquiry{}, apperr.Validation("country is required")
	}
	if err := validateWindow(in.StartDatetime, in.EndDatetime); err != nil {
		return repository.Inquiry{}, err
	}

	inquiry, err := s.repo.Create(ctx, repository.Inquiry{
		ContactName:   sanitize.Text(in.ContactName),
		ContactEmail:  email,
		ContactPhone:  phone.NormalizeE164(in.ContactPhone),
		Company:       sanitize.Text(in.Company),
		Country:       country,
		EventName:     sanitize.Text(in.EventName),
		StartDatetime: in.StartDatetime,
		EndDatetime:   in.EndDatetime,
		Pax:           in.Pax,
		Notes:         sanitize.Notes(in.Notes),
		SalespersonID: in.SalespersonID,
	})
	if err != nil {
		return repository.Inquiry{}, err
	}
	s.log.Info("international inquiry created", "inquiryId", inquiry.ID, "country", country)
	return inquiry, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Inquiry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Inquiry], error) {
	if params.Status != "" && !isStatus(params.Status) {
		return paging.Page[repository.Inquiry]{}, apperr.Validation("unknown status")
	}
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, u repository.InquiryUpdate) (repository.Inquiry, error) {
	if u.StartDatetime != nil || u.EndDatetime != nil {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return repository.Inquiry{}, err
		}
		start, end := current.StartDatetime, current.EndDatetime
		if u.StartDatetime != nil {
			start = u.StartDatetime
		}
		if u.EndDatetime != nil {
			end = u.EndDatetime
		}
		if err := validateWindow(start, end); err != nil {
			return repository.Inquiry{}, err
		}
	}

	u.ContactName = sanitize.TextPtr(u.ContactName)
	u.Company = sanitize.TextPtr(u.Company)
	u.Country = sanitize.TextPtr(u.Country)
	u.EventName = sanitize.TextPtr(u.EventName)
	if u.Notes != nil {
		notes := sanitize.Notes(*u.Notes)
		u.Notes = &notes
	}
	if u.ContactPhone != nil {
		normalized := phone.NormalizeE164(*u.ContactPhone)
		u.ContactPhone = &normalized
	}
	return s.repo.Update(ctx, id, u)
}

// SetStatus applies PENDING→CONFIRM|LOST and any non-archived status→ARCHIVED.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to string) (repository.Inquiry, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Inquiry{}, err
	}
	if !CanTransition(current.Status, to) {
		return repository.Inquiry{}, apperr.Validation("cannot move from " + current.Status + " to " + to)
	}

	changed, err := s.repo.SetStatus(ctx, id, current.Status, to)
	if err != nil {
		return repository.Inquiry{}, err
	}
	if !changed {
		return repository.Inquiry{}, apperr.Conflict("international inquiry was modified concurrently")
	}
	s.log.Info("international inquiry status changed", "inquiryId", id, "from", current.Status, "to", to)
	return s.repo.GetByID(ctx, id)
}

// CanTransition reports whether from→to is an allowed status change.
func CanTransition(from, to string) bool {
	switch to {
	case repository.StatusConfirm, repository.StatusLost:
		return from == repository.StatusPending
	case repository.StatusArchived:
		return isStatus(from) && from != repository.StatusArchived
	default:
		return false
	}
}

func isStatus(status string) bool {
	switch status {
	case repository.StatusPending, repository.StatusConfirm, repository.StatusLost, repository.StatusArchived:
		return true
	}
	return false
}

func validateWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperr.Validation("event end must not precede start")
	}
	return nil
}
