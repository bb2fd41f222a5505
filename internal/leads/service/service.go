package service

import (
	"context"
	"time"

	"ims_backend/internal/leads/repository"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"
	"ims_backend/platform/phone"
	"ims_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the lead persistence used by the service.
type Repository interface {
	Create(ctx context.Context, l repository.Lead) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	GetActiveForUpdate(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Lead], error)
	Update(ctx context.Context, id uuid.UUID, u repository.LeadUpdate) (repository.Lead, error)
	SoftDelete(ctx context.Context, id uuid.UUID, inquiryID *uuid.UUID) error
}

// Conversion carries a lead and the event details captured while converting it.
type Conversion struct {
	LeadID        uuid.UUID
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Company       string
	EventName     string
	Venue         string
	Pax           int
	Start         time.Time
	End           time.Time
	SalespersonID *uuid.UUID
	ActorID       uuid.UUID
}

// InquiryCreator creates the inquiry a lead converts into.
type InquiryCreator interface {
	CreateFromLead(ctx context.Context, c Conversion) (uuid.UUID, error)
}

type CreateInput struct {
	Name       string
	Email      string
	Phone      string
	Company    string
	Source     string
	Notes      string
	AssignedTo *uuid.UUID
}

type ConvertInput struct {
	EventName     string
	Venue         string
	Pax           int
	Start         time.Time
	End           time.Time
	SalespersonID *uuid.UUID
}

type Service struct {
	repo      Repository
	tx        db.TxRunner
	inquiries InquiryCreator
	log       *logger.Logger
}

func New(repo Repository, tx db.TxRunner, log *logger.Logger) *Service {
	return &Service{repo: repo, tx: tx, log: log}
}

// SetInquiryCreator wires the inquiries port.
func (s *Service) SetInquiryCreator(c InquiryCreator) {
	s.inquiries = c
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (repository.Lead, error) {
	email := sanitize.Email(in.Email)
	if email == "" {
		return repository.Lead{}, apperr.Validation("email is required")
	}

	lead, err := s.repo.Create(ctx, repository.Lead{
		Name:       sanitize.Text(in.Name),
		Email:      email,
		Phone:      phone.NormalizeE164(in.Phone),
		Company:    sanitize.Text(in.Company),
		Source:     sanitize.Text(in.Source),
		Notes:      sanitize.Notes(in.Notes),
		AssignedTo: in.AssignedTo,
		CreatedBy:  &actorID,
	})
	if err != nil {
		return repository.Lead{}, err
	}
	s.log.Info("lead created", "leadId", lead.ID)
	return lead, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Lead], error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, u repository.LeadUpdate) (repository.Lead, error) {
	u.Name = sanitize.TextPtr(u.Name)
	u.Company = sanitize.TextPtr(u.Company)
	u.Source = sanitize.TextPtr(u.Source)
	if u.Notes != nil {
		notes := sanitize.Notes(*u.Notes)
		u.Notes = &notes
	}
	if u.Phone != nil {
		normalized := phone.NormalizeE164(*u.Phone)
		u.Phone = &normalized
	}
	return s.repo.Update(ctx, id, u)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id, nil)
}

// Convert turns an ACTIVE lead into an inquiry and retires the lead with a
// reference to it. Both writes share one transaction.
func (s *Service) Convert(ctx context.Context, id uuid.UUID, in ConvertInput, actorID uuid.UUID) (uuid.UUID, error) {
	if s.inquiries == nil {
		return uuid.Nil, apperr.Internal("lead conversion is not configured")
	}
	if in.End.Before(in.Start) {
		return uuid.Nil, apperr.Validation("event end must not precede start")
	}

	var inquiryID uuid.UUID
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		lead, err := s.repo.GetActiveForUpdate(ctx, id)
		if err != nil {
			return err
		}

		salesperson := in.SalespersonID
		if salesperson == nil {
			salesperson = lead.AssignedTo
		}

		inquiryID, err = s.inquiries.CreateFromLead(ctx, Conversion{
			LeadID:        lead.ID,
			ContactName:   lead.Name,
			ContactEmail:  lead.Email,
			ContactPhone:  lead.Phone,
			Company:       lead.Company,
			EventName:     sanitize.Text(in.EventName),
			Venue:         sanitize.Text(in.Venue),
			Pax:           in.Pax,
			Start:         in.Start,
			End:           in.End,
			SalespersonID: salesperson,
			ActorID:       actorID,
		})
		if err != nil {
			return err
		}
		return s.repo.SoftDelete(ctx, lead.ID, &inquiryID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.log.Info("lead converted", "leadId", id, "inquiryId", inquiryID)
	return inquiryID, nil
}
