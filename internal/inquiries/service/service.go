package service

import (
	"context"
	"strings"
	"time"

	"ims_backend/internal/events"
	"ims_backend/internal/inquiries/domain"
	"ims_backend/internal/inquiries/repository"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"
	"ims_backend/platform/phone"
	"ims_backend/platform/sanitize"

	"github.com/google/uuid"
)

const systemActor = "IMS"

// Repository is the inquiry and proposal persistence used by the service.
type Repository interface {
	Create(ctx context.Context, i repository.Inquiry) (repository.Inquiry, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Inquiry, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (repository.Inquiry, error)
	List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Inquiry], error)
	Update(ctx context.Context, id uuid.UUID, u repository.InquiryUpdate) (repository.Inquiry, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.Status, lostReason *string, entry domain.Activity) error
	AppendActivity(ctx context.Context, id uuid.UUID, entries ...domain.Activity) error
	SetFollowUps(ctx context.Context, id uuid.UUID, f domain.FollowUps) error

	CreateProposal(ctx context.Context, p repository.Proposal) (repository.Proposal, error)
	GetProposal(ctx context.Context, inquiryID, id uuid.UUID) (repository.Proposal, error)
	ReplaceProposal(ctx context.Context, p repository.Proposal) (repository.Proposal, error)
	ListProposals(ctx context.Context, inquiryID uuid.UUID) ([]repository.Proposal, error)
	ListProposalsByIDs(ctx context.Context, inquiryID uuid.UUID, ids []uuid.UUID) ([]repository.Proposal, error)
	SetProposalsConfirmed(ctx context.Context, inquiryID uuid.UUID, ids []uuid.UUID, confirmed bool) (int64, error)
	DeleteProposal(ctx context.Context, inquiryID, id uuid.UUID) error
}

// Config is the configuration the inquiry workflow reads.
type Config interface {
	GetFollowUpCCRoster() []string
}

type Service struct {
	repo   Repository
	tx     db.TxRunner
	bus    events.Bus
	ports  Ports
	roster []string
	log    *logger.Logger
	now    func() time.Time
}

func New(repo Repository, tx db.TxRunner, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		bus:    bus,
		roster: cfg.GetFollowUpCCRoster(),
		log:    log,
		now:    time.Now,
	}
}

// SetPorts wires the cross-module dependencies.
func (s *Service) SetPorts(p Ports) {
	s.ports = p
}

type CreateInput struct {
	ClientID        *uuid.UUID
	LeadID          *uuid.UUID
	SalespersonID   *uuid.UUID
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	Company         string
	AccountantEmail string
	EventName       string
	Venue           string
	Pax             int
	StartDatetime   time.Time
	EndDatetime     time.Time
	ScopeOfWork     []domain.ScopeItem
}

// Detail is an inquiry with its proposals.
type Detail struct {
	Inquiry   repository.Inquiry
	Proposals []repository.Proposal
}

// Create records a NEW inquiry, links or creates its client and schedules the
// follow-up emails, all in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (repository.Inquiry, error) {
	email := sanitize.Email(in.ContactEmail)
	if email == "" {
		return repository.Inquiry{}, apperr.Validation("contact email is required")
	}
	if in.EndDatetime.Before(in.StartDatetime) {
		return repository.Inquiry{}, apperr.Validation("event end must not precede start")
	}

	actor := s.actorName(ctx, actorID)
	var id uuid.UUID
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		contact := Contact{
			Name:    sanitize.Text(in.ContactName),
			Email:   email,
			Phone:   phone.NormalizeE164(in.ContactPhone),
			Company: sanitize.Text(in.Company),
		}

		clientID := in.ClientID
		if clientID != nil {
			if err := s.ports.Clients.RecordInquiry(ctx, *clientID); err != nil {
				return err
			}
		} else {
			created, err := s.ports.Clients.AddFromInquiry(ctx, contact)
			if err != nil {
				return err
			}
			clientID = &created
		}

		var createdBy *uuid.UUID
		if actorID != uuid.Nil {
			createdBy = &actorID
		}

		inquiry, err := s.repo.Create(ctx, repository.Inquiry{
			ClientID:        clientID,
			LeadID:          in.LeadID,
			SalespersonID:   in.SalespersonID,
			ContactName:     contact.Name,
			ContactEmail:    contact.Email,
			ContactPhone:    contact.Phone,
			Company:         contact.Company,
			AccountantEmail: sanitize.Email(in.AccountantEmail),
			EventName:       sanitize.Text(in.EventName),
			Venue:           sanitize.Text(in.Venue),
			Pax:             in.Pax,
			StartDatetime:   in.StartDatetime,
			EndDatetime:     in.EndDatetime,
			ScopeOfWork:     in.ScopeOfWork,
			Status:          domain.StatusNew,
			FollowUps:       domain.InitialFollowUps(),
			Activity:        []domain.Activity{s.activity("Inquiry created by " + actor)},
			CreatedBy:       createdBy,
		})
		if err != nil {
			return err
		}
		id = inquiry.ID

		_, err = s.scheduleLocked(ctx, inquiry)
		return err
	})
	if err != nil {
		return repository.Inquiry{}, err
	}

	s.log.Info("inquiry created", "inquiryId", id, "leadId", in.LeadID)
	return s.repo.GetByID(ctx, id)
}

// CreateFromLead creates an inquiry for a converted lead.
func (s *Service) CreateFromLead(ctx context.Context, leadID uuid.UUID, in CreateInput, actorID uuid.UUID) (repository.Inquiry, error) {
	in.LeadID = &leadID
	return s.Create(ctx, in, actorID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	inquiry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	proposals, err := s.repo.ListProposals(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Inquiry: inquiry, Proposals: proposals}, nil
}

func (s *Service) List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Inquiry], error) {
	if params.Status != "" && !domain.Status(params.Status).IsValid() {
		return paging.Page[repository.Inquiry]{}, apperr.Validation("unknown inquiry status")
	}
	return s.repo.List(ctx, params)
}

// Edit updates an inquiry. A moved event window cancels the AUTO follow-ups,
// resets the schedule and plans it again from the new start. The linked Event
// row follows the new window.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, u repository.InquiryUpdate, actorID uuid.UUID) (repository.Inquiry, error) {
	actor := s.actorName(ctx, actorID)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == domain.StatusDeleted {
			return apperr.Validation("a deleted inquiry cannot be edited")
		}

		start, end := current.StartDatetime, current.EndDatetime
		if u.StartDatetime != nil {
			start = *u.StartDatetime
		}
		if u.EndDatetime != nil {
			end = *u.EndDatetime
		}
		if end.Before(start) {
			return apperr.Validation("event end must not precede start")
		}
		windowChanged := !start.Equal(current.StartDatetime) || !end.Equal(current.EndDatetime)

		u.ContactName = sanitize.TextPtr(u.ContactName)
		u.Company = sanitize.TextPtr(u.Company)
		u.EventName = sanitize.TextPtr(u.EventName)
		u.Venue = sanitize.TextPtr(u.Venue)
		if u.ContactPhone != nil {
			normalized := phone.NormalizeE164(*u.ContactPhone)
			u.ContactPhone = &normalized
		}
		if u.AccountantEmail != nil {
			normalized := sanitize.Email(*u.AccountantEmail)
			u.AccountantEmail = &normalized
		}

		updated, err := s.repo.Update(ctx, id, u)
		if err != nil {
			return err
		}
		if err := s.repo.AppendActivity(ctx, id, s.activity("Inquiry updated by "+actor)); err != nil {
			return err
		}

		if !windowChanged {
			return nil
		}

		cancelled, err := s.ports.Campaigns.CancelFollowUps(ctx, id)
		if err != nil {
			return err
		}
		if cancelled > 0 {
			if err := s.repo.AppendActivity(ctx, id, s.activity("Follow-up emails cancelled by "+actor)); err != nil {
				return err
			}
		}

		// Decided inquiries keep their schedule closed; only open ones re-plan.
		if !updated.Status.IsOpen() {
			if err := s.repo.SetFollowUps(ctx, id, current.FollowUps.Cancel()); err != nil {
				return err
			}
			return s.ports.Engagements.UpdateWindow(ctx, id, start, end)
		}

		updated.FollowUps = domain.InitialFollowUps()
		if err := s.repo.SetFollowUps(ctx, id, updated.FollowUps); err != nil {
			return err
		}
		if _, err := s.scheduleLocked(ctx, updated); err != nil {
			return err
		}
		return s.ports.Engagements.UpdateWindow(ctx, id, start, end)
	})
	if err != nil {
		return repository.Inquiry{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete soft-deletes an open inquiry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	actor := s.actorName(ctx, actorID)
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(current.Status, domain.StatusDeleted); err != nil {
			return err
		}
		return s.repo.SetStatus(ctx, id, domain.StatusDeleted, nil, s.activity("Inquiry deleted by "+actor))
	})
}

// RecordActivity appends one line to the inquiry's activity log.
func (s *Service) RecordActivity(ctx context.Context, id uuid.UUID, message string) error {
	return s.repo.AppendActivity(ctx, id, s.activity(message))
}

func (s *Service) activity(message string) domain.Activity {
	return domain.Activity{Message: message, DateTime: s.now()}
}

// actorName resolves the display name used in activity lines.
func (s *Service) actorName(ctx context.Context, actorID uuid.UUID) string {
	if actorID == uuid.Nil || s.ports.Users == nil {
		return systemActor
	}
	u, err := s.ports.Users.GetUser(ctx, actorID)
	if err != nil {
		s.log.Warn("activity actor lookup failed", "userId", actorID, "error", err)
		return "unknown user"
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

func (s *Service) salesperson(ctx context.Context, inquiry repository.Inquiry) (User, bool) {
	if inquiry.SalespersonID == nil || s.ports.Users == nil {
		return User{}, false
	}
	u, err := s.ports.Users.GetUser(ctx, *inquiry.SalespersonID)
	if err != nil {
		s.log.Warn("salesperson lookup failed", "userId", *inquiry.SalespersonID, "error", err)
		return User{}, false
	}
	return u, true
}

func checkTransition(from, to domain.Status) error {
	if !domain.CanTransition(from, to) {
		return apperr.Validation("inquiry cannot move from " + string(from) + " to " + string(to))
	}
	return nil
}
