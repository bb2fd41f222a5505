package service

import (
	"context"
	"strings"
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
	"ims_backend/platform/sanitize"

	"github.com/google/uuid"
)

const TemplateBirthday = "birthday-email"

// Repository is the campaign persistence used by the service.
type Repository interface {
	Create(ctx context.Context, c repository.Campaign) (repository.Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Campaign, error)
	List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Campaign], error)
	ListDue(ctx context.Context, now time.Time) ([]repository.Campaign, error)
	ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]repository.Campaign, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (string, error)
	SetStatus(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error)
	CancelPendingBySource(ctx context.Context, kind, sourceType string, sourceID uuid.UUID) (int64, error)
	ExistsForSourceSince(ctx context.Context, kind, sourceType string, sourceID uuid.UUID, since time.Time) (bool, error)
	InsertReportEvent(ctx context.Context, e repository.ReportEvent) (bool, error)
	ListReportRows(ctx context.Context, campaignID uuid.UUID) ([]domain.ReportRow, error)
}

// Rendered is a subject and body ready to send.
type Rendered struct {
	Subject string
	HTML    string
}

// Renderer resolves stored templates or inline sources.
type Renderer interface {
	Render(ctx context.Context, key string, vars map[string]interface{}) (Rendered, error)
	RenderSource(subject, html string, vars map[string]interface{}) (Rendered, error)
}

// Audience resolves a client list into recipients.
type Audience interface {
	ListRecipients(ctx context.Context, list string) ([]domain.Recipient, error)
}

// Inquiries receives follow-up completion.
type Inquiries interface {
	MarkFollowUpSent(ctx context.Context, inquiryID uuid.UUID, templateKey string) error
}

// Clients receives birthday completion.
type Clients interface {
	StampWished(ctx context.Context, clientID uuid.UUID) error
}

type Metrics interface {
	CampaignDispatched(kind, outcome string)
	EmailSent(outcome string)
}

type Config interface {
	GetSendWindowStartHour() int
	GetSendWindowEndHour() int
	GetSendLocation() *time.Location
	GetCampaignMaxAttempts() int
}

// Ports groups the dependencies wired after construction.
type Ports struct {
	Audience  Audience
	Inquiries Inquiries
	Clients   Clients
}

type Service struct {
	repo        Repository
	tx          db.TxRunner
	renderer    Renderer
	sender      email.Sender
	locks       distlock.Factory
	bus         events.Bus
	metrics     Metrics
	window      domain.Window
	maxAttempts int
	ports       Ports
	log         *logger.Logger
	now         func() time.Time
}

// Deps are the construction-time dependencies of the service.
type Deps struct {
	Repo     Repository
	Tx       db.TxRunner
	Renderer Renderer
	Sender   email.Sender
	Locks    distlock.Factory
	Bus      events.Bus
	Metrics  Metrics
	Config   Config
	Log      *logger.Logger
}

func New(d Deps) *Service {
	maxAttempts := d.Config.GetCampaignMaxAttempts()
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	locks := d.Locks
	if locks == nil {
		locks = distlock.NewFactory(nil, nil)
	}
	return &Service{
		repo:     d.Repo,
		tx:       d.Tx,
		renderer: d.Renderer,
		sender:   d.Sender,
		locks:    locks,
		bus:      d.Bus,
		metrics:  d.Metrics,
		window: domain.Window{
			StartHour: d.Config.GetSendWindowStartHour(),
			EndHour:   d.Config.GetSendWindowEndHour(),
			Location:  d.Config.GetSendLocation(),
		},
		maxAttempts: maxAttempts,
		log:         d.Log,
		now:         time.Now,
	}
}

func (s *Service) SetPorts(p Ports) {
	s.ports = p
}

// AutoInput is a system campaign sourced from a domain entity.
type AutoInput struct {
	Name        string
	Kind        string
	TemplateKey string
	SendOn      time.Time
	SourceType  string
	SourceID    uuid.UUID
	Recipients  []domain.Recipient
}

// Enqueue stores a PENDING AUTO campaign.
func (s *Service) Enqueue(ctx context.Context, in AutoInput) (repository.Campaign, error) {
	if !domain.IsKind(in.Kind) {
		return repository.Campaign{}, apperr.Validation("unknown campaign kind")
	}
	if strings.TrimSpace(in.TemplateKey) == "" {
		return repository.Campaign{}, apperr.Validation("auto campaigns need a template")
	}
	recipients := normalizeRecipients(in.Recipients)
	if len(recipients) == 0 {
		return repository.Campaign{}, apperr.Validation("campaign has no recipients")
	}
	sendOn := in.SendOn
	if sendOn.IsZero() {
		sendOn = s.now()
	}
	key := in.TemplateKey
	sourceType := in.SourceType

	return s.repo.Create(ctx, repository.Campaign{
		Name:             sanitize.Text(in.Name),
		Type:             domain.TypeAuto,
		Kind:             in.Kind,
		Status:           domain.StatusPending,
		TemplateKey:      &key,
		SendOn:           sendOn,
		SendTo:           recipients,
		SourceEntityType: &sourceType,
		SourceEntityID:   &in.SourceID,
	})
}

// CancelFollowUps cancels the pending follow-up campaigns of an inquiry.
func (s *Service) CancelFollowUps(ctx context.Context, inquiryID uuid.UUID) (int64, error) {
	return s.repo.CancelPendingBySource(ctx, domain.KindFollowUp, domain.SourceInquiry, inquiryID)
}

// EnqueueBirthday queues a birthday campaign for a client unless one was
// already queued this calendar year.
func (s *Service) EnqueueBirthday(ctx context.Context, clientID uuid.UUID, address, name string, sendOn time.Time) (bool, error) {
	loc := s.window.Location
	if loc == nil {
		loc = time.Local
	}
	local := sendOn.In(loc)
	since := time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)

	exists, err := s.repo.ExistsForSourceSince(ctx, domain.KindBirthday, domain.SourceClient, clientID, since)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := s.Enqueue(ctx, AutoInput{
		Name:        "Birthday: " + address,
		Kind:        domain.KindBirthday,
		TemplateKey: TemplateBirthday,
		SendOn:      sendOn,
		SourceType:  domain.SourceClient,
		SourceID:    clientID,
		Recipients:  []domain.Recipient{{Email: address, Name: name, Vars: map[string]interface{}{"name": name}}},
	}); err != nil {
		return false, err
	}
	return true, nil
}

// CreateInput is a USER campaign. Recipients are explicit or resolved from List.
type CreateInput struct {
	Name        string
	Kind        string
	TemplateKey string
	Subject     string
	HTML        string
	SendOn      *time.Time
	Recipients  []domain.Recipient
	List        string
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (repository.Campaign, error) {
	kind := strings.ToUpper(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = domain.KindNewsletter
	}
	if !domain.IsKind(kind) {
		return repository.Campaign{}, apperr.Validation("unknown campaign kind")
	}

	c := repository.Campaign{
		Name:      sanitize.Text(in.Name),
		Type:      domain.TypeUser,
		Kind:      kind,
		Status:    domain.StatusPending,
		SendOn:    s.now(),
		CreatedBy: &actorID,
	}
	if in.SendOn != nil {
		c.SendOn = *in.SendOn
	}

	if key := strings.TrimSpace(in.TemplateKey); key != "" {
		c.TemplateKey = &key
	} else {
		if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.HTML) == "" {
			return repository.Campaign{}, apperr.Validation("a template or a subject and body are required")
		}
		if _, err := s.renderer.RenderSource(in.Subject, in.HTML, nil); err != nil {
			return repository.Campaign{}, apperr.Validation("invalid campaign template: " + err.Error())
		}
		c.Subject = in.Subject
		c.HTML = in.HTML
	}

	recipients := in.Recipients
	if len(recipients) == 0 && strings.TrimSpace(in.List) != "" {
		if s.ports.Audience == nil {
			return repository.Campaign{}, apperr.Internal("client lists are not wired")
		}
		resolved, err := s.ports.Audience.ListRecipients(ctx, in.List)
		if err != nil {
			return repository.Campaign{}, err
		}
		recipients = resolved
	}
	c.SendTo = normalizeRecipients(recipients)
	if len(c.SendTo) == 0 {
		return repository.Campaign{}, apperr.Validation("campaign has no recipients")
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return repository.Campaign{}, err
	}
	s.log.Info("campaign created", "campaignId", created.ID, "kind", created.Kind, "recipients", len(created.SendTo))

	if !created.SendOn.After(s.now()) && s.bus != nil {
		s.bus.Publish(ctx, events.CampaignQueued{
			BaseEvent:  events.NewBaseEvent(),
			CampaignID: created.ID,
			Kind:       created.Kind,
		})
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Campaign, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Campaign], error) {
	return s.repo.List(ctx, params)
}

// Cancel stops a campaign that has not been sent yet.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (repository.Campaign, error) {
	return s.move(ctx, id, []string{domain.StatusPending}, domain.StatusCancelled)
}

// Archive hides a finished campaign from the default views.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) (repository.Campaign, error) {
	return s.move(ctx, id, []string{domain.StatusCompleted, domain.StatusCancelled}, domain.StatusArchived)
}

func (s *Service) move(ctx context.Context, id uuid.UUID, from []string, to string) (repository.Campaign, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Campaign{}, err
	}
	if current.Status == to {
		return current, nil
	}
	changed, err := s.repo.SetStatus(ctx, id, from, to)
	if err != nil {
		return repository.Campaign{}, err
	}
	if !changed {
		return repository.Campaign{}, apperr.Validation("campaign is " + strings.ToLower(current.Status))
	}
	return s.repo.GetByID(ctx, id)
}

// Report aggregates the webhook callbacks of a campaign.
func (s *Service) Report(ctx context.Context, id uuid.UUID) (domain.Report, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return domain.Report{}, err
	}
	rows, err := s.repo.ListReportRows(ctx, id)
	if err != nil {
		return domain.Report{}, err
	}
	return domain.BuildReport(rows), nil
}

// RecordReportEvent stores one webhook callback. stored is false for a
// duplicate callback or an unknown campaign.
func (s *Service) RecordReportEvent(ctx context.Context, e repository.ReportEvent) (bool, error) {
	if !domain.IsReportEvent(e.Event) {
		return false, apperr.Validation("unknown report event")
	}
	e.Email = sanitize.Email(e.Email)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	return s.repo.InsertReportEvent(ctx, e)
}

// normalizeRecipients drops blank addresses and duplicates by lowercase email.
func normalizeRecipients(in []domain.Recipient) []domain.Recipient {
	seen := make(map[string]bool, len(in))
	out := make([]domain.Recipient, 0, len(in))
	for _, r := range in {
		addr := sanitize.Email(r.Email)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		r.Email = addr
		r.Name = sanitize.Text(r.Name)
		out = append(out, r)
	}
	return out
}
