package service

import (
	"context"
	"strings"
	"time"

	"ims_backend/internal/clients/repository"
	"ims_backend/internal/events"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"
	"ims_backend/platform/phone"
	"ims_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Origins accepted by AddClient. Only inquiries count toward total_inquiries.
const (
	OriginInquiry = "inquiry"
	OriginManual  = "manual"
	OriginLead    = "lead"
	OriginImport  = "import"
)

// Repository is the client persistence used by the service.
type Repository interface {
	InsertOrGet(ctx context.Context, c repository.Client, inquiryDelta int) (repository.Client, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Client, error)
	GetByEmail(ctx context.Context, email string) (repository.Client, error)
	List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Client], error)
	Update(ctx context.Context, id uuid.UUID, u repository.ClientUpdate) (repository.Client, error)
	Lists(ctx context.Context) ([]string, error)
	MoveToListByEmail(ctx context.Context, email, list string) (int64, error)
	SetSubscribed(ctx context.Context, id uuid.UUID, subscribed bool) error
	StampWished(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrementInquiries(ctx context.Context, id uuid.UUID) error
	IncrementEvents(ctx context.Context, id uuid.UUID) error
	AddSpent(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	ListBirthdays(ctx context.Context, month, day, year int) ([]repository.Client, error)
	ListRecipients(ctx context.Context, list string) ([]repository.Client, error)
}

// BirthdayRecipient is the payload handed to the campaign module.
type BirthdayRecipient struct {
	ClientID uuid.UUID
	Email    string
	Name     string
}

// BirthdayEnqueuer creates one BIRTHDAY campaign per client.
// It reports false when an open campaign for the client already exists.
type BirthdayEnqueuer interface {
	EnqueueBirthday(ctx context.Context, r BirthdayRecipient, sendOn time.Time) (bool, error)
}

type AddClientInput struct {
	Name      string
	Email     string
	Phone     string
	Company   string
	List      string
	BirthDate *time.Time
}

type Service struct {
	repo     Repository
	birthday BirthdayEnqueuer
	log      *logger.Logger
	now      func() time.Time
}

func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// SetBirthdayEnqueuer wires the campaign port after the campaigns module exists.
func (s *Service) SetBirthdayEnqueuer(e BirthdayEnqueuer) {
	s.birthday = e
}

// AddClient inserts a client or returns the existing one with the same email.
// existed is true for the latter; total_inquiries moves only for inquiry origins.
func (s *Service) AddClient(ctx context.Context, in AddClientInput, origin string) (repository.Client, bool, error) {
	email := sanitize.Email(in.Email)
	if email == "" {
		return repository.Client{}, false, apperr.Validation("email is required")
	}

	list := strings.TrimSpace(in.List)
	if list == "" {
		list = repository.ListProspects
	}

	inquiries := 0
	if origin == OriginInquiry {
		inquiries = 1
	}

	client, created, err := s.repo.InsertOrGet(ctx, repository.Client{
		Name:           sanitize.Text(in.Name),
		Email:          email,
		Phone:          phone.NormalizeE164(in.Phone),
		Company:        sanitize.Text(in.Company),
		List:           strings.ToUpper(list),
		BirthDate:      in.BirthDate,
		TotalInquiries: inquiries,
	}, inquiries)
	if err != nil {
		return repository.Client{}, false, err
	}
	if created {
		s.log.Info("client created", "clientId", client.ID, "origin", origin)
	}
	return client, !created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Client, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Client], error) {
	params.List = strings.ToUpper(strings.TrimSpace(params.List))
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, u repository.ClientUpdate) (repository.Client, error) {
	u.Name = sanitize.TextPtr(u.Name)
	u.Company = sanitize.TextPtr(u.Company)
	if u.Phone != nil {
		normalized := phone.NormalizeE164(*u.Phone)
		u.Phone = &normalized
	}
	if u.List != nil {
		list := strings.ToUpper(strings.TrimSpace(*u.List))
		if list == "" {
			return repository.Client{}, apperr.Validation("list must not be empty")
		}
		u.List = &list
	}
	return s.repo.Update(ctx, id, u)
}

func (s *Service) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetSubscribed(ctx, id, false)
}

func (s *Service) Lists(ctx context.Context) ([]string, error) {
	return s.repo.Lists(ctx)
}

// MarkBounced moves every client with email to the DELETED list.
// Unknown addresses are ignored.
func (s *Service) MarkBounced(ctx context.Context, email string) error {
	email = sanitize.Email(email)
	if email == "" {
		return nil
	}
	n, err := s.repo.MoveToListByEmail(ctx, email, repository.ListDeleted)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("client moved to deleted list after bounce", "email", email)
	}
	return nil
}

func (s *Service) StampWished(ctx context.Context, id uuid.UUID) error {
	return s.repo.StampWished(ctx, id, s.now())
}

// RecordInquiry counts one more inquiry for a client picked from the directory.
func (s *Service) RecordInquiry(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.IncrementInquiries(ctx, id)
}

func (s *Service) IncrementEvents(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementEvents(ctx, id)
}

func (s *Service) AddSpent(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperr.Validation("amount must not be negative")
	}
	if amount.IsZero() {
		return nil
	}
	return s.repo.AddSpent(ctx, id, amount)
}

// ListRecipients returns the subscribed members of list for USER campaigns.
func (s *Service) ListRecipients(ctx context.Context, list string) ([]repository.Client, error) {
	list = strings.ToUpper(strings.TrimSpace(list))
	if list == repository.ListDeleted {
		return nil, apperr.Validation("cannot send to the deleted list")
	}
	return s.repo.ListRecipients(ctx, list)
}

// ScheduleBirthdays enqueues a BIRTHDAY campaign for every client whose birthday
// is today. It returns the number of campaigns created.
func (s *Service) ScheduleBirthdays(ctx context.Context, today time.Time) (int, error) {
	if s.birthday == nil {
		return 0, apperr.Internal("birthday campaigns are not configured")
	}

	clients, err := s.repo.ListBirthdays(ctx, int(today.Month()), today.Day(), today.Year())
	if err != nil {
		return 0, err
	}

	created := 0
	for _, c := range clients {
		ok, err := s.birthday.EnqueueBirthday(ctx, BirthdayRecipient{
			ClientID: c.ID,
			Email:    c.Email,
			Name:     c.Name,
		}, today)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	s.log.Info("birthday campaigns scheduled", "date", today.Format("2006-01-02"), "candidates", len(clients), "created", created)
	return created, nil
}

// RegisterHandlers subscribes the service to domain events it reacts to.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ClientBounced{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		bounced, ok := e.(events.ClientBounced)
		if !ok {
			return nil
		}
		return s.MarkBounced(ctx, bounced.Email)
	}))
}
