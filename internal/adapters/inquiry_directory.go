package adapters

import (
	"context"
	"fmt"
	"time"

	authrepo "ims_backend/internal/auth/repository"
	clientrepo "ims_backend/internal/clients/repository"
	clientsvc "ims_backend/internal/clients/service"
	engagementrepo "ims_backend/internal/engagements/repository"
	inquirysvc "ims_backend/internal/inquiries/service"
	paymentrepo "ims_backend/internal/payments/repository"

	"github.com/google/uuid"
)

// ClientDirectory is the client service surface used by the inquiry workflow.
type ClientDirectory interface {
	AddClient(ctx context.Context, in clientsvc.AddClientInput, origin string) (clientrepo.Client, bool, error)
	RecordInquiry(ctx context.Context, id uuid.UUID) error
	IncrementEvents(ctx context.Context, id uuid.UUID) error
}

// InquiryClients adapts the client directory to inquiries/service.Clients.
type InquiryClients struct {
	clients ClientDirectory
}

func NewInquiryClients(clients ClientDirectory) *InquiryClients {
	return &InquiryClients{clients: clients}
}

// AddFromInquiry returns the id of the new or deduplicated client.
func (a *InquiryClients) AddFromInquiry(ctx context.Context, c inquirysvc.Contact) (uuid.UUID, error) {
	client, _, err := a.clients.AddClient(ctx, clientsvc.AddClientInput{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Company: c.Company,
	}, clientsvc.OriginInquiry)
	if err != nil {
		return uuid.Nil, fmt.Errorf("add client from inquiry: %w", err)
	}
	return client.ID, nil
}

func (a *InquiryClients) RecordInquiry(ctx context.Context, clientID uuid.UUID) error {
	return a.clients.RecordInquiry(ctx, clientID)
}

func (a *InquiryClients) IncrementEvents(ctx context.Context, clientID uuid.UUID) error {
	return a.clients.IncrementEvents(ctx, clientID)
}

// EventWriter is the engagements service surface used by the inquiry workflow.
type EventWriter interface {
	UpsertForInquiry(ctx context.Context, e engagementrepo.Event) (bool, error)
	UpdateWindow(ctx context.Context, inquiryID uuid.UUID, start, end time.Time) error
}

// InquiryEngagements adapts the engagements service to inquiries/service.Engagements.
type InquiryEngagements struct {
	events EventWriter
}

func NewInquiryEngagements(events EventWriter) *InquiryEngagements {
	return &InquiryEngagements{events: events}
}

func (a *InquiryEngagements) UpsertForInquiry(ctx context.Context, d inquirysvc.EngagementDraft) (bool, error) {
	return a.events.UpsertForInquiry(ctx, engagementrepo.Event{
		InquiryID:     d.InquiryID,
		ClientID:      d.ClientID,
		Name:          d.Name,
		Venue:         d.Venue,
		Pax:           d.Pax,
		StartDatetime: d.StartDatetime,
		EndDatetime:   d.EndDatetime,
	})
}

func (a *InquiryEngagements) UpdateWindow(ctx context.Context, inquiryID uuid.UUID, start, end time.Time) error {
	return a.events.UpdateWindow(ctx, inquiryID, start, end)
}

// PaymentWriter is the payments service surface shared by the inquiry and
// engagement adapters.
type PaymentWriter interface {
	UpsertForInquiry(ctx context.Context, p paymentrepo.Payment) error
}

// InquiryPayments adapts the payments service to inquiries/service.Payments.
type InquiryPayments struct {
	payments PaymentWriter
}

func NewInquiryPayments(payments PaymentWriter) *InquiryPayments {
	return &InquiryPayments{payments: payments}
}

func (a *InquiryPayments) UpsertForInquiry(ctx context.Context, d inquirysvc.PaymentDraft) error {
	return a.payments.UpsertForInquiry(ctx, toPayment(d))
}

func toPayment(d inquirysvc.PaymentDraft) paymentrepo.Payment {
	return paymentrepo.Payment{
		InquiryID:   d.InquiryID,
		ClientID:    d.ClientID,
		ProposalIDs: d.ProposalIDs,
		Amount:      d.Amount,
	}
}

// UserReader looks up salespeople.
type UserReader interface {
	GetUser(ctx context.Context, userID uuid.UUID) (authrepo.User, error)
}

// InquiryUsers adapts the auth service to inquiries/service.Users.
type InquiryUsers struct {
	users UserReader
}

func NewInquiryUsers(users UserReader) *InquiryUsers {
	return &InquiryUsers{users: users}
}

func (a *InquiryUsers) GetUser(ctx context.Context, id uuid.UUID) (inquirysvc.User, error) {
	u, err := a.users.GetUser(ctx, id)
	if err != nil {
		return inquirysvc.User{}, err
	}
	return inquirysvc.User{ID: u.ID, Email: u.Email, Name: u.Name, Signature: u.Signature}, nil
}

var (
	_ inquirysvc.Clients     = (*InquiryClients)(nil)
	_ inquirysvc.Engagements = (*InquiryEngagements)(nil)
	_ inquirysvc.Payments    = (*InquiryPayments)(nil)
	_ inquirysvc.Users       = (*InquiryUsers)(nil)
)
