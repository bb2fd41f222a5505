package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Campaign kinds enqueued by the inquiry workflow.
const (
	CampaignKindFollowUp = "FOLLOW_UP"
	CampaignKindConfirm  = "CONFIRM_EMAIL"
	CampaignKindLost     = "LOST_EMAIL"
)

// Template keys rendered for inquiry emails.
const (
	TemplateProposal = "proposal"
	TemplateConfirm  = "confirm-email"
	TemplateLost     = "lost-email"
)

// Recipient is one addressee of an AUTO campaign.
type Recipient struct {
	Email     string
	Name      string
	CC        []string
	Signature string
	Vars      map[string]interface{}
}

// CampaignDraft describes an AUTO campaign whose source is an inquiry.
type CampaignDraft struct {
	Name        string
	Kind        string
	TemplateKey string
	SendOn      time.Time
	InquiryID   uuid.UUID
	Recipients  []Recipient
}

// Campaigns is the campaign port used by the inquiry workflow.
type Campaigns interface {
	Enqueue(ctx context.Context, d CampaignDraft) (uuid.UUID, error)
	// CancelFollowUps cancels pending AUTO follow-up campaigns sourced from the inquiry.
	CancelFollowUps(ctx context.Context, inquiryID uuid.UUID) (int64, error)
}

// Contact is the subset of an inquiry the client directory needs.
type Contact struct {
	Name    string
	Email   string
	Phone   string
	Company string
}

// Clients is the client directory port.
type Clients interface {
	// AddFromInquiry dedups by email and counts one more inquiry for the client.
	AddFromInquiry(ctx context.Context, c Contact) (uuid.UUID, error)
	// RecordInquiry counts one more inquiry for an already selected client.
	RecordInquiry(ctx context.Context, clientID uuid.UUID) error
	IncrementEvents(ctx context.Context, clientID uuid.UUID) error
}

// EngagementDraft is the Event row derived from a confirmed inquiry.
type EngagementDraft struct {
	InquiryID     uuid.UUID
	ClientID      *uuid.UUID
	Name          string
	Venue         string
	Pax           int
	StartDatetime time.Time
	EndDatetime   time.Time
}

// Engagements is the business Event port.
type Engagements interface {
	// UpsertForInquiry reports whether the Event row was newly inserted.
	UpsertForInquiry(ctx context.Context, d EngagementDraft) (bool, error)
	// UpdateWindow moves the Event linked to the inquiry, if one exists.
	UpdateWindow(ctx context.Context, inquiryID uuid.UUID, start, end time.Time) error
}

// PaymentDraft is the payment row derived from the confirmed proposals.
type PaymentDraft struct {
	InquiryID   uuid.UUID
	ClientID    *uuid.UUID
	ProposalIDs []uuid.UUID
	Amount      decimal.Decimal
}

type Payments interface {
	UpsertForInquiry(ctx context.Context, d PaymentDraft) error
}

// ProposalLink is one proposal as listed in the proposal email.
type ProposalLink struct {
	Title string
	Link  string
}

// ProposalEmail is the proposal delivery sent on submit.
type ProposalEmail struct {
	To        string
	Name      string
	CC        []string
	EventName string
	Links     []ProposalLink
	Signature string
}

// Mailer sends the rendered proposal email.
type Mailer interface {
	SendProposal(ctx context.Context, e ProposalEmail) error
}

// User is the salesperson data the workflow needs.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Signature string
}

type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
}

// Ports groups the dependencies wired after construction.
type Ports struct {
	Campaigns   Campaigns
	Clients     Clients
	Engagements Engagements
	Payments    Payments
	Mailer      Mailer
	Users       Users
}
