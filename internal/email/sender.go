// Package email delivers rendered campaign messages through the configured
// transport: Mandrill (with open/click tracking), SMTP or a no-op sender.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ims_backend/platform/config"
)

// Recipient types understood by every transport.
const (
	RecipientTo = "to"
	RecipientCC = "cc"
)

// Transport names accepted by EMAIL_TRANSPORT.
const (
	TransportMandrill = "mandrill"
	TransportSMTP     = "smtp"
)

// ErrNoRecipients is returned when a message has no "to" address.
var ErrNoRecipients = errors.New("email: message has no recipients")

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string
	MIMEType string
}

// Address is a single recipient.
type Address struct {
	Email string
	Name  string
	Type  string
}

// Message is one outbound email. CampaignID is echoed back by Mandrill
// webhooks as metadata.campaignId.
type Message struct {
	Subject     string
	HTML        string
	To          []Address
	TrackOpens  bool
	TrackClicks bool
	CampaignID  string
	Attachments []Attachment
}

// Validate checks the message has a subject and at least one primary recipient.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("email: subject is required")
	}
	for _, to := range m.To {
		if to.Type == "" || to.Type == RecipientTo {
			return nil
		}
	}
	return ErrNoRecipients
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops every message. Used when email is disabled.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }

// NewSender picks the transport from config.
func NewSender(cfg config.EmailConfig, smtp config.SMTPConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch strings.ToLower(cfg.GetEmailTransport()) {
	case "", TransportMandrill:
		if cfg.GetMandrillAPIKey() == "" {
			return nil, errors.New("MANDRILL_API_KEY is required for the mandrill transport")
		}
		return NewMandrillSender(cfg.GetMandrillAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	case TransportSMTP:
		if smtp == nil || smtp.GetSMTPHost() == "" {
			return nil, errors.New("SMTP_HOST is required for the smtp transport")
		}
		return NewSMTPSender(
			smtp.GetSMTPHost(), smtp.GetSMTPPort(), smtp.GetSMTPUsername(), smtp.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		), nil
	default:
		return nil, fmt.Errorf("unknown email transport %q", cfg.GetEmailTransport())
	}
}
