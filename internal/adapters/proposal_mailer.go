package adapters

import (
	"context"
	"fmt"

	"ims_backend/internal/email"
	inquirysvc "ims_backend/internal/inquiries/service"
	templatesvc "ims_backend/internal/templates/service"
)

// TemplateSource renders stored templates.
type TemplateSource interface {
	Render(ctx context.Context, key string, vars map[string]interface{}) (templatesvc.Rendered, error)
	RenderSource(subject, html string, vars map[string]interface{}) (templatesvc.Rendered, error)
}

// ProposalMailer renders the proposal template and sends it right away.
// It implements inquiries/service.Mailer.
type ProposalMailer struct {
	templates TemplateSource
	sender    email.Sender
}

func NewProposalMailer(templates TemplateSource, sender email.Sender) *ProposalMailer {
	return &ProposalMailer{templates: templates, sender: sender}
}

func (m *ProposalMailer) SendProposal(ctx context.Context, e inquirysvc.ProposalEmail) error {
	links := make([]string, 0, len(e.Links))
	proposals := make([]map[string]interface{}, 0, len(e.Links))
	for _, l := range e.Links {
		links = append(links, l.Link)
		proposals = append(proposals, map[string]interface{}{"title": l.Title, "link": l.Link})
	}

	rendered, err := m.templates.Render(ctx, inquirysvc.TemplateProposal, map[string]interface{}{
		"name":           e.Name,
		"event_name":     e.EventName,
		"proposal_links": links,
		"proposals":      proposals,
		"signature":      e.Signature,
	})
	if err != nil {
		return fmt.Errorf("render proposal email: %w", err)
	}

	to := []email.Address{{Email: e.To, Name: e.Name, Type: email.RecipientTo}}
	for _, cc := range e.CC {
		to = append(to, email.Address{Email: cc, Type: email.RecipientCC})
	}
	msg := email.Message{
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
		To:          to,
		TrackOpens:  true,
		TrackClicks: true,
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send proposal email: %w", err)
	}
	return nil
}

var _ inquirysvc.Mailer = (*ProposalMailer)(nil)
