package adapters

import (
	"context"
	"errors"
	"testing"

	"ims_backend/internal/email"
	inquirysvc "ims_backend/internal/inquiries/service"
	paymentrepo "ims_backend/internal/payments/repository"
	templatesvc "ims_backend/internal/templates/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeDrafter struct {
	draft inquirysvc.PaymentDraft
	err   error
}

func (f fakeDrafter) PaymentDraft(context.Context, uuid.UUID) (inquirysvc.PaymentDraft, error) {
	return f.draft, f.err
}

type fakePayments struct {
	got []paymentrepo.Payment
}

func (f *fakePayments) UpsertForInquiry(_ context.Context, p paymentrepo.Payment) error {
	f.got = append(f.got, p)
	return nil
}

func TestEventPaymentEnsurer_FillsClientFromEvent(t *testing.T) {
	inquiryID, clientID := uuid.New(), uuid.New()
	payments := &fakePayments{}
	ensurer := NewEventPaymentEnsurer(fakeDrafter{draft: inquirysvc.PaymentDraft{
		InquiryID:   inquiryID,
		ProposalIDs: []uuid.UUID{uuid.New()},
		Amount:      decimal.RequireFromString("1250.50"),
	}}, payments)

	if err := ensurer.EnsureForInquiry(context.Background(), inquiryID, &clientID); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(payments.got) != 1 {
		t.Fatalf("expected one upsert, got %d", len(payments.got))
	}
	p := payments.got[0]
	if p.ClientID == nil || *p.ClientID != clientID {
		t.Fatalf("expected client id from event, got %v", p.ClientID)
	}
	if !p.Amount.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("unexpected amount %s", p.Amount)
	}
}

func TestEventPaymentEnsurer_DraftErrorStops(t *testing.T) {
	payments := &fakePayments{}
	ensurer := NewEventPaymentEnsurer(fakeDrafter{err: errors.New("no confirmed proposals")}, payments)
	if err := ensurer.EnsureForInquiry(context.Background(), uuid.New(), nil); err == nil {
		t.Fatalf("expected error")
	}
	if len(payments.got) != 0 {
		t.Fatalf("expected no upsert")
	}
}

type fakeTemplates struct {
	key  string
	vars map[string]interface{}
}

func (f *fakeTemplates) Render(_ context.Context, key string, vars map[string]interface{}) (templatesvc.Rendered, error) {
	f.key, f.vars = key, vars
	return templatesvc.Rendered{Subject: "Your proposal", HTML: "<p>hi</p>"}, nil
}

func (f *fakeTemplates) RenderSource(subject, html string, _ map[string]interface{}) (templatesvc.Rendered, error) {
	return templatesvc.Rendered{Subject: subject, HTML: html}, nil
}

type captureSender struct {
	msgs []email.Message
}

func (c *captureSender) Send(_ context.Context, msg email.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestProposalMailer_SendsWithCC(t *testing.T) {
	templates := &fakeTemplates{}
	sender := &captureSender{}
	mailer := NewProposalMailer(templates, sender)

	err := mailer.SendProposal(context.Background(), inquirysvc.ProposalEmail{
		To:        "client@example.com",
		Name:      "Client",
		CC:        []string{"sales@example.com"},
		EventName: "Gala",
		Links:     []inquirysvc.ProposalLink{{Title: "Option A", Link: "https://example.com/p/1"}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if templates.key != inquirysvc.TemplateProposal {
		t.Fatalf("expected proposal template, got %q", templates.key)
	}
	links, _ := templates.vars["proposal_links"].([]string)
	if len(links) != 1 || links[0] != "https://example.com/p/1" {
		t.Fatalf("unexpected links %v", templates.vars["proposal_links"])
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.msgs))
	}
	to := sender.msgs[0].To
	if len(to) != 2 || to[1].Type != email.RecipientCC || to[1].Email != "sales@example.com" {
		t.Fatalf("unexpected recipients %+v", to)
	}
}
