package adapters

import (
	"context"
	"fmt"
	"time"

	"ims_backend/internal/campaigns/domain"
	campaignsvc "ims_backend/internal/campaigns/service"
	inquirysvc "ims_backend/internal/inquiries/service"
	paymentsvc "ims_backend/internal/payments/service"

	"github.com/google/uuid"
)

// InquiryReader loads an inquiry with its proposals.
type InquiryReader interface {
	Get(ctx context.Context, id uuid.UUID) (inquirysvc.Detail, error)
	RecordActivity(ctx context.Context, id uuid.UUID, message string) error
}

// PaymentInquiries adapts the inquiry service to payments/service.Inquiries.
type PaymentInquiries struct {
	inquiries InquiryReader
}

func NewPaymentInquiries(inquiries InquiryReader) *PaymentInquiries {
	return &PaymentInquiries{inquiries: inquiries}
}

func (a *PaymentInquiries) Contact(ctx context.Context, inquiryID uuid.UUID) (paymentsvc.InquiryContact, error) {
	detail, err := a.inquiries.Get(ctx, inquiryID)
	if err != nil {
		return paymentsvc.InquiryContact{}, fmt.Errorf("look up inquiry for invoice email: %w", err)
	}
	i := detail.Inquiry
	return paymentsvc.InquiryContact{
		Name:            i.ContactName,
		Email:           i.ContactEmail,
		AccountantEmail: i.AccountantEmail,
		EventName:       i.EventName,
	}, nil
}

func (a *PaymentInquiries) RecordActivity(ctx context.Context, inquiryID uuid.UUID, message string) error {
	return a.inquiries.RecordActivity(ctx, inquiryID, message)
}

// PaymentCampaigns adapts the campaign service to payments/service.Campaigns.
// Invoice emails are AUTO campaigns due immediately.
type PaymentCampaigns struct {
	campaigns CampaignEnqueuer
	now       func() time.Time
}

func NewPaymentCampaigns(svc *campaignsvc.Service) *PaymentCampaigns {
	return &PaymentCampaigns{campaigns: svc, now: time.Now}
}

func (a *PaymentCampaigns) EnqueueInvoice(ctx context.Context, c paymentsvc.InvoiceCampaign) (uuid.UUID, error) {
	created, err := a.campaigns.Enqueue(ctx, campaignsvc.AutoInput{
		Name:        c.Name,
		Kind:        paymentsvc.CampaignKindInvoice,
		TemplateKey: paymentsvc.TemplateInvoice,
		SendOn:      a.now(),
		SourceType:  domain.SourceInquiry,
		SourceID:    c.InquiryID,
		Recipients:  []domain.Recipient{{Email: c.To, Name: c.ToName, Vars: c.Vars}},
	})
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

var (
	_ paymentsvc.Inquiries = (*PaymentInquiries)(nil)
	_ paymentsvc.Campaigns = (*PaymentCampaigns)(nil)
)
