package adapters

import (
	"context"

	inquiryrepo "ims_backend/internal/inquiries/repository"
	inquirysvc "ims_backend/internal/inquiries/service"
	leadsvc "ims_backend/internal/leads/service"

	"github.com/google/uuid"
)

// InquiryCreator is the inquiry service surface used for lead conversion.
type InquiryCreator interface {
	CreateFromLead(ctx context.Context, leadID uuid.UUID, in inquirysvc.CreateInput, actorID uuid.UUID) (inquiryrepo.Inquiry, error)
}

// LeadInquiryCreator adapts the inquiry service to leads/service.InquiryCreator.
type LeadInquiryCreator struct {
	inquiries InquiryCreator
}

func NewLeadInquiryCreator(inquiries InquiryCreator) *LeadInquiryCreator {
	return &LeadInquiryCreator{inquiries: inquiries}
}

func (a *LeadInquiryCreator) CreateFromLead(ctx context.Context, c leadsvc.Conversion) (uuid.UUID, error) {
	inquiry, err := a.inquiries.CreateFromLead(ctx, c.LeadID, inquirysvc.CreateInput{
		SalespersonID: c.SalespersonID,
		ContactName:   c.ContactName,
		ContactEmail:  c.ContactEmail,
		ContactPhone:  c.ContactPhone,
		Company:       c.Company,
		EventName:     c.EventName,
		Venue:         c.Venue,
		Pax:           c.Pax,
		StartDatetime: c.Start,
		EndDatetime:   c.End,
	}, c.ActorID)
	if err != nil {
		return uuid.Nil, err
	}
	return inquiry.ID, nil
}

var _ leadsvc.InquiryCreator = (*LeadInquiryCreator)(nil)
