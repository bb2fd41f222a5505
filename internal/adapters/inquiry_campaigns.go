package adapters

import (
	"context"

	"ims_backend/internal/campaigns/domain"
	campaignrepo "ims_backend/internal/campaigns/repository"
	campaignsvc "ims_backend/internal/campaigns/service"
	inquirysvc "ims_backend/internal/inquiries/service"

	"github.com/google/uuid"
)

// CampaignEnqueuer is the narrow campaign service surface used by the adapters.
type CampaignEnqueuer interface {
	Enqueue(ctx context.Context, in campaignsvc.AutoInput) (campaignrepo.Campaign, error)
}

// InquiryCampaigns adapts the campaign service to inquiries/service.Campaigns.
// Every campaign it creates is sourced from the inquiry.
type InquiryCampaigns struct {
	campaigns interface {
		CampaignEnqueuer
		CancelFollowUps(ctx context.Context, inquiryID uuid.UUID) (int64, error)
	}
}

func NewInquiryCampaigns(svc *campaignsvc.Service) *InquiryCampaigns {
	return &InquiryCampaigns{campaigns: svc}
}

func (a *InquiryCampaigns) Enqueue(ctx context.Context, d inquirysvc.CampaignDraft) (uuid.UUID, error) {
	recipients := make([]domain.Recipient, 0, len(d.Recipients))
	for _, r := range d.Recipients {
		recipients = append(recipients, domain.Recipient{
			Email:     r.Email,
			Name:      r.Name,
			CC:        r.CC,
			Signature: r.Signature,
			Vars:      r.Vars,
		})
	}

	created, err := a.campaigns.Enqueue(ctx, campaignsvc.AutoInput{
		Name:        d.Name,
		Kind:        d.Kind,
		TemplateKey: d.TemplateKey,
		SendOn:      d.SendOn,
		SourceType:  domain.SourceInquiry,
		SourceID:    d.InquiryID,
		Recipients:  recipients,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

func (a *InquiryCampaigns) CancelFollowUps(ctx context.Context, inquiryID uuid.UUID) (int64, error) {
	return a.campaigns.CancelFollowUps(ctx, inquiryID)
}

var _ inquirysvc.Campaigns = (*InquiryCampaigns)(nil)
