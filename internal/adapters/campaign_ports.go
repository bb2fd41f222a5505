package adapters

import (
	"context"
	"time"

	"ims_backend/internal/campaigns/domain"
	campaignsvc "ims_backend/internal/campaigns/service"
	clientrepo "ims_backend/internal/clients/repository"
	clientsvc "ims_backend/internal/clients/service"

	"github.com/google/uuid"
)

// CampaignRenderer adapts the template registry to campaigns/service.Renderer.
type CampaignRenderer struct {
	templates TemplateSource
}

func NewCampaignRenderer(templates TemplateSource) *CampaignRenderer {
	return &CampaignRenderer{templates: templates}
}

func (a *CampaignRenderer) Render(ctx context.Context, key string, vars map[string]interface{}) (campaignsvc.Rendered, error) {
	r, err := a.templates.Render(ctx, key, vars)
	if err != nil {
		return campaignsvc.Rendered{}, err
	}
	return campaignsvc.Rendered{Subject: r.Subject, HTML: r.HTML}, nil
}

func (a *CampaignRenderer) RenderSource(subject, html string, vars map[string]interface{}) (campaignsvc.Rendered, error) {
	r, err := a.templates.RenderSource(subject, html, vars)
	if err != nil {
		return campaignsvc.Rendered{}, err
	}
	return campaignsvc.Rendered{Subject: r.Subject, HTML: r.HTML}, nil
}

// RecipientLister resolves a client list.
type RecipientLister interface {
	ListRecipients(ctx context.Context, list string) ([]clientrepo.Client, error)
}

// ClientAudience adapts the client directory to campaigns/service.Audience.
type ClientAudience struct {
	clients RecipientLister
}

func NewClientAudience(clients RecipientLister) *ClientAudience {
	return &ClientAudience{clients: clients}
}

func (a *ClientAudience) ListRecipients(ctx context.Context, list string) ([]domain.Recipient, error) {
	clients, err := a.clients.ListRecipients(ctx, list)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Recipient, 0, len(clients))
	for _, c := range clients {
		out = append(out, domain.Recipient{
			Email: c.Email,
			Name:  c.Name,
			Vars:  map[string]interface{}{"company": c.Company},
		})
	}
	return out, nil
}

// BirthdayCampaigns adapts the campaign service to clients/service.BirthdayEnqueuer.
type BirthdayCampaigns struct {
	campaigns interface {
		EnqueueBirthday(ctx context.Context, clientID uuid.UUID, address, name string, sendOn time.Time) (bool, error)
	}
}

func NewBirthdayCampaigns(svc *campaignsvc.Service) *BirthdayCampaigns {
	return &BirthdayCampaigns{campaigns: svc}
}

func (a *BirthdayCampaigns) EnqueueBirthday(ctx context.Context, r clientsvc.BirthdayRecipient, sendOn time.Time) (bool, error) {
	return a.campaigns.EnqueueBirthday(ctx, r.ClientID, r.Email, r.Name, sendOn)
}

var (
	_ campaignsvc.Renderer       = (*CampaignRenderer)(nil)
	_ campaignsvc.Audience       = (*ClientAudience)(nil)
	_ clientsvc.BirthdayEnqueuer = (*BirthdayCampaigns)(nil)
)
