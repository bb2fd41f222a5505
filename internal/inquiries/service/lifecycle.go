package service

import (
	"context"
	"strings"

	"ims_backend/internal/events"
	"ims_backend/internal/inquiries/domain"
	"ims_backend/internal/inquiries/repository"
	"ims_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Submit emails the proposals to the contact and moves the inquiry to
// SUBMITTED. Submitting again resends.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, proposalIDs []uuid.UUID, actorID uuid.UUID) (repository.Inquiry, error) {
	inquiry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Inquiry{}, err
	}
	if err := checkTransition(inquiry.Status, domain.StatusSubmitted); err != nil {
		return repository.Inquiry{}, err
	}

	proposals, err := s.selectProposals(ctx, id, proposalIDs)
	if err != nil {
		return repository.Inquiry{}, err
	}

	links := make([]ProposalLink, 0, len(proposals))
	described := make([]string, 0, len(proposals))
	ids := make([]uuid.UUID, 0, len(proposals))
	for _, p := range proposals {
		links = append(links, ProposalLink{Title: p.Title, Link: p.Link})
		described = append(described, p.Title+" ("+p.Link+")")
		ids = append(ids, p.ID)
	}

	email := ProposalEmail{
		To:        inquiry.ContactEmail,
		Name:      inquiry.ContactName,
		EventName: inquiry.EventName,
		Links:     links,
	}
	if sp, ok := s.salesperson(ctx, inquiry); ok {
		email.Signature = sp.Signature
		if sp.Email != "" {
			email.CC = []string{sp.Email}
		}
	}
	if err := s.ports.Mailer.SendProposal(ctx, email); err != nil {
		return repository.Inquiry{}, err
	}

	actor := s.actorName(ctx, actorID)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(locked.Status, domain.StatusSubmitted); err != nil {
			return err
		}
		message := "Proposals sent to " + inquiry.ContactEmail + " by " + actor + ": " + strings.Join(described, ", ")
		return s.repo.SetStatus(ctx, id, domain.StatusSubmitted, nil, s.activity(message))
	})
	if err != nil {
		return repository.Inquiry{}, err
	}

	s.bus.Publish(ctx, events.InquirySubmitted{BaseEvent: events.NewBaseEvent(), InquiryID: id, ProposalIDs: ids})
	return s.repo.GetByID(ctx, id)
}

// Confirm accepts the given proposals. Every write runs in one transaction:
// proposal flags, the confirmation campaign, the status change, follow-up
// cancellation, and the Event and Payment upserts. Confirming a CONFIRMED
// inquiry returns it unchanged.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, proposalIDs []uuid.UUID, actorID uuid.UUID) (repository.Inquiry, error) {
	if len(proposalIDs) == 0 {
		return repository.Inquiry{}, apperr.Validation("at least one proposal must be confirmed")
	}

	actor := s.actorName(ctx, actorID)
	var (
		confirmed  bool
		campaignID uuid.UUID
		clientID   *uuid.UUID
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inquiry, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inquiry.Status == domain.StatusConfirmed {
			return nil
		}
		if err := checkTransition(inquiry.Status, domain.StatusConfirmed); err != nil {
			return err
		}

		proposals, err := s.repo.ListProposalsByIDs(ctx, id, proposalIDs)
		if err != nil {
			return err
		}
		if len(proposals) != len(uniqueIDs(proposalIDs)) {
			return apperr.Validation("every proposal must belong to the inquiry")
		}
		ids := make([]uuid.UUID, 0, len(proposals))
		totals := make([]decimal.Decimal, 0, len(proposals))
		for _, p := range proposals {
			ids = append(ids, p.ID)
			totals = append(totals, p.TotalAmount)
		}

		if _, err := s.repo.SetProposalsConfirmed(ctx, id, ids, true); err != nil {
			return err
		}

		campaignID, err = s.ports.Campaigns.Enqueue(ctx, CampaignDraft{
			Name:        "Confirmation: " + displayName(inquiry),
			Kind:        CampaignKindConfirm,
			TemplateKey: TemplateConfirm,
			SendOn:      s.now(),
			InquiryID:   id,
			Recipients:  []Recipient{s.contactRecipient(ctx, inquiry)},
		})
		if err != nil {
			return err
		}

		if err := s.repo.SetStatus(ctx, id, domain.StatusConfirmed, nil, s.activity("Inquiry confirmed by "+actor)); err != nil {
			return err
		}
		if err := s.cancelLocked(ctx, inquiry, domain.StatusConfirmed, actor); err != nil {
			return err
		}

		created, err := s.ports.Engagements.UpsertForInquiry(ctx, EngagementDraft{
			InquiryID:     id,
			ClientID:      inquiry.ClientID,
			Name:          displayName(inquiry),
			Venue:         inquiry.Venue,
			Pax:           inquiry.Pax,
			StartDatetime: inquiry.StartDatetime,
			EndDatetime:   inquiry.EndDatetime,
		})
		if err != nil {
			return err
		}
		if created && inquiry.ClientID != nil {
			if err := s.ports.Clients.IncrementEvents(ctx, *inquiry.ClientID); err != nil {
				return err
			}
		}

		if err := s.ports.Payments.UpsertForInquiry(ctx, PaymentDraft{
			InquiryID:   id,
			ClientID:    inquiry.ClientID,
			ProposalIDs: ids,
			Amount:      domain.SumTotals(totals),
		}); err != nil {
			return err
		}

		confirmed = true
		clientID = inquiry.ClientID
		return nil
	})
	if err != nil {
		return repository.Inquiry{}, err
	}

	if confirmed {
		s.log.Info("inquiry confirmed", "inquiryId", id, "proposals", len(proposalIDs))
		s.bus.Publish(ctx, events.InquiryConfirmed{
			BaseEvent:   events.NewBaseEvent(),
			InquiryID:   id,
			ClientID:    clientID,
			ProposalIDs: uniqueIDs(proposalIDs),
			CampaignID:  campaignID,
		})
	}
	return s.repo.GetByID(ctx, id)
}

// RevertToSubmitted unconfirms proposals and moves a CONFIRMED inquiry back to
// SUBMITTED. An empty proposal list unconfirms all of them. Event and Payment
// rows are kept.
func (s *Service) RevertToSubmitted(ctx context.Context, id uuid.UUID, proposalIDs []uuid.UUID, actorID uuid.UUID) (repository.Inquiry, error) {
	actor := s.actorName(ctx, actorID)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inquiry, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inquiry.Status != domain.StatusConfirmed {
			return apperr.Validation("only a confirmed inquiry can be reverted")
		}

		ids := proposalIDs
		if len(ids) == 0 {
			all, err := s.repo.ListProposals(ctx, id)
			if err != nil {
				return err
			}
			for _, p := range all {
				if p.Confirmed {
					ids = append(ids, p.ID)
				}
			}
		}
		if len(ids) > 0 {
			if _, err := s.repo.SetProposalsConfirmed(ctx, id, ids, false); err != nil {
				return err
			}
		}
		return s.repo.SetStatus(ctx, id, domain.StatusSubmitted, nil, s.activity("Inquiry reverted to submitted by "+actor))
	})
	if err != nil {
		return repository.Inquiry{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// MarkLost sends the lost email, records the reason and cancels follow-ups in
// one transaction.
func (s *Service) MarkLost(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (repository.Inquiry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return repository.Inquiry{}, apperr.Validation("a lost reason is required")
	}

	actor := s.actorName(ctx, actorID)
	var campaignID uuid.UUID
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inquiry, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(inquiry.Status, domain.StatusLost); err != nil {
			return err
		}

		recipient := s.contactRecipient(ctx, inquiry)
		recipient.Vars["reason"] = reason
		campaignID, err = s.ports.Campaigns.Enqueue(ctx, CampaignDraft{
			Name:        "Lost: " + displayName(inquiry),
			Kind:        CampaignKindLost,
			TemplateKey: TemplateLost,
			SendOn:      s.now(),
			InquiryID:   id,
			Recipients:  []Recipient{recipient},
		})
		if err != nil {
			return err
		}

		if err := s.repo.SetStatus(ctx, id, domain.StatusLost, &reason, s.activity("Inquiry marked lost by "+actor+": "+reason)); err != nil {
			return err
		}
		return s.cancelLocked(ctx, inquiry, domain.StatusLost, actor)
	})
	if err != nil {
		return repository.Inquiry{}, err
	}

	s.bus.Publish(ctx, events.InquiryLost{BaseEvent: events.NewBaseEvent(), InquiryID: id, Reason: reason, CampaignID: campaignID})
	return s.repo.GetByID(ctx, id)
}

func (s *Service) selectProposals(ctx context.Context, inquiryID uuid.UUID, ids []uuid.UUID) ([]repository.Proposal, error) {
	var (
		proposals []repository.Proposal
		err       error
	)
	if len(ids) == 0 {
		proposals, err = s.repo.ListProposals(ctx, inquiryID)
	} else {
		proposals, err = s.repo.ListProposalsByIDs(ctx, inquiryID, ids)
		if err == nil && len(proposals) != len(uniqueIDs(ids)) {
			return nil, apperr.Validation("every proposal must belong to the inquiry")
		}
	}
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return nil, apperr.Validation("the inquiry has no proposals to send")
	}
	return proposals, nil
}

func (s *Service) contactRecipient(ctx context.Context, inquiry repository.Inquiry) Recipient {
	r := Recipient{Email: inquiry.ContactEmail, Name: inquiry.ContactName, Vars: inquiryVars(inquiry)}
	if sp, ok := s.salesperson(ctx, inquiry); ok {
		r.Signature = sp.Signature
		r.Vars["signature"] = sp.Signature
		r.Vars["salesperson"] = sp.Name
		if sp.Email != "" {
			r.CC = []string{sp.Email}
		}
	}
	return r
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
