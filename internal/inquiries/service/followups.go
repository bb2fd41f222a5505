package service

import (
	"context"
	"fmt"
	"strings"

	"ims_backend/internal/inquiries/domain"
	"ims_backend/internal/inquiries/repository"

	"github.com/google/uuid"
)

// ScheduleFollowups plans the follow-up campaigns for an inquiry with the row
// locked. It is a no-op once the schedule left PENDING. A decided inquiry gets
// its schedule closed instead of planned.
func (s *Service) ScheduleFollowups(ctx context.Context, id uuid.UUID) (domain.FollowUps, error) {
	var result domain.FollowUps
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inquiry, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		result, err = s.scheduleLocked(ctx, inquiry)
		return err
	})
	return result, err
}

func (s *Service) scheduleLocked(ctx context.Context, inquiry repository.Inquiry) (domain.FollowUps, error) {
	if inquiry.FollowUps.Status != domain.FollowUpsPending {
		return inquiry.FollowUps, nil
	}
	if !inquiry.Status.IsOpen() {
		closed := inquiry.FollowUps.Cancel()
		if err := s.repo.SetFollowUps(ctx, inquiry.ID, closed); err != nil {
			return domain.FollowUps{}, err
		}
		return closed, nil
	}

	now := s.now()
	planned := domain.PlanFollowUps(now, inquiry.StartDatetime)
	scheduled := inquiry.FollowUps.Schedule(planned)

	if len(planned) > 0 {
		recipient := s.followUpRecipient(ctx, inquiry)
		for _, f := range planned {
			_, err := s.ports.Campaigns.Enqueue(ctx, CampaignDraft{
				Name:        fmt.Sprintf("%s: %s", f.Type, displayName(inquiry)),
				Kind:        CampaignKindFollowUp,
				TemplateKey: f.Template,
				SendOn:      f.Date,
				InquiryID:   inquiry.ID,
				Recipients:  []Recipient{recipient},
			})
			if err != nil {
				return domain.FollowUps{}, err
			}
		}
	}

	if err := s.repo.SetFollowUps(ctx, inquiry.ID, scheduled); err != nil {
		return domain.FollowUps{}, err
	}

	message := "Follow-up emails skipped: the event is too close"
	if len(planned) > 0 {
		parts := make([]string, 0, len(planned))
		for _, f := range planned {
			parts = append(parts, f.Type+" on "+f.Date.Format("02 Jan 2006"))
		}
		message = "Follow-up emails scheduled: " + strings.Join(parts, ", ")
	}
	if err := s.repo.AppendActivity(ctx, inquiry.ID, s.activity(message)); err != nil {
		return domain.FollowUps{}, err
	}

	s.log.Info("follow-ups planned", "inquiryId", inquiry.ID, "count", len(planned), "status", scheduled.Status)
	return scheduled, nil
}

// CancelFollowups cancels the pending follow-up campaigns of an inquiry and
// marks the schedule CANCELLED. Repeated calls change nothing.
func (s *Service) CancelFollowups(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	actor := s.actorName(ctx, actorID)
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		inquiry, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.cancelLocked(ctx, inquiry, inquiry.Status, actor)
	})
}

// cancelLocked expects the inquiry row to be locked. status is the inquiry
// status after the surrounding transition.
func (s *Service) cancelLocked(ctx context.Context, inquiry repository.Inquiry, status domain.Status, actor string) error {
	if inquiry.FollowUps.Status == domain.FollowUpsCancelled && !inquiry.FollowUps.HasPending() {
		return nil
	}

	cancelled, err := s.ports.Campaigns.CancelFollowUps(ctx, inquiry.ID)
	if err != nil {
		return err
	}

	hadPending := inquiry.FollowUps.HasPending()
	if err := s.repo.SetFollowUps(ctx, inquiry.ID, inquiry.FollowUps.Cancel()); err != nil {
		return err
	}
	if !hadPending && cancelled == 0 {
		return nil
	}

	by := actor
	if status == domain.StatusConfirmed || status == domain.StatusLost {
		by = systemActor
	}
	return s.repo.AppendActivity(ctx, inquiry.ID, s.activity("Follow-up emails cancelled by "+by))
}

// MarkFollowUpSent records a delivered follow-up campaign on its inquiry.
func (s *Service) MarkFollowUpSent(ctx context.Context, id uuid.UUID, templateKey string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		inquiry, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		updated, kind, ok := inquiry.FollowUps.MarkSent(templateKey)
		if !ok {
			s.log.Warn("no pending follow-up for completed campaign", "inquiryId", id, "template", templateKey)
			return nil
		}
		if err := s.repo.SetFollowUps(ctx, id, updated); err != nil {
			return err
		}
		return s.repo.AppendActivity(ctx, id, s.activity(kind+" email sent"))
	})
}

func (s *Service) followUpRecipient(ctx context.Context, inquiry repository.Inquiry) Recipient {
	r := Recipient{
		Email: inquiry.ContactEmail,
		Name:  inquiry.ContactName,
		Vars:  inquiryVars(inquiry),
	}

	sp, ok := s.salesperson(ctx, inquiry)
	r.CC = ccRoster(s.roster, sp.Email)
	if ok {
		r.Signature = sp.Signature
		r.Vars["signature"] = sp.Signature
		r.Vars["salesperson"] = sp.Name
	}
	return r
}

// ccRoster returns roster without exclude, compared case-insensitively.
func ccRoster(roster []string, exclude string) []string {
	out := make([]string, 0, len(roster))
	for _, addr := range roster {
		addr = strings.TrimSpace(addr)
		if addr == "" || (exclude != "" && strings.EqualFold(addr, exclude)) {
			continue
		}
		out = append(out, addr)
	}
	return out
}

func inquiryVars(inquiry repository.Inquiry) map[string]interface{} {
	return map[string]interface{}{
		"name":       inquiry.ContactName,
		"company":    inquiry.Company,
		"event_name": inquiry.EventName,
		"venue":      inquiry.Venue,
		"pax":        inquiry.Pax,
		"start_date": inquiry.StartDatetime,
		"end_date":   inquiry.EndDatetime,
	}
}

func displayName(inquiry repository.Inquiry) string {
	if inquiry.EventName != "" {
		return inquiry.EventName
	}
	if inquiry.Company != "" {
		return inquiry.Company
	}
	return inquiry.ContactName
}
