package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"ims_backend/internal/campaigns/domain"
	"ims_backend/internal/campaigns/repository"
	"ims_backend/internal/email"
	"ims_backend/internal/events"

	"golang.org/x/sync/errgroup"
)

const (
	dispatchLockKey = "campaigns:dispatch"
	dispatchLockTTL = 5 * time.Minute
	dispatchBatch   = 50
	// claimLease outlives the dispatch lock so a live run never loses its rows.
	claimLease = 3 * dispatchLockTTL
	sendConcurrency = 4
)

// DispatchResult summarizes one dispatcher run.
type DispatchResult struct {
	Skipped   bool `json:"skipped"`
	Claimed   int  `json:"claimed"`
	Completed int  `json:"completed"`
	Retrying  int  `json:"retrying"`
	Cancelled int  `json:"cancelled"`
}

// GetCronCampaigns lists the campaigns due now. Outside the send window
// nothing is due.
func (s *Service) GetCronCampaigns(ctx context.Context) ([]repository.Campaign, error) {
	now := s.now()
	if !s.window.Open(now) {
		return []repository.Campaign{}, nil
	}
	return s.repo.ListDue(ctx, now)
}

// Dispatch sends every due campaign. Only one dispatcher runs at a time
// across processes.
func (s *Service) Dispatch(ctx context.Context) (DispatchResult, error) {
	now := s.now()
	if !s.window.Open(now) {
		return DispatchResult{Skipped: true}, nil
	}

	lock := s.locks(dispatchLockKey, dispatchLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !acquired {
		s.log.Info("campaign dispatch already running elsewhere")
		return DispatchResult{Skipped: true}, nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release dispatch lock", "error", err)
		}
	}()

	claimed, err := s.repo.ClaimDue(ctx, now, now.Add(-claimLease), dispatchBatch)
	if err != nil {
		return DispatchResult{}, err
	}
	// UPDATE ... RETURNING does not keep the subquery order.
	slices.SortStableFunc(claimed, func(a, b repository.Campaign) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	result := DispatchResult{Claimed: len(claimed)}
	var errs []error
	for _, c := range claimed {
		sendErr := s.deliver(ctx, c)
		if sendErr == nil {
			sendErr = s.Complete(ctx, c)
		}
		s.log.CampaignDispatch(c.ID.String(), len(c.SendTo), sendErr)
		if sendErr == nil {
			result.Completed++
			s.record(c.Kind, "completed")
			continue
		}

		status, err := s.repo.MarkFailed(context.WithoutCancel(ctx), c.ID, sendErr.Error(), s.maxAttempts)
		if err != nil {
			s.log.Error("failed to record campaign failure", "campaignId", c.ID, "error", err)
			errs = append(errs, fmt.Errorf("mark campaign %s failed: %w", c.ID, err))
			continue
		}
		if status == domain.StatusCancelled {
			result.Cancelled++
			s.record(c.Kind, "cancelled")
		} else {
			result.Retrying++
			s.record(c.Kind, "retry")
		}
	}
	return result, errors.Join(errs...)
}

// deliver renders and sends the campaign to every recipient.
func (s *Service) deliver(ctx context.Context, c repository.Campaign) error {
	if len(c.SendTo) == 0 {
		return errors.New("campaign has no recipients")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sendConcurrency)
	errs := make([]error, len(c.SendTo))
	for i, r := range c.SendTo {
		g.Go(func() error {
			if err := s.sendOne(gctx, c, r); err != nil {
				errs[i] = fmt.Errorf("%s: %w", r.Email, err)
				s.emailSent("failed")
				return nil
			}
			s.emailSent("sent")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (s *Service) sendOne(ctx context.Context, c repository.Campaign, r domain.Recipient) error {
	vars := make(map[string]interface{}, len(r.Vars)+3)
	for k, v := range r.Vars {
		vars[k] = v
	}
	vars["email"] = r.Email
	if _, ok := vars["name"]; !ok {
		vars["name"] = r.Name
	}
	vars["signature"] = r.Signature

	var (
		rendered Rendered
		err      error
	)
	if c.TemplateKey != nil && *c.TemplateKey != "" {
		rendered, err = s.renderer.Render(ctx, *c.TemplateKey, vars)
	} else {
		rendered, err = s.renderer.RenderSource(c.Subject, c.HTML, vars)
	}
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	to := []email.Address{{Email: r.Email, Name: r.Name, Type: email.RecipientTo}}
	for _, cc := range r.CC {
		to = append(to, email.Address{Email: cc, Type: email.RecipientCC})
	}
	return s.sender.Send(ctx, email.Message{
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
		To:          to,
		TrackOpens:  true,
		TrackClicks: true,
		CampaignID:  c.ID.String(),
	})
}

// Complete marks a campaign COMPLETED and applies its source side
// effects in one transaction.
func (s *Service) Complete(ctx context.Context, c repository.Campaign) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		changed, err := s.repo.MarkCompleted(ctx, c.ID, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if c.SourceEntityType == nil || c.SourceEntityID == nil {
			return nil
		}

		switch {
		case c.Kind == domain.KindBirthday && *c.SourceEntityType == domain.SourceClient && s.ports.Clients != nil:
			return s.ports.Clients.StampWished(ctx, *c.SourceEntityID)
		case c.Kind == domain.KindFollowUp && *c.SourceEntityType == domain.SourceInquiry && s.ports.Inquiries != nil:
			if c.TemplateKey == nil {
				return nil
			}
			return s.ports.Inquiries.MarkFollowUpSent(ctx, *c.SourceEntityID, *c.TemplateKey)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.CampaignCompleted{
			BaseEvent:  events.NewBaseEvent(),
			CampaignID: c.ID,
			Kind:       c.Kind,
			Recipients: len(c.SendTo),
		})
	}
	return nil
}

func (s *Service) record(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.CampaignDispatched(kind, outcome)
	}
}

func (s *Service) emailSent(outcome string) {
	if s.metrics != nil {
		s.metrics.EmailSent(outcome)
	}
}
