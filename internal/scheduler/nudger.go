package scheduler

import (
	"context"

	"ims_backend/internal/events"
	"ims_backend/platform/logger"
)

// DispatchNudger turns domain events that create due campaigns into an
// immediate dispatch task, so confirmations and manual sends do not wait for
// the next cron tick.
type DispatchNudger struct {
	enqueuer DispatchEnqueuer
	log      *logger.Logger
}

func NewDispatchNudger(enqueuer DispatchEnqueuer, log *logger.Logger) *DispatchNudger {
	return &DispatchNudger{enqueuer: enqueuer, log: log}
}

// RegisterHandlers subscribes the nudger to the event bus.
func (n *DispatchNudger) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.CampaignQueued{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		queued, ok := e.(events.CampaignQueued)
		if !ok {
			return nil
		}
		return n.nudge(ctx, CampaignDispatchPayload{Reason: ReasonQueued, CampaignID: queued.CampaignID.String()})
	}))
	bus.Subscribe(events.InquiryConfirmed{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		confirmed, ok := e.(events.InquiryConfirmed)
		if !ok {
			return nil
		}
		return n.nudge(ctx, CampaignDispatchPayload{Reason: ReasonConfirmed, CampaignID: confirmed.CampaignID.String()})
	}))
	bus.Subscribe(events.InquiryLost{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		lost, ok := e.(events.InquiryLost)
		if !ok {
			return nil
		}
		return n.nudge(ctx, CampaignDispatchPayload{Reason: ReasonLost, CampaignID: lost.CampaignID.String()})
	}))
}

func (n *DispatchNudger) nudge(ctx context.Context, payload CampaignDispatchPayload) error {
	if err := n.enqueuer.EnqueueDispatch(ctx, payload); err != nil {
		n.log.Warn("failed to enqueue campaign dispatch", "reason", payload.Reason, "campaignId", payload.CampaignID, "error", err)
		return err
	}
	return nil
}
