package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ims_backend/internal/campaigns/domain"
	"ims_backend/internal/campaigns/repository"
	"ims_backend/internal/events"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
)

const providerMandrill = "mandrill"

// ReportRecorder stores campaign report events. Satisfied by the campaigns service.
type ReportRecorder interface {
	RecordReportEvent(ctx context.Context, e repository.ReportEvent) (bool, error)
}

// Metrics counts webhook events by name and outcome.
type Metrics interface {
	WebhookEvent(event, outcome string)
}

// Service turns Mandrill callbacks into campaign report rows.
type Service struct {
	recorder ReportRecorder
	eventBus events.Bus
	metrics  Metrics
	log      *logger.Logger
}

func NewService(recorder ReportRecorder, eventBus events.Bus, metrics Metrics, log *logger.Logger) *Service {
	return &Service{recorder: recorder, eventBus: eventBus, metrics: metrics, log: log}
}

// ProcessBatch handles every element of the batch. Failures are joined and
// returned together; the dedupe key makes a retried batch safe.
func (s *Service) ProcessBatch(ctx context.Context, batch []MandrillEvent) (BatchResult, error) {
	result := BatchResult{Received: len(batch)}
	var errs []error

	for i, ev := range batch {
		outcome, err := s.processEvent(ctx, ev)
		switch {
		case err != nil:
			result.Failed++
			errs = append(errs, fmt.Errorf("event %d (%s): %w", i, ev.Event, err))
			outcome = "failed"
		case outcome == "stored":
			result.Stored++
		default:
			result.Skipped++
		}
		s.count(ev.Event, outcome)
	}

	s.log.WebhookBatch(providerMandrill, result.Received, result.Stored, result.Skipped, result.Failed)
	return result, errors.Join(errs...)
}

func (s *Service) processEvent(ctx context.Context, ev MandrillEvent) (string, error) {
	if !domain.IsReportEvent(ev.Event) {
		return "ignored", nil
	}
	campaignID, ok := campaignIDFrom(ev.Msg.Metadata)
	if !ok || ev.Msg.Email == "" {
		return "ignored", nil
	}

	report := repository.ReportEvent{
		CampaignID: campaignID,
		Email:      ev.Msg.Email,
		Event:      ev.Event,
		DedupeKey:  dedupeKey(ev),
	}
	if ev.TS > 0 {
		report.OccurredAt = time.Unix(ev.TS, 0).UTC()
	}
	if ev.Event == domain.EventClick && ev.URL != "" {
		url := ev.URL
		report.ClickURL = &url
	}

	stored, err := s.recorder.RecordReportEvent(ctx, report)
	if err != nil {
		return "", err
	}

	// A retried bounce must still reach the client directory.
	if domain.IsBounce(ev.Event) && s.eventBus != nil {
		if err := s.eventBus.PublishSync(ctx, events.ClientBounced{
			BaseEvent:  events.NewBaseEvent(),
			Email:      ev.Msg.Email,
			CampaignID: campaignID,
			Event:      ev.Event,
		}); err != nil {
			return "", fmt.Errorf("bounce: %w", err)
		}
	}

	if !stored {
		return "duplicate", nil
	}
	return "stored", nil
}

func (s *Service) count(event, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookEvent(event, outcome)
	}
}

func campaignIDFrom(metadata map[string]interface{}) (uuid.UUID, bool) {
	raw, ok := metadata["campaignId"]
	if !ok {
		return uuid.Nil, false
	}
	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// dedupeKey identifies one callback across vendor retries.
func dedupeKey(ev MandrillEvent) string {
	h := sha256.New()
	for _, part := range []string{ev.ID, ev.Msg.ID, ev.Event, strconv.FormatInt(ev.TS, 10), ev.URL, ev.Msg.Email} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
