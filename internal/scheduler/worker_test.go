package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	campaignsvc "ims_backend/internal/campaigns/service"
	"ims_backend/internal/events"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeDispatcher struct {
	calls  int
	result campaignsvc.DispatchResult
	err    error
}

func (f *fakeDispatcher) Dispatch(context.Context) (campaignsvc.DispatchResult, error) {
	f.calls++
	return f.result, f.err
}

type fakePlanner struct {
	days []time.Time
	err  error
}

func (f *fakePlanner) ScheduleBirthdays(_ context.Context, today time.Time) (int, error) {
	f.days = append(f.days, today)
	return 1, f.err
}

type fakeErrors struct {
	fields []map[string]interface{}
}

func (f *fakeErrors) Record(_ context.Context, _ string, _ error, fields map[string]interface{}) {
	f.fields = append(f.fields, fields)
}

type fakeEnqueuer struct {
	payloads []CampaignDispatchPayload
}

func (f *fakeEnqueuer) EnqueueDispatch(_ context.Context, p CampaignDispatchPayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

func TestHandleCampaignDispatch_RunsDispatcher(t *testing.T) {
	dispatcher := &fakeDispatcher{result: campaignsvc.DispatchResult{Claimed: 2, Completed: 2}}
	w := newWorker(WorkerDeps{Dispatcher: dispatcher}, logger.Discard())

	task, err := NewCampaignDispatchTask(CampaignDispatchPayload{Reason: ReasonCron})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := w.handleCampaignDispatch(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected one dispatch, got %d", dispatcher.calls)
	}
}

func TestHandleCampaignDispatch_FailureIsRecorded(t *testing.T) {
	recorder := &fakeErrors{}
	w := newWorker(WorkerDeps{Dispatcher: &fakeDispatcher{err: errors.New("smtp down")}, Errors: recorder}, logger.Discard())

	task, _ := NewCampaignDispatchTask(CampaignDispatchPayload{Reason: ReasonQueued})
	if err := w.handleCampaignDispatch(context.Background(), task); err == nil {
		t.Fatalf("expected error so asynq retries")
	}
	if len(recorder.fields) != 1 || recorder.fields[0]["task"] != TaskCampaignDispatch {
		t.Fatalf("expected recorded failure, got %v", recorder.fields)
	}
}

func TestHandleCampaignDispatch_BadPayloadSkipsRetry(t *testing.T) {
	w := newWorker(WorkerDeps{Dispatcher: &fakeDispatcher{}}, logger.Discard())
	err := w.handleCampaignDispatch(context.Background(), asynq.NewTask(TaskCampaignDispatch, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandleClientBirthdays_UsesLocationDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	planner := &fakePlanner{}
	w := newWorker(WorkerDeps{Birthdays: planner, Location: loc}, logger.Discard())
	w.now = func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) }

	task, _ := NewClientBirthdaysTask(ClientBirthdaysPayload{})
	if err := w.handleClientBirthdays(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(planner.days) != 1 || planner.days[0].Day() != 2 {
		t.Fatalf("expected March 2nd in UTC+8, got %v", planner.days)
	}
}

func TestHandleClientBirthdays_ExplicitDate(t *testing.T) {
	planner := &fakePlanner{}
	w := newWorker(WorkerDeps{Birthdays: planner, Location: time.UTC}, logger.Discard())

	task, _ := NewClientBirthdaysTask(ClientBirthdaysPayload{Date: "2026-07-14"})
	if err := w.handleClientBirthdays(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := planner.days[0].Format("2006-01-02"); got != "2026-07-14" {
		t.Fatalf("expected 2026-07-14, got %s", got)
	}

	bad, _ := NewClientBirthdaysTask(ClientBirthdaysPayload{Date: "14/07/2026"})
	if err := w.handleClientBirthdays(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for bad date, got %v", err)
	}
}

func TestDispatchNudger_EnqueuesOnQueuedAndConfirmed(t *testing.T) {
	bus := events.NewInMemoryBus(logger.Discard())
	enqueuer := &fakeEnqueuer{}
	NewDispatchNudger(enqueuer, logger.Discard()).RegisterHandlers(bus)

	campaignID := uuid.New()
	ctx := context.Background()
	if err := bus.PublishSync(ctx, events.CampaignQueued{BaseEvent: events.NewBaseEvent(), CampaignID: campaignID}); err != nil {
		t.Fatalf("publish queued: %v", err)
	}
	if err := bus.PublishSync(ctx, events.InquiryConfirmed{BaseEvent: events.NewBaseEvent(), InquiryID: uuid.New()}); err != nil {
		t.Fatalf("publish confirmed: %v", err)
	}

	if len(enqueuer.payloads) != 2 {
		t.Fatalf("expected two nudges, got %d", len(enqueuer.payloads))
	}
	if enqueuer.payloads[0].Reason != ReasonQueued || enqueuer.payloads[0].CampaignID != campaignID.String() {
		t.Fatalf("unexpected first payload %+v", enqueuer.payloads[0])
	}
	if enqueuer.payloads[1].Reason != ReasonConfirmed {
		t.Fatalf("unexpected second payload %+v", enqueuer.payloads[1])
	}
}

type staticSchedulerConfig struct {
	dispatch, birthday string
}

func (s staticSchedulerConfig) GetRedisURL() string            { return "" }
func (s staticSchedulerConfig) GetRedisTLSInsecure() bool      { return false }
func (s staticSchedulerConfig) GetAsynqQueueName() string      { return "" }
func (s staticSchedulerConfig) GetAsynqConcurrency() int       { return 0 }
func (s staticSchedulerConfig) GetCampaignDispatchCron() string { return s.dispatch }
func (s staticSchedulerConfig) GetBirthdayCron() string        { return s.birthday }

func TestPeriodicEntries_Defaults(t *testing.T) {
	entries := PeriodicEntries(staticSchedulerConfig{birthday: "0 7 * * *"})
	if entries[0].Spec != defaultDispatchCron || entries[0].Task != TaskCampaignDispatch {
		t.Fatalf("unexpected dispatch entry %+v", entries[0])
	}
	if entries[1].Spec != "0 7 * * *" {
		t.Fatalf("expected configured birthday cron, got %q", entries[1].Spec)
	}
}
