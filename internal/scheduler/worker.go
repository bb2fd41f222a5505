package scheduler

import (
	"context"
	"fmt"
	"time"

	campaignsvc "ims_backend/internal/campaigns/service"
	"ims_backend/internal/errorlog"
	"ims_backend/platform/config"
	"ims_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// CampaignDispatcher runs one dispatcher pass.
type CampaignDispatcher interface {
	Dispatch(ctx context.Context) (campaignsvc.DispatchResult, error)
}

// BirthdayPlanner queues the birthday campaigns of one day.
type BirthdayPlanner interface {
	ScheduleBirthdays(ctx context.Context, today time.Time) (int, error)
}

// ErrorRecorder stores failed task runs.
type ErrorRecorder interface {
	Record(ctx context.Context, source string, err error, fields map[string]interface{})
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher CampaignDispatcher
	birthdays  BirthdayPlanner
	errors     ErrorRecorder
	location   *time.Location
	log        *logger.Logger
	now        func() time.Time
}

// WorkerDeps are the services the task handlers call.
type WorkerDeps struct {
	Dispatcher CampaignDispatcher
	Birthdays  BirthdayPlanner
	Errors     ErrorRecorder
	Location   *time.Location
}

func NewWorker(cfg config.SchedulerConfig, deps WorkerDeps, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(deps, log)
	w.server = server
	return w, nil
}

func newWorker(deps WorkerDeps, log *logger.Logger) *Worker {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	w := &Worker{
		mux:        asynq.NewServeMux(),
		dispatcher: deps.Dispatcher,
		birthdays:  deps.Birthdays,
		errors:     deps.Errors,
		location:   loc,
		log:        log,
		now:        time.Now,
	}
	w.mux.HandleFunc(TaskCampaignDispatch, w.handleCampaignDispatch)
	w.mux.HandleFunc(TaskClientBirthdays, w.handleClientBirthdays)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleCampaignDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCampaignDispatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.dispatcher.Dispatch(ctx)
	if err != nil {
		w.record(ctx, TaskCampaignDispatch, err, map[string]interface{}{"reason": payload.Reason})
		return err
	}
	if !result.Skipped && result.Claimed > 0 {
		w.log.Info("campaign dispatch finished",
			"reason", payload.Reason,
			"claimed", result.Claimed,
			"completed", result.Completed,
			"retrying", result.Retrying,
			"cancelled", result.Cancelled,
		)
	}
	return nil
}

func (w *Worker) handleClientBirthdays(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseClientBirthdaysPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	today := w.now().In(w.location)
	if payload.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.Date, w.location)
		if err != nil {
			return fmt.Errorf("%w: invalid date %q", asynq.SkipRetry, payload.Date)
		}
		today = parsed
	}

	created, err := w.birthdays.ScheduleBirthdays(ctx, today)
	if err != nil {
		w.record(ctx, TaskClientBirthdays, err, map[string]interface{}{"date": today.Format("2006-01-02")})
		return err
	}
	w.log.Info("birthday planner finished", "date", today.Format("2006-01-02"), "created", created)
	return nil
}

func (w *Worker) record(ctx context.Context, task string, err error, fields map[string]interface{}) {
	if w.errors == nil {
		return
	}
	fields["task"] = task
	w.errors.Record(ctx, errorlog.SourceScheduler, err, fields)
}
