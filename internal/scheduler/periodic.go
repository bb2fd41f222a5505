package scheduler

import (
	"context"
	"fmt"

	"ims_backend/platform/config"
	"ims_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultDispatchCron = "*/5 * * * *"
	defaultBirthdayCron = "0 6 * * *"
)

// Periodic registers the cron-driven tasks with asynq's scheduler.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// PeriodicEntry is one registered cron task.
type PeriodicEntry struct {
	Spec string
	Task string
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	p := &Periodic{
		scheduler: asynq.NewScheduler(opt, nil),
		log:       log,
	}

	queue := queueName(cfg)
	for _, entry := range PeriodicEntries(cfg) {
		task, err := periodicTask(entry.Task)
		if err != nil {
			return nil, err
		}
		if _, err := p.scheduler.Register(entry.Spec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register %s (%s): %w", entry.Task, entry.Spec, err)
		}
		log.Info("periodic task registered", "task", entry.Task, "spec", entry.Spec)
	}
	return p, nil
}

// PeriodicEntries returns the cron specs, falling back to the defaults.
func PeriodicEntries(cfg config.SchedulerConfig) []PeriodicEntry {
	dispatch := cfg.GetCampaignDispatchCron()
	if dispatch == "" {
		dispatch = defaultDispatchCron
	}
	birthday := cfg.GetBirthdayCron()
	if birthday == "" {
		birthday = defaultBirthdayCron
	}
	return []PeriodicEntry{
		{Spec: dispatch, Task: TaskCampaignDispatch},
		{Spec: birthday, Task: TaskClientBirthdays},
	}
}

func periodicTask(name string) (*asynq.Task, error) {
	switch name {
	case TaskCampaignDispatch:
		return NewCampaignDispatchTask(CampaignDispatchPayload{Reason: ReasonCron})
	case TaskClientBirthdays:
		return NewClientBirthdaysTask(ClientBirthdaysPayload{})
	default:
		return nil, fmt.Errorf("unknown periodic task %q", name)
	}
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
