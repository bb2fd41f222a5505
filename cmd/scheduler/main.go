package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ims_backend/internal/adapters"
	campaignrepo "ims_backend/internal/campaigns/repository"
	campaignsvc "ims_backend/internal/campaigns/service"
	"ims_backend/internal/clients"
	"ims_backend/internal/email"
	"ims_backend/internal/errorlog"
	"ims_backend/internal/events"
	"ims_backend/internal/inquiries"
	"ims_backend/internal/scheduler"
	"ims_backend/internal/templates"
	"ims_backend/platform/config"
	"ims_backend/platform/db"
	"ims_backend/platform/distlock"
	"ims_backend/platform/logger"
	"ims_backend/platform/metrics"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	sender, err := email.NewSender(cfg, cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	redisClient := redis.NewClient(opts)
	defer func() { _ = redisClient.Close() }()

	val := validator.New()
	tx := db.NewTxRunner(pool)

	// Worker-side wiring; no HTTP handlers are mounted.
	templatesModule := templates.NewModule(pool, val, log)
	clientsModule := clients.NewModule(pool, eventBus, val, log)
	inquiriesModule := inquiries.NewModule(pool, tx, eventBus, cfg, val, log)

	campaignSvc := campaignsvc.New(campaignsvc.Deps{
		Repo:     campaignrepo.New(pool),
		Tx:       tx,
		Renderer: adapters.NewCampaignRenderer(templatesModule.Service()),
		Sender:   sender,
		Locks:    distlock.NewFactory(redisClient, pool),
		Bus:      eventBus,
		Metrics:  metrics.New("ims_scheduler"),
		Config:   cfg,
		Log:      log,
	})
	clientSvc := clientsModule.Service()
	campaignSvc.SetPorts(campaignsvc.Ports{
		Audience:  adapters.NewClientAudience(clientSvc),
		Inquiries: inquiriesModule.Service(),
		Clients:   clientSvc,
	})
	clientSvc.SetBirthdayEnqueuer(adapters.NewBirthdayCampaigns(campaignSvc))

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, scheduler.WorkerDeps{
		Dispatcher: campaignSvc,
		Birthdays:  clientSvc,
		Errors:     errorlog.NewRecorder(errorlog.NewPostgresStore(pool), log),
		Location:   cfg.GetSendLocation(),
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
