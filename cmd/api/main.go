package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ims_backend/internal/adapters"
	"ims_backend/internal/adapters/storage"
	"ims_backend/internal/auth"
	"ims_backend/internal/campaigns"
	campaignrepo "ims_backend/internal/campaigns/repository"
	campaignsvc "ims_backend/internal/campaigns/service"
	"ims_backend/internal/clients"
	"ims_backend/internal/email"
	"ims_backend/internal/engagements"
	"ims_backend/internal/errorlog"
	"ims_backend/internal/events"
	apphttp "ims_backend/internal/http"
	"ims_backend/internal/http/router"
	"ims_backend/internal/inquiries"
	inquirysvc "ims_backend/internal/inquiries/service"
	"ims_backend/internal/international"
	"ims_backend/internal/leads"
	"ims_backend/internal/payments"
	paymentsvc "ims_backend/internal/payments/service"
	"ims_backend/internal/scheduler"
	"ims_backend/internal/targets"
	"ims_backend/internal/templates"
	"ims_backend/internal/webhook"
	"ims_backend/platform/config"
	"ims_backend/platform/db"
	"ims_backend/platform/distlock"
	"ims_backend/platform/logger"
	"ims_backend/platform/metrics"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
// Keys under publicPrefix are opened for anonymous reads.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc *storage.MinIOService, name, bucket, publicPrefix string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		if err := storageSvc.EnsureBucketExists(ctx, bucket); err != nil {
			return err
		}
		return storageSvc.AllowPublicRead(ctx, bucket, publicPrefix)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, cfg.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	tx := db.NewTxRunner(pool)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	registry := metrics.New("ims")

	sender, err := email.NewSender(cfg, cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Invoice storage is optional; without it uploads fail but payments work.
	var invoiceStore paymentsvc.Storage
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, "invoices", cfg.GetMinioBucketInvoices(), paymentsvc.InvoicePrefix)
		invoiceStore = storageSvc
		log.Info("storage service initialized", "invoicesBucket", cfg.GetMinioBucketInvoices())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; invoice uploads disabled")
	}

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	locks := distlock.NewFactory(redisClient, pool)

	errorRecorder := errorlog.NewRecorder(errorlog.NewPostgresStore(pool), log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	templatesModule := templates.NewModule(pool, val, log)
	authModule := auth.NewModule(pool, cfg, log, val)
	clientsModule := clients.NewModule(pool, eventBus, val, log)
	leadsModule := leads.NewModule(pool, tx, val, log)
	inquiriesModule := inquiries.NewModule(pool, tx, eventBus, cfg, val, log)
	engagementsModule := engagements.NewModule(pool, tx, val, log)
	paymentsModule := payments.NewModule(pool, tx, invoiceStore, cfg, val, log)

	templateSvc := templatesModule.Service()
	campaignSvc := campaignsvc.New(campaignsvc.Deps{
		Repo:     campaignrepo.New(pool),
		Tx:       tx,
		Renderer: adapters.NewCampaignRenderer(templateSvc),
		Sender:   sender,
		Locks:    locks,
		Bus:      eventBus,
		Metrics:  registry,
		Config:   cfg,
		Log:      log,
	})
	campaignsModule := campaigns.NewModule(campaignSvc, val)

	clientSvc := clientsModule.Service()
	inquirySvc := inquiriesModule.Service()
	paymentSvc := paymentsModule.Service()

	campaignSvc.SetPorts(campaignsvc.Ports{
		Audience:  adapters.NewClientAudience(clientSvc),
		Inquiries: inquirySvc,
		Clients:   clientSvc,
	})
	clientSvc.SetBirthdayEnqueuer(adapters.NewBirthdayCampaigns(campaignSvc))

	inquirySvc.SetPorts(inquirysvc.Ports{
		Campaigns:   adapters.NewInquiryCampaigns(campaignSvc),
		Clients:     adapters.NewInquiryClients(clientSvc),
		Engagements: adapters.NewInquiryEngagements(engagementsModule.Service()),
		Payments:    adapters.NewInquiryPayments(paymentSvc),
		Mailer:      adapters.NewProposalMailer(templateSvc, sender),
		Users:       adapters.NewInquiryUsers(authModule.Service()),
	})
	leadsModule.Service().SetInquiryCreator(adapters.NewLeadInquiryCreator(inquirySvc))
	engagementsModule.Service().SetPaymentEnsurer(adapters.NewEventPaymentEnsurer(inquirySvc, paymentSvc))
	paymentSvc.SetPorts(paymentsvc.Ports{
		Inquiries: adapters.NewPaymentInquiries(inquirySvc),
		Campaigns: adapters.NewPaymentCampaigns(campaignSvc),
		Clients:   clientSvc,
	})

	webhookModule := webhook.NewModule(campaignSvc, eventBus, registry, cfg, log)
	targetsModule := targets.NewModule(pool, val, log)
	internationalModule := international.NewModule(pool, val, log)

	closeScheduler := initDispatchNudger(cfg, eventBus, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	app := &apphttp.App{
		Config:        cfg,
		Logger:        log,
		Health:        db.NewPoolAdapter(pool),
		Metrics:       registry,
		ErrorRecorder: errorRecorder.Middleware(),
		EventBus:      eventBus,
		Modules: []apphttp.Module{
			authModule,
			templatesModule,
			clientsModule,
			leadsModule,
			inquiriesModule,
			engagementsModule,
			paymentsModule,
			campaignsModule,
			webhookModule,
			targetsModule,
			internationalModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err, ok := <-srvErr:
		if ok && err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis returns nil when REDIS_URL is unset; locks then use Postgres advisory locks.
func initRedis(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; campaign locks use postgres advisory locks")
		return nil
	}
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; campaign locks use postgres advisory locks", "error", err)
		return nil
	}
	return redis.NewClient(opts)
}

func initDispatchNudger(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; campaigns wait for the periodic dispatch")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil
	}
	scheduler.NewDispatchNudger(client, log).RegisterHandlers(bus)

	return func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
