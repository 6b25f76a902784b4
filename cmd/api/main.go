package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drivecash_backend/internal/email"
	"drivecash_backend/internal/events"
	apphttp "drivecash_backend/internal/http"
	"drivecash_backend/internal/http/router"
	"drivecash_backend/internal/loans"
	"drivecash_backend/internal/loans/advisor"
	"drivecash_backend/internal/loans/handler"
	"drivecash_backend/internal/loans/policy"
	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/internal/loans/service"
	"drivecash_backend/internal/notification"
	"drivecash_backend/internal/notification/outbox"
	"drivecash_backend/internal/storage"
	"drivecash_backend/migrations"
	"drivecash_backend/platform/config"
	"drivecash_backend/platform/db"
	"drivecash_backend/platform/logger"
	"drivecash_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

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
		return db.RunMigrations(ctx, cfg, migrations.FS)
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

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log.Logger)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for vehicle photos and supporting documents (MinIO)
	var storageSvc *storage.MinIOService
	if cfg.IsMinIOEnabled() {
		storageSvc, err = storage.NewMinIOService(cfg, cfg.GetBucketVehiclePhotos())
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, "application-documents", cfg.GetBucketApplicationDocuments())
		ensureBucket(ctx, log, storageSvc, "vehicle-photos", cfg.GetBucketVehiclePhotos())
		log.Info("storage service initialized",
			"documentsBucket", cfg.GetBucketApplicationDocuments(),
			"photosBucket", cfg.GetBucketVehiclePhotos(),
		)
	} else {
		log.Warn("MinIO not configured; document uploads disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	limits := policy.Limits{
		AbsoluteCap: cfg.GetLoanMaxLimit(),
		MaxLTVRatio: cfg.GetLoanMaxLTVRatio(),
	}

	// Advisors are optional: without a Gemini key submissions proceed on the
	// deterministic policy alone.
	var valuation service.CollateralValuator
	var underwriting service.UnderwritingRecommender
	if cfg.IsAIEnabled() {
		model, err := advisor.NewGeminiModel(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize advisory model", "error", err)
			panic("failed to initialize advisory model: " + err.Error())
		}
		if storageSvc != nil {
			valuation = advisor.NewValuationAdvisor(model, storageSvc, limits, cfg.GetAdvisoryTimeout(), log)
		}
		underwriting = advisor.NewUnderwritingAdvisor(model, limits, cfg.GetAdvisoryTimeout(), log)
		log.Info("advisory model initialized", "model", cfg.GetGeminiModel())
	} else {
		log.Warn("GEMINI_API_KEY not configured; advisory analysis disabled")
	}

	loansService := service.New(repository.New(pool), valuation, underwriting, limits, eventBus, log)

	var docsHandler *handler.DocumentsHandler
	if storageSvc != nil {
		docsHandler = handler.NewDocumentsHandler(loansService, storageSvc,
			cfg.GetBucketApplicationDocuments(), cfg.GetBucketVehiclePhotos())
	}
	loansModule := loans.NewModule(loansService, val, docsHandler)

	// Notification module subscribes to domain events (not HTTP-facing).
	// With a scheduler configured delivery goes through the outbox; without
	// one emails are sent inline on the event handler.
	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(), cfg.GetAppBaseURL())
	} else {
		log.Warn("email not configured; lifecycle notifications disabled")
	}
	var outboxRepo *outbox.Repository
	if cfg.IsSchedulerEnabled() {
		outboxRepo = outbox.New(pool)
	}
	notificationModule := notification.NewModule(sender, outboxRepo, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			loansModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.Service, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
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
