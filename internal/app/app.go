// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kwportal/igcse-tutor-bot/internal/analytics"
	"github.com/kwportal/igcse-tutor-bot/internal/buildinfo"
	"github.com/kwportal/igcse-tutor-bot/internal/catalog"
	"github.com/kwportal/igcse-tutor-bot/internal/config"
	"github.com/kwportal/igcse-tutor-bot/internal/contact"
	"github.com/kwportal/igcse-tutor-bot/internal/flow"
	"github.com/kwportal/igcse-tutor-bot/internal/idempotency"
	"github.com/kwportal/igcse-tutor-bot/internal/label"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/matcher"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
	"github.com/kwportal/igcse-tutor-bot/internal/r2client"
	"github.com/kwportal/igcse-tutor-bot/internal/ratelimit"
	"github.com/kwportal/igcse-tutor-bot/internal/redirect"
	"github.com/kwportal/igcse-tutor-bot/internal/sentry"
	"github.com/kwportal/igcse-tutor-bot/internal/session"
	"github.com/kwportal/igcse-tutor-bot/internal/storage"
	"github.com/kwportal/igcse-tutor-bot/internal/telegram"
	"github.com/kwportal/igcse-tutor-bot/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *storage.DB // nil with the memory session backend
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	catalog   *catalog.Catalog
	sessions  session.Store
	guard     idempotency.Guard
	limiter   *ratelimit.KeyedLimiter
	bot       *telegram.Client
	analytics *analytics.Client

	webhookHandler  *webhook.Handler
	redirectHandler *redirect.Handler

	scheduler *cron.Cron
	server    *http.Server
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "igcse-tutor-bot")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls go through ContextHandler as well.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...", "build", buildinfo.BuildTag)
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry disabled")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error reporting enabled")
	}

	if err := telegram.InstallLogger(log); err != nil {
		log.WithError(err).Warn("Failed to route Bot API library logs")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	canon := label.New(log)

	// The catalog and the database do not depend on each other.
	var (
		cat *catalog.Catalog
		db  *storage.DB
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cat = loadCatalog(gctx, cfg, canon, log)
		return nil
	})
	if cfg.SessionBackend == config.SessionBackendSQLite {
		g.Go(func() error {
			if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
				return fmt.Errorf("data dir: %w", err)
			}
			var err error
			db, err = storage.New(gctx, cfg.SQLitePath())
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	m.SetCatalogSize(cat.Len())

	var (
		sessions session.Store
		guard    idempotency.Guard
	)
	if db != nil {
		sessions = session.NewSQLiteStore(db)
		guard = idempotency.NewSQLiteWindow(db, cfg.Bot.IdempotencyTTL)
		log.WithField("path", cfg.SQLitePath()).Info("Database connected")
	} else {
		sessions = session.NewMemoryStore()
		guard = idempotency.NewWindow(cfg.Bot.IdempotencyTTL)
	}

	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       "chat",
		Burst:      cfg.Bot.UserRateLimitBurst,
		RefillRate: cfg.Bot.UserRateLimitRefillPerSec,
		Metrics:    m,
	})

	bot := telegram.New(telegram.Config{
		Token:         cfg.TelegramBotToken,
		Timeout:       cfg.TelegramTimeout,
		RatePerSecond: cfg.TelegramRatePerSecond,
	}, m, log)
	if !bot.Configured() {
		log.Warn("TELEGRAM_BOT_TOKEN is not set; outbound messages are skipped")
	}

	signer := contact.NewSigner(cfg.WASigningSecret)
	linker := contact.NewLinker(signer, cfg.PublicBaseURL)
	if cfg.PublicBaseURL != "" && !linker.Redirecting() {
		log.Warn("PUBLIC_BASE_URL is set without WA_SIGNING_SECRET; contact links go straight to WhatsApp")
	}

	var clicks *analytics.Client
	if cfg.AnalyticsEnabled() {
		clicks = analytics.New(cfg.AnalyticsWebhook, cfg.AnalyticsSecret, cfg.AnalyticsTimeout, m, log)
		log.Info("Click analytics enabled")
	}

	engine := flow.New(flow.Config{
		Sessions:         sessions,
		Guard:            guard,
		Matcher:          matcher.New(cat, canon, matcher.WithMetrics(m), matcher.WithLogger(log)),
		Sender:           bot,
		Linker:           linker,
		Logger:           log,
		Metrics:          m,
		MatchesPerResult: cfg.Bot.MatchesPerResult,
		PortalNumber:     cfg.PortalWANumber,
	})

	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		Secret:      cfg.TelegramWebhookSecret,
		Processor:   engine,
		UserLimiter: limiter,
		BotConfig:   cfg.Bot,
		Metrics:     m,
		Logger:      log,
	})

	redirectCfg := redirect.HandlerConfig{
		Signer:       signer,
		PortalNumber: cfg.PortalWANumber,
		Mode:         cfg.RedirectMode,
		Analytics:    clicks,
		Metrics:      m,
		Logger:       log,
	}
	if db != nil {
		redirectCfg.Clicks = db
	}

	app := &Application{
		cfg:             cfg,
		logger:          log,
		db:              db,
		metrics:         m,
		registry:        registry,
		catalog:         cat,
		sessions:        sessions,
		guard:           guard,
		limiter:         limiter,
		bot:             bot,
		analytics:       clicks,
		webhookHandler:  webhookHandler,
		redirectHandler: redirect.NewHandler(redirectCfg),
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.WithField("teachers", cat.Len()).
		WithField("session_backend", cfg.SessionBackend).
		Info("Initialization complete")
	return app, nil
}

// loadCatalog reads the tutor catalog from R2 when a key is configured,
// otherwise from the local file. Failures leave the catalog empty.
func loadCatalog(ctx context.Context, cfg *config.Config, canon *label.Canonicalizer, log *logger.Logger) *catalog.Catalog {
	ctx, cancel := context.WithTimeout(ctx, config.CatalogFetch)
	defer cancel()

	var src catalog.Source = catalog.FileSource{Path: cfg.CatalogPath}
	if cfg.CatalogR2Key != "" {
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:        cfg.R2.Endpoint,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			Bucket:          cfg.R2.Bucket,
		})
		if err != nil {
			log.WithError(err).Error("R2 client unavailable; starting with an empty catalog")
			return catalog.Empty()
		}
		src = catalog.ObjectSource{Client: client, Key: cfg.CatalogR2Key}
	}

	cat, err := catalog.Load(ctx, src, canon, log)
	if err != nil {
		log.WithError(err).Error("Catalog unavailable; starting with an empty catalog")
		return cat
	}
	log.WithField("source", cat.Source()).WithField("teachers", cat.Len()).Info("Catalog loaded")
	return cat
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT/SIGTERM and shuts down.
//
// Shutdown order: stop scheduled jobs, drain HTTP (in-flight updates finish),
// wait for analytics pushes, then close storage. Storage goes last because
// both the jobs and in-flight updates write to it.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.startBackgroundJobs(ctx); err != nil {
		a.shutdown()
		return err
	}
	a.registerWebhook(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case sig := <-a.waitForShutdownSignal():
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-errCh:
		a.logger.WithError(err).Error("HTTP server error")
		runErr = fmt.Errorf("http server: %w", err)
	}

	cancel()
	a.shutdown()
	return runErr
}

func (a *Application) waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

func (a *Application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping scheduled jobs...")
	select {
	case <-a.scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("Scheduled jobs did not stop in time")
	}

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.analytics != nil {
		a.analytics.Wait()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "database").Error("Component close error")
		}
	}

	if sentry.IsEnabled() && !sentry.Flush(2*time.Second) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "log shipping shutdown: %v\n", err)
	}
}
