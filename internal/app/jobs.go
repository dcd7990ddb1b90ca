package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kwportal/igcse-tutor-bot/internal/config"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
)

// startBackgroundJobs schedules pruning of idle sessions, expired result
// signatures and idle rate-limit buckets on PRUNE_SCHEDULE.
func (a *Application) startBackgroundJobs(ctx context.Context) error {
	a.scheduler = cron.New(cron.WithChain(cron.Recover(cronLogger{log: a.logger.WithModule("cron")})))

	if _, err := a.scheduler.AddFunc(a.cfg.PruneSchedule, func() { a.prune(ctx) }); err != nil {
		return fmt.Errorf("prune schedule %q: %w", a.cfg.PruneSchedule, err)
	}
	a.scheduler.Start()
	a.logger.WithField("schedule", a.cfg.PruneSchedule).Info("Prune job scheduled")
	return nil
}

// prune runs one pruning pass. Failures are logged; the next pass retries.
func (a *Application) prune(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	log := a.logger.WithModule("prune")

	sessions, err := a.sessions.PruneIdle(ctx, start.Add(-config.SessionIdleTTL))
	if err != nil {
		log.WithError(err).Error("Failed to prune idle sessions")
	}
	signatures, err := a.guard.Prune(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to prune result signatures")
	}
	buckets := a.limiter.Prune()

	log.WithField("sessions", sessions).
		WithField("signatures", signatures).
		WithField("buckets", buckets).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("Prune pass completed")
}

// registerWebhook points Telegram at TELEGRAM_WEBHOOK_URL when it is set.
// The service keeps running if registration fails; the previous
// registration stays in effect.
func (a *Application) registerWebhook(ctx context.Context) {
	if a.cfg.TelegramWebhookURL == "" || !a.bot.Configured() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.TelegramTimeout)
	defer cancel()

	if err := a.bot.SetWebhook(ctx, a.cfg.TelegramWebhookURL, a.cfg.TelegramWebhookSecret); err != nil {
		a.logger.WithError(err).Error("Failed to register webhook")
		return
	}
	a.logger.WithField("url", a.cfg.TelegramWebhookURL).Info("Webhook registered")
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithError(err).Error(msg, keysAndValues...)
}
