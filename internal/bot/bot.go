// Package bot implements lifecycle management and component orchestration
// for the relay bot application.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/relaybot/internal/webhook"
)

// Bot represents the main application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	server    *webhook.Server
	scheduler *Scheduler
}

// NewBot creates the application orchestrator from its long-running
// components: the webhook server and the task scheduler.
func NewBot(logger *slog.Logger, server *webhook.Server, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		server:    server,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails. Shutdown is graceful: the webhook server drains in-flight
// requests and the scheduler waits for running jobs.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting webhook server...")
		if err := b.server.Run(gCtx); err != nil {
			b.logger.Error("Webhook server stopped with error", "error", err)
			return fmt.Errorf("webhook server failed: %w", err)
		}
		b.logger.Info("Webhook server stopped.")
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
