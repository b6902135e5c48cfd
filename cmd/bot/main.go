// Package main contains the entrypoint for the relay bot application.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/edgard/relaybot/internal/bot"
	"github.com/edgard/relaybot/internal/bot/tasks"
	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/gate"
	"github.com/edgard/relaybot/internal/logger"
	"github.com/edgard/relaybot/internal/registry"
	"github.com/edgard/relaybot/internal/router"
	"github.com/edgard/relaybot/internal/telegram"
	"github.com/edgard/relaybot/internal/webhook"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// bot identities, router, webhook server, scheduler), handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	// Registration order must be deterministic across restarts because it
	// drives the default-bot fallback; viper maps carry no order of their own.
	botIDs := make([]string, 0, len(cfg.Telegram.Bots))
	for id := range cfg.Telegram.Bots {
		botIDs = append(botIDs, id)
	}
	sort.Strings(botIDs)

	reg := registry.New()
	identities := make([]*telegram.Identity, 0, len(botIDs))
	for _, id := range botIDs {
		ident, err := telegram.NewIdentity(id, cfg.Telegram.Bots[id], log)
		if err != nil {
			log.Error("Failed to initialize bot", "bot_id", id, "error", err)
			return 1
		}
		if err := reg.Register(id, ident); err != nil {
			log.Error("Failed to register bot", "bot_id", id, "error", err)
			return 1
		}
		identities = append(identities, ident)
	}
	log.Info("Bots initialized", "count", reg.Len(), "bot_ids", reg.IDs())

	if cfg.Webhook.PublicURL != "" {
		if err := telegram.RegisterWebhooks(ctx, identities, cfg.Webhook.PublicURL, cfg.Webhook.BasePath, log); err != nil {
			log.Error("Failed to register webhooks", "error", err)
			return 1
		}
	} else {
		log.Warn("No public URL configured, skipping webhook self-registration")
	}

	rtr := router.New(router.Deps{
		Logger:     log,
		Store:      store,
		Gate:       gate.New(store, log),
		Registry:   reg,
		Messages:   cfg.Messages,
		OperatorID: cfg.Telegram.OperatorID,
	})
	handler := router.Apply(rtr.HandleUpdate, []router.Middleware{logger.Middleware(log)})

	server := webhook.NewServer(
		cfg.Webhook.ListenAddr,
		cfg.Webhook.BasePath,
		cfg.Telegram.PreferredBots,
		reg,
		handler,
		store,
		log,
	)

	sched := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
	}))

	app := bot.NewBot(log, server, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
