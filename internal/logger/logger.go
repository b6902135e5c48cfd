// Package logger provides structured logging functionality for the relay bot.
// It uses Go's slog package for logging with configurable levels and formats.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/registry"
	"github.com/edgard/relaybot/internal/router"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Middleware creates a logging middleware for the update dispatch pipeline.
// It logs information about incoming updates and messages for debugging purposes.
func Middleware(log *slog.Logger) router.Middleware {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx context.Context, ident registry.Identity, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With(
				"update_id", update.ID,
				"bot_id", ident.ID(),
			)

			if update.Message != nil {
				var userID int64
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
				logEntry = logEntry.With(
					"message_id", update.Message.ID,
					"chat_id", update.Message.Chat.ID,
					"user_id", userID,
					"text_preview", truncateString(update.Message.Text, 50),
				)
			}

			logEntry.InfoContext(ctx, "Processing update")

			next(ctx, ident, update)

			duration := time.Since(startTime)
			logEntry.InfoContext(ctx, "Finished processing update", "duration", duration)
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
