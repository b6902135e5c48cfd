// Package telegram adapts the go-telegram/bot client to the bot identity
// contract used by the registry and router.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
)

// Identity is one configured Telegram bot: a stable id plus the client for
// its token. Constructed once at startup, immutable afterwards.
type Identity struct {
	id     string
	client *bot.Bot
	logger *slog.Logger
}

// NewIdentity creates a Telegram-backed bot identity for the given token.
// bot.New validates the token against the Telegram API, so an invalid
// credential fails here at startup.
func NewIdentity(id, token string, logger *slog.Logger, opts ...bot.Option) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token for %q cannot be empty", id)
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot", "bot_id", id)

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot %q: %w", id, err)
	}

	log.Info("Telegram bot instance created successfully")
	return &Identity{id: id, client: b, logger: log}, nil
}

// ID returns the stable bot id.
func (i *Identity) ID() string {
	return i.id
}

// Send delivers a text message to the given chat or user id. One attempt,
// no retry; the caller decides how a failure is surfaced.
func (i *Identity) Send(ctx context.Context, recipientID int64, text string) error {
	_, err := i.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: recipientID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message via bot %q: %w", i.id, err)
	}
	return nil
}

// Client exposes the underlying bot client for webhook registration.
func (i *Identity) Client() *bot.Bot {
	return i.client
}
