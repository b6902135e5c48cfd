package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
)

// RegisterWebhooks points every identity's bot at its public webhook URL,
// <publicURL><basePath>/<BOT_ID>. Registration failures abort startup since
// the bot would otherwise silently receive no updates.
func RegisterWebhooks(ctx context.Context, identities []*Identity, publicURL, basePath string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "webhook_setup")

	base := strings.TrimRight(publicURL, "/") + basePath

	for _, ident := range identities {
		url := base + "/" + ident.ID()
		ok, err := ident.Client().SetWebhook(ctx, &bot.SetWebhookParams{URL: url})
		if err != nil {
			return fmt.Errorf("failed to register webhook for bot %q: %w", ident.ID(), err)
		}
		if !ok {
			return fmt.Errorf("telegram rejected webhook registration for bot %q", ident.ID())
		}
		log.Info("Registered webhook", "bot_id", ident.ID(), "url", url)
	}

	return nil
}
