// Package gate decides whether a sender has interacted with a bot recently
// enough to suppress the automated acknowledgement.
package gate

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/relaybot/internal/database"
)

// RecencyGate answers "has this sender messaged this bot within the window?".
// Every call re-queries the store; there is no caching. Storage errors are
// treated as "no recent activity" so an extra greeting is favored over a
// missed one.
type RecencyGate struct {
	store  database.Store
	logger *slog.Logger
}

// New creates a RecencyGate backed by the given store.
func New(store database.Store, logger *slog.Logger) *RecencyGate {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RecencyGate{
		store:  store,
		logger: logger.With("component", "recency_gate"),
	}
}

// HasRecentActivity reports whether senderID has a message under botID newer
// than now-window.
func (g *RecencyGate) HasRecentActivity(ctx context.Context, senderID, botID string, window time.Duration) bool {
	since := time.Now().UTC().Add(-window)

	messages, err := g.store.GetRecentMessages(ctx, senderID, botID, since, 1)
	if err != nil {
		g.logger.WarnContext(ctx, "Recency check failed, treating as no recent activity",
			"sender_id", senderID, "bot_id", botID, "error", err)
		return false
	}

	recent := len(messages) > 0
	g.logger.DebugContext(ctx, "Recency check completed",
		"sender_id", senderID, "bot_id", botID, "window", window, "recent", recent)
	return recent
}
