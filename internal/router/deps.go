package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/registry"
)

// Gate decides whether the automated acknowledgement should be suppressed.
type Gate interface {
	HasRecentActivity(ctx context.Context, senderID, botID string, window time.Duration) bool
}

// Deps bundles the collaborators injected into the Router.
type Deps struct {
	Logger     *slog.Logger
	Store      database.Store
	Gate       Gate
	Registry   *registry.Registry
	Messages   config.MessagesConfig
	OperatorID int64
}
