package tasks

import (
	"log/slog"

	"github.com/edgard/relaybot/internal/database"
)

// TaskDeps bundles the collaborators injected into task factories.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
}
