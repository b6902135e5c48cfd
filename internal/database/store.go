package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a new message record. A failed write is reported to
	// the caller and never retried by the store.
	SaveMessage(ctx context.Context, message *Message) error

	// GetRecentMessages retrieves up to 'limit' messages from sender_id under
	// bot_id with created_at >= since, newest first.
	GetRecentMessages(ctx context.Context, senderID, botID string, since time.Time, limit int) ([]Message, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage inserts a new message record. CreatedAt is set at write time.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.SenderID == "" {
		return fmt.Errorf("message must have a non-empty sender_id")
	}
	if message.BotID == "" {
		return fmt.Errorf("message must have a non-empty bot_id")
	}

	message.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO messages (created_at, sender_id, sender_name, sender_surname, body, bot_id)
        VALUES (:created_at, :sender_id, :sender_name, :sender_surname, :body, :bot_id);
    `

	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"sender_id", message.SenderID, "bot_id", message.BotID, "error", err)
		return fmt.Errorf("failed to save message (sender %s, bot %s): %w", message.SenderID, message.BotID, err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		message.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving message",
			"sender_id", message.SenderID, "bot_id", message.BotID, "error", err)
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"sender_id", message.SenderID, "bot_id", message.BotID, "message_id", message.ID)
	return nil
}

// GetRecentMessages retrieves up to 'limit' messages for a (sender, bot) pair
// newer than 'since', ordered by created_at descending.
func (s *sqlxStore) GetRecentMessages(ctx context.Context, senderID, botID string, since time.Time, limit int) ([]Message, error) {
	if senderID == "" {
		return nil, fmt.Errorf("sender_id cannot be empty")
	}
	if botID == "" {
		return nil, fmt.Errorf("bot_id cannot be empty")
	}

	if limit <= 0 {
		limit = 20
		s.logger.DebugContext(ctx, "Invalid limit provided, using default",
			"sender_id", senderID, "default_limit", limit)
	} else if limit > 100 {
		limit = 100
		s.logger.DebugContext(ctx, "Limit exceeded maximum value, capping",
			"sender_id", senderID, "capped_limit", limit)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []Message
	query := `
        SELECT id, created_at, sender_id, sender_name, sender_surname, body, bot_id
        FROM messages
        WHERE sender_id = ? AND bot_id = ? AND created_at >= ?
        ORDER BY created_at DESC
        LIMIT ?;
    `

	s.logger.DebugContext(ctx, "Fetching recent messages",
		"sender_id", senderID, "bot_id", botID, "since", since, "limit", limit)
	err := s.db.SelectContext(ctx, &messages, query, senderID, botID, since, limit)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching messages",
			"sender_id", senderID, "error", err)
		return nil, err
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages",
			"sender_id", senderID, "bot_id", botID, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for sender %s: %w", senderID, err)
	}

	s.logger.DebugContext(ctx, "Fetched recent messages successfully",
		"sender_id", senderID, "bot_id", botID, "count", len(messages))
	return messages, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
