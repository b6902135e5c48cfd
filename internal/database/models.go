package database

import (
	"database/sql"
	"time"
)

// Message represents one communication event flowing through a bot: a user
// message, a synthetic /start record, or an operator reply relayed back out.
// Rows are append-only; nothing in the application updates or deletes them.
type Message struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	SenderID      string         `db:"sender_id"`
	SenderName    sql.NullString `db:"sender_name"`
	SenderSurname sql.NullString `db:"sender_surname"`
	Body          string         `db:"body"`
	BotID         string         `db:"bot_id"`
}
