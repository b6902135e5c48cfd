// Package router classifies inbound webhook events and orchestrates the
// relay between end-users and the operator: greetings, acknowledgements,
// operator notifications, reply relays, and transcript persistence.
package router

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/correlate"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/registry"
)

// recencyWindow is the lookback used to suppress duplicate acknowledgements.
const recencyWindow = 24 * time.Hour

// operatorDisplayName is recorded as the sender name on relayed replies.
const operatorDisplayName = "Владелец"

// relayBodyFormat is the persisted body of a relayed reply.
const relayBodyFormat = "Ответ для %s: %s"

// HandlerFunc processes one inbound update for the bot identity that
// received it.
type HandlerFunc func(ctx context.Context, ident registry.Identity, update *models.Update)

// Middleware wraps a HandlerFunc.
type Middleware func(HandlerFunc) HandlerFunc

// Apply wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func Apply(handler HandlerFunc, mw []Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// Router dispatches inbound events. It holds no mutable state of its own;
// everything it touches is either read-only after startup (the registry) or
// delegates concurrency control to the store.
type Router struct {
	deps Deps
}

// New creates a Router with the given dependencies.
func New(deps Deps) *Router {
	deps.Logger = deps.Logger.With("component", "router")
	return &Router{deps: deps}
}

// HandleUpdate classifies one inbound event and runs the matching flow.
// Classification order: start command, operator reply, user message; events
// without text (and non-reply operator messages) are ignored.
func (r *Router) HandleUpdate(ctx context.Context, ident registry.Identity, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		r.deps.Logger.DebugContext(ctx, "Ignoring update without message text", "update_id", update.ID)
		return
	}

	switch {
	case isStartCommand(msg.Text):
		r.handleStart(ctx, ident, msg)
	case msg.From.ID == r.deps.OperatorID && msg.ReplyToMessage != nil:
		r.handleOperatorReply(ctx, ident, msg)
	case msg.From.ID != r.deps.OperatorID:
		r.handleUserMessage(ctx, ident, msg)
	default:
		// Plain operator chatter with no reply reference carries no routable
		// target and is dropped.
		r.deps.Logger.DebugContext(ctx, "Ignoring operator message without reply reference",
			"update_id", update.ID)
	}
}

func isStartCommand(text string) bool {
	return text == "/start" || strings.HasPrefix(text, "/start ") || strings.HasPrefix(text, "/start@")
}

// handleStart greets the sender, notifies the operator with an action
// notification, and persists a synthetic start record.
func (r *Router) handleStart(ctx context.Context, ident registry.Identity, msg *models.Message) {
	log := r.deps.Logger.With("flow", "start", "bot_id", ident.ID())
	log.InfoContext(ctx, "Handling start command", "user_id", msg.From.ID)

	if err := ident.Send(ctx, msg.Chat.ID, r.deps.Messages.Greeting); err != nil {
		log.ErrorContext(ctx, "Failed to send greeting", "user_id", msg.From.ID, "error", err)
	}

	notif := correlate.ActionNotification(senderOf(msg), ident.ID(), r.multiBot())
	if err := ident.Send(ctx, r.deps.OperatorID, notif); err != nil {
		log.ErrorContext(ctx, "Failed to notify operator", "error", err)
	}

	r.persist(ctx, ident, messageOf(msg, r.deps.Messages.StartLogBody, ident.ID()))
}

// handleUserMessage acknowledges the sender unless they were recently active,
// then unconditionally notifies the operator and persists the message.
func (r *Router) handleUserMessage(ctx context.Context, ident registry.Identity, msg *models.Message) {
	log := r.deps.Logger.With("flow", "user_message", "bot_id", ident.ID())
	senderID := strconv.FormatInt(msg.From.ID, 10)

	if !r.deps.Gate.HasRecentActivity(ctx, senderID, ident.ID(), recencyWindow) {
		if err := ident.Send(ctx, msg.Chat.ID, r.deps.Messages.Ack); err != nil {
			log.ErrorContext(ctx, "Failed to send acknowledgement", "user_id", msg.From.ID, "error", err)
		}
	} else {
		log.DebugContext(ctx, "Recent activity found, suppressing acknowledgement", "sender_id", senderID)
	}

	notif := correlate.UserNotification(senderOf(msg), msg.Text, ident.ID(), r.multiBot())
	if err := ident.Send(ctx, r.deps.OperatorID, notif); err != nil {
		log.ErrorContext(ctx, "Failed to notify operator", "error", err)
	}

	r.persist(ctx, ident, messageOf(msg, msg.Text, ident.ID()))
}

// handleOperatorReply recovers the (recipient, bot) pair from the replied-to
// notification, relays the operator's text through the resolved bot, persists
// the relay, and confirms back to the operator. Every failure on this path is
// reported to the operator instead of being dropped silently.
func (r *Router) handleOperatorReply(ctx context.Context, ident registry.Identity, msg *models.Message) {
	log := r.deps.Logger.With("flow", "operator_reply", "bot_id", ident.ID())
	operatorChat := msg.Chat.ID

	var original string
	if msg.ReplyToMessage != nil {
		original = msg.ReplyToMessage.Text
	}

	target, err := correlate.ExtractTarget(original, r.multiBot())
	if err != nil {
		log.WarnContext(ctx, "Could not extract reply target", "error", err)
		r.sendToOperator(ctx, ident, operatorChat, r.deps.Messages.Unparseable)
		return
	}

	botID := target.BotID
	if botID == "" {
		// Single-bot mode: the notification carries no bot token and the sole
		// configured bot is implied.
		botID = r.deps.Registry.IDs()[0]
	}

	targetIdent, err := r.deps.Registry.Resolve(botID)
	if err != nil {
		log.WarnContext(ctx, "Reply targets unknown bot", "target_bot_id", botID)
		r.sendToOperator(ctx, ident, operatorChat, fmt.Sprintf(r.deps.Messages.BotMissing, botID))
		return
	}

	recipientID, err := strconv.ParseInt(target.RecipientID, 10, 64)
	if err != nil {
		log.WarnContext(ctx, "Recovered recipient id is not a valid integer",
			"recipient_id", target.RecipientID, "error", err)
		r.sendToOperator(ctx, ident, operatorChat, r.deps.Messages.Unparseable)
		return
	}

	if err := targetIdent.Send(ctx, recipientID, r.deps.Messages.ReplyPrefix+msg.Text); err != nil {
		log.ErrorContext(ctx, "Failed to relay reply",
			"recipient_id", target.RecipientID, "target_bot_id", botID, "error", err)
		r.sendToOperator(ctx, ident, operatorChat,
			fmt.Sprintf(r.deps.Messages.RelaySendFailed, target.RecipientID, err))
		return
	}

	relay := &database.Message{
		SenderID:   strconv.FormatInt(r.deps.OperatorID, 10),
		SenderName: sql.NullString{String: operatorDisplayName, Valid: true},
		Body:       fmt.Sprintf(relayBodyFormat, target.RecipientID, msg.Text),
		BotID:      botID,
	}
	r.persist(ctx, ident, relay)

	r.sendToOperator(ctx, ident, operatorChat,
		fmt.Sprintf(r.deps.Messages.RelayConfirmed, target.RecipientID, botID))
	log.InfoContext(ctx, "Relayed operator reply",
		"recipient_id", target.RecipientID, "target_bot_id", botID)
}

// persist appends a message to the transcript. The user-visible reply has
// already been sent by the time this runs, so a write failure only produces a
// best-effort diagnostic to the operator; the diagnostic itself is never
// persisted.
func (r *Router) persist(ctx context.Context, ident registry.Identity, message *database.Message) {
	if err := r.deps.Store.SaveMessage(ctx, message); err != nil {
		r.deps.Logger.ErrorContext(ctx, "Failed to persist message",
			"sender_id", message.SenderID, "bot_id", message.BotID, "error", err)
		r.sendToOperator(ctx, ident, r.deps.OperatorID,
			fmt.Sprintf(r.deps.Messages.StoreFailure, err))
	}
}

func (r *Router) sendToOperator(ctx context.Context, ident registry.Identity, chatID int64, text string) {
	if err := ident.Send(ctx, chatID, text); err != nil {
		r.deps.Logger.ErrorContext(ctx, "Failed to send message to operator", "error", err)
	}
}

func (r *Router) multiBot() bool {
	return r.deps.Registry.Len() > 1
}

func senderOf(msg *models.Message) correlate.Sender {
	return correlate.Sender{
		ID:      msg.From.ID,
		Name:    msg.From.FirstName,
		Surname: msg.From.LastName,
	}
}

func messageOf(msg *models.Message, body, botID string) *database.Message {
	return &database.Message{
		SenderID:      strconv.FormatInt(msg.From.ID, 10),
		SenderName:    nullString(msg.From.FirstName),
		SenderSurname: nullString(msg.From.LastName),
		Body:          body,
		BotID:         botID,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
