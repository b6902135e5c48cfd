// Package correlate builds the operator notification texts and recovers the
// original (recipient, bot) pair from them when the operator replies.
//
// The notification text is the only channel carrying the correlation: there is
// no durable join table, so the encoding and decoding sides must match
// exactly. Bot ids are restricted to [A-Z0-9_]+ to keep the decode pattern
// unambiguous.
package correlate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseableReference is returned when a replied-to text carries no
// recoverable recipient or bot reference.
var ErrUnparseableReference = errors.New("unparseable notification reference")

var (
	recipientPattern = regexp.MustCompile(`ID: (\d+)`)
	botPattern       = regexp.MustCompile(`Бот: ([A-Z0-9_]+)`)
)

// Target is the recovered destination of an operator reply.
type Target struct {
	RecipientID string
	// BotID is empty in single-bot mode, where the notification carries no
	// bot token and the sole configured bot is implied.
	BotID string
}

// Sender describes the end-user a notification is about.
type Sender struct {
	ID      int64
	Name    string
	Surname string
}

// UserNotification builds the operator notification for an inbound user
// message. The ID: line (and Бот: line in multi-bot mode) must survive the
// operator's reply round-trip unmodified for ExtractTarget to work.
func UserNotification(sender Sender, text, botID string, multiBot bool) string {
	return notification(sender, "Сообщение: "+text, botID, multiBot)
}

// ActionNotification builds the operator notification for a /start event.
func ActionNotification(sender Sender, botID string, multiBot bool) string {
	return notification(sender, "Действие: Запустил бота", botID, multiBot)
}

func notification(sender Sender, detail, botID string, multiBot bool) string {
	name := sender.Name
	if name == "" {
		name = "Не указано"
	}
	surname := sender.Surname
	if surname == "" {
		surname = "Не указана"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 Пользователь с ID: %d\n", sender.ID)
	fmt.Fprintf(&b, "Имя: %s\n", name)
	fmt.Fprintf(&b, "Фамилия: %s\n", surname)
	b.WriteString(detail)
	if multiBot {
		fmt.Fprintf(&b, "\nБот: %s", botID)
	}
	return b.String()
}

// ExtractTarget scans the replied-to notification text for the first
// "ID: <digits>" occurrence and, in multi-bot mode, the first
// "Бот: <BOT_ID>" occurrence. Bare digits without the label never match.
func ExtractTarget(originalText string, multiBot bool) (Target, error) {
	m := recipientPattern.FindStringSubmatch(originalText)
	if m == nil {
		return Target{}, fmt.Errorf("%w: no recipient id label", ErrUnparseableReference)
	}
	target := Target{RecipientID: m[1]}

	if multiBot {
		bm := botPattern.FindStringSubmatch(originalText)
		if bm == nil {
			return Target{}, fmt.Errorf("%w: no bot id label", ErrUnparseableReference)
		}
		target.BotID = bm[1]
	}

	return target, nil
}
