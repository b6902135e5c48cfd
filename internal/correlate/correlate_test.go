package correlate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/edgard/relaybot/internal/correlate"
)

func TestUserNotificationRoundTrip(t *testing.T) {
	t.Parallel()

	sender := correlate.Sender{ID: 12345, Name: "Ivan", Surname: "Petrov"}
	text := correlate.UserNotification(sender, "hello there", "ALPHA", true)

	target, err := correlate.ExtractTarget(text, true)
	if err != nil {
		t.Fatalf("ExtractTarget returned error: %v", err)
	}
	if target.RecipientID != "12345" {
		t.Errorf("recipient = %q, want %q", target.RecipientID, "12345")
	}
	if target.BotID != "ALPHA" {
		t.Errorf("bot id = %q, want %q", target.BotID, "ALPHA")
	}
}

func TestActionNotificationRoundTrip(t *testing.T) {
	t.Parallel()

	sender := correlate.Sender{ID: 999}
	text := correlate.ActionNotification(sender, "BOT_2", true)

	if !strings.Contains(text, "Действие: Запустил бота") {
		t.Errorf("action notification missing action line: %q", text)
	}
	if !strings.Contains(text, "Имя: Не указано") {
		t.Errorf("missing name placeholder: %q", text)
	}
	if !strings.Contains(text, "Фамилия: Не указана") {
		t.Errorf("missing surname placeholder: %q", text)
	}

	target, err := correlate.ExtractTarget(text, true)
	if err != nil {
		t.Fatalf("ExtractTarget returned error: %v", err)
	}
	if target.RecipientID != "999" || target.BotID != "BOT_2" {
		t.Errorf("target = %+v, want recipient 999 bot BOT_2", target)
	}
}

func TestSingleBotNotificationHasNoBotToken(t *testing.T) {
	t.Parallel()

	text := correlate.UserNotification(correlate.Sender{ID: 7}, "hi", "ALPHA", false)
	if strings.Contains(text, "Бот:") {
		t.Errorf("single-bot notification must not carry a bot token: %q", text)
	}

	target, err := correlate.ExtractTarget(text, false)
	if err != nil {
		t.Fatalf("ExtractTarget returned error: %v", err)
	}
	if target.RecipientID != "7" {
		t.Errorf("recipient = %q, want %q", target.RecipientID, "7")
	}
	if target.BotID != "" {
		t.Errorf("bot id = %q, want empty in single-bot mode", target.BotID)
	}
}

func TestExtractTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		text          string
		multiBot      bool
		wantRecipient string
		wantBot       string
		wantErr       bool
	}{
		{
			name:          "full multi-bot notification",
			text:          "👤 Пользователь с ID: 999\nИмя: Аня\nФамилия: Не указана\nСообщение: привет\nБот: ALPHA",
			multiBot:      true,
			wantRecipient: "999",
			wantBot:       "ALPHA",
		},
		{
			name:     "no id label",
			text:     "Просто текст без меток, даже с числом 12345",
			multiBot: true,
			wantErr:  true,
		},
		{
			name:     "id label present but bot label missing in multi-bot mode",
			text:     "👤 Пользователь с ID: 42\nСообщение: привет",
			multiBot: true,
			wantErr:  true,
		},
		{
			name:          "bot label optional in single-bot mode",
			text:          "👤 Пользователь с ID: 42\nСообщение: привет",
			multiBot:      false,
			wantRecipient: "42",
		},
		{
			name:          "bare digits before the label do not count",
			text:          "заказ 555 оформлен\nID: 999\nБот: BETA",
			multiBot:      true,
			wantRecipient: "999",
			wantBot:       "BETA",
		},
		{
			name:          "first labelled match wins over one in the body",
			text:          "👤 Пользователь с ID: 100\nСообщение: мой ID: 200\nБот: ALPHA",
			multiBot:      true,
			wantRecipient: "100",
			wantBot:       "ALPHA",
		},
		{
			name:     "empty text",
			text:     "",
			multiBot: false,
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			target, err := correlate.ExtractTarget(tc.text, tc.multiBot)
			if tc.wantErr {
				if !errors.Is(err, correlate.ErrUnparseableReference) {
					t.Fatalf("err = %v, want ErrUnparseableReference", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractTarget returned error: %v", err)
			}
			if target.RecipientID != tc.wantRecipient {
				t.Errorf("recipient = %q, want %q", target.RecipientID, tc.wantRecipient)
			}
			if target.BotID != tc.wantBot {
				t.Errorf("bot id = %q, want %q", target.BotID, tc.wantBot)
			}
		})
	}
}
