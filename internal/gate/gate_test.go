package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/gate"
)

type fakeStore struct {
	messages []database.Message
	queryErr error

	gotSenderID string
	gotBotID    string
	gotSince    time.Time
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }

func (f *fakeStore) SaveMessage(_ context.Context, _ *database.Message) error { return nil }

func (f *fakeStore) GetRecentMessages(_ context.Context, senderID, botID string, since time.Time, _ int) ([]database.Message, error) {
	f.gotSenderID = senderID
	f.gotBotID = botID
	f.gotSince = since
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.messages, nil
}

func (f *fakeStore) RunSQLMaintenance(_ context.Context) error { return nil }

func TestHasRecentActivity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		messages []database.Message
		queryErr error
		want     bool
	}{
		{
			name:     "recent message found",
			messages: []database.Message{{SenderID: "999", BotID: "ALPHA"}},
			want:     true,
		},
		{
			name: "no recent messages",
			want: false,
		},
		{
			name:     "store error fails open",
			queryErr: errors.New("database is locked"),
			want:     false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeStore{messages: tc.messages, queryErr: tc.queryErr}
			g := gate.New(store, nil)

			got := g.HasRecentActivity(context.Background(), "999", "ALPHA", 24*time.Hour)
			if got != tc.want {
				t.Errorf("HasRecentActivity = %v, want %v", got, tc.want)
			}
			if store.gotSenderID != "999" || store.gotBotID != "ALPHA" {
				t.Errorf("query used (%q, %q), want (999, ALPHA)", store.gotSenderID, store.gotBotID)
			}
		})
	}
}

func TestWindowBoundsQuery(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	g := gate.New(store, nil)

	before := time.Now().UTC().Add(-24 * time.Hour)
	g.HasRecentActivity(context.Background(), "1", "ALPHA", 24*time.Hour)
	after := time.Now().UTC().Add(-24 * time.Hour)

	if store.gotSince.Before(before) || store.gotSince.After(after) {
		t.Errorf("since = %v, want within [%v, %v]", store.gotSince, before, after)
	}
}
