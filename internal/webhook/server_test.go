package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/registry"
	"github.com/edgard/relaybot/internal/webhook"
)

type stubIdentity struct {
	id string
}

func (s stubIdentity) ID() string { return s.id }

func (s stubIdentity) Send(_ context.Context, _ int64, _ string) error { return nil }

type stubStore struct {
	pingErr error
}

func (s *stubStore) Ping(_ context.Context) error { return s.pingErr }

func (s *stubStore) SaveMessage(_ context.Context, _ *database.Message) error { return nil }

func (s *stubStore) GetRecentMessages(_ context.Context, _, _ string, _ time.Time, _ int) ([]database.Message, error) {
	return nil, nil
}

func (s *stubStore) RunSQLMaintenance(_ context.Context) error { return nil }

type dispatch struct {
	botID  string
	update *models.Update
}

func newTestServer(t *testing.T, preferred []string, botIDs ...string) (*webhook.Server, *[]dispatch) {
	t.Helper()

	reg := registry.New()
	for _, id := range botIDs {
		if err := reg.Register(id, stubIdentity{id: id}); err != nil {
			t.Fatalf("Register(%q) returned error: %v", id, err)
		}
	}

	var dispatched []dispatch
	handler := func(_ context.Context, ident registry.Identity, update *models.Update) {
		dispatched = append(dispatched, dispatch{botID: ident.ID(), update: update})
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := webhook.NewServer(":0", "/hook", preferred, reg, handler, &stubStore{}, log)
	return srv, &dispatched
}

func updateJSON(t *testing.T, userID int64, text string) string {
	t.Helper()
	upd := models.Update{
		ID: 77,
		Message: &models.Message{
			ID:   5,
			From: &models.User{ID: userID},
			Chat: models.Chat{ID: userID},
			Text: text,
		},
	}
	data, err := json.Marshal(upd)
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	return string(data)
}

func TestPathSegmentSelectsBot(t *testing.T) {
	t.Parallel()

	srv, dispatched := newTestServer(t, nil, "ALPHA", "BETA")

	req := httptest.NewRequest(http.MethodPost, "/hook/BETA", strings.NewReader(updateJSON(t, 1, "hi")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(*dispatched) != 1 {
		t.Fatalf("dispatched = %d, want 1", len(*dispatched))
	}
	if got := (*dispatched)[0].botID; got != "BETA" {
		t.Errorf("dispatched to bot %q, want BETA", got)
	}
	if got := (*dispatched)[0].update.ID; got != 77 {
		t.Errorf("dispatched update id = %d, want 77", got)
	}
}

func TestRootPathUsesPreferredBot(t *testing.T) {
	t.Parallel()

	srv, dispatched := newTestServer(t, []string{"BETA"}, "ALPHA", "BETA")

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(updateJSON(t, 1, "hi")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(*dispatched) != 1 || (*dispatched)[0].botID != "BETA" {
		t.Errorf("dispatched = %+v, want one dispatch to BETA", *dispatched)
	}
}

func TestRootPathFallsBackToFirstRegistered(t *testing.T) {
	t.Parallel()

	srv, dispatched := newTestServer(t, []string{"GAMMA"}, "ALPHA", "BETA")

	req := httptest.NewRequest(http.MethodPost, "/hook/", strings.NewReader(updateJSON(t, 1, "hi")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if len(*dispatched) != 1 || (*dispatched)[0].botID != "ALPHA" {
		t.Errorf("dispatched = %+v, want one dispatch to ALPHA", *dispatched)
	}
}

func TestUnknownBotReturnsNotFoundWithAvailableIDs(t *testing.T) {
	t.Parallel()

	srv, dispatched := newTestServer(t, nil, "ALPHA", "BETA")

	req := httptest.NewRequest(http.MethodPost, "/hook/GAMMA", strings.NewReader(updateJSON(t, 1, "hi")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(*dispatched) != 0 {
		t.Errorf("dispatched = %+v, want none", *dispatched)
	}

	var payload struct {
		Error         string   `json:"error"`
		TargetBotID   string   `json:"targetBotId"`
		AvailableBots []string `json:"availableBots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode 404 payload: %v", err)
	}
	if payload.TargetBotID != "GAMMA" {
		t.Errorf("targetBotId = %q, want GAMMA", payload.TargetBotID)
	}
	if len(payload.AvailableBots) != 2 {
		t.Errorf("availableBots = %v, want both ids", payload.AvailableBots)
	}
}

func TestInvalidUpdatePayload(t *testing.T) {
	t.Parallel()

	srv, dispatched := newTestServer(t, nil, "ALPHA")

	req := httptest.NewRequest(http.MethodPost, "/hook/ALPHA", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(*dispatched) != 0 {
		t.Errorf("dispatched = %+v, want none", *dispatched)
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil, "ALPHA", "BETA")

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload struct {
		Status      string   `json:"status"`
		Bots        []string `json:"bots"`
		Count       int      `json:"count"`
		Database    string   `json:"database"`
		WebhookURLs []struct {
			BotID string `json:"botId"`
			URL   string `json:"url"`
		} `json:"webhookUrls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode status payload: %v", err)
	}
	if payload.Status != "active" || payload.Count != 2 {
		t.Errorf("status payload = %+v", payload)
	}
	if payload.Database != "ok" {
		t.Errorf("database status = %q, want ok", payload.Database)
	}
	if len(payload.WebhookURLs) != 2 || payload.WebhookURLs[0].URL != "/hook/ALPHA" {
		t.Errorf("webhookUrls = %+v", payload.WebhookURLs)
	}
}

func TestStatusReportsUnreachableDatabase(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	if err := reg.Register("ALPHA", stubIdentity{id: "ALPHA"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &stubStore{pingErr: errors.New("connection refused")}
	srv := webhook.NewServer(":0", "/hook", nil, reg, func(context.Context, registry.Identity, *models.Update) {}, store, log)

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var payload struct {
		Database string `json:"database"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode status payload: %v", err)
	}
	if payload.Database != "unreachable" {
		t.Errorf("database status = %q, want unreachable", payload.Database)
	}
}
