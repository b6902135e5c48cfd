// Package webhook exposes the inbound HTTP surface: POST requests carry
// provider update envelopes dispatched to the router, everything else gets a
// status document describing the configured bots.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/registry"
	"github.com/edgard/relaybot/internal/router"
)

const shutdownTimeout = 10 * time.Second

// Server routes inbound webhook calls to the bot identity encoded in the
// request path, falling back to the registry's default resolution order.
type Server struct {
	registry  *registry.Registry
	handler   router.HandlerFunc
	store     database.Store
	preferred []string
	basePath  string
	logger    *slog.Logger
	srv       *http.Server
}

// NewServer creates the webhook server. handler is the (possibly
// middleware-wrapped) router entry point.
func NewServer(listenAddr, basePath string, preferred []string, reg *registry.Registry, handler router.HandlerFunc, store database.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		registry:  reg,
		handler:   handler,
		store:     store,
		preferred: preferred,
		basePath:  strings.TrimRight(basePath, "/"),
		logger:    logger.With("component", "webhook_server"),
	}
	s.srv = &http.Server{
		Addr:              listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving webhook and status requests.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

// Run starts the HTTP listener and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Webhook server listening", "addr", s.srv.Addr, "base_path", s.basePath)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Error shutting down webhook server", "error", err)
			return err
		}
		s.logger.Info("Webhook server stopped gracefully.")
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.serveStatus(w, r)
		return
	}

	botID := s.botIDFromPath(r.URL.Path)

	var (
		ident registry.Identity
		err   error
	)
	if botID != "" {
		ident, err = s.registry.Resolve(botID)
	} else {
		ident, err = s.registry.ResolveDefault(s.preferred)
	}
	if err != nil {
		s.logger.Warn("No bot for webhook request",
			"path", r.URL.Path, "target_bot_id", botID, "available", s.registry.IDs())
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":         "bot not found",
			"targetBotId":   botID,
			"requestPath":   r.URL.Path,
			"availableBots": s.registry.IDs(),
		})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("Failed to read webhook body", "bot_id", ident.ID(), "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	var update models.Update
	if err := json.Unmarshal(body, &update); err != nil {
		s.logger.Warn("Failed to decode update envelope", "bot_id", ident.ID(), "error", err)
		http.Error(w, "invalid update payload", http.StatusBadRequest)
		return
	}

	s.handler(r.Context(), ident, &update)
	w.WriteHeader(http.StatusOK)
}

// serveStatus answers non-POST requests with the configured bots, their
// webhook paths, and database reachability.
func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	ids := s.registry.IDs()

	urls := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		urls = append(urls, map[string]string{
			"botId": id,
			"url":   s.basePath + "/" + id,
		})
	}

	dbStatus := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("Database ping failed on status request", "error", err)
		dbStatus = "unreachable"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "active",
		"bots":        ids,
		"count":       len(ids),
		"webhookUrls": urls,
		"database":    dbStatus,
	})
}

// botIDFromPath extracts the last non-empty path segment beyond the base
// path. An empty result means the request named no bot.
func (s *Server) botIDFromPath(path string) string {
	rest := path
	if s.basePath != "" {
		if !strings.HasPrefix(path, s.basePath) {
			return ""
		}
		rest = strings.TrimPrefix(path, s.basePath)
	}

	segments := strings.Split(rest, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
