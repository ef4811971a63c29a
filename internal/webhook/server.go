// Package webhook accepts update payloads pushed by Telegram over HTTP
// and hands them to the update handler. The transport is acknowledged as
// soon as an update is handed off; handler failures are logged rather
// than surfaced, so the platform never enters a redelivery storm.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"

	"join-gate-bot/internal/config"
)

// Dispatcher consumes one decoded update.
type Dispatcher interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Server is the webhook ingestion endpoint.
type Server struct {
	cfg        config.WebhookConfig
	reqTimeout time.Duration
	dispatcher Dispatcher
	logger     *slog.Logger

	// rootCtx outlives individual HTTP requests: the 200 is returned
	// before the handler finishes, so handlers must not inherit the
	// request's context.
	rootCtx context.Context
	active  sync.WaitGroup
	// bounds concurrent update handlers
	inflight chan struct{}
}

// NewServer creates the webhook server.
func NewServer(cfg config.WebhookConfig, reqTimeout time.Duration, dispatcher Dispatcher, logger *slog.Logger) *Server {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	return &Server{
		cfg:        cfg,
		reqTimeout: reqTimeout,
		dispatcher: dispatcher,
		logger:     logger,
		inflight:   make(chan struct{}, maxInFlight),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/webhook/{secret}", s.handleUpdate).Methods(http.MethodPost)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("🤖 Telegram bot is running!"))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	secret := mux.Vars(r)["secret"]
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.Secret)) != 1 {
		// Wrong secret looks identical to a wrong path.
		http.NotFound(w, r)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Error("malformed update payload", "error", err)
		http.Error(w, "malformed update", http.StatusInternalServerError)
		return
	}

	s.inflight <- struct{}{}
	s.active.Add(1)
	go func() {
		defer s.active.Done()
		defer func() { <-s.inflight }()

		ctx := s.rootCtx
		if ctx == nil {
			ctx = context.Background()
		}
		handleCtx, cancel := context.WithTimeout(ctx, s.reqTimeout)
		defer cancel()

		s.dispatcher.HandleUpdate(handleCtx, update)
	}()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Run serves until the context is cancelled, then shuts down and waits
// for in-flight handlers up to the configured drain timeout.
func (s *Server) Run(ctx context.Context) error {
	s.rootCtx = ctx

	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("webhook server started", "addr", s.cfg.ListenAddr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("stopping webhook server, waiting for active handlers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("webhook server shutdown error", "error", err)
		}

		done := make(chan struct{})
		go func() {
			s.active.Wait()
			close(done)
		}()

		select {
		case <-done:
			s.logger.Info("all active handlers completed")
		case <-time.After(s.cfg.DrainTimeout):
			s.logger.Warn("some handlers may not have completed")
		}

		return ctx.Err()
	}
}
