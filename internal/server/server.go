// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/addrcascade/internal/anncsu"
	"github.com/matthewbaird/addrcascade/internal/bindcfg"
	"github.com/matthewbaird/addrcascade/internal/lookup"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
	"github.com/matthewbaird/addrcascade/internal/session"
	"github.com/matthewbaird/addrcascade/internal/wire"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Addr     string
	Sessions *session.Manager
	Client   *anncsu.Client
	// Mirror, when set, is served under /v1.
	Mirror *lookup.Store
	Log    *logger.Logger
}

// NewRouter registers every route.
func NewRouter(cfg Config) chi.Router {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recovery(log))
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": cfg.Sessions.Len(),
			"mirror":   cfg.Mirror != nil,
		})
	})

	if cfg.Mirror != nil {
		r.Mount("/v1", lookup.NewHandler(cfg.Mirror, log).Routes())
	}

	ws := wire.NewHandler(cfg.Sessions, cfg.Client, log)
	r.Route("/api/cascade", func(r chi.Router) {
		r.Get("/ws", ws.ServeHTTP)

		// Binding configuration schema, for form authors and tooling.
		r.Get("/schema", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte(bindcfg.Schema()))
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr, "mirror", cfg.Mirror != nil, "upstream", cfg.Client.BaseURL())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped")
	return nil
}
