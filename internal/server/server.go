// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/board"
	"github.com/matthewbaird/dashboard/internal/handler"
	"github.com/matthewbaird/dashboard/internal/render"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Repo    board.Repository
	Catalog schema.Catalog
	Render  *render.Service
	Logger  *zap.Logger
}

// Router builds the HTTP router with all routes registered.
func Router(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery(logger))
	r.Use(handler.Logging(logger.Named("http")))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// --- DashboardService ---
	handler.NewDashboardHandler(cfg.Repo, cfg.Catalog, cfg.Render, logger).Routes(r)

	// WebSocket fetches
	r.Get("/v1/ws", wire.NewHandler(cfg.Render, logger).ServeHTTP)

	return r
}

// Run starts the HTTP server and shuts it down when ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           Router(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
