// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/notebook"
	"github.com/starford/ansuz/internal/pathguard"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger on stderr: stdout belongs to the stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("transport", cfg.Transport.Mode),
		slog.Any("allowed_roots", cfg.Roots.Dirs),
		slog.Int("max_cell_source_bytes", cfg.Limits.MaxCellSourceBytes),
		slog.Int("max_cell_output_bytes", cfg.Limits.MaxCellOutputBytes),
		slog.String("log_level", cfg.App.LogLevel.String()))

	guard, err := pathguard.New(cfg.Roots.Dirs)
	if err != nil {
		return fmt.Errorf("init path guard: %w", err)
	}

	store := notebook.NewStore(
		cfg.Limits.MaxNotebookBytes,
		cfg.Limits.MaxCellSourceBytes,
		cfg.Limits.MaxCellOutputBytes,
	)

	srv := mcpserver.New(guard, store)

	if cfg.Transport.Mode == TransportStdio {
		logger.Info("Serving MCP over stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("stdio server error: %w", err)
		}
		return nil
	}

	// HTTP transport: streamable MCP endpoint behind chi.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(cfg.Auth.AuthEnabled(), cfg.Auth.Token))
		r.Handle(cfg.Transport.Path, srv.StreamableHTTP())
	})

	httpServer := &http.Server{
		Addr:    cfg.Transport.Address(),
		Handler: r,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.Transport.Address()),
		slog.String("mcp_path", cfg.Transport.Path))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// bearerAuth returns middleware that validates a Bearer token on the MCP
// endpoint. When enabled is false all requests pass through.
func bearerAuth(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
