package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/datadesk/internal/api"
	"github.com/ashureev/datadesk/internal/conversation"
	"github.com/ashureev/datadesk/internal/session"
	"github.com/ashureev/datadesk/internal/store"
	"github.com/ashureev/datadesk/internal/stream"
	"github.com/ashureev/datadesk/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				a.cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("port", "", "listen port (overrides config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	logger.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	eng, kb, err := a.engine()
	if err != nil {
		return err
	}

	var repo store.Repository
	if cfg.StoreEnabled() {
		repo, err = store.Open(cfg.StoreDSN)
		if err != nil {
			return fmt.Errorf("initializing interaction store: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				logger.Error("Failed to close repository", "error", closeErr)
			}
		}()
		if err := repo.Ping(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
		logger.Info("Database connected")
	} else {
		logger.Info("Interaction store disabled")
	}

	responder := conversation.NewDelayedResponder(eng, cfg.Reply.Delay)
	sessions := session.NewRegistry(func(id string) (*conversation.Controller, error) {
		opts := []conversation.Option{conversation.WithLogger(logger),
			conversation.WithSessionID(id),
			conversation.WithFallbackEngine(eng),
		}
		if repo != nil {
			opts = append(opts, conversation.WithRecorder(repo, id))
		}
		return conversation.NewController(responder, opts...)
	}, session.WithLogger(logger))
	defer sessions.CloseAll()

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Close()

	h := api.NewHandler(api.Deps{
		Knowledge: kb,
		Sessions:  sessions,
		Repo:      repo,
		Limiter:   limiter,
		Logger:    logger,
	})
	router := api.NewRouter(h, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Stream:         stream.NewHandler(sessions, cfg.AllowedOrigins, limiter, logger),
		Static:         web.SPAHandler(),
	})

	// WebSocket streams are long-lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	session.StartSweeper(ctx, sessions, cfg.Session.TTL, cfg.Session.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped successfully")
	return nil
}
