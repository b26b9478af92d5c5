package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/leadbot/internal/api"
	"github.com/MikeSquared-Agency/leadbot/internal/config"
	"github.com/MikeSquared-Agency/leadbot/internal/hermes"
	"github.com/MikeSquared-Agency/leadbot/internal/sessions"
	"github.com/MikeSquared-Agency/leadbot/internal/settings"
	"github.com/MikeSquared-Agency/leadbot/internal/slack"
	"github.com/MikeSquared-Agency/leadbot/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.LogLevel)
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	logger := slog.Default()
	logger.Info("leadbot starting", "port", cfg.Port, "version", version)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}

	// Database (optional: without it settings live only in memory)
	var persister settings.Persister
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		persister = db
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set, capture settings will not persist")
	}

	mgr, err := settings.NewManager(c.operator.Capture, persister, logger)
	if err != nil {
		return err
	}
	if err := mgr.Reload(ctx); err != nil {
		return err
	}

	var notifiers []sessions.Notifier

	// NATS/Hermes (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		logger.Info("NATS connected", "url", cfg.NatsURL)

		mgr.AnnounceTo(hermesClient, uuid.New().String())
		if err := hermesClient.Subscribe(hermes.SubjectSettingsUpdated, mgr.HandleSettingsUpdated); err != nil {
			return err
		}
		notifiers = append(notifiers, sessions.EventNotifier{Publisher: hermesClient})
	}

	// Slack poster (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		poster := slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		notifiers = append(notifiers, sessions.SlackNotifier{Poster: poster})
		logger.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		logger.Warn("slack not configured, captured leads will not be posted")
	}

	reg := sessions.NewRegistry(c.extractor, c.responder, mgr,
		sessions.WithLogger(logger),
		sessions.WithInstructions(c.operator.Prompts.Instructions),
		sessions.WithParallelTurns(cfg.ParallelTurns),
		sessions.WithNotifiers(notifiers...),
	)
	mgr.OnChange(reg.ApplySettings)
	go sweepSessions(ctx, reg, cfg.SessionIdle, logger)

	if cfg.SettingsFile != "" {
		go func() {
			err := config.WatchOperator(ctx, cfg.SettingsFile, logger, func(op config.Operator) {
				if _, err := mgr.Update(ctx, op.Capture, "settings-file"); err != nil {
					logger.Warn("settings file rejected", "error", err)
				}
			})
			if err != nil {
				logger.Warn("settings file watch stopped", "error", err)
			}
		}()
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, reg, mgr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("leadbot ready", "port", cfg.Port, "responder", cfg.Responder)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("HTTP server error", "error", err)
	}

	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "error", err)
	}
	reg.Wait()
	logger.Info("leadbot stopped")
	return nil
}

func sweepSessions(ctx context.Context, reg *sessions.Registry, maxIdle time.Duration, logger *slog.Logger) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(sweepInterval(maxIdle))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.Sweep(maxIdle); n > 0 {
				logger.Info("swept idle sessions", "removed", n)
			}
		}
	}
}

// sweepInterval checks twice per idle window, but no more than once a second.
func sweepInterval(maxIdle time.Duration) time.Duration {
	return max(maxIdle/2, time.Second)
}
