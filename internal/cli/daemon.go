package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/firefly-kresus-sync/internal/api"
	"github.com/example/firefly-kresus-sync/internal/application/sync"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/config"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/logging"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
	"github.com/example/firefly-kresus-sync/internal/notify"
)

// RunDaemon wires and runs the full daemon: the three sync loops, the
// Discord channel when enabled, the status API when enabled, and the run
// history when a database path is configured. It blocks until SIGINT or
// SIGTERM.
func RunDaemon(cfg *config.Config, flags *DaemonFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLogger(loggingCfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	since, err := cfg.Sync.StartTime()
	if err != nil {
		return err
	}
	logger.Info("Configuration loaded",
		slog.String("kresus_url", cfg.Kresus.APIURL),
		slog.String("firefly_url", cfg.Firefly.APIURL),
		slog.Bool("discord", cfg.Discord.Enabled),
		slog.Bool("api", cfg.API.Enabled),
	)

	// Run history is optional. Without it cycles are not recorded and
	// committed fingerprints do not survive a restart.
	var store storage.Repository
	if cfg.Storage.DatabasePath != "" {
		s, err := storage.NewStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		store = s
		logger.Info("Run history enabled", slog.String("path", cfg.Storage.DatabasePath))
	} else {
		logger.Warn("Run history disabled, committed records will be re-announced after a restart")
	}

	aggregator, err := NewKresusClient(cfg, logger)
	if err != nil {
		return err
	}
	ledgerClient, err := NewFireflyClient(cfg, logger)
	if err != nil {
		return err
	}

	var channel notify.Channel
	if cfg.Discord.Enabled {
		notifier, err := NewDiscordNotifier(cfg, logger)
		if err != nil {
			return err
		}
		if err := notifier.Open(); err != nil {
			return err
		}
		defer func() { _ = notifier.Close() }()
		channel = notifier
		logger.Info("Discord approvals enabled", slog.String("channel_id", cfg.Discord.ChannelID))
	} else {
		logger.Warn("Discord disabled, discrepancies are only visible on the status API")
	}

	orchestrator := sync.NewOrchestrator(aggregator, ledgerClient, channel, store, sync.Options{
		Since: since,
		Intervals: sync.Intervals{
			Fetch:    cfg.Sync.FetchEvery(),
			Present:  cfg.Sync.PresentEvery(),
			Approval: cfg.Sync.ApprovalEvery(),
		},
	}, logger)

	var server *api.Server
	if cfg.API.Enabled {
		apiCfg := api.DefaultConfig()
		if cfg.API.Port != 0 {
			apiCfg.Port = cfg.API.Port
		}
		if len(cfg.API.AllowedOrigins) > 0 {
			apiCfg.AllowedOrigins = cfg.API.AllowedOrigins
		}
		server = api.NewServer(apiCfg, store, orchestrator, logging.ForSystem(logger, "api"))
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("Status API failed", slog.Any("error", err))
			}
		}()
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Received shutdown signal")
		cancel()
	}()

	// Blocks until the context is cancelled.
	orchestrator.Run(ctx)

	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Status API shutdown error", slog.Any("error", err))
		}
	}

	logger.Info("Daemon stopped")
	return nil
}
