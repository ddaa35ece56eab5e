package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/work-dash/app/api"
	"github.com/lysyi3m/work-dash/app/cfg"
	"github.com/lysyi3m/work-dash/app/config"
	"github.com/lysyi3m/work-dash/app/database"
	"github.com/lysyi3m/work-dash/app/feed"
	"github.com/lysyi3m/work-dash/app/probe"
	"github.com/lysyi3m/work-dash/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(appCfg); err != nil {
		slog.Error("Work Dash stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Work Dash", "version", appCfg.Version, "timezone", appCfg.Timezone)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)
	targetRepo := database.NewTargetRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed, err := config.NewLoader(appCfg.SeedFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load seed file: %w", err)
	}
	if err := config.Apply(ctx, seed, feedRepo, targetRepo); err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: appCfg.GetFetchTimeout()}
	poller := feed.NewPoller(feedRepo, itemRepo,
		feed.NewFetcher(httpClient, appCfg.UserAgent, appCfg.GetFetchTimeout()), feed.NewParser())
	prober := probe.NewProber(targetRepo, probe.NewResolver(nil),
		probe.NewICMPPinger(probe.DefaultTimeout, probe.DefaultPayloadSize, appCfg.PrivilegedICMP))

	scheduler := tasks.NewScheduler()
	if err := scheduler.Register(poller, appCfg.GetFeedInterval()); err != nil {
		return err
	}
	if err := scheduler.Register(prober, appCfg.GetProbeInterval()); err != nil {
		return err
	}
	slog.Info("Starting background scheduler",
		"feed_interval", appCfg.GetFeedInterval(),
		"probe_interval", appCfg.GetProbeInterval())
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := api.NewHandler(feedRepo, itemRepo, targetRepo)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serverErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// The scheduler and database are closed by the deferred calls
	return serverErr
}
