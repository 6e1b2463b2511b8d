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

	"github.com/bgnews/newsrelay/app/api"
	"github.com/bgnews/newsrelay/app/cfg"
	"github.com/bgnews/newsrelay/app/database"
	"github.com/bgnews/newsrelay/app/fingerprint"
	"github.com/bgnews/newsrelay/app/ledger"
	"github.com/bgnews/newsrelay/app/lock"
	"github.com/bgnews/newsrelay/app/logging"
	"github.com/bgnews/newsrelay/app/publish"
	"github.com/bgnews/newsrelay/app/retry"
	"github.com/bgnews/newsrelay/app/source"
	"github.com/bgnews/newsrelay/app/tasks"
	"github.com/bgnews/newsrelay/app/tracker"
)

const (
	exitOK     = 0
	exitError  = 1
	exitLocked = 75 // EX_TEMPFAIL: another run holds the lock
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	if appCfg == nil {
		return exitOK
	}

	logCloser, err := logging.Setup(logging.Options{Debug: appCfg.Debug, LogFile: appCfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	defer logCloser.Close()

	if err := appCfg.ApplyTimezone(); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", appCfg.Timezone, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting newsrelay", "version", appCfg.Version, "serve", appCfg.Serve)

	if appCfg.Serve {
		return serve(ctx)
	}
	return publishRun(ctx)
}

func publishRun(ctx context.Context) int {
	appCfg := cfg.Get()

	pipelineLock := lock.New(appCfg.LockFile)
	acquired, err := pipelineLock.Acquire()
	if err != nil {
		slog.Error("Failed to acquire lock", "path", appCfg.LockFile, "error", err)
		return exitError
	}
	if !acquired {
		slog.Warn("Another instance is running, exiting", "lock", appCfg.LockFile, "holder", pipelineLock.Holder())
		return exitLocked
	}
	defer func() {
		if err := pipelineLock.Release(); err != nil {
			slog.Error("Failed to release lock", "path", appCfg.LockFile, "error", err)
		}
	}()

	configCache := source.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		return exitError
	}
	slog.Info("Sources loaded", "count", configCache.GetConfigCount(), "enabled", len(configCache.GetEnabledConfigs()))

	extractors := fingerprint.NewExtractors()
	if err := configCache.RegisterIDPatterns(extractors); err != nil {
		slog.Error("Failed to register id patterns", "error", err)
		return exitError
	}

	store := ledger.Open(appCfg.LedgerFile)
	tr := tracker.New(store, fingerprint.NewGenerator(extractors), appCfg.Retention)

	var history database.HistoryRepository
	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Warn("History database unavailable, continuing without it", "path", appCfg.DBPath, "error", err)
	} else {
		defer db.Close()
		history = database.NewHistoryRepository(db)
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	collector := source.NewCollector(configCache, source.NewFetcher(httpClient, appCfg.UserAgent, retry.DefaultPolicy))

	task := tasks.NewPublishRunTask(collector, tr, newPublisher(), history, tasks.Delay{Min: appCfg.MinDelay, Max: appCfg.MaxDelay})
	runErr := task.Execute(ctx)

	// persists pruning even when nothing was published
	if err := store.Flush(); err != nil {
		slog.Error("Failed to save ledger", "path", store.Path(), "error", err)
	}

	if runErr != nil {
		if tasks.IsInterrupted(runErr) {
			slog.Warn("Run interrupted", "error", runErr)
		} else {
			slog.Error("Run failed", "error", runErr)
		}
		return exitError
	}

	return exitOK
}

func newPublisher() publish.Publisher {
	appCfg := cfg.Get()
	caption := publish.DefaultCaptionOptions()

	switch appCfg.Publisher {
	case cfg.PublisherMessenger:
		recipients := publish.ParseRecipients(appCfg.Recipients)
		slog.Info("Publishing to Messenger", "recipients", len(recipients))
		return publish.NewMessengerPublisher(appCfg.GraphAPIURL, appCfg.GraphToken, recipients, caption, retry.DefaultPolicy)
	default:
		slog.Info("Publishing in dry-run mode")
		return publish.NewLogPublisher(caption)
	}
}

func serve(ctx context.Context) int {
	appCfg := cfg.Get()

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open history database", "path", appCfg.DBPath, "error", err)
		return exitError
	}
	defer db.Close()

	configCache := source.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Warn("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
	}

	handler := api.NewHandler(appCfg.LedgerFile, appCfg.Retention, database.NewHistoryRepository(db), configCache)

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

	exitCode := exitOK
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = exitError
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return exitCode
}
