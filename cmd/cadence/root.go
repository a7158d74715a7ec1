package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/cadence/internal/api"
	"github.com/hyperengineering/cadence/internal/backup"
	"github.com/hyperengineering/cadence/internal/config"
	"github.com/hyperengineering/cadence/internal/docstore"
	"github.com/hyperengineering/cadence/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "cadence",
	Short:        "Cadence - goal lifecycle and progress service",
	Long:         "Runs the cadence HTTP service. Subcommands operate on the configured store directly.",
	SilenceUsage: true,
	RunE:         run,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendOverride, "backend", "",
		"Store backend (overrides config and CADENCE_STORE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"SQLite database path (overrides config and CADENCE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&storeDirOverride, "dir", "",
		"Document directory for the file backend (overrides config and CADENCE_STORE_DIR)")

	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyStoreOverrides(cfg)
	slog.Info("configuration loaded")

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "backend", cfg.Store.Backend)

	tracker, err := openTracker(ctx, cfg, store)
	if err != nil {
		store.Close()
		return err
	}
	slog.Info("tracker loaded", "goal_count", tracker.GoalCount())

	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		store.Close()
		return err
	}
	if cfg.Backup.Enabled() {
		slog.Info("backup storage configured", "bucket", cfg.Backup.Bucket)
	}

	if config.DevMode() && cfg.Auth.APIKey == "" {
		slog.Warn("dev mode without API key: requests are not authenticated")
	}
	handler := api.NewHandler(tracker, uploader, cfg.Auth.APIKey, Version, cfg.Store.Backend)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	if interval := time.Duration(cfg.Worker.RolloverInterval); interval > 0 {
		startWorker(ctx, &wg, "rollover", worker.NewRolloverWorker(tracker, interval).Run)
	}
	if interval := time.Duration(cfg.Worker.BackupInterval); interval > 0 && cfg.Backup.Enabled() {
		startWorker(ctx, &wg, "backup", worker.NewBackupWorker(tracker, uploader, interval).Run)
	}
	if fs, ok := store.(*docstore.FileStore); ok && cfg.Store.Watch {
		startWorker(ctx, &wg, "document-watch", func(ctx context.Context) {
			err := fs.Watch(ctx, func() {
				if err := tracker.Reload(ctx); err != nil && ctx.Err() == nil {
					slog.Error("reload after external change failed",
						"component", "main",
						"error", err,
					)
				}
			})
			if err != nil {
				slog.Error("document watcher failed", "component", "main", "error", err)
			}
		})
	}

	go func() {
		slog.Info("server starting", "address", addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger. Format "text" selects the text
// handler; anything else is JSON.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
