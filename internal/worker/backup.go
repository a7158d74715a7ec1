package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/cadence/internal/backup"
	"github.com/hyperengineering/cadence/internal/exchange"
)

// Exporter snapshots the tracker's state as an export document.
type Exporter interface {
	Export() exchange.Document
}

// BackupWorker uploads periodic export documents.
type BackupWorker struct {
	tracker  Exporter
	uploader backup.Uploader
	interval time.Duration
}

// NewBackupWorker creates a worker with the given tracker, uploader and interval.
func NewBackupWorker(tracker Exporter, uploader backup.Uploader, interval time.Duration) *BackupWorker {
	return &BackupWorker{
		tracker:  tracker,
		uploader: uploader,
		interval: interval,
	}
}

// Run starts the worker loop. Uploads immediately on start, then on each
// interval. Respects context cancellation for graceful shutdown.
func (w *BackupWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "backup",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runBackup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "backup",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runBackup(ctx)
		}
	}
}

func (w *BackupWorker) runBackup(ctx context.Context) {
	start := time.Now()
	doc := w.tracker.Export()

	key, err := backup.UploadDocument(ctx, w.uploader, doc)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("backup failed",
			"component", "worker",
			"action", "backup_failed",
			"error", err,
		)
		return
	}

	slog.Info("backup uploaded",
		"component", "worker",
		"action", "backup_complete",
		"key", key,
		"goals", len(doc.Goals),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
