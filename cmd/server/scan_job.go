package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"parkops/internal/repository"
	"parkops/internal/service"
)

type overdueScanner interface {
	ScanOverdue(ctx context.Context, scope repository.Scope) (service.ScanResult, error)
}

// scanJob runs one unscoped overdue scan bounded by timeout.
func scanJob(ctx context.Context, scanner overdueScanner, timeout time.Duration, logger *slog.Logger) cron.Job {
	return cron.FuncJob(func() {
		scanCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := scanner.ScanOverdue(scanCtx, repository.Scope{})
		if err != nil {
			logger.Error("scheduled overdue scan failed", "error", err)
			return
		}
		logger.Info("scheduled overdue scan done", "scanned", res.Scanned, "flagged", res.Flagged, "failed", len(res.FailedIDs))
	})
}

// skipOverlap drops a tick while the previous run of the same job is still going.
func skipOverlap(logger *slog.Logger) cron.JobWrapper {
	return cron.SkipIfStillRunning(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo)))
}
