package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
	"parkops/internal/metrics"
	"parkops/internal/repository"
)

type ScanResult struct {
	Scanned   int
	Flagged   int
	FailedIDs []string
}

type ScannerConfig struct {
	BatchSize   int
	Concurrency int
	Retry       RetryPolicy
}

// OverdueScanner flags pre-paid tickets whose grace window has run out.
// It goes through the engine like any other caller, so a ticket checked
// out concurrently is reported as a lost race, never overwritten.
type OverdueScanner struct {
	tickets repository.TicketStore
	engine  *LifecycleEngine
	logger  *slog.Logger
	cfg     ScannerConfig
}

func NewOverdueScanner(tickets repository.TicketStore, engine *LifecycleEngine, logger *slog.Logger, cfg ScannerConfig) *OverdueScanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Retry.MaxTries == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	return &OverdueScanner{tickets: tickets, engine: engine, logger: logger, cfg: cfg}
}

// ScanOverdue walks every overdue candidate in scope once. A failure on one
// ticket is recorded in FailedIDs and the scan goes on; only a failure to
// list candidates stops it, returning what was done so far.
func (s *OverdueScanner) ScanOverdue(ctx context.Context, scope repository.Scope) (ScanResult, error) {
	var result ScanResult
	now := s.engine.now()
	s.logger.DebugContext(ctx, "overdue scan started", "org_id", scope.OrgID, "stores", scope.StoreIDs)

	var cursor *repository.OverdueCursor
	for {
		if err := ctx.Err(); err != nil {
			metrics.ScanRuns.WithLabelValues(metrics.OutcomeError).Inc()
			return result, fmt.Errorf("overdue scan: %w", err)
		}

		page, err := RetryStorage(ctx, s.cfg.Retry, func() ([]db.Ticket, error) {
			return s.tickets.ListOverdueCandidates(ctx, scope, now, cursor, s.cfg.BatchSize)
		})
		if err != nil {
			metrics.ScanRuns.WithLabelValues(metrics.OutcomeError).Inc()
			s.logger.ErrorContext(ctx, "overdue scan: list candidates failed", "error", err, "scanned", result.Scanned)
			return result, fmt.Errorf("overdue scan: list candidates: %w", err)
		}
		if len(page) == 0 {
			break
		}

		s.processPage(ctx, page, &result)

		last := page[len(page)-1]
		cursor = &repository.OverdueCursor{Deadline: *last.PrePaidDeadline, ID: last.ID}
		if len(page) < s.cfg.BatchSize {
			break
		}
	}

	metrics.ScanRuns.WithLabelValues(metrics.OutcomeOK).Inc()
	if result.Scanned > 0 {
		s.logger.InfoContext(ctx, "overdue scan finished",
			"scanned", result.Scanned, "flagged", result.Flagged, "failed", len(result.FailedIDs))
	}
	return result, nil
}

func (s *OverdueScanner) processPage(ctx context.Context, page []db.Ticket, result *ScanResult) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, t := range page {
		g.Go(func() error {
			_, err := s.engine.Apply(ctx, t.ID, EventFlagOverdue, Payload{})

			mu.Lock()
			defer mu.Unlock()
			result.Scanned++
			if err == nil {
				result.Flagged++
				metrics.ScanTickets.WithLabelValues("flagged").Inc()
				return nil
			}
			result.FailedIDs = append(result.FailedIDs, t.ID)
			if apperr.IsConflict(err) {
				metrics.ScanTickets.WithLabelValues(metrics.OutcomeConflict).Inc()
				s.logger.InfoContext(ctx, "overdue scan: ticket moved", "ticket_id", t.ID, "reason", err)
			} else {
				metrics.ScanTickets.WithLabelValues(metrics.OutcomeError).Inc()
				s.logger.WarnContext(ctx, "overdue scan: flag failed", "ticket_id", t.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
