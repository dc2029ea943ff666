package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"microloan-engine/internal/domain/loan"
)

// StatusRefreshJob reconciles the cached status column against the pure
// derivation rule. The cache exists only so portfolio queries can filter on
// status in SQL; it is never read as an authoritative fact.
type StatusRefreshJob struct {
	loanRepo loan.Repository
	logger   *slog.Logger
	now      func() time.Time
}

func NewStatusRefreshJob(loanRepo loan.Repository, logger *slog.Logger) *StatusRefreshJob {
	if loanRepo == nil || logger == nil {
		panic("StatusRefreshJob dependencies cannot be nil")
	}
	return &StatusRefreshJob{
		loanRepo: loanRepo,
		logger:   logger.With("job", "StatusRefresh"),
		now:      time.Now,
	}
}

func (j *StatusRefreshJob) Run(ctx context.Context) error {
	startTime := j.now()
	j.logger.InfoContext(ctx, "Starting loan status refresh job.")

	loans, err := j.loanRepo.ListAllLoans(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched loans.", slog.Int("count", len(loans)))

	if len(loans) == 0 {
		j.logger.InfoContext(ctx, "No loans found to process.")
		return nil
	}

	today := j.now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var refreshedCount, errorCount int

	for _, l := range loans {
		wg.Add(1)
		go func(current *loan.Loan) {
			defer wg.Done()

			logCtx := j.logger.With(slog.Int64("loanID", current.ID))

			derived := loan.DetermineStatus(current, today)
			if derived == current.Status {
				logCtx.DebugContext(ctx, "Cached status already correct.", slog.String("status", string(derived)))
				return
			}

			logCtx.InfoContext(ctx, "Refreshing cached loan status.",
				slog.String("old_status", string(current.Status)),
				slog.String("new_status", string(derived)))
			if updateErr := j.loanRepo.UpdateStatus(ctx, current.ID, derived); updateErr != nil {
				logCtx.ErrorContext(ctx, "Failed to refresh cached loan status", slog.Any("error", updateErr))
				mu.Lock()
				errorCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			refreshedCount++
			mu.Unlock()
		}(l)
	}

	wg.Wait()

	j.logger.InfoContext(ctx, "Loan status refresh job finished.",
		slog.Int("refreshed", refreshedCount),
		slog.Int("errors", errorCount),
		slog.Duration("duration", time.Since(startTime)))

	if errorCount > 0 {
		return fmt.Errorf("status refresh completed with %d errors", errorCount)
	}
	return nil
}
