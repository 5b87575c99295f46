// Package jobs holds the engine's built-in job definitions.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobengine/internal/domain"
)

// CleanupJobName is the registry name of the history-retention job.
const CleanupJobName = "history-cleanup"

// NewCleanup builds the execution-history retention job: it deletes
// records older than retention, in bounded batches, until none remain.
// Registered like any other job, it runs under the same advisory-lock
// machinery, so only one replica prunes at a time.
func NewCleanup(retention time.Duration, batchSize int, logger *slog.Logger) *domain.Job {
	log := logger.With("component", "history-cleanup")

	return &domain.Job{
		Name: CleanupJobName,
		// Hourly, offset to the 17th second to stay clear of on-the-minute
		// job bursts.
		Spec: "17 0 * * * *",
		Runner: domain.RunnerFunc(func(ctx context.Context, jc *domain.JobContext) error {
			cutoff := jc.FiredAt.Add(-retention)
			var total int64
			for {
				deleted, err := jc.Executions.DeleteOlderThan(ctx, cutoff, batchSize)
				if err != nil {
					return fmt.Errorf("delete execution history before %s: %w", cutoff, err)
				}
				total += deleted
				if deleted < int64(batchSize) {
					break
				}
			}
			if total > 0 {
				log.Info("pruned execution history", "deleted", total, "cutoff", cutoff)
			}
			jc.Output = fmt.Sprintf("deleted %d records", total)
			return nil
		}),
	}
}
