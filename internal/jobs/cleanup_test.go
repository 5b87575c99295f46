package jobs_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"jobengine/internal/domain"
	"jobengine/internal/infra/memory"
	"jobengine/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRecord(t *testing.T, repo *memory.ExecutionRepository, n int, end time.Time) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), &domain.ExecutionRecord{
		ID:        fmt.Sprintf("rec-%03d", n),
		JobName:   "digest",
		Status:    domain.ExecutionStatusSuccess,
		StartTime: end.Add(-time.Second),
		EndTime:   end,
	}))
}

func TestCleanup_PrunesOnlyExpiredHistory(t *testing.T) {
	repo := memory.NewExecutionRepository()
	now := time.Date(2026, 3, 1, 10, 0, 17, 0, time.UTC)

	// Five expired records and two fresh ones.
	for i := 0; i < 5; i++ {
		seedRecord(t, repo, i, now.Add(-48*time.Hour).Add(time.Duration(i)*time.Minute))
	}
	seedRecord(t, repo, 100, now.Add(-time.Hour))
	seedRecord(t, repo, 101, now.Add(-time.Minute))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Batch size 2 forces multiple delete rounds.
	job := jobs.NewCleanup(24*time.Hour, 2, logger)
	assert.Equal(t, jobs.CleanupJobName, job.Name)

	jc := &domain.JobContext{
		ExecutionID: "cleanup-test",
		JobName:     job.Name,
		FiredAt:     now,
		Executions:  repo,
	}
	require.NoError(t, job.Runner.Run(context.Background(), jc))

	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, "deleted 5 records", jc.Output)

	remaining, err := repo.ListByJobName(context.Background(), "digest", 1, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "rec-101", remaining[0].ID)
	assert.Equal(t, "rec-100", remaining[1].ID)
}

func TestCleanup_NoopOnFreshHistory(t *testing.T) {
	repo := memory.NewExecutionRepository()
	now := time.Date(2026, 3, 1, 10, 0, 17, 0, time.UTC)
	seedRecord(t, repo, 0, now.Add(-time.Hour))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := jobs.NewCleanup(24*time.Hour, 100, logger)

	jc := &domain.JobContext{FiredAt: now, Executions: repo}
	require.NoError(t, job.Runner.Run(context.Background(), jc))
	assert.Equal(t, 1, repo.Len())
}

func TestCleanup_ScheduleIsValid(t *testing.T) {
	registry := domain.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, registry.Register(jobs.NewCleanup(24*time.Hour, 100, logger)))
}
