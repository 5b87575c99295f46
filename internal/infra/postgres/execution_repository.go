package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobengine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExecutionRepository persists execution records in the job_executions
// table. Rows are append-only; nothing here updates a written record.
//
// Expected schema (migration ownership is external):
//
//	CREATE TABLE job_executions (
//	    id          UUID PRIMARY KEY,
//	    job_name    TEXT        NOT NULL,
//	    status      TEXT        NOT NULL,
//	    output      TEXT        NOT NULL DEFAULT '',
//	    error       TEXT        NOT NULL DEFAULT '',
//	    started_at  TIMESTAMPTZ NOT NULL,
//	    finished_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX job_executions_job_name_started_at
//	    ON job_executions (job_name, started_at DESC);
type ExecutionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	tracer trace.Tracer
}

// NewExecutionRepository creates a repository over the given pool.
func NewExecutionRepository(pool *pgxpool.Pool, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{
		pool:   pool,
		logger: logger.With("component", "postgres-execution-repo"),
		tracer: otel.Tracer("jobengine-postgres-execution-repo"),
	}
}

var _ domain.ExecutionRepository = (*ExecutionRepository)(nil)

// Save appends a single execution record.
func (r *ExecutionRepository) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.SaveExecution")
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", record.ID),
		attribute.String("job.name", record.JobName),
	)

	if err := record.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid execution record")
		return fmt.Errorf("postgres: invalid execution record: %w", err)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO job_executions (id, job_name, status, output, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.JobName, string(record.Status),
		record.Output, record.Error, record.StartTime, record.EndTime,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert execution record")
		return fmt.Errorf("postgres: save execution %s: %w", record.ID, err)
	}
	return nil
}

// ListByJobName retrieves records for a job, newest first. Page starts at 1.
func (r *ExecutionRepository) ListByJobName(ctx context.Context, jobName string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.ListExecutions")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.name", jobName),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, job_name, status, output, error, started_at, finished_at
		FROM job_executions
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`,
		jobName, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list execution records")
		return nil, fmt.Errorf("postgres: list executions for %q: %w", jobName, err)
	}
	defer rows.Close()

	records := make([]*domain.ExecutionRecord, 0, pageSize)
	for rows.Next() {
		rec, scanErr := scanExecution(rows)
		if scanErr != nil {
			span.RecordError(scanErr)
			return nil, fmt.Errorf("postgres: scan execution row: %w", scanErr)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate execution rows: %w", err)
	}
	return records, nil
}

// Get retrieves a single record by job name and execution ID.
func (r *ExecutionRepository) Get(ctx context.Context, jobName, executionID string) (*domain.ExecutionRecord, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.GetExecution")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.name", jobName),
		attribute.String("execution.id", executionID),
	)

	row := r.pool.QueryRow(ctx, `
		SELECT id, job_name, status, output, error, started_at, finished_at
		FROM job_executions
		WHERE job_name = $1 AND id = $2`,
		jobName, executionID,
	)
	rec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrExecutionNotFound, jobName, executionID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get execution record")
		return nil, fmt.Errorf("postgres: get execution %s/%s: %w", jobName, executionID, err)
	}
	return rec, nil
}

// DeleteOlderThan removes up to batch records that finished before cutoff.
func (r *ExecutionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.DeleteExecutions")
	defer span.End()
	span.SetAttributes(attribute.Int("batch", batch))

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM job_executions
		WHERE id IN (
			SELECT id FROM job_executions
			WHERE finished_at < $1
			ORDER BY finished_at ASC
			LIMIT $2
		)`,
		cutoff, batch,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete execution records")
		return 0, fmt.Errorf("postgres: delete executions before %s: %w", cutoff, err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Debug("deleted execution records", "count", n, "cutoff", cutoff)
		return n, nil
	}
	return 0, nil
}

func scanExecution(row pgx.Row) (*domain.ExecutionRecord, error) {
	var rec domain.ExecutionRecord
	var status string
	if err := row.Scan(&rec.ID, &rec.JobName, &status, &rec.Output, &rec.Error, &rec.StartTime, &rec.EndTime); err != nil {
		return nil, err
	}
	rec.Status = domain.ExecutionStatus(status)
	return &rec, nil
}
