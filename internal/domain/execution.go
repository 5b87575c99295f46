package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExecutionStatus is the terminal status of an execution attempt.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// ExecutionRecord captures the outcome of a single execution attempt.
// Records are immutable once written: the history is append-only and
// serves diagnostics, never scheduling decisions.
type ExecutionRecord struct {
	ID        string          `json:"id"`               // unique ID for this attempt
	JobName   string          `json:"job_name"`         // name of the executed job
	Status    ExecutionStatus `json:"status"`           // success or failed
	Output    string          `json:"output,omitempty"` // optional structured payload from the runner
	Error     string          `json:"error,omitempty"`  // error detail when Status is failed
	StartTime time.Time       `json:"start_time"`       // when the runner was invoked
	EndTime   time.Time       `json:"end_time"`         // when the runner returned
}

// Duration returns how long the attempt ran.
func (r *ExecutionRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Validate checks that the record is complete enough to persist.
func (r *ExecutionRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("execution record ID cannot be empty")
	}
	if r.JobName == "" {
		return fmt.Errorf("execution record job name cannot be empty")
	}
	if r.Status != ExecutionStatusSuccess && r.Status != ExecutionStatusFailed {
		return fmt.Errorf("execution record status %q is not terminal", r.Status)
	}
	if r.StartTime.IsZero() {
		return fmt.Errorf("execution record start time cannot be zero")
	}
	return nil
}

// ExecutionRepository persists and retrieves execution records.
type ExecutionRepository interface {
	// Save appends a single execution record.
	Save(ctx context.Context, record *ExecutionRecord) error
	// ListByJobName retrieves historical records for a job, newest first,
	// with pagination (page starts at 1).
	ListByJobName(ctx context.Context, jobName string, page, pageSize int) ([]*ExecutionRecord, error)
	// Get retrieves a single record by job name and execution ID.
	Get(ctx context.Context, jobName, executionID string) (*ExecutionRecord, error)
	// DeleteOlderThan removes up to batch records that finished before
	// cutoff and reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

// ErrExecutionNotFound is returned by Get when no record matches.
var ErrExecutionNotFound = errors.New("execution record not found")
