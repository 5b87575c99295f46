package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"jobengine/internal/domain"
)

// ExecutionRepository keeps execution records in memory, newest first per
// job. Records are copied on write and read so callers cannot mutate the
// stored history.
type ExecutionRepository struct {
	mu      sync.Mutex
	records []*domain.ExecutionRecord
}

// NewExecutionRepository creates an empty in-memory history.
func NewExecutionRepository() *ExecutionRepository {
	return &ExecutionRepository{}
}

var _ domain.ExecutionRepository = (*ExecutionRepository)(nil)

// Save appends a single execution record.
func (r *ExecutionRepository) Save(_ context.Context, record *domain.ExecutionRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("memory: invalid execution record: %w", err)
	}
	cp := *record
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, &cp)
	return nil
}

// ListByJobName retrieves records for a job, newest first. Page starts at 1.
func (r *ExecutionRepository) ListByJobName(_ context.Context, jobName string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	r.mu.Lock()
	matched := make([]*domain.ExecutionRecord, 0)
	for _, rec := range r.records {
		if rec.JobName == jobName {
			cp := *rec
			matched = append(matched, &cp)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartTime.After(matched[j].StartTime)
	})

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*domain.ExecutionRecord{}, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// Get retrieves a single record by job name and execution ID.
func (r *ExecutionRepository) Get(_ context.Context, jobName, executionID string) (*domain.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.JobName == jobName && rec.ID == executionID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", domain.ErrExecutionNotFound, jobName, executionID)
}

// DeleteOlderThan removes up to batch records that finished before cutoff.
func (r *ExecutionRepository) DeleteOlderThan(_ context.Context, cutoff time.Time, batch int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var deleted int64
	for _, rec := range r.records {
		if deleted < int64(batch) && rec.EndTime.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

// Len reports the total number of stored records. Test helper.
func (r *ExecutionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
