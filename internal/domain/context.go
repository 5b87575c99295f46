package domain

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// JobContext bundles the resources a runner gets for a single execution
// attempt. It is created fresh per attempt and discarded when the runner
// returns; no state leaks between executions through it.
type JobContext struct {
	// ExecutionID uniquely identifies this attempt.
	ExecutionID string
	// JobName is the name of the job being executed.
	JobName string
	// FiredAt is the tick instant that made the job due. All jobs fired
	// in the same tick see the same instant.
	FiredAt time.Time
	// DB is the shared storage pool. Nil when the engine runs without a
	// database backend (memory lock backend); runners that need storage
	// must be deployed with the postgres backend.
	DB *pgxpool.Pool
	// Executions reads and prunes the execution history. The scheduler
	// itself never consults history for scheduling decisions.
	Executions ExecutionRepository
	// Output may be set by the runner before returning; it is copied onto
	// the execution record as the attempt's structured payload.
	Output string
}
