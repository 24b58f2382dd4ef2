package repository

import (
	"context"

	"quote-orchestrator/internal/domain/model"
)

// JobRepository is the durable record of job state. Lookups are always
// tenant-scoped: a job id belonging to another tenant is indistinguishable
// from an unknown id (domain.ErrNotFound in both cases).
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error

	// Get returns a snapshot of the job; mutating it has no effect on the
	// stored record.
	Get(ctx context.Context, tenantID, jobID string) (*model.Job, error)

	// Update applies mutate atomically under a read-modify-write cycle.
	// Concurrent mutators for the same job are serialized or rejected with
	// domain.ErrVersionConflict; last-writer-wins is not acceptable.
	Update(ctx context.Context, tenantID, jobID string, mutate func(*model.Job) error) (*model.Job, error)
}
