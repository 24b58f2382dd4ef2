// Package memory holds in-process repository implementations used in dev
// mode and tests.
package memory

import (
	"context"
	"sync"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo is an in-memory job store. A single mutex serializes mutators;
// the version check on top of it defends against a mutator racing a stale
// snapshot, mirroring the postgres implementation's guarantees.
type JobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*model.Job)}
}

func (r *JobRepo) Create(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *JobRepo) Get(_ context.Context, tenantID, jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	// Cross-tenant lookups are NotFound, never a distinguishable forbidden.
	if !ok || job.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

func (r *JobRepo) Update(_ context.Context, tenantID, jobID string, mutate func(*model.Job) error) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[jobID]
	if !ok || stored.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}

	draft := stored.Clone()
	if err := mutate(draft); err != nil {
		return nil, err
	}
	if draft.Version != stored.Version {
		return nil, domain.ErrVersionConflict
	}
	draft.Version++
	r.jobs[jobID] = draft
	return draft.Clone(), nil
}
