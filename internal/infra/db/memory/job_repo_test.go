//go:build !integration

package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/infra/db/memory"
)

func seedJob(t *testing.T, repo *memory.JobRepo) *model.Job {
	t.Helper()
	job := model.NewJob("acme", "lead-1", model.IntakePayload{Name: "A", Email: "a@b.nl", AreaM2: 12})
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func TestJobRepo_CrossTenantLookupIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := seedJob(t, repo)

	if _, err := repo.Get(ctx, "acme", job.ID); err != nil {
		t.Fatalf("same-tenant Get: %v", err)
	}
	if _, err := repo.Get(ctx, "globex", job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-tenant Get err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Update(ctx, "globex", job.ID, func(*model.Job) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-tenant Update err = %v, want ErrNotFound", err)
	}
}

func TestJobRepo_GetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := seedJob(t, repo)

	snap, err := repo.Get(ctx, "acme", job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap.State = model.JobStateFailed

	again, err := repo.Get(ctx, "acme", job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.State != model.JobStatePending {
		t.Fatalf("snapshot mutation leaked into store: state = %s", again.State)
	}
}

func TestJobRepo_UpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := seedJob(t, repo)

	updated, err := repo.Update(ctx, "acme", job.ID, func(j *model.Job) error {
		return j.Advance(model.JobStatePredicting)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != job.Version+1 {
		t.Fatalf("version = %d, want %d", updated.Version, job.Version+1)
	}
	if updated.State != model.JobStatePredicting {
		t.Fatalf("state = %s", updated.State)
	}
}

func TestJobRepo_MutatorErrorLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := seedJob(t, repo)

	boom := errors.New("boom")
	_, err := repo.Update(ctx, "acme", job.ID, func(j *model.Job) error {
		j.State = model.JobStateFailed
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update err = %v, want boom", err)
	}
	stored, _ := repo.Get(ctx, "acme", job.ID)
	if stored.State != model.JobStatePending || stored.Version != job.Version {
		t.Fatalf("failed mutator modified record: %+v", stored)
	}
}

func TestJobRepo_ConcurrentUpdatesSerialize(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := seedJob(t, repo)

	// 50 concurrent mutators appending one stage entry each. Serialization
	// means all 50 land; last-writer-wins would drop some.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "acme", job.ID, func(j *model.Job) error {
				j.AppendStage(model.StageResult{Stage: model.StagePredict, OK: true})
				return nil
			})
			if err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := repo.Get(ctx, "acme", job.ID)
	if len(stored.StageLog) != 50 {
		t.Fatalf("stage log has %d entries, want 50", len(stored.StageLog))
	}
	if stored.Version != 50 {
		t.Fatalf("version = %d, want 50", stored.Version)
	}
}
