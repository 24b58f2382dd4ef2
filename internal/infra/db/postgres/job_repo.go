package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo persists jobs in the jobs table. Update serializes concurrent
// mutators with a row lock and rejects stale writes with a version guard.
//
// Schema:
//
//	CREATE TABLE jobs (
//	    id           TEXT PRIMARY KEY,
//	    tenant_id    TEXT NOT NULL,
//	    lead_id      TEXT NOT NULL,
//	    state        TEXT NOT NULL,
//	    version      INT  NOT NULL,
//	    payload      JSONB NOT NULL,
//	    prediction   JSONB,
//	    price        JSONB,
//	    artifact_key TEXT NOT NULL DEFAULT '',
//	    stage_log    JSONB NOT NULL DEFAULT '[]',
//	    result       JSONB,
//	    error        JSONB,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX jobs_tenant_created_idx ON jobs (tenant_id, created_at DESC);
type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, tenant_id, lead_id, state, version, payload, prediction, price,
artifact_key, stage_log, result, error, created_at, updated_at`

func (r *JobRepo) Create(ctx context.Context, job *model.Job) error {
	const q = `
INSERT INTO jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`

	payload, prediction, price, stageLog, result, jobErr, err := marshalJob(job)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, q,
		job.ID, job.TenantID, job.LeadID, string(job.State), job.Version,
		payload, prediction, price, job.ArtifactKey, stageLog, result, jobErr,
		job.CreatedAt, job.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *JobRepo) Get(ctx context.Context, tenantID, jobID string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 AND tenant_id = $2;`
	return scanJob(r.pool.QueryRow(ctx, q, jobID, tenantID))
}

func (r *JobRepo) Update(ctx context.Context, tenantID, jobID string, mutate func(*model.Job) error) (*model.Job, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const sel = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 AND tenant_id = $2 FOR UPDATE;`
	job, err := scanJob(tx.QueryRow(ctx, sel, jobID, tenantID))
	if err != nil {
		return nil, err
	}

	prevVersion := job.Version
	if err := mutate(job); err != nil {
		return nil, err
	}
	if job.Version != prevVersion {
		return nil, domain.ErrVersionConflict
	}
	job.Version = prevVersion + 1

	payload, prediction, price, stageLog, result, jobErr, err := marshalJob(job)
	if err != nil {
		return nil, err
	}

	const upd = `
UPDATE jobs SET
  state = $3, version = $4, payload = $5, prediction = $6, price = $7,
  artifact_key = $8, stage_log = $9, result = $10, error = $11, updated_at = $12
WHERE id = $1 AND tenant_id = $2 AND version = $13;`

	tag, err := tx.Exec(ctx, upd,
		job.ID, job.TenantID, string(job.State), job.Version,
		payload, prediction, price, job.ArtifactKey, stageLog, result, jobErr,
		time.Now().UTC(), prevVersion,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrVersionConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func marshalJob(job *model.Job) (payload, prediction, price, stageLog, result, jobErr []byte, err error) {
	if payload, err = json.Marshal(job.Payload); err != nil {
		return
	}
	if stageLog, err = json.Marshal(job.StageLog); err != nil {
		return
	}
	if job.Prediction != nil {
		if prediction, err = json.Marshal(job.Prediction); err != nil {
			return
		}
	}
	if job.Price != nil {
		if price, err = json.Marshal(job.Price); err != nil {
			return
		}
	}
	if job.Result != nil {
		if result, err = json.Marshal(job.Result); err != nil {
			return
		}
	}
	if job.Error != nil {
		jobErr, err = json.Marshal(job.Error)
	}
	return
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job        model.Job
		state      string
		payload    []byte
		prediction []byte
		price      []byte
		stageLog   []byte
		result     []byte
		jobErr     []byte
	)
	err := row.Scan(
		&job.ID, &job.TenantID, &job.LeadID, &state, &job.Version,
		&payload, &prediction, &price, &job.ArtifactKey, &stageLog, &result, &jobErr,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	job.State = model.JobState(state)

	if err := json.Unmarshal(payload, &job.Payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := json.Unmarshal(stageLog, &job.StageLog); err != nil {
		return nil, fmt.Errorf("%w: stage log: %v", domain.ErrReadDatabaseRow, err)
	}
	if len(prediction) > 0 {
		job.Prediction = &model.Prediction{}
		if err := json.Unmarshal(prediction, job.Prediction); err != nil {
			return nil, fmt.Errorf("%w: prediction: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	if len(price) > 0 {
		job.Price = &model.PriceBreakdown{}
		if err := json.Unmarshal(price, job.Price); err != nil {
			return nil, fmt.Errorf("%w: price: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	if len(result) > 0 {
		job.Result = &model.JobResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("%w: result: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	if len(jobErr) > 0 {
		job.Error = &model.JobError{}
		if err := json.Unmarshal(jobErr, job.Error); err != nil {
			return nil, fmt.Errorf("%w: error: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &job, nil
}
