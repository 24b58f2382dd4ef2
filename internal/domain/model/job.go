package model

import (
	"time"

	"github.com/oklog/ulid/v2"

	"quote-orchestrator/internal/domain"
)

type JobState string

const (
	JobStatePending         JobState = "pending"
	JobStatePredicting      JobState = "predicting"
	JobStatePricing         JobState = "pricing"
	JobStateRendering       JobState = "rendering"
	JobStatePushingExternal JobState = "pushing_external"
	JobStateCompleted       JobState = "completed"
	JobStateFailed          JobState = "failed"
)

// Stage names as recorded in the stage log and in job errors.
const (
	StagePredict      = "predict"
	StagePrice        = "price"
	StageRender       = "render"
	StagePushExternal = "push_external"
)

// next maps each non-terminal state to the only state it may advance to.
// failed is reachable from any non-terminal state and is handled separately.
var next = map[JobState]JobState{
	JobStatePending:         JobStatePredicting,
	JobStatePredicting:      JobStatePricing,
	JobStatePricing:         JobStateRendering,
	JobStateRendering:       JobStatePushingExternal,
	JobStatePushingExternal: JobStateCompleted,
}

// StageResult is one entry of a job's ordered stage log. Failed entries carry
// the error kind; the CRM push stage may record a failed entry on a job that
// still completes.
type StageResult struct {
	Stage      string           `json:"stage"`
	OK         bool             `json:"ok"`
	Kind       domain.ErrorKind `json:"kind,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// JobResult is set exactly once, when a job completes.
type JobResult struct {
	ArtifactURL string  `json:"artifact_url"`
	Total       float64 `json:"total"`
}

// JobError is set exactly once, when a job fails.
type JobError struct {
	Stage   string           `json:"stage"`
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// Job is one end-to-end execution of the quote pipeline for one intake
// request. Mutated only through its methods so that state transitions stay
// monotonic and result/error stay mutually exclusive.
type Job struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	LeadID   string   `json:"lead_id"`
	State    JobState `json:"state"`

	Payload     IntakePayload   `json:"payload"`
	Prediction  *Prediction     `json:"prediction,omitempty"`
	Price       *PriceBreakdown `json:"price,omitempty"`
	ArtifactKey string          `json:"artifact_key,omitempty"`

	StageLog []StageResult `json:"stage_log"`
	Result   *JobResult    `json:"result,omitempty"`
	Error    *JobError     `json:"error,omitempty"`

	// Version guards optimistic read-modify-write in the job store.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewJob(tenantID, leadID string, payload IntakePayload) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        ulid.Make().String(),
		TenantID:  tenantID,
		LeadID:    leadID,
		State:     JobStatePending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Advance moves the job to the next pipeline state. Only the fixed
// pending -> predicting -> pricing -> rendering -> pushing_external order is
// permitted; completion goes through Complete.
func (j *Job) Advance(to JobState) error {
	if j.State.Terminal() {
		return domain.ErrJobTerminal
	}
	if next[j.State] != to || to == JobStateCompleted {
		return domain.ErrInvalidArgument
	}
	j.State = to
	j.touch()
	return nil
}

// Complete marks the job completed with its terminal result.
func (j *Job) Complete(result JobResult) error {
	if j.State.Terminal() {
		return domain.ErrJobTerminal
	}
	if j.State != JobStatePushingExternal {
		return domain.ErrInvalidArgument
	}
	j.State = JobStateCompleted
	j.Result = &result
	j.touch()
	return nil
}

// Fail marks the job failed, recording the failing stage and error kind.
// Valid from any non-terminal state.
func (j *Job) Fail(stage string, kind domain.ErrorKind, message string) error {
	if j.State.Terminal() {
		return domain.ErrJobTerminal
	}
	j.State = JobStateFailed
	j.Error = &JobError{Stage: stage, Kind: kind, Message: message}
	j.touch()
	return nil
}

// AppendStage records a stage outcome in the ordered stage log.
func (j *Job) AppendStage(res StageResult) {
	j.StageLog = append(j.StageLog, res)
	j.touch()
}

func (j *Job) touch() {
	j.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy, so snapshots handed to pollers never alias the
// stored record.
func (j *Job) Clone() *Job {
	c := *j
	if j.Prediction != nil {
		p := j.Prediction.Clone()
		c.Prediction = p
	}
	if j.Price != nil {
		p := j.Price.Clone()
		c.Price = p
	}
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	c.StageLog = append([]StageResult(nil), j.StageLog...)
	c.Payload = j.Payload.Clone()
	return &c
}
