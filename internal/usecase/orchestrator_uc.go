package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/domain/ports/adapter"
	"quote-orchestrator/internal/domain/ports/repository"
	"quote-orchestrator/internal/domain/pricing"
	"quote-orchestrator/internal/infra/logging"
	"quote-orchestrator/internal/infra/metrics"
)

// StageQueue is the bounded executor job stage sequences run on. Satisfied
// by worker.Pool.
type StageQueue interface {
	Submit(task func(ctx context.Context) error) error
}

// StageTimeouts bounds each stage invocation with I/O.
type StageTimeouts struct {
	Predict time.Duration
	Render  time.Duration
	Push    time.Duration
}

// QuoteOrchestrator drives a quote job through its stage sequence:
// predict -> price -> render -> push-external. Submission is admission-
// checked and returns before any stage runs; callers poll GetStatus.
type QuoteOrchestrator interface {
	// Submit admits one intake request and returns the new job's id.
	// Duplicate (tenant, lead) pairs are independent jobs; deduplication is
	// the caller's concern via its own idempotency keys.
	Submit(ctx context.Context, tenantID, leadID string, payload model.IntakePayload) (string, error)

	// GetStatus returns a snapshot of the job. Unknown ids and ids owned by
	// another tenant both yield domain.ErrNotFound.
	GetStatus(ctx context.Context, tenantID, jobID string) (*model.Job, error)
}

var _ QuoteOrchestrator = (*orchestrator)(nil)

type orchestrator struct {
	jobs      repository.JobRepository
	rules     repository.RuleProvider
	limiter   adapter.RateLimiter
	predictor adapter.Predictor
	renderer  adapter.Renderer
	crm       adapter.CRMClient
	artifacts adapter.ArtifactStore
	queue     StageQueue
	timeouts  StageTimeouts
	log       *zerolog.Logger
}

func NewQuoteOrchestrator(
	jobs repository.JobRepository,
	rules repository.RuleProvider,
	limiter adapter.RateLimiter,
	predictor adapter.Predictor,
	renderer adapter.Renderer,
	crm adapter.CRMClient,
	artifacts adapter.ArtifactStore,
	queue StageQueue,
	timeouts StageTimeouts,
	log *zerolog.Logger,
) QuoteOrchestrator {
	return &orchestrator{
		jobs:      jobs,
		rules:     rules,
		limiter:   limiter,
		predictor: predictor,
		renderer:  renderer,
		crm:       crm,
		artifacts: artifacts,
		queue:     queue,
		timeouts:  timeouts,
		log:       log,
	}
}

func (o *orchestrator) Submit(ctx context.Context, tenantID, leadID string, payload model.IntakePayload) (string, error) {
	dec, err := o.limiter.Allow(ctx, tenantID, adapter.OpJobCreate)
	if err != nil {
		// A broken counter backend must not turn away customers; admit and
		// let the worker pool bound the damage.
		o.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("rate limiter unavailable, admitting")
	} else if !dec.Allowed {
		metrics.IncRateLimitDenial(adapter.OpJobCreate)
		return "", &domain.RateLimitError{Operation: adapter.OpJobCreate, RetryAfter: dec.RetryAfter}
	}

	// Tenants without pricing rules are rejected up front rather than
	// failing every job at the pricing stage.
	if _, err := o.rules.RuleSet(tenantID); err != nil {
		return "", err
	}

	job := model.NewJob(tenantID, leadID, payload)
	if err := o.jobs.Create(ctx, job); err != nil {
		return "", err
	}

	if err := o.queue.Submit(func(taskCtx context.Context) error {
		return o.runJob(taskCtx, tenantID, job.ID)
	}); err != nil {
		if _, uerr := o.jobs.Update(ctx, tenantID, job.ID, func(j *model.Job) error {
			return j.Fail("admission", domain.KindQueueFull, "worker queue saturated")
		}); uerr != nil {
			o.log.Error().Err(uerr).Str("job_id", job.ID).Msg("failed to mark overloaded job")
		}
		metrics.IncJob(string(model.JobStateFailed))
		return "", err
	}

	o.log.Info().
		Str("tenant_id", tenantID).
		Str("lead_id", leadID).
		Str("job_id", job.ID).
		Msg("quote job admitted")
	return job.ID, nil
}

func (o *orchestrator) GetStatus(ctx context.Context, tenantID, jobID string) (*model.Job, error) {
	return o.jobs.Get(ctx, tenantID, jobID)
}

// runJob executes the stage sequence for one job. Stages run strictly in
// order; every transition is durable in the job store before the next stage
// starts. All stage errors end in a recorded terminal state, never in a
// fault escaping to the pool.
func (o *orchestrator) runJob(ctx context.Context, tenantID, jobID string) error {
	ctx = logging.WithTenantID(logging.WithJobID(ctx, jobID), tenantID)
	log := logging.With(ctx, o.log)
	defer logging.TraceDuration(log, "QuoteOrchestrator.runJob")()

	job, err := o.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	// ---- predict ----
	if _, err := o.jobs.Update(ctx, tenantID, jobID, func(j *model.Job) error {
		return j.Advance(model.JobStatePredicting)
	}); err != nil {
		return err
	}
	// Signal extraction has its own quota. The job is already admitted, so
	// an exhausted window delays the stage instead of failing the job.
	if dec, lerr := o.limiter.Allow(ctx, tenantID, adapter.OpPredict); lerr == nil && !dec.Allowed {
		metrics.IncRateLimitDenial(adapter.OpPredict)
		log.Debug().Dur("retry_after", dec.RetryAfter).Msg("signal extraction throttled")
		select {
		case <-time.After(dec.RetryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	started := time.Now().UTC()
	predictCtx, cancel := context.WithTimeout(ctx, o.timeouts.Predict)
	pred, perr := o.predictor.Predict(predictCtx, job.Payload.ImageRefs, job.Payload.AreaM2)
	cancel()
	metrics.ObserveStage(model.StagePredict, time.Since(started), perr == nil)
	if perr != nil {
		return o.failJob(ctx, log, tenantID, jobID, model.StagePredict,
			timeoutKind(perr, domain.KindPredictionError), perr, started)
	}
	if _, err := o.jobs.Update(ctx, tenantID, jobID, func(j *model.Job) error {
		j.Prediction = pred
		j.AppendStage(okStage(model.StagePredict, started, "substrate="+pred.Substrate))
		return j.Advance(model.JobStatePricing)
	}); err != nil {
		return err
	}

	// ---- price ----
	// The declared substrate wins over the predicted one when the customer
	// filled it in.
	substrate := job.Payload.Substrate
	if substrate == "" {
		substrate = pred.Substrate
	}
	started = time.Now().UTC()
	var breakdown *model.PriceBreakdown
	ruleSet, serr := o.rules.RuleSet(tenantID)
	if serr == nil {
		breakdown, serr = pricing.Compute(job.Payload.AreaM2, substrate, pred.Issues, ruleSet)
	}
	metrics.ObserveStage(model.StagePrice, time.Since(started), serr == nil)
	if serr != nil {
		return o.failJob(ctx, log, tenantID, jobID, model.StagePrice, priceKind(serr), serr, started)
	}
	if _, err := o.jobs.Update(ctx, tenantID, jobID, func(j *model.Job) error {
		j.Price = breakdown
		j.AppendStage(okStage(model.StagePrice, started, fmt.Sprintf("total=%.2f", breakdown.Total)))
		return j.Advance(model.JobStateRendering)
	}); err != nil {
		return err
	}

	// ---- render ----
	started = time.Now().UTC()
	doc := adapter.QuoteDocument{
		JobID:     jobID,
		TenantID:  tenantID,
		LeadID:    job.LeadID,
		Customer:  job.Payload,
		Substrate: substrate,
		Issues:    pred.Issues,
		Price:     breakdown,
		CreatedAt: job.CreatedAt,
	}
	renderCtx, cancel := context.WithTimeout(ctx, o.timeouts.Render)
	docBytes, rerr := o.renderer.Render(renderCtx, doc)
	cancel()
	if rerr != nil {
		metrics.ObserveStage(model.StageRender, time.Since(started), false)
		return o.failJob(ctx, log, tenantID, jobID, model.StageRender,
			timeoutKind(rerr, domain.KindRenderError), rerr, started)
	}

	artifactKey := "quotes/" + jobID + "." + o.renderer.Ext()
	if _, rerr = o.artifacts.Save(ctx, tenantID, artifactKey, docBytes); rerr != nil {
		metrics.ObserveStage(model.StageRender, time.Since(started), false)
		return o.failJob(ctx, log, tenantID, jobID, model.StageRender, domain.KindStorageError, rerr, started)
	}
	artifactURL, rerr := o.artifacts.URL(ctx, tenantID, artifactKey)
	if rerr != nil {
		metrics.ObserveStage(model.StageRender, time.Since(started), false)
		return o.failJob(ctx, log, tenantID, jobID, model.StageRender, domain.KindStorageError, rerr, started)
	}
	metrics.ObserveStage(model.StageRender, time.Since(started), true)
	if _, err := o.jobs.Update(ctx, tenantID, jobID, func(j *model.Job) error {
		j.ArtifactKey = artifactKey
		j.AppendStage(okStage(model.StageRender, started, artifactKey))
		return j.Advance(model.JobStatePushingExternal)
	}); err != nil {
		return err
	}

	// ---- push-external (best effort) ----
	started = time.Now().UTC()
	pushCtx, cancel := context.WithTimeout(ctx, o.timeouts.Push)
	crmRes, cerr := o.crm.Push(pushCtx, adapter.CRMPush{
		TenantID: tenantID,
		LeadID:   job.LeadID,
		Name:     job.Payload.Name,
		Email:    job.Payload.Email,
		Phone:    job.Payload.Phone,
		DealName: "Offerte " + job.LeadID,
		Amount:   breakdown.Total,
		NoteURL:  artifactURL,
	})
	cancel()
	metrics.ObserveStage(model.StagePushExternal, time.Since(started), cerr == nil)

	pushResult := okStage(model.StagePushExternal, started, "deal="+crmRes.DealID)
	if cerr != nil {
		// CRM availability must never block a customer-facing quote: the
		// failure goes in the stage log, not in the job's terminal error.
		outcome := "error"
		if errors.Is(cerr, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.IncCRMPush(outcome)
		log.Warn().Err(cerr).Msg("crm push failed, completing job anyway")
		pushResult = model.StageResult{
			Stage:      model.StagePushExternal,
			OK:         false,
			Kind:       domain.KindCRMError,
			Detail:     cerr.Error(),
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		}
	} else {
		metrics.IncCRMPush("ok")
	}

	if _, err := o.jobs.Update(ctx, tenantID, jobID, func(j *model.Job) error {
		j.AppendStage(pushResult)
		return j.Complete(model.JobResult{ArtifactURL: artifactURL, Total: breakdown.Total})
	}); err != nil {
		return err
	}
	metrics.IncJob(string(model.JobStateCompleted))
	log.Info().Str("artifact_url", artifactURL).Msg("quote job completed")
	return nil
}

// failJob records a fatal stage failure as the job's terminal state. The
// error is consumed here; workers never see stage failures as faults.
func (o *orchestrator) failJob(ctx context.Context, log *zerolog.Logger, tenantID, jobID, stage string, kind domain.ErrorKind, cause error, started time.Time) error {
	metrics.IncStageFailure(stage, string(kind))
	metrics.IncJob(string(model.JobStateFailed))
	log.Error().Err(cause).Str("stage", stage).Str("kind", string(kind)).Msg("stage failed")

	_, err := o.jobs.Update(ctx, tenantID, jobID, func(j *model.Job) error {
		j.AppendStage(model.StageResult{
			Stage:      stage,
			OK:         false,
			Kind:       kind,
			Detail:     cause.Error(),
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		})
		return j.Fail(stage, kind, cause.Error())
	})
	if err != nil {
		return fmt.Errorf("record failure of job %s: %w", jobID, err)
	}
	return nil
}

func okStage(stage string, started time.Time, detail string) model.StageResult {
	return model.StageResult{
		Stage:      stage,
		OK:         true,
		Detail:     detail,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
}

// timeoutKind maps deadline overruns to the timeout kind, everything else
// to the stage's own kind.
func timeoutKind(err error, fallback domain.ErrorKind) domain.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindStageTimeout
	}
	return fallback
}

func priceKind(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, domain.ErrInvalidSubstrate):
		return domain.KindInvalidSubstrate
	case errors.Is(err, domain.ErrInvalidArea):
		return domain.KindInvalidArea
	default:
		return domain.KindRulesError
	}
}
