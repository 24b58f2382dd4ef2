package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/infra/logging"
)

// quoteCreateRequest is the intake body. lead_id is optional; one is
// assigned when the caller has no identifier of its own.
type quoteCreateRequest struct {
	LeadID string `json:"lead_id"`
	model.IntakePayload
}

type quoteCreateResponse struct {
	JobID     string `json:"job_id"`
	LeadID    string `json:"lead_id"`
	StatusURL string `json:"status_url"`
}

type jobStatusResponse struct {
	ID        string              `json:"id"`
	LeadID    string              `json:"lead_id"`
	State     model.JobState      `json:"state"`
	StageLog  []model.StageResult `json:"stage_log"`
	Result    *model.JobResult    `json:"result,omitempty"`
	Error     *model.JobError     `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (s *Server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(tenantHeader)
	if tenantID == "" {
		http.Error(w, "missing "+tenantHeader+" header", http.StatusBadRequest)
		return
	}
	ctx := logging.WithTenantID(r.Context(), tenantID)

	var req quoteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req.IntakePayload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			http.Error(w, fmt.Sprintf("invalid field %s (%s)", verrs[0].Field(), verrs[0].Tag()), http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.LeadID == "" {
		req.LeadID = uuid.NewString()
	}

	jobID, err := s.orch.Submit(ctx, tenantID, req.LeadID, req.IntakePayload)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(quoteCreateResponse{
		JobID:     jobID,
		LeadID:    req.LeadID,
		StatusURL: "/api/v1/jobs/" + jobID,
	})
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var rle *domain.RateLimitError
	switch {
	case errors.As(err, &rle):
		secs := int(math.Ceil(rle.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrQueueFull):
		w.Header().Set("Retry-After", "5")
		http.Error(w, "service overloaded", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "unknown tenant", http.StatusNotFound)
	default:
		s.log.Error().Err(err).Msg("quote submission failed")
		http.Error(w, "Failed to create quote", http.StatusInternalServerError)
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(tenantHeader)
	if tenantID == "" {
		http.Error(w, "missing "+tenantHeader+" header", http.StatusBadRequest)
		return
	}
	jobID := chi.URLParam(r, "jobID")

	job, err := s.orch.GetStatus(logging.WithTenantID(r.Context(), tenantID), tenantID, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Str("job_id", jobID).Msg("job lookup failed")
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jobStatusResponse{
		ID:        job.ID,
		LeadID:    job.LeadID,
		State:     job.State,
		StageLog:  job.StageLog,
		Result:    job.Result,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	key := chi.URLParam(r, "*")

	data, err := s.artifacts.Get(r.Context(), tenantID, key)
	if err != nil {
		// Invalid keys and missing artifacts look alike to the outside.
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}

	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(data)
}
