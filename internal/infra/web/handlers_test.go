//go:build !integration

package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/infra/web"
	"quote-orchestrator/internal/usecase"
)

const testAPIKey = "secret-key"

type mockOrch struct {
	SubmitFunc    func(ctx context.Context, tenantID, leadID string, payload model.IntakePayload) (string, error)
	GetStatusFunc func(ctx context.Context, tenantID, jobID string) (*model.Job, error)
}

var _ usecase.QuoteOrchestrator = (*mockOrch)(nil)

func (m *mockOrch) Submit(ctx context.Context, tenantID, leadID string, payload model.IntakePayload) (string, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, tenantID, leadID, payload)
	}
	return "01JOBID000000000000000000X", nil
}

func (m *mockOrch) GetStatus(ctx context.Context, tenantID, jobID string) (*model.Job, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, tenantID, jobID)
	}
	return nil, domain.ErrNotFound
}

type mockReader struct {
	files map[string][]byte
}

func (m *mockReader) Get(ctx context.Context, tenantID, key string) ([]byte, error) {
	data, ok := m.files[tenantID+"/"+key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func newRouter(orch *mockOrch, reader *mockReader) http.Handler {
	if reader == nil {
		reader = &mockReader{files: map[string][]byte{}}
	}
	return web.NewServer(orch, reader, testAPIKey, newLogger()).Router()
}

func authedRequest(method, target, tenant, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	return req
}

const validIntake = `{"name":"J. de Vries","email":"j@example.nl","area_m2":40}`

func TestQuoteCreate_Accepted(t *testing.T) {
	var gotTenant, gotLead string
	orch := &mockOrch{
		SubmitFunc: func(_ context.Context, tenantID, leadID string, payload model.IntakePayload) (string, error) {
			gotTenant, gotLead = tenantID, leadID
			if payload.AreaM2 != 40 {
				t.Errorf("payload area = %v, want 40", payload.AreaM2)
			}
			return "job-123", nil
		},
	}
	r := newRouter(orch, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/quotes", "acme", `{"lead_id":"lead-7",`+validIntake[1:]))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		JobID     string `json:"job_id"`
		LeadID    string `json:"lead_id"`
		StatusURL string `json:"status_url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.JobID != "job-123" || body.StatusURL != "/api/v1/jobs/job-123" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if gotTenant != "acme" || gotLead != "lead-7" {
		t.Fatalf("submit saw tenant=%q lead=%q", gotTenant, gotLead)
	}
}

func TestQuoteCreate_GeneratesLeadID(t *testing.T) {
	orch := &mockOrch{
		SubmitFunc: func(_ context.Context, _, leadID string, _ model.IntakePayload) (string, error) {
			if leadID == "" {
				t.Error("no lead id assigned")
			}
			return "job-123", nil
		},
	}
	r := newRouter(orch, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/quotes", "acme", validIntake))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d", rec.Code)
	}
}

func TestQuoteCreate_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"j@example.nl","area_m2":40}`},
		{"bad email", `{"name":"J","email":"not-an-email","area_m2":40}`},
		{"garbage body", `{{{`},
	}
	r := newRouter(&mockOrch{}, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/quotes", "acme", tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d, body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestQuoteCreate_MissingTenantHeader(t *testing.T) {
	r := newRouter(&mockOrch{}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/quotes", "", validIntake))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestQuoteCreate_RateLimited(t *testing.T) {
	orch := &mockOrch{
		SubmitFunc: func(context.Context, string, string, model.IntakePayload) (string, error) {
			return "", &domain.RateLimitError{Operation: "job-create", RetryAfter: 30 * time.Second}
		},
	}
	r := newRouter(orch, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/quotes", "acme", validIntake))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q, want 30", got)
	}
}

func TestQuoteCreate_QueueFull(t *testing.T) {
	orch := &mockOrch{
		SubmitFunc: func(context.Context, string, string, model.IntakePayload) (string, error) {
			return "", domain.ErrQueueFull
		},
	}
	r := newRouter(orch, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/quotes", "acme", validIntake))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("no Retry-After header on 503")
	}
}

func TestQuoteCreate_UnknownTenant(t *testing.T) {
	orch := &mockOrch{
		SubmitFunc: func(context.Context, string, string, model.IntakePayload) (string, error) {
			return "", domain.ErrNotFound
		},
	}
	r := newRouter(orch, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/quotes", "ghost", validIntake))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	r := newRouter(&mockOrch{}, nil)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(validIntake))
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(validIntake))
		req.Header.Set("Authorization", "Bearer wrong")
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
	})

	t.Run("health is open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	})
}

func TestJobStatus(t *testing.T) {
	job := model.NewJob("acme", "lead-1", model.IntakePayload{Name: "J", Email: "j@example.nl", AreaM2: 40})
	job.State = model.JobStateCompleted
	job.Result = &model.JobResult{ArtifactURL: "https://files.test/artifacts/acme/quotes/x.html", Total: 726}

	orch := &mockOrch{
		GetStatusFunc: func(_ context.Context, tenantID, jobID string) (*model.Job, error) {
			if tenantID != "acme" || jobID != job.ID {
				return nil, domain.ErrNotFound
			}
			return job, nil
		},
	}
	r := newRouter(orch, nil)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, "acme", ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var body struct {
			ID     string          `json:"id"`
			State  string          `json:"state"`
			Result *map[string]any `json:"result"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.ID != job.ID || body.State != "completed" || body.Result == nil {
			t.Fatalf("unexpected body: %+v", body)
		}
	})

	t.Run("cross tenant is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, "other", ""))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("missing tenant header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, "", ""))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestArtifactDownload(t *testing.T) {
	reader := &mockReader{files: map[string][]byte{
		"acme/quotes/j1.html": []byte("<html>offerte</html>"),
	}}
	r := newRouter(&mockOrch{}, reader)

	t.Run("found with content type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/acme/quotes/j1.html", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("content type = %q", ct)
		}
		if rec.Body.String() != "<html>offerte</html>" {
			t.Fatalf("body = %q", rec.Body.String())
		}
	})

	t.Run("other tenant's key is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/other/quotes/j1.html", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("unknown key is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/acme/quotes/nope.html", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})
}
