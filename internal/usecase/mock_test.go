//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/domain/ports/adapter"
	"quote-orchestrator/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Mock RateLimiter ----

type MockLimiter struct {
	mu       sync.Mutex
	Decision adapter.Decision
	PerOp    map[string]adapter.Decision
	Err      error
	Calls    []string // "tenant/operation"
}

var _ adapter.RateLimiter = (*MockLimiter)(nil)

func (m *MockLimiter) Allow(ctx context.Context, tenantID, operation string) (adapter.Decision, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, tenantID+"/"+operation)
	m.mu.Unlock()
	if m.Err != nil {
		return adapter.Decision{}, m.Err
	}
	if dec, ok := m.PerOp[operation]; ok {
		return dec, nil
	}
	return m.Decision, nil
}

func allowAll() *MockLimiter {
	return &MockLimiter{Decision: adapter.Decision{Allowed: true}}
}

// ---- Mock RuleProvider ----

type MockRules struct {
	Sets map[string]*model.TenantRuleSet
}

var _ repository.RuleProvider = (*MockRules)(nil)

func (m *MockRules) RuleSet(tenantID string) (*model.TenantRuleSet, error) {
	rs, ok := m.Sets[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rs, nil
}

func tenantRules() *MockRules {
	return &MockRules{Sets: map[string]*model.TenantRuleSet{
		"acme": {
			BasePerM2:  map[string]float64{"gipsplaat": 15, "beton": 22, "bestaand": 18},
			Surcharge:  map[string]float64{"vocht": 0.25, "scheuren": 0.15},
			MinTotal:   250,
			VATPercent: 21,
			Rounding:   model.RoundHalfUp,
			Currency:   "EUR",
		},
	}}
}

// ---- Mock Predictor ----

type MockPredictor struct {
	mu          sync.Mutex
	Pred        *model.Prediction
	Err         error
	Delay       time.Duration
	Invocations int
}

var _ adapter.Predictor = (*MockPredictor)(nil)

func (m *MockPredictor) Predict(ctx context.Context, imageRefs []string, areaM2 float64) (*model.Prediction, error) {
	m.mu.Lock()
	m.Invocations++
	m.mu.Unlock()
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Pred != nil {
		return m.Pred.Clone(), nil
	}
	return &model.Prediction{Substrate: "gipsplaat", Confidences: map[string]float64{}}, nil
}

// ---- Mock Renderer ----

type MockRenderer struct {
	Data []byte
	Err  error
}

var _ adapter.Renderer = (*MockRenderer)(nil)

func (m *MockRenderer) Render(ctx context.Context, doc adapter.QuoteDocument) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Data != nil {
		return m.Data, nil
	}
	return []byte("<html>offerte</html>"), nil
}

func (m *MockRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (m *MockRenderer) Ext() string         { return "html" }

// ---- Mock CRMClient ----

type MockCRM struct {
	mu     sync.Mutex
	Res    adapter.CRMResult
	Err    error
	Delay  time.Duration
	Pushes []adapter.CRMPush
}

var _ adapter.CRMClient = (*MockCRM)(nil)

func (m *MockCRM) Push(ctx context.Context, req adapter.CRMPush) (adapter.CRMResult, error) {
	m.mu.Lock()
	m.Pushes = append(m.Pushes, req)
	m.mu.Unlock()
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return adapter.CRMResult{}, ctx.Err()
		}
	}
	return m.Res, m.Err
}

// ---- Mock ArtifactStore ----

type MockArtifacts struct {
	mu      sync.Mutex
	Saved   map[string][]byte
	SaveErr error
	URLErr  error
}

var _ adapter.ArtifactStore = (*MockArtifacts)(nil)

func NewMockArtifacts() *MockArtifacts {
	return &MockArtifacts{Saved: make(map[string][]byte)}
}

func (m *MockArtifacts) Save(ctx context.Context, tenantID, key string, data []byte) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	m.mu.Lock()
	m.Saved[tenantID+"/"+key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return key, nil
}

func (m *MockArtifacts) URL(ctx context.Context, tenantID, key string) (string, error) {
	if m.URLErr != nil {
		return "", m.URLErr
	}
	return "https://files.test/artifacts/" + tenantID + "/" + key, nil
}

func (m *MockArtifacts) Exists(ctx context.Context, tenantID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Saved[tenantID+"/"+key]
	return ok, nil
}

func (m *MockArtifacts) Delete(ctx context.Context, tenantID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenantID + "/" + key
	_, ok := m.Saved[k]
	delete(m.Saved, k)
	return ok, nil
}

// ---- Queues ----

// syncQueue runs tasks inline so tests observe terminal states without
// polling.
type syncQueue struct{}

func (syncQueue) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

type fullQueue struct{}

func (fullQueue) Submit(task func(ctx context.Context) error) error {
	return domain.ErrQueueFull
}
