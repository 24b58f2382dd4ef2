package crm

import (
	"context"

	"github.com/rs/zerolog"

	"quote-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.CRMClient = (*NoopClient)(nil)

// NoopClient logs pushes instead of sending them. Used in dev mode and when
// no CRM is configured.
type NoopClient struct {
	log *zerolog.Logger
}

func NewNoopClient(log *zerolog.Logger) *NoopClient {
	return &NoopClient{log: log}
}

func (n *NoopClient) Push(_ context.Context, req adapter.CRMPush) (adapter.CRMResult, error) {
	n.log.Info().
		Str("tenant_id", req.TenantID).
		Str("lead_id", req.LeadID).
		Float64("amount", req.Amount).
		Msg("crm push skipped (noop client)")
	return adapter.CRMResult{ContactID: "noop-contact", DealID: "noop-deal"}, nil
}
