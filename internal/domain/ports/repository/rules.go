package repository

import "quote-orchestrator/internal/domain/model"

// RuleProvider hands out the current pricing rule snapshot for a tenant.
// Returned rule sets are read-only; reloads replace snapshots atomically
// between calls. Unknown tenants yield domain.ErrNotFound.
type RuleProvider interface {
	RuleSet(tenantID string) (*model.TenantRuleSet, error)
}
