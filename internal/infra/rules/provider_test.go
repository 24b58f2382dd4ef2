//go:build !integration

package rules_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/infra/rules"
)

const rulesV1 = `
tenants:
  acme:
    base_per_m2:
      gipsplaat: 16.50
      beton: 22.00
      bestaand: 18.00
    surcharge:
      vocht: 0.20
      scheuren: 0.15
    min_total: 250.00
    vat_percent: 21
    currency: EUR
`

const rulesV2 = `
tenants:
  acme:
    base_per_m2:
      gipsplaat: 19.00
    min_total: 300.00
    vat_percent: 21
    rounding: half_even
    currency: EUR
`

func writeRules(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pricing_rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func newProvider(t *testing.T, path string) *rules.Provider {
	t.Helper()
	log := zerolog.Nop()
	p, err := rules.NewProvider(path, time.Minute, &log)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

func TestProvider_LoadsTenantRules(t *testing.T) {
	p := newProvider(t, writeRules(t, t.TempDir(), rulesV1))

	rs, err := p.RuleSet("acme")
	if err != nil {
		t.Fatalf("RuleSet: %v", err)
	}
	if rs.BasePerM2["gipsplaat"] != 16.50 || rs.VATPercent != 21 {
		t.Fatalf("rule set = %+v", rs)
	}
	if rs.Surcharge["vocht"] != 0.20 {
		t.Fatalf("surcharge = %+v", rs.Surcharge)
	}
}

func TestProvider_UnknownTenantIsNotFound(t *testing.T) {
	p := newProvider(t, writeRules(t, t.TempDir(), rulesV1))
	if _, err := p.RuleSet("globex"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProvider_ReloadSwapsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, rulesV1)
	p := newProvider(t, path)

	before, err := p.RuleSet("acme")
	if err != nil {
		t.Fatalf("RuleSet: %v", err)
	}

	writeRules(t, dir, rulesV2)
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	after, err := p.RuleSet("acme")
	if err != nil {
		t.Fatalf("RuleSet after reload: %v", err)
	}
	if after.BasePerM2["gipsplaat"] != 19.00 || after.MinTotal != 300.00 {
		t.Fatalf("reloaded rule set = %+v", after)
	}
	// the earlier snapshot is untouched
	if before.BasePerM2["gipsplaat"] != 16.50 {
		t.Fatalf("old snapshot mutated: %+v", before)
	}
}

func TestProvider_BrokenReloadKeepsCurrentSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, rulesV1)
	p := newProvider(t, path)

	writeRules(t, dir, "tenants: {}\n")
	if err := p.Reload(); err == nil {
		t.Fatalf("Reload of empty tenants succeeded, want error")
	}

	rs, err := p.RuleSet("acme")
	if err != nil {
		t.Fatalf("RuleSet after failed reload: %v", err)
	}
	if rs.BasePerM2["gipsplaat"] != 16.50 {
		t.Fatalf("snapshot lost after failed reload: %+v", rs)
	}
}

func TestProvider_RejectsBadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, `
tenants:
  acme:
    base_per_m2: {beton: 22.0}
    rounding: round_down
`)
	log := zerolog.Nop()
	if _, err := rules.NewProvider(path, time.Minute, &log); err == nil {
		t.Fatalf("NewProvider accepted unknown rounding policy")
	}
}
