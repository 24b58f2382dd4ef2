// Package rules loads per-tenant pricing rule sets from a YAML file and
// hot-reloads them by swapping immutable snapshots.
package rules

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/domain/ports/repository"
)

var _ repository.RuleProvider = (*Provider)(nil)

type ruleFile struct {
	Tenants map[string]*model.TenantRuleSet `yaml:"tenants"`
}

type snapshot struct {
	tenants map[string]*model.TenantRuleSet
	modTime time.Time
}

// Provider serves the current rule snapshot. Reloads build a fresh snapshot
// and swap it atomically; in-flight pricing calls keep reading the one they
// started with.
type Provider struct {
	path     string
	interval time.Duration
	snap     atomic.Value // *snapshot
	log      *zerolog.Logger
}

func NewProvider(path string, interval time.Duration, log *zerolog.Logger) (*Provider, error) {
	p := &Provider{path: path, interval: interval, log: log}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// RuleSet returns the tenant's rules from the current snapshot. The result
// is read-only; callers must not mutate it.
func (p *Provider) RuleSet(tenantID string) (*model.TenantRuleSet, error) {
	snap := p.snap.Load().(*snapshot)
	rules, ok := snap.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: tenant %q has no pricing rules", domain.ErrNotFound, tenantID)
	}
	return rules, nil
}

// Reload re-reads the rule file and swaps the snapshot.
func (p *Provider) Reload() error {
	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("stat rules file: %w", err)
	}
	b, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	if len(f.Tenants) == 0 {
		return fmt.Errorf("%w: rules file defines no tenants", domain.ErrInvalidArgument)
	}
	for id, rs := range f.Tenants {
		if err := validateRuleSet(rs); err != nil {
			return fmt.Errorf("tenant %q: %w", id, err)
		}
	}
	p.snap.Store(&snapshot{tenants: f.Tenants, modTime: info.ModTime()})
	return nil
}

func validateRuleSet(rs *model.TenantRuleSet) error {
	if rs == nil || len(rs.BasePerM2) == 0 {
		return fmt.Errorf("%w: base_per_m2 is empty", domain.ErrInvalidArgument)
	}
	if rs.VATPercent < 0 || rs.MinTotal < 0 {
		return fmt.Errorf("%w: negative vat_percent or min_total", domain.ErrInvalidArgument)
	}
	switch rs.Rounding {
	case "", model.RoundHalfUp, model.RoundHalfEven:
	default:
		return fmt.Errorf("%w: unknown rounding policy %q", domain.ErrInvalidArgument, rs.Rounding)
	}
	return nil
}

// Watch polls the file's mtime and reloads on change. Run in a goroutine;
// returns when ctx is done. A broken edit keeps the previous snapshot.
func (p *Provider) Watch(ctx context.Context) {
	if p.interval <= 0 {
		p.interval = 30 * time.Second
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(p.path)
			if err != nil {
				p.log.Warn().Err(err).Str("path", p.path).Msg("rules file unavailable, keeping current snapshot")
				continue
			}
			cur := p.snap.Load().(*snapshot)
			if !info.ModTime().After(cur.modTime) {
				continue
			}
			if err := p.Reload(); err != nil {
				p.log.Error().Err(err).Str("path", p.path).Msg("rules reload failed, keeping current snapshot")
				continue
			}
			p.log.Info().Str("path", p.path).Msg("tenant pricing rules reloaded")
		}
	}
}
