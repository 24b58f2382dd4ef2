// Package pricing computes quote price breakdowns from tenant rule sets.
// Compute is pure: no I/O, no clock, no randomness. Identical inputs yield
// identical breakdowns.
package pricing

import (
	"fmt"
	"math"
	"sort"

	"quote-orchestrator/internal/domain"
	"quote-orchestrator/internal/domain/model"
)

// Compute calculates the price breakdown for an area/substrate/issue
// combination under the given rule set.
//
// Surcharges are additive on the base subtotal and never compound across
// issues. The tenant minimum clamps the adjusted amount before VAT. The
// final total is rounded to the currency's minor unit under the rule set's
// rounding policy (half-up when unset).
func Compute(areaM2 float64, substrate string, issues []string, rules *model.TenantRuleSet) (*model.PriceBreakdown, error) {
	if rules == nil {
		return nil, domain.ErrInvalidArgument
	}
	base, ok := rules.BasePerM2[substrate]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSubstrate, substrate)
	}
	if areaM2 <= 0 {
		return nil, fmt.Errorf("%w: got %v", domain.ErrInvalidArea, areaM2)
	}

	tags := normalizeIssues(issues)

	subtotal := areaM2 * base

	var surcharge float64
	for _, tag := range tags {
		if frac, ok := rules.Surcharge[tag]; ok {
			surcharge += frac
		}
	}

	adjusted := subtotal * (1 + surcharge)
	minimumApplied := adjusted < rules.MinTotal
	if minimumApplied {
		adjusted = rules.MinTotal
	}

	vat := adjusted * rules.VATPercent / 100
	policy := rules.Rounding
	if policy == "" {
		policy = model.RoundHalfUp
	}

	return &model.PriceBreakdown{
		Subtotal:          roundMinor(subtotal, policy),
		SurchargeFraction: surcharge,
		MinimumApplied:    minimumApplied,
		VATAmount:         roundMinor(vat, policy),
		Total:             roundMinor(adjusted+vat, policy),
		Currency:          rules.Currency,
		Assumptions:       assumptions(areaM2, substrate, tags),
		LeadTimeEstimate:  leadTime(areaM2, substrate, tags),
	}, nil
}

// normalizeIssues dedupes and sorts issue tags so the issue set has one
// canonical form regardless of input order.
func normalizeIssues(issues []string) []string {
	seen := make(map[string]struct{}, len(issues))
	out := make([]string, 0, len(issues))
	for _, tag := range issues {
		if _, dup := seen[tag]; dup || tag == "" {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// roundMinor rounds to the currency's minor unit (two decimals).
func roundMinor(x float64, policy model.RoundingPolicy) float64 {
	cents := x * 100
	if policy == model.RoundHalfEven {
		return math.RoundToEven(cents) / 100
	}
	return math.Floor(cents+0.5) / 100
}

var substrateAssumptions = map[string][]string{
	"gipsplaat": {
		"Gipsplaat is beschikbaar en in goede staat.",
		"Onderliggende constructie is stabiel.",
	},
	"beton": {
		"Beton is voldoende droog en stabiel.",
		"Geen structurele problemen aanwezig.",
	},
	"bestaand": {
		"Bestaand oppervlak is geschikt voor behandeling.",
		"Geen verborgen gebreken aanwezig.",
	},
}

var issueAssumptions = map[string][]string{
	"vocht": {
		"Vochtprobleem is lokaal en niet structureel.",
		"Voldoende ventilatie is mogelijk.",
	},
	"scheuren": {
		"Scheuren zijn oppervlakkig en niet structureel.",
	},
}

// assumptions builds the ordered assumption list: substrate lines first,
// then issue lines in sorted tag order, then the general lines. The mapping
// is fixed so two identical inputs produce byte-identical output.
func assumptions(areaM2 float64, substrate string, tags []string) []string {
	out := append([]string(nil), substrateAssumptions[substrate]...)
	for _, tag := range tags {
		out = append(out, issueAssumptions[tag]...)
	}
	out = append(out,
		fmt.Sprintf("Werkruimte is circa %s m² en goed toegankelijk.", formatArea(areaM2)),
		"Materiaal, stroom en water zijn op locatie beschikbaar.",
	)
	return out
}

func formatArea(areaM2 float64) string {
	if areaM2 == math.Trunc(areaM2) {
		return fmt.Sprintf("%.0f", areaM2)
	}
	return fmt.Sprintf("%.1f", areaM2)
}

var baseDaysPer10M2 = map[string]float64{
	"gipsplaat": 1.0,
	"beton":     1.5,
	"bestaand":  1.2,
}

var issueExtraDays = map[string]float64{
	"vocht":    1.0, // drying time
	"scheuren": 0.5,
}

// leadTime estimates the turnaround from area via a step function that is
// monotonic in area for a fixed substrate and issue set. Days are rounded
// up to half days.
func leadTime(areaM2 float64, substrate string, tags []string) string {
	perUnit, ok := baseDaysPer10M2[substrate]
	if !ok {
		perUnit = 1.2
	}
	days := areaM2 / 10 * perUnit
	for _, tag := range tags {
		days += issueExtraDays[tag]
	}
	days = math.Ceil(days*2) / 2

	switch {
	case days <= 1:
		return "circa 1 werkdag"
	case days <= 5:
		return fmt.Sprintf("circa %s werkdagen", formatDays(days))
	default:
		weeks := math.Ceil(days/5*10) / 10
		return fmt.Sprintf("circa %.1f werkweken", weeks)
	}
}

func formatDays(days float64) string {
	if days == math.Trunc(days) {
		return fmt.Sprintf("%.0f", days)
	}
	return fmt.Sprintf("%.1f", days)
}
