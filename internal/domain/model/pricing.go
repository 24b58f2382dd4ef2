package model

// RoundingPolicy selects how currency amounts are rounded to the minor unit.
type RoundingPolicy string

const (
	RoundHalfUp   RoundingPolicy = "half_up"
	RoundHalfEven RoundingPolicy = "half_even"
)

// TenantRuleSet is one tenant's pricing configuration. Immutable per pricing
// call; hot reloads swap whole snapshots, never mutate in place.
type TenantRuleSet struct {
	BasePerM2  map[string]float64 `yaml:"base_per_m2" json:"base_per_m2"`
	Surcharge  map[string]float64 `yaml:"surcharge" json:"surcharge"`
	MinTotal   float64            `yaml:"min_total" json:"min_total"`
	VATPercent float64            `yaml:"vat_percent" json:"vat_percent"`
	Rounding   RoundingPolicy     `yaml:"rounding" json:"rounding"`
	Currency   string             `yaml:"currency" json:"currency"`
}

// PriceBreakdown is the pricing stage output. Derived value, persisted only
// as part of its owning job.
type PriceBreakdown struct {
	Subtotal          float64  `json:"subtotal"`
	SurchargeFraction float64  `json:"surcharge_fraction_applied"`
	MinimumApplied    bool     `json:"minimum_applied"`
	VATAmount         float64  `json:"vat_amount"`
	Total             float64  `json:"total"`
	Currency          string   `json:"currency"`
	Assumptions       []string `json:"assumptions"`
	LeadTimeEstimate  string   `json:"lead_time_estimate"`
}

func (b *PriceBreakdown) Clone() *PriceBreakdown {
	c := *b
	c.Assumptions = append([]string(nil), b.Assumptions...)
	return &c
}
