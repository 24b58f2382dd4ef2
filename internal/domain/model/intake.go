package model

// IntakePayload is the original customer request a job is created from.
// Field validation at the web boundary covers shape only; business checks
// (unknown substrate, non-positive area) are pipeline concerns and surface
// as job failures.
type IntakePayload struct {
	Name      string   `json:"name" validate:"required"`
	Email     string   `json:"email" validate:"required,email"`
	Phone     string   `json:"phone" validate:"omitempty,min=6"`
	AreaM2    float64  `json:"area_m2"`
	Substrate string   `json:"substrate,omitempty"`
	ImageRefs []string `json:"image_refs,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

func (p IntakePayload) Clone() IntakePayload {
	c := p
	c.ImageRefs = append([]string(nil), p.ImageRefs...)
	return c
}
