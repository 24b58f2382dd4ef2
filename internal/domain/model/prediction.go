package model

// Prediction is the signal-extraction stage output: a substrate label, the
// detected issue tags and a confidence per tag.
type Prediction struct {
	Substrate   string             `json:"substrate"`
	Issues      []string           `json:"issues"`
	Confidences map[string]float64 `json:"confidences"`
}

func (p *Prediction) Clone() *Prediction {
	c := &Prediction{Substrate: p.Substrate}
	c.Issues = append([]string(nil), p.Issues...)
	if p.Confidences != nil {
		c.Confidences = make(map[string]float64, len(p.Confidences))
		for k, v := range p.Confidences {
			c.Confidences[k] = v
		}
	}
	return c
}
