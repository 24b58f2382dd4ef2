// Package predictor provides signal-extraction adapters: a remote vision
// service client and a deterministic heuristic fallback.
package predictor

import (
	"context"
	"hash/fnv"
	"sort"

	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.Predictor = (*Heuristic)(nil)

var (
	substrateLabels = []string{"gipsplaat", "beton", "bestaand"}
	issueLabels     = []string{"vocht", "scheuren"}
)

// Heuristic is the degraded mode used when no learned model is available.
// It is fully deterministic: the same image refs always yield the same
// prediction, so re-submissions price identically.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Predict(_ context.Context, imageRefs []string, _ float64) (*model.Prediction, error) {
	if len(imageRefs) == 0 {
		// No photos to inspect; assume an existing surface at low confidence.
		return &model.Prediction{
			Substrate:   "bestaand",
			Issues:      []string{},
			Confidences: map[string]float64{"bestaand": 0.5},
		}, nil
	}

	refs := append([]string(nil), imageRefs...)
	sort.Strings(refs)
	hash := fnv.New64a()
	for _, ref := range refs {
		hash.Write([]byte(ref))
		hash.Write([]byte{0})
	}
	sum := hash.Sum64()

	substrate := substrateLabels[sum%uint64(len(substrateLabels))]
	conf := map[string]float64{substrate: 0.62}

	issues := []string{}
	for i, tag := range issueLabels {
		if sum>>(8+uint(i))&0x3 == 0 { // roughly one in four photos shows the issue
			issues = append(issues, tag)
			conf[tag] = 0.55
		}
	}

	return &model.Prediction{Substrate: substrate, Issues: issues, Confidences: conf}, nil
}
