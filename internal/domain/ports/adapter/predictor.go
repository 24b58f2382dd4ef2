package adapter

import (
	"context"

	"quote-orchestrator/internal/domain/model"
)

// Predictor extracts a substrate label and issue tags from intake photos.
// Implementations may call a remote vision service or fall back to a
// deterministic heuristic when no learned model is available.
type Predictor interface {
	Predict(ctx context.Context, imageRefs []string, areaM2 float64) (*model.Prediction, error)
}
