package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"quote-orchestrator/internal/domain/model"
	"quote-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.Predictor = (*HTTPClient)(nil)

// HTTPClient calls a remote vision service over JSON.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	ImageRefs []string `json:"image_refs"`
	AreaM2    float64  `json:"area_m2"`
}

type predictResponse struct {
	Substrate   string             `json:"substrate"`
	Issues      []string           `json:"issues"`
	Confidences map[string]float64 `json:"confidences"`
}

func (c *HTTPClient) Predict(ctx context.Context, imageRefs []string, areaM2 float64) (*model.Prediction, error) {
	body, err := json.Marshal(predictRequest{ImageRefs: imageRefs, AreaM2: areaM2})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("predict service returned %d: %s", resp.StatusCode, b)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	if pr.Substrate == "" {
		return nil, fmt.Errorf("predict service returned empty substrate")
	}
	return &model.Prediction{
		Substrate:   pr.Substrate,
		Issues:      pr.Issues,
		Confidences: pr.Confidences,
	}, nil
}
