// Package mlclient scores feature vectors through a remote model service.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Client implements domain.Predictor against a model service exposing
// POST /predict with {"features": [[rainfall_mm_hr, drainage_level_m, flow_rate_lps]]}
// and answering {"predictions": [level]}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a model service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Features [][]float64 `json:"features"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Predict implements domain.Predictor.
func (c *Client) Predict(ctx context.Context, f domain.FeatureVector) (float64, error) {
	body, err := json.Marshal(predictRequest{
		Features: [][]float64{{f.RainfallMMPerHr, f.DrainageLevelM, f.FlowRateLPS}},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: marshal request: %w", domain.ErrPrediction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", domain.ErrPrediction, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: predict request: %w", domain.ErrPrediction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: model service status %d: %s", domain.ErrPrediction, resp.StatusCode, msg)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %w", domain.ErrPrediction, err)
	}
	if len(out.Predictions) != 1 {
		return 0, fmt.Errorf("%w: expected 1 prediction, got %d", domain.ErrPrediction, len(out.Predictions))
	}
	level := out.Predictions[0]
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return 0, fmt.Errorf("%w: non-finite prediction", domain.ErrPrediction)
	}
	return level, nil
}
