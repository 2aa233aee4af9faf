package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"mediwatch/internal/config"
	"mediwatch/internal/types"
)

// RiskClient calls the external risk-prediction service. The service is
// optional: when base URL or API key are absent the client reports itself
// unconfigured and the triage service runs on the local scorer alone.
type RiskClient struct {
	base    *BaseClient
	baseURL string
	apiKey  types.SecretString
}

// NewRiskClient constructs a risk client from config.
func NewRiskClient(cfg config.RiskConfig, opts ...BaseClientOption) *RiskClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &RiskClient{
		base:    NewBaseClient(httpClient, "risk", DefaultRetryPolicy(), "mediwatch/1.0", opts...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// Configured reports whether the upstream credentials are present.
func (c *RiskClient) Configured() bool {
	return c.baseURL != "" && c.apiKey.Unmask() != ""
}

// Predict submits the patient snapshot and returns the upstream prediction.
// The Source field is forced to the upstream marker regardless of what the
// service claims about itself.
func (c *RiskClient) Predict(ctx context.Context, snapshot types.PatientSnapshot) (*types.RiskPrediction, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode risk request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predict", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build risk request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamRisk, "risk service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamRisk,
			fmt.Sprintf("risk service returned %d", resp.StatusCode),
			nil,
		)
	}

	var pred types.RiskPrediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamRisk, "invalid risk response", err)
	}

	pred.Source = types.RiskSourceUpstream
	return &pred, nil
}
