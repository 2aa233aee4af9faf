package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mediwatch/internal/config"
	"mediwatch/internal/types"
)

// VisionClient calls the person-detection sidecar (a YOLO model behind a
// small HTTP wrapper). The dashboard uses the bounding boxes for its overlay;
// the analyze pipeline uses the person count as a cheap pre-filter.
type VisionClient struct {
	base    *BaseClient
	baseURL string
	clock   types.Clock
}

// NewVisionClient constructs a vision client from config.
func NewVisionClient(cfg config.VisionConfig, clock types.Clock, opts ...BaseClientOption) *VisionClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &VisionClient{
		base:    NewBaseClient(httpClient, "vision", TickRetryPolicy(), "mediwatch/1.0", opts...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		clock:   clock,
	}
}

// visionRequest is the sidecar's detect contract. Location is optional and
// only used by the sidecar for logging.
type visionRequest struct {
	Frame    string `json:"frame"`
	Location string `json:"location,omitempty"`
}

// visionResponse mirrors the sidecar's response shape.
type visionResponse struct {
	Persons []types.BoundingBox `json:"persons"`
}

// DetectPersons submits one frame (base64 data URL) and returns the detected
// person bounding boxes. An empty Persons slice is a valid answer: the model
// saw nobody, or the sidecar degraded to its no-detection fallback.
func (c *VisionClient) DetectPersons(ctx context.Context, frame, location string) (*types.DetectionResult, error) {
	body, err := json.Marshal(visionRequest{Frame: frame, Location: location})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode detection request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build detection request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamVision, "vision sidecar unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamVision,
			fmt.Sprintf("vision sidecar returned %d", resp.StatusCode),
			nil,
		)
	}

	var vr visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamVision, "invalid detection response", err)
	}

	observedAt := time.Time{}
	if c.clock != nil {
		observedAt = c.clock.Now()
	}

	return &types.DetectionResult{
		Persons:    vr.Persons,
		ObservedAt: observedAt,
	}, nil
}
