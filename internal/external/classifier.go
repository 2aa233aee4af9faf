package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mediwatch/internal/config"
	"mediwatch/internal/types"
)

// classifierPrompt instructs the vision-language model to answer with the
// JSON contract the classify package parses. The model frequently decorates
// its answer anyway, which is why the parse boundary exists.
const classifierPrompt = `You are monitoring a care-facility patient through a camera frame.
Assess the frame for medical emergencies and respond with ONLY a JSON object:
{"emergency": <bool>, "category": "<fall|choking|seizure|unconscious|distress|normal>", "confidence": <0..1>, "description": "<one sentence>"}`

// ClassifierClient calls the generative vision model's generateContent REST
// endpoint to classify a frame for emergencies. The raw text answer must go
// through classify.ParseClassification before it touches the detector.
type ClassifierClient struct {
	base    *BaseClient
	baseURL string
	apiKey  types.SecretString
	model   string
}

// NewClassifierClient constructs a classifier client from config.
func NewClassifierClient(cfg config.ClassifierConfig, opts ...BaseClientOption) *ClassifierClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &ClassifierClient{
		base:    NewBaseClient(httpClient, "classifier", TickRetryPolicy(), "mediwatch/1.0", opts...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// generateContent request/response shapes, reduced to the fields we use.
type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *generateInline `json:"inline_data,omitempty"`
}

type generateInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ClassifyFrame submits one frame (base64 data URL) and returns the model's
// raw text answer. Callers parse it through the classify boundary; this
// client only handles transport.
func (c *ClassifierClient) ClassifyFrame(ctx context.Context, frame string) (string, error) {
	mimeType, data, err := splitDataURL(frame)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeValidationInvalidFrame, "frame is not a base64 image data URL", err)
	}

	var reqBody generateContentRequest
	reqBody.Contents = make([]struct {
		Parts []generatePart `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = []generatePart{
		{Text: classifierPrompt},
		{InlineData: &generateInline{MimeType: mimeType, Data: data}},
	}
	reqBody.GenerationConfig.Temperature = 0.1

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode classification request", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey.Unmask()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build classification request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamClassifier, "classifier unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewAppError(
			types.ErrCodeUpstreamClassifier,
			fmt.Sprintf("classifier returned %d", resp.StatusCode),
			nil,
		)
	}

	var gr generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamClassifier, "invalid classifier response", err)
	}

	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", types.NewAppError(types.ErrCodeUpstreamClassifier, "classifier returned no candidates", nil)
	}

	var text strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// splitDataURL splits "data:image/jpeg;base64,XXXX" into mime type and
// payload. Raw base64 without a data URL prefix is accepted as JPEG.
func splitDataURL(frame string) (mimeType, data string, err error) {
	if !strings.HasPrefix(frame, "data:") {
		if frame == "" {
			return "", "", fmt.Errorf("empty frame")
		}
		return "image/jpeg", frame, nil
	}

	rest := strings.TrimPrefix(frame, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", "", fmt.Errorf("missing base64 marker")
	}

	mimeType = rest[:sep]
	data = rest[sep+len(";base64,"):]
	if mimeType == "" || data == "" {
		return "", "", fmt.Errorf("malformed data URL")
	}
	return mimeType, data, nil
}
