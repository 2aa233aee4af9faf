package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediwatch/internal/config"
	"mediwatch/internal/types"
)

// maxSpeechResponseSize caps the synthesized audio we accept (4 MB).
const maxSpeechResponseSize = 4 << 20

// SpeechClient calls the text-to-speech provider to synthesize alert
// announcements played in the nurse station. Returns raw MP3 bytes.
type SpeechClient struct {
	base    *BaseClient
	baseURL string
	apiKey  types.SecretString
	voiceID string
}

// NewSpeechClient constructs a speech client from config.
func NewSpeechClient(cfg config.SpeechConfig, opts ...BaseClientOption) *SpeechClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &SpeechClient{
		base:    NewBaseClient(httpClient, "speech", DefaultRetryPolicy(), "mediwatch/1.0", opts...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		voiceID: cfg.VoiceID,
	}
}

// speechRequest is the provider's synthesis contract.
type speechRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings map[string]any `json:"voice_settings,omitempty"`
}

// Synthesize converts text to MP3 audio bytes.
func (c *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: "eleven_turbo_v2",
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode speech request", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build speech request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSpeech, "speech service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamSpeech,
			fmt.Sprintf("speech service returned %d", resp.StatusCode),
			nil,
		)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechResponseSize))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSpeech, "failed to read audio response", err)
	}
	if len(audio) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamSpeech, "speech service returned empty audio", nil)
	}

	return audio, nil
}
