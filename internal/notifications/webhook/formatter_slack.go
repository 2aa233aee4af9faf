package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"mediwatch/internal/types"
)

// SlackFormatter formats alerts as Slack Block Kit JSON.
type SlackFormatter struct{}

// Platform returns the platform identifier.
func (f *SlackFormatter) Platform() Platform {
	return PlatformSlack
}

// SlackText is a Block Kit text object.
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackBlock is one Block Kit layout block.
type SlackBlock struct {
	Type     string       `json:"type"`
	Text     *SlackText   `json:"text,omitempty"`
	Fields   []*SlackText `json:"fields,omitempty"`
	Elements []*SlackText `json:"elements,omitempty"`
}

// SlackPayload is the incoming-webhook message body.
type SlackPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// titleCase capitalizes the first letter of an ASCII category name.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// urgencyEmoji maps fan-out urgency to a header emoji.
func urgencyEmoji(u types.UrgencyLevel) string {
	switch u {
	case types.UrgencyCritical:
		return "🚨"
	case types.UrgencyWarning:
		return "⚠️"
	default:
		return "👁️"
	}
}

// Format transforms an AlertMessage into Slack Block Kit JSON.
func (f *SlackFormatter) Format(msg *types.AlertMessage) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("slack formatter: message is nil")
	}

	title := fmt.Sprintf("%s %s detected in %s",
		urgencyEmoji(msg.Urgency), titleCase(string(msg.Category)), msg.Location)
	fallback := fmt.Sprintf("[%s] %s detected in %s",
		strings.ToUpper(string(msg.Urgency)), string(msg.Category), msg.Location)

	payload := SlackPayload{
		Text: fallback,
		Blocks: []SlackBlock{
			{
				Type: "header",
				Text: &SlackText{Type: "plain_text", Text: title},
			},
			{
				Type: "section",
				Fields: []*SlackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Patient*\n%s", msg.PatientID)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Location*\n%s", msg.Location)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence*\n%.0f%%", msg.Confidence*100)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Observed*\n%s", msg.ObservedAt.Format("15:04:05 MST"))},
				},
			},
		},
	}

	if msg.Description != "" {
		payload.Blocks = append(payload.Blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: msg.Description},
		})
	}

	payload.Blocks = append(payload.Blocks, SlackBlock{
		Type: "context",
		Elements: []*SlackText{
			{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Urgency*: %s | *Alert*: %s | MediWatch", string(msg.Urgency), msg.AlertID),
			},
		},
	})

	return json.Marshal(payload)
}

// ValidateResponse checks for Slack's soft-failure pattern where the API
// returns HTTP 200 but the body indicates an error.
func (f *SlackFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("slack: unexpected status %d", statusCode)
	}

	bodyStr := strings.TrimSpace(string(body))

	// Incoming webhooks return "ok" as plain text on success.
	if bodyStr == "" || bodyStr == "ok" {
		return nil
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err == nil {
		if ok, exists := resp["ok"]; exists {
			if okBool, isBool := ok.(bool); isBool && !okBool {
				errMsg := "unknown error"
				if e, isStr := resp["error"].(string); isStr {
					errMsg = e
				}
				return fmt.Errorf("slack: API error: %s", errMsg)
			}
		}
		return nil
	}

	// Known plain-text error responses.
	knownErrors := []string{
		"no_text",
		"channel_not_found",
		"channel_is_archived",
		"invalid_payload",
	}
	for _, known := range knownErrors {
		if bodyStr == known {
			return fmt.Errorf("slack: API error: %s", bodyStr)
		}
	}

	return nil
}
