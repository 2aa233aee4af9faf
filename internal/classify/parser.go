// Package classify is the strict parse-and-validate boundary between the
// free-form text the classification model returns and the typed
// ClassificationResult the detector consumes.
//
// The model is prompted to answer with a JSON object but routinely wraps it
// in markdown code fences or surrounding prose. Any response that cannot be
// extracted, decoded, and validated fails closed to a safe "normal, no
// emergency" result: a garbled model answer must never trigger or sustain an
// alert.
package classify

import (
	"encoding/json"
	"strings"
	"time"

	"mediwatch/internal/types"
)

// rawClassification mirrors the JSON contract the model is prompted to emit.
type rawClassification struct {
	Emergency   bool    `json:"emergency"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// ParseClassification extracts and validates a classification from raw model
// output. On any failure it returns the safe fallback and false.
//
// Validation rules:
//   - The extracted payload must decode as a JSON object.
//   - Category must be one of the known emergency categories.
//   - Confidence is clamped to [0,1].
func ParseClassification(raw string, now time.Time) (types.ClassificationResult, bool) {
	payload, ok := extractJSON(raw)
	if !ok {
		return Fallback(now), false
	}

	var rc rawClassification
	if err := json.Unmarshal([]byte(payload), &rc); err != nil {
		return Fallback(now), false
	}

	category := types.EmergencyCategory(strings.ToLower(strings.TrimSpace(rc.Category)))
	if !types.ValidCategory(category) {
		return Fallback(now), false
	}

	confidence := rc.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return types.ClassificationResult{
		Emergency:   rc.Emergency,
		Category:    category,
		Confidence:  confidence,
		Description: rc.Description,
		ObservedAt:  now,
	}, true
}

// Fallback is the safe result used when model output cannot be trusted.
func Fallback(now time.Time) types.ClassificationResult {
	return types.ClassificationResult{
		Emergency:  false,
		Category:   types.CategoryNormal,
		Confidence: 0,
		ObservedAt: now,
	}
}

// extractJSON locates the JSON object inside free-form model output. It
// strips markdown code fences first, then falls back to scanning for the
// outermost balanced brace pair so prose before or after the object is
// tolerated.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Prefer the contents of a fenced block when present.
	if fenced, ok := extractFenced(s); ok {
		s = fenced
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// extractFenced returns the body of the first markdown code fence, tolerating
// an optional language tag ("```json").
func extractFenced(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	body := s[open+3:]

	// Skip the language tag up to the first newline.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(body[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			body = body[nl+1:]
		}
	}

	closing := strings.Index(body, "```")
	if closing < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:closing]), true
}

// isLanguageTag reports whether s looks like a fence language tag rather than
// payload content.
func isLanguageTag(s string) bool {
	if len(s) > 16 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
