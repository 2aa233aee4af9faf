package webhook

import (
	"strings"

	"mediwatch/internal/types"
)

// Platform identifies a webhook destination's payload dialect.
type Platform string

const (
	PlatformSlack   Platform = "slack"
	PlatformGeneric Platform = "generic"
)

// Formatter renders an AlertMessage into a platform-specific payload and
// validates the platform's response semantics.
type Formatter interface {
	Platform() Platform
	Format(msg *types.AlertMessage) ([]byte, error)

	// ValidateResponse checks a 2xx response body for platform-specific
	// soft failures (e.g., Slack's HTTP 200 with an error body).
	ValidateResponse(statusCode int, body []byte) error
}

// Registry maps webhook URLs to their platform formatters.
type Registry struct {
	formatters map[Platform]Formatter
}

// NewRegistry creates a Registry with the built-in formatters.
func NewRegistry() *Registry {
	return &Registry{
		formatters: map[Platform]Formatter{
			PlatformSlack:   &SlackFormatter{},
			PlatformGeneric: &GenericFormatter{},
		},
	}
}

// Detect inspects the destination URL and channel config to pick a platform.
// An explicit platform_override in config wins; otherwise URL patterns
// decide; anything unrecognized is generic.
func (r *Registry) Detect(url string, config map[string]any) Platform {
	if config != nil {
		if override, ok := config["platform_override"].(string); ok && override != "" {
			p := Platform(override)
			if _, exists := r.formatters[p]; exists {
				return p
			}
		}
	}

	if strings.Contains(strings.ToLower(url), "hooks.slack.com") {
		return PlatformSlack
	}
	return PlatformGeneric
}

// Get returns the formatter for the platform, falling back to generic.
func (r *Registry) Get(p Platform) Formatter {
	if f, ok := r.formatters[p]; ok {
		return f
	}
	return r.formatters[PlatformGeneric]
}
