// Package config defines the global configuration structure for the MediWatch
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"mediwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the MediWatch service.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"mediwatch-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Vision        VisionConfig
	Classifier    ClassifierConfig
	Speech        SpeechConfig
	Risk          RiskConfig
	Monitor       MonitorConfig
	Webhook       WebhookConfig
	Archive       ArchiveConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	AlertQueueURL string `envconfig:"SQS_ALERTS" validate:"required,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// VisionConfig points at the person-detection sidecar.
type VisionConfig struct {
	BaseURL string        `envconfig:"VISION_BASE_URL" validate:"required,url"`
	Timeout time.Duration `envconfig:"VISION_TIMEOUT" default:"10s"`
}

// ClassifierConfig holds the emergency-classification model settings.
type ClassifierConfig struct {
	BaseURL string        `envconfig:"CLASSIFIER_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	APIKey  SecretString  `envconfig:"CLASSIFIER_API_KEY" validate:"required"`
	Model   string        `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.0-flash"`
	Timeout time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"15s"`
}

// SpeechConfig holds the text-to-speech provider settings.
type SpeechConfig struct {
	BaseURL string        `envconfig:"SPEECH_BASE_URL" default:"https://api.elevenlabs.io/v1"`
	APIKey  SecretString  `envconfig:"SPEECH_API_KEY"`
	VoiceID string        `envconfig:"SPEECH_VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM"`
	Timeout time.Duration `envconfig:"SPEECH_TIMEOUT" default:"20s"`
}

// RiskConfig holds the external risk-prediction service settings.
// BaseURL and APIKey may be empty: the service then runs on the local
// fallback scorer exclusively.
type RiskConfig struct {
	BaseURL string        `envconfig:"RISK_BASE_URL"`
	APIKey  SecretString  `envconfig:"RISK_API_KEY"`
	Timeout time.Duration `envconfig:"RISK_TIMEOUT" default:"10s"`
}

// MonitorConfig tunes the per-session emergency detector.
type MonitorConfig struct {
	ConfidenceThreshold float64       `envconfig:"MONITOR_CONFIDENCE_THRESHOLD" default:"0.7"`
	CooldownDuration    time.Duration `envconfig:"MONITOR_COOLDOWN" default:"5s"`
	TraceCapacity       int           `envconfig:"MONITOR_TRACE_CAPACITY" default:"256"`
}

// WebhookConfig holds settings for outbound webhook delivery.
type WebhookConfig struct {
	UserAgent      string        `envconfig:"WEBHOOK_USER_AGENT" default:"MediWatch-Alerts/1.0"`
	DefaultTimeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	SigningSecret  SecretString  `envconfig:"WEBHOOK_SIGNING_SECRET"`
	TargetURL      string        `envconfig:"WEBHOOK_TARGET_URL"`
}

// ArchiveConfig controls where session trace archives are written.
type ArchiveConfig struct {
	Dir string `envconfig:"ARCHIVE_DIR" default:"/var/lib/mediwatch/traces"`
}

// SecurityConfig holds authentication and CORS settings. ServiceTokenHash is
// a bcrypt hash of the bearer token presented by the dashboard.
type SecurityConfig struct {
	ServiceTokenHash   SecretString `envconfig:"SERVICE_TOKEN_HASH" validate:"required"`
	CorsAllowedOrigins []string     `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"MediWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
