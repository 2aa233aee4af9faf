// Package main is the entrypoint for the Alert Worker Lambda function.
//
// The Alert Worker consumes alert messages from the alert SQS queue and
// delivers them to the configured webhook endpoint. It handles
// platform-specific formatting (Slack, generic JSON), HMAC payload signing,
// and retry classification.
//
// Cold start:
//  1. Initialize structured logger.
//  2. Load AWS SDK configuration.
//  3. Read webhook settings from environment variables.
//  4. Initialize the webhook channel and CloudWatch metrics recorder.
//  5. Register the handler and call lambda.Start.
//
// Lambda SQS integration uses partial batch responses: messages whose
// delivery failed transiently are returned in batchItemFailures so SQS
// redelivers only those. Permanent failures (4xx, gone endpoints, unparseable
// bodies) are acknowledged and dropped after logging.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"mediwatch/internal/config"
	"mediwatch/internal/notifications"
	"mediwatch/internal/notifications/webhook"
	"mediwatch/internal/types"
)

// Handler holds the dependencies for the alert worker Lambda handler.
type Handler struct {
	channel   *webhook.Channel
	metrics   *notifications.MetricsRecorder
	targetURL string
	logger    *slog.Logger
}

// Handle processes an SQS event containing one or more alert messages. Each
// message is processed independently; transient delivery failures are
// reported as partial batch failures for SQS-driven retry.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "alert delivery failed, message will be retried",
				"message_id", record.MessageId,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processMessage delivers a single alert message to the webhook endpoint.
// A non-nil return means the message should be redelivered by SQS.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	start := time.Now()

	var msg types.AlertMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		// Permanent parse failure; retrying cannot fix the body.
		h.logger.ErrorContext(ctx, "failed to unmarshal alert message, dropping",
			"message_id", record.MessageId,
			"error", err,
		)
		return nil
	}

	logger := h.logger.With(
		"alert_id", msg.AlertID,
		"session_id", msg.SessionID,
		"patient_id", msg.PatientID,
		"category", string(msg.Category),
		"urgency", string(msg.Urgency),
		"trace_id", msg.TraceID,
	)
	logger.InfoContext(ctx, "processing alert message")

	payload, err := h.channel.Format(ctx, &msg, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to format alert payload, dropping", "error", err)
		return nil
	}

	deliverErr := h.channel.Deliver(ctx, payload, h.targetURL)
	latency := time.Since(start)

	if deliverErr == nil {
		h.metrics.RecordDelivery(ctx, types.ChannelWebhook, notifications.ResultSuccess, latency)
		logger.InfoContext(ctx, "alert delivered", "latency_ms", latency.Milliseconds())
		return nil
	}

	if h.channel.ShouldRetry(deliverErr) {
		h.metrics.RecordDelivery(ctx, types.ChannelWebhook, notifications.ResultRetry, latency)
		return deliverErr
	}

	// Permanent failure: acknowledge so SQS does not spin on it.
	h.metrics.RecordDelivery(ctx, types.ChannelWebhook, notifications.ResultFailure, latency)
	logger.ErrorContext(ctx, "alert delivery permanently failed, dropping", "error", deliverErr)
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("alert worker Lambda initializing (cold start)")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	webhookCfg := config.WebhookConfig{
		UserAgent:      os.Getenv("WEBHOOK_USER_AGENT"),
		DefaultTimeout: 10 * time.Second,
		SigningSecret:  types.SecretString(os.Getenv("WEBHOOK_SIGNING_SECRET")),
		TargetURL:      os.Getenv("WEBHOOK_TARGET_URL"),
	}
	if webhookCfg.UserAgent == "" {
		webhookCfg.UserAgent = "MediWatch-Alerts/1.0"
	}
	if timeoutStr := os.Getenv("WEBHOOK_TIMEOUT"); timeoutStr != "" {
		if d, parseErr := time.ParseDuration(timeoutStr); parseErr == nil {
			webhookCfg.DefaultTimeout = d
		}
	}
	if webhookCfg.TargetURL == "" {
		logger.Error("WEBHOOK_TARGET_URL is required")
		os.Exit(1)
	}

	cwClient := cloudwatch.NewFromConfig(awsCfg)
	metrics := notifications.NewMetricsRecorder(cwClient, os.Getenv("METRIC_NAMESPACE"), logger)

	handler := &Handler{
		channel:   webhook.NewChannel(webhookCfg, logger),
		metrics:   metrics,
		targetURL: webhookCfg.TargetURL,
		logger:    logger,
	}

	logger.Info("alert worker Lambda initialized",
		"target_url", webhookCfg.TargetURL,
		"user_agent", webhookCfg.UserAgent,
		"timeout", webhookCfg.DefaultTimeout.String(),
		"signing_enabled", webhookCfg.SigningSecret.Unmask() != "",
	)

	lambda.Start(handler.Handle)
}
