// Package queue provides the SQS-based producer that dispatches alert
// fan-out messages to the notification workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"mediwatch/internal/config"
	"mediwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends AlertMessages to the alerts queue. Message attributes
// carry category and urgency so workers can filter without decoding the
// body.
type Publisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// Compile-time assertion that Publisher implements the domain interface.
var _ types.AlertPublisher = (*Publisher)(nil)

// NewPublisher creates a Publisher for the alerts queue configured in
// AWSConfig.
func NewPublisher(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: awsCfg.AlertQueueURL,
		logger:   logger,
	}
}

// PublishAlert serializes the message to JSON and dispatches it.
func (p *Publisher) PublishAlert(ctx context.Context, msg types.AlertMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal AlertMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"category": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Category)),
			},
			"urgency": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Urgency)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send AlertMessage to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "alert message sent",
		"queue_url", p.queueURL,
		"message_id", msg.MessageID,
		"trace_id", msg.TraceID,
		"alert_id", msg.AlertID,
		"category", string(msg.Category),
		"urgency", string(msg.Urgency),
	)

	return nil
}
