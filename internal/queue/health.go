package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAttributeGetter abstracts the SQS GetQueueAttributes operation.
type SQSAttributeGetter interface {
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// HealthProbe verifies the alerts queue is reachable by fetching its
// attributes. Wired into the /health endpoint as "alert_queue".
type HealthProbe struct {
	client   SQSAttributeGetter
	queueURL string
}

// NewHealthProbe creates a probe for the given queue.
func NewHealthProbe(client SQSAttributeGetter, queueURL string) *HealthProbe {
	return &HealthProbe{client: client, queueURL: queueURL}
}

// Name identifies the probe in health responses.
func (p *HealthProbe) Name() string { return "alert_queue" }

// Check fetches the queue attributes to confirm reachability.
func (p *HealthProbe) Check(ctx context.Context) error {
	_, err := p.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(p.queueURL),
	})
	if err != nil {
		return fmt.Errorf("queue: alerts queue unreachable: %w", err)
	}
	return nil
}
