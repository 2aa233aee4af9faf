// Package notifications holds the delivery-side telemetry shared by the
// alert worker's channels.
package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"mediwatch/internal/types"
)

// Delivery attempt results recorded as the Result dimension.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultRetry   = "retry"
)

// CloudWatchClient abstracts the PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsRecorder publishes alert delivery metrics to CloudWatch. Publish
// failures are logged and dropped; telemetry never blocks a delivery.
type MetricsRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewMetricsRecorder creates a recorder publishing into the given namespace.
func NewMetricsRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *MetricsRecorder {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &MetricsRecorder{client: client, namespace: namespace, logger: logger}
}

// RecordDelivery emits one delivery attempt: a count under
// AlertDeliveryAttempt and the latency under AlertDeliveryLatency, both
// dimensioned by channel and result.
func (r *MetricsRecorder) RecordDelivery(ctx context.Context, channel types.ChannelType, result string, latency time.Duration) {
	dims := []cwTypes.Dimension{
		{Name: aws.String(types.DimChannel), Value: aws.String(string(channel))},
		{Name: aws.String(types.DimResult), Value: aws.String(result)},
	}

	now := time.Now().UTC()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(r.namespace),
		MetricData: []cwTypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricDeliveryAttempt),
				Value:      aws.Float64(1),
				Unit:       cwTypes.StandardUnitCount,
				Timestamp:  aws.Time(now),
				Dimensions: dims,
			},
			{
				MetricName: aws.String(types.MetricDeliveryLatency),
				Value:      aws.Float64(float64(latency.Milliseconds())),
				Unit:       cwTypes.StandardUnitMilliseconds,
				Timestamp:  aws.Time(now),
				Dimensions: dims,
			},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.client.PutMetricData(ctx, input); err != nil {
		r.logger.WarnContext(ctx, "failed to publish delivery metrics",
			"channel", string(channel), "result", result, "error", err)
	}
}
