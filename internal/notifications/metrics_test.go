package notifications

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediwatch/internal/types"
)

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestRecordDelivery_PublishesAttemptAndLatency(t *testing.T) {
	mock := &mockCloudWatch{}
	rec := NewMetricsRecorder(mock, "MediWatch", slog.New(slog.DiscardHandler))

	rec.RecordDelivery(t.Context(), types.ChannelWebhook, ResultSuccess, 250*time.Millisecond)

	require.Len(t, mock.inputs, 1)
	input := mock.inputs[0]
	assert.Equal(t, "MediWatch", *input.Namespace)
	require.Len(t, input.MetricData, 2)

	attempt := input.MetricData[0]
	assert.Equal(t, types.MetricDeliveryAttempt, *attempt.MetricName)
	assert.Equal(t, float64(1), *attempt.Value)
	require.Len(t, attempt.Dimensions, 2)
	assert.Equal(t, types.DimChannel, *attempt.Dimensions[0].Name)
	assert.Equal(t, "webhook", *attempt.Dimensions[0].Value)
	assert.Equal(t, types.DimResult, *attempt.Dimensions[1].Name)
	assert.Equal(t, ResultSuccess, *attempt.Dimensions[1].Value)

	latency := input.MetricData[1]
	assert.Equal(t, types.MetricDeliveryLatency, *latency.MetricName)
	assert.Equal(t, float64(250), *latency.Value)
}

func TestRecordDelivery_DefaultNamespace(t *testing.T) {
	mock := &mockCloudWatch{}
	rec := NewMetricsRecorder(mock, "", slog.New(slog.DiscardHandler))

	rec.RecordDelivery(t.Context(), types.ChannelWebhook, ResultFailure, time.Second)

	require.Len(t, mock.inputs, 1)
	assert.Equal(t, types.MetricNamespace, *mock.inputs[0].Namespace)
}

func TestRecordDelivery_PublishFailureDoesNotPanic(t *testing.T) {
	mock := &mockCloudWatch{err: errors.New("throttled")}
	rec := NewMetricsRecorder(mock, "MediWatch", slog.New(slog.DiscardHandler))

	assert.NotPanics(t, func() {
		rec.RecordDelivery(t.Context(), types.ChannelWebhook, ResultRetry, time.Second)
	})
}
