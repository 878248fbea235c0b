package aws

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes per-request datums to CloudWatch.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics writing into namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// RecordRequest writes a latency and a count datum dimensioned by operation
// and status code. A nil receiver is a no-op so callers can leave metrics off.
func (m *Metrics) RecordRequest(ctx context.Context, operation string, status int, duration time.Duration) error {
	if m == nil || m.client == nil {
		return nil
	}

	now := m.nowFunc()
	dims := []cwtypes.Dimension{
		{Name: sdkaws.String("Operation"), Value: sdkaws.String(operation)},
		{Name: sdkaws.String("StatusCode"), Value: sdkaws.String(strconv.Itoa(status))},
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String("RequestLatency"),
				Dimensions: dims,
				Value:      sdkaws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Timestamp:  sdkaws.Time(now),
			},
			{
				MetricName: sdkaws.String("RequestCount"),
				Dimensions: dims,
				Value:      sdkaws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  sdkaws.Time(now),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
