package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-painting-orderflow/internal/metrics"
)

// Metrics writes counters to CloudWatch.
type Metrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetrics returns a CloudWatch backed metrics.Recorder.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{CloudWatch: client, Namespace: namespace, nowFunc: time.Now}
}

func (m *Metrics) Count(ctx context.Context, name string, n float64, dims ...metrics.Dimension) error {
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Value:      sdkaws.Float64(n),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  sdkaws.Time(m.nowFunc().UTC()),
	}
	for _, d := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  sdkaws.String(d.Name),
			Value: sdkaws.String(d.Value),
		})
	}
	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.Namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}

var _ metrics.Recorder = (*Metrics)(nil)
