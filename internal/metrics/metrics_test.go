package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myndhyve/relay-agent/internal/metrics"
)

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	_ = c.(prometheus.Metric).Write(m)
	return m.GetCounter().GetValue()
}

func getGaugeVecValue(t *testing.T, gauge *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	g, err := gauge.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	_ = g.(prometheus.Metric).Write(m)
	return m.GetGauge().GetValue()
}

func TestInboundForwarded_IncrementsByChannel(t *testing.T) {
	before := getCounterValue(t, metrics.InboundForwarded, "imessage")
	metrics.InboundForwarded.WithLabelValues("imessage").Inc()
	after := getCounterValue(t, metrics.InboundForwarded, "imessage")
	assert.Equal(t, float64(1), after-before)
}

func TestOutboundDelivered_TracksSuccessLabel(t *testing.T) {
	before := getCounterValue(t, metrics.OutboundDelivered, "imessage", "true")
	metrics.OutboundDelivered.WithLabelValues("imessage", "true").Inc()
	after := getCounterValue(t, metrics.OutboundDelivered, "imessage", "true")
	assert.Equal(t, float64(1), after-before)
}

func TestWatermarkGauge_SetsPerChannel(t *testing.T) {
	metrics.Watermark.WithLabelValues("imessage").Set(50)
	assert.Equal(t, float64(50), getGaugeVecValue(t, metrics.Watermark, "imessage"))

	metrics.Watermark.WithLabelValues("imessage").Set(51)
	assert.Equal(t, float64(51), getGaugeVecValue(t, metrics.Watermark, "imessage"))
}

func TestMetricsRegistered(t *testing.T) {
	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have registered metrics")
}
