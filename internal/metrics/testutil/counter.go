// Package testutil reads current metric values in tests without
// going through a registry gather.
package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// CounterValue returns the current value of one CounterVec series.
func CounterValue(tb testing.TB, vec *prometheus.CounterVec, labels ...string) float64 {
	tb.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(tb, err)
	return read(tb, counter).GetCounter().GetValue()
}

// GaugeValue returns the current value of one GaugeVec series.
func GaugeValue(tb testing.TB, vec *prometheus.GaugeVec, labels ...string) float64 {
	tb.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(tb, err)
	return read(tb, gauge).GetGauge().GetValue()
}

func read(tb testing.TB, metric prometheus.Metric) *dto.Metric {
	tb.Helper()

	var m dto.Metric
	require.NoError(tb, metric.Write(&m))
	return &m
}
