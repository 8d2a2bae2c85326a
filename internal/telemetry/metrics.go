package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/pagepack"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram

	// Output metrics
	AssetsEmittedTotal metric.Int64Counter
	AssetsInlinedTotal metric.Int64Counter
	BytesWrittenTotal  metric.Int64Counter

	// Preview server metrics
	RequestsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"pagepack.builds.total",
		metric.WithDescription("Total number of builds attempted"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"pagepack.builds.errors.total",
		metric.WithDescription("Total number of builds that failed"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"pagepack.builds.duration",
		metric.WithDescription("Duration of builds including lifecycle hooks"),
		metric.WithUnit("ms"),
	)

	m.AssetsEmittedTotal, _ = meter.Int64Counter(
		"pagepack.assets.emitted.total",
		metric.WithDescription("Total number of files written to the output directory"),
		metric.WithUnit("{file}"),
	)

	m.AssetsInlinedTotal, _ = meter.Int64Counter(
		"pagepack.assets.inlined.total",
		metric.WithDescription("Total number of files embedded as data URIs"),
		metric.WithUnit("{file}"),
	)

	m.BytesWrittenTotal, _ = meter.Int64Counter(
		"pagepack.assets.bytes_written.total",
		metric.WithDescription("Total bytes written by the bundler"),
		metric.WithUnit("By"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"pagepack.serve.requests.total",
		metric.WithDescription("Total number of preview server requests"),
		metric.WithUnit("{request}"),
	)

	return m
}
