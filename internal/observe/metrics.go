// Package observe provides application-wide observability primitives for
// Vocifer: OpenTelemetry metrics, tracing helpers, and structured logging
// glue.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Vocifer metrics.
const meterName = "github.com/MrWong99/vocifer"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SelectionDuration tracks voice-selection pipeline latency.
	SelectionDuration metric.Float64Histogram

	// SynthesisDuration tracks vendor speech-synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// CacheHits counts synthesis-cache lookups that were served from disk.
	CacheHits metric.Int64Counter

	// CacheMisses counts synthesis-cache lookups that required synthesis.
	CacheMisses metric.Int64Counter

	// AssignmentsPersisted counts new voice assignments written to the
	// store. Use with attribute: attribute.String("assigned_by", ...)
	AssignmentsPersisted metric.Int64Counter

	// UnmappedIdentities counts identities no rule layer could resolve.
	UnmappedIdentities metric.Int64Counter

	// --- Error counters ---

	// SynthesisErrors counts vendor synthesis failures. Use with
	// attributes: attribute.String("provider", ...), attribute.String("recoverable", ...)
	SynthesisErrors metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Selection
// is in-process and fast; synthesis crosses the network and dominates the
// upper buckets.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SelectionDuration, err = m.Float64Histogram("vocifer.selection.duration",
		metric.WithDescription("Latency of the voice-selection pipeline."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("vocifer.synthesis.duration",
		metric.WithDescription("Latency of vendor speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CacheHits, err = m.Int64Counter("vocifer.cache.hits",
		metric.WithDescription("Synthesis-cache lookups served from disk."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("vocifer.cache.misses",
		metric.WithDescription("Synthesis-cache lookups that required synthesis."),
	); err != nil {
		return nil, err
	}
	if met.AssignmentsPersisted, err = m.Int64Counter("vocifer.assignments.persisted",
		metric.WithDescription("Voice assignments written to the store."),
	); err != nil {
		return nil, err
	}
	if met.UnmappedIdentities, err = m.Int64Counter("vocifer.identities.unmapped",
		metric.WithDescription("Identities no voice rule layer could resolve."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("vocifer.synthesis.errors",
		metric.WithDescription("Vendor synthesis failures."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance backed by the
// global OTel meter provider. Repeated calls return the same pointer. Panics
// if instrument creation fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAssignment is a convenience method that records a persisted
// assignment with the standard attribute set.
func (m *Metrics) RecordAssignment(ctx context.Context, provider string, assignedBy string) {
	m.AssignmentsPersisted.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("assigned_by", assignedBy),
		),
	)
}

// RecordUnmappedIdentity is a convenience method that records an identity no
// rule layer could resolve.
func (m *Metrics) RecordUnmappedIdentity(ctx context.Context, provider string) {
	m.UnmappedIdentities.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordSynthesisError is a convenience method that records a vendor
// synthesis failure.
func (m *Metrics) RecordSynthesisError(ctx context.Context, provider string, recoverable bool) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("recoverable", recoverable),
	)
	m.SynthesisErrors.Add(ctx, 1, attrs)
}
