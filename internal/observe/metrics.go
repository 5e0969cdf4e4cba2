// Package observe provides application-wide observability primitives for
// the karaoke engine: OpenTelemetry metric instruments and the provider
// setup that bridges them to Prometheus.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// package-level default [Metrics] instance ([Default]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all engine metrics.
const meterName = "github.com/MrWong99/singalong"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// TickDuration tracks the wall time of one animation tick in seconds.
	TickDuration metric.Float64Histogram

	// TokensIngested counts recognized final word tokens appended to the
	// recognition log.
	TokensIngested metric.Int64Counter

	// WindowsClosed counts listening windows closed during live play.
	// Use with attribute.String("result", "matched"|"missed").
	WindowsClosed metric.Int64Counter

	// Ratifications counts end-of-song ratification passes.
	Ratifications metric.Int64Counter

	// SyncCorrections counts times the vocal track was snapped back to
	// the instrumental clock. Use with attribute.String("cause", ...).
	SyncCorrections metric.Int64Counter

	// RecognizerRestarts counts automatic recognizer restarts after
	// transient errors.
	RecognizerRestarts metric.Int64Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide [Metrics] instance backed by the
// global OTel meter provider, creating it on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// A provider failing to create instruments leaves metrics
			// disabled rather than taking the engine down.
			m = &Metrics{}
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// NewMetrics creates all metric instruments on a meter from provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	m := &Metrics{}
	var err error

	m.TickDuration, err = meter.Float64Histogram(
		"singalong.tick.duration",
		metric.WithDescription("Wall time of one animation tick"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.TokensIngested, err = meter.Int64Counter(
		"singalong.speech.tokens",
		metric.WithDescription("Recognized final tokens appended to the log"),
	)
	if err != nil {
		return nil, err
	}

	m.WindowsClosed, err = meter.Int64Counter(
		"singalong.scoring.windows_closed",
		metric.WithDescription("Listening windows closed during live play"),
	)
	if err != nil {
		return nil, err
	}

	m.Ratifications, err = meter.Int64Counter(
		"singalong.scoring.ratifications",
		metric.WithDescription("End-of-song ratification passes"),
	)
	if err != nil {
		return nil, err
	}

	m.SyncCorrections, err = meter.Int64Counter(
		"singalong.audio.sync_corrections",
		metric.WithDescription("Vocal track re-snaps to the instrumental clock"),
	)
	if err != nil {
		return nil, err
	}

	m.RecognizerRestarts, err = meter.Int64Counter(
		"singalong.speech.restarts",
		metric.WithDescription("Recognizer restarts after transient errors"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTick records one tick duration, if the instrument is configured.
func (m *Metrics) RecordTick(ctx context.Context, seconds float64) {
	if m == nil || m.TickDuration == nil {
		return
	}
	m.TickDuration.Record(ctx, seconds)
}

// AddTokens records n ingested tokens, if the instrument is configured.
func (m *Metrics) AddTokens(ctx context.Context, n int64) {
	if m == nil || m.TokensIngested == nil {
		return
	}
	m.TokensIngested.Add(ctx, n)
}

// AddWindowClosed records one window close with its result attribute.
func (m *Metrics) AddWindowClosed(ctx context.Context, matched bool) {
	if m == nil || m.WindowsClosed == nil {
		return
	}
	result := "missed"
	if matched {
		result = "matched"
	}
	m.WindowsClosed.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// AddRatification records one ratification pass.
func (m *Metrics) AddRatification(ctx context.Context) {
	if m == nil || m.Ratifications == nil {
		return
	}
	m.Ratifications.Add(ctx, 1)
}

// AddSyncCorrection records one re-snap of the vocal track with the
// operation that triggered it.
func (m *Metrics) AddSyncCorrection(ctx context.Context, cause string) {
	if m == nil || m.SyncCorrections == nil {
		return
	}
	m.SyncCorrections.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", cause)))
}

// AddRecognizerRestart records one automatic recognizer restart.
func (m *Metrics) AddRecognizerRestart(ctx context.Context) {
	if m == nil || m.RecognizerRestarts == nil {
		return
	}
	m.RecognizerRestarts.Add(ctx, 1)
}
