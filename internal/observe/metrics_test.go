package observe_test

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/singalong/internal/observe"
)

func TestNewMetrics_RecordsInstruments(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := observe.NewMetrics(provider)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordTick(ctx, 0.016)
	m.AddTokens(ctx, 3)
	m.AddWindowClosed(ctx, true)
	m.AddWindowClosed(ctx, false)
	m.AddRatification(ctx)
	m.AddSyncCorrection(ctx, "seek")
	m.AddRecognizerRestart(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	names := make(map[string]bool)
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			names[met.Name] = true
		}
	}

	want := []string{
		"singalong.tick.duration",
		"singalong.speech.tokens",
		"singalong.scoring.windows_closed",
		"singalong.scoring.ratifications",
		"singalong.audio.sync_corrections",
		"singalong.speech.restarts",
	}
	for _, n := range want {
		if !names[n] {
			t.Errorf("metric %q was not collected", n)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	// A zero-value Metrics (instruments never created) must not panic.
	var m *observe.Metrics
	ctx := context.Background()
	m.RecordTick(ctx, 1)
	m.AddTokens(ctx, 1)
	m.AddWindowClosed(ctx, true)
	m.AddRatification(ctx)
	m.AddSyncCorrection(ctx, "play")
	m.AddRecognizerRestart(ctx)

	empty := &observe.Metrics{}
	empty.RecordTick(ctx, 1)
	empty.AddTokens(ctx, 1)
}
