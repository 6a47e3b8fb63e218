// Package telemetry provides OpenTelemetry instrumentation for the wallet
// sync server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the name used for the sync metrics meter
const SyncMetricsMeterName = "github.com/passforge/wallet-sync-server/sync"

// SyncMetrics holds the OpenTelemetry instruments for sync operation metrics
type SyncMetrics struct {
	batchDuration metric.Float64Histogram
	cycleOutcomes metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	batchDuration, err := meter.Float64Histogram(
		"wss_batch_duration_seconds",
		metric.WithDescription("Duration of full sync batches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	cycleOutcomes, err := meter.Int64Counter(
		"wss_cycle_outcomes_total",
		metric.WithDescription("Per-user sync cycle outcomes"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		batchDuration: batchDuration,
		cycleOutcomes: cycleOutcomes,
	}, nil
}

// RecordBatchDuration records the duration of a full sync batch
func (m *SyncMetrics) RecordBatchDuration(ctx context.Context, duration time.Duration, userCount int) {
	if m == nil || m.batchDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("users", userCount),
	}

	m.batchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCycleOutcome counts a single per-user cycle result by outcome tag
func (m *SyncMetrics) RecordCycleOutcome(ctx context.Context, outcome string) {
	if m == nil || m.cycleOutcomes == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("outcome", outcome),
	}

	m.cycleOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}
