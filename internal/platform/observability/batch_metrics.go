package observability

import (
	"context"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"

	"image-resizer-go/internal/domain/eventbus"
)

// Metric names emitted for every batch.
const (
	MetricBatchItems    = "resize.batch.items"
	MetricBatchFailures = "resize.batch.failures"
	MetricBatchDuration = "resize.batch.duration_ms"
	MetricImageFailed   = "resize.image.failed"
)

// BatchStats aggregates batch events for status endpoints.
type BatchStats struct {
	batches  atomic.Int64
	images   atomic.Int64
	failures atomic.Int64
	canceled atomic.Int64
}

// BatchStatsSnapshot is a copy of the counters at one instant.
type BatchStatsSnapshot struct {
	Batches  int64 `json:"batches"`
	Images   int64 `json:"images"`
	Failures int64 `json:"failures"`
	Canceled int64 `json:"canceled"`
}

func (s *BatchStats) Snapshot() BatchStatsSnapshot {
	return BatchStatsSnapshot{
		Batches:  s.batches.Load(),
		Images:   s.images.Load(),
		Failures: s.failures.Load(),
		Canceled: s.canceled.Load(),
	}
}

func (s *BatchStats) onCompleted(d eventbus.BatchCompletedData) {
	s.batches.Add(1)
	s.images.Add(int64(d.Items))
	s.failures.Add(int64(d.Failures))
	if d.Canceled {
		s.canceled.Add(1)
	}

	labels := map[string]string{"batch_id": d.BatchID}
	ctx := context.Background()
	RecordMetric(ctx, MetricBatchItems, float64(d.Items), labels)
	RecordMetric(ctx, MetricBatchFailures, float64(d.Failures), labels)
	RecordMetric(ctx, MetricBatchDuration, float64(d.Duration.Milliseconds()), labels)
}

func (s *BatchStats) onImageFailed(d eventbus.ImageFailedData) {
	RecordMetric(context.Background(), MetricImageFailed, 1, map[string]string{
		"batch_id": d.BatchID,
		"reason":   d.Reason,
	})
}

// SubscribeBatchMetrics turns batch events on bus into metrics and counters.
// The returned function removes the subscriptions.
func SubscribeBatchMetrics(bus evbus.Bus) (*BatchStats, func(), error) {
	stats := &BatchStats{}
	if err := bus.Subscribe(eventbus.EventBatchCompleted, stats.onCompleted); err != nil {
		return nil, nil, err
	}
	if err := bus.Subscribe(eventbus.EventImageFailed, stats.onImageFailed); err != nil {
		_ = bus.Unsubscribe(eventbus.EventBatchCompleted, stats.onCompleted)
		return nil, nil, err
	}

	unsubscribe := func() {
		_ = bus.Unsubscribe(eventbus.EventBatchCompleted, stats.onCompleted)
		_ = bus.Unsubscribe(eventbus.EventImageFailed, stats.onImageFailed)
	}
	return stats, unsubscribe, nil
}
