package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-resizer-go/internal/domain/eventbus"
)

func setupBuffer(t *testing.T, enabled bool) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	shutdown, err := Setup(context.Background(), Config{Enabled: enabled}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })
	buf.Reset()
	return buf
}

func lines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if json.Unmarshal([]byte(line), &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

func TestStartSpan_LogsStartAndEndWithBatchID(t *testing.T) {
	buf := setupBuffer(t, true)

	ctx := WithBatchID(context.Background(), "batch-1")
	_, end := StartSpan(ctx, "image", "run")
	end(errors.New("boom"))

	records := lines(buf)
	require.Len(t, records, 2)
	assert.Equal(t, "obs span start", records[0]["msg"])
	assert.Equal(t, "batch-1", records[0]["batch_id"])
	assert.Equal(t, "obs span end", records[1]["msg"])
	assert.Equal(t, "ERROR", records[1]["level"])
	assert.Equal(t, "boom", records[1]["error"])
}

func TestDisabled_IsSilent(t *testing.T) {
	buf := setupBuffer(t, false)

	_, end := StartSpan(context.Background(), "image", "run")
	end(nil)
	RecordMetric(context.Background(), "m", 1, nil)

	assert.Empty(t, buf.String())
	assert.False(t, Enabled())
}

func TestBatchID_Empty(t *testing.T) {
	ctx := WithBatchID(context.Background(), "")
	assert.Equal(t, "", BatchID(ctx))
}

func TestSubscribeBatchMetrics(t *testing.T) {
	buf := setupBuffer(t, true)
	bus := eventbus.New()

	stats, unsubscribe, err := SubscribeBatchMetrics(bus)
	require.NoError(t, err)

	bus.Publish(eventbus.EventImageFailed, eventbus.ImageFailedData{BatchID: "b", Reason: "decode error"})
	bus.Publish(eventbus.EventBatchCompleted, eventbus.BatchCompletedData{
		BatchID:   "b",
		Items:     3,
		Successes: 2,
		Failures:  1,
		Duration:  25 * time.Millisecond,
	})

	snap := stats.Snapshot()
	assert.Equal(t, BatchStatsSnapshot{Batches: 1, Images: 3, Failures: 1}, snap)

	metrics := map[string]float64{}
	for _, rec := range lines(buf) {
		if rec["msg"] == "obs metric" {
			metrics[rec["metric"].(string)] = rec["value"].(float64)
		}
	}
	assert.Equal(t, 3.0, metrics[MetricBatchItems])
	assert.Equal(t, 1.0, metrics[MetricBatchFailures])
	assert.Equal(t, 25.0, metrics[MetricBatchDuration])
	assert.Equal(t, 1.0, metrics[MetricImageFailed])

	unsubscribe()
	assert.False(t, bus.HasCallback(eventbus.EventBatchCompleted))
}
