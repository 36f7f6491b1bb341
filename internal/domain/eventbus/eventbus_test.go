package eventbus

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsolatedBus(t *testing.T) {
	bus := New()
	var got BatchStartedData
	require.NoError(t, bus.Subscribe(EventBatchStarted, func(d BatchStartedData) {
		got = d
	}))

	bus.Publish(EventBatchStarted, BatchStartedData{BatchID: "b1", Items: 3})

	assert.Equal(t, "b1", got.BatchID)
	assert.Equal(t, 3, got.Items)
}

func TestAsyncEventBus_DeliversAndDrains(t *testing.T) {
	aeb := NewAsyncEventBus(nil, 2)
	aeb.Start()
	defer aeb.Stop()

	var count atomic.Int32
	require.NoError(t, aeb.Bus().Subscribe(EventImageFailed, func(ImageFailedData) {
		count.Add(1)
	}))

	for i := 0; i < 10; i++ {
		aeb.PublishAsync(EventImageFailed, ImageFailedData{SourceName: "a.png"})
	}
	aeb.Wait()

	assert.Equal(t, int32(10)-int32(aeb.Dropped()), count.Load())
	assert.True(t, aeb.Bus().HasCallback(EventImageFailed))
}

func TestAsyncEventBus_SubscriberPanicDoesNotKillWorker(t *testing.T) {
	aeb := NewAsyncEventBus(nil, 1)
	aeb.Start()
	defer aeb.Stop()

	var delivered atomic.Int32
	require.NoError(t, aeb.Bus().Subscribe(EventBatchCompleted, func(d BatchCompletedData) {
		delivered.Add(1)
		if d.Failures > 0 {
			panic("boom")
		}
	}))

	aeb.PublishAsync(EventBatchCompleted, BatchCompletedData{Failures: 1})
	aeb.PublishAsync(EventBatchCompleted, BatchCompletedData{})
	aeb.Wait()

	assert.Equal(t, int32(2), delivered.Load())
}

func TestAsyncEventBus_StopTwice(t *testing.T) {
	aeb := NewAsyncEventBus(nil, 0)
	aeb.Start()
	aeb.Stop()
	assert.NotPanics(t, aeb.Stop)
}

func TestAsyncEventBus_SharesSubscribersWithWrappedBus(t *testing.T) {
	bus := New()
	aeb := NewAsyncEventBus(bus, 1)
	aeb.Start()
	defer aeb.Stop()

	var count atomic.Int32
	require.NoError(t, bus.Subscribe(EventImageFailed, func(ImageFailedData) {
		count.Add(1)
	}))

	aeb.Publish(EventImageFailed, ImageFailedData{})
	aeb.PublishAsync(EventImageFailed, ImageFailedData{})
	aeb.Wait()

	assert.Equal(t, int32(2), count.Load())
	assert.Same(t, bus, aeb.Bus())
}

func TestAsyncEventBus_PublishAfterStopIsSynchronous(t *testing.T) {
	aeb := NewAsyncEventBus(nil, 1)
	aeb.Start()
	aeb.Stop()

	var delivered bool
	require.NoError(t, aeb.Bus().Subscribe(EventBatchStarted, func(BatchStartedData) {
		delivered = true
	}))
	aeb.PublishAsync(EventBatchStarted, BatchStartedData{})

	assert.True(t, delivered)
	assert.Zero(t, aeb.Dropped())
}

func TestGet_ReturnsSameBus(t *testing.T) {
	assert.Same(t, Get(), Get())
}
