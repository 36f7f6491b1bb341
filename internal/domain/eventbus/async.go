package eventbus

import (
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
)

// DefaultWorkers is used when NewAsyncEventBus gets a non-positive count.
const DefaultWorkers = 4

// AsyncEventBus publishes on a bounded queue served by a fixed set of
// workers. Subscribers live on the wrapped bus, so a handler sees both
// Publish and PublishAsync deliveries. Events are dropped, and counted, when
// the queue is full; after Stop they are delivered on the caller.
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	pending   sync.WaitGroup
	dropped   atomic.Int64

	mu      sync.RWMutex
	stopped bool
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// NewAsyncEventBus wraps bus with workerNum delivery workers. A nil bus
// gets a fresh one.
func NewAsyncEventBus(bus evbus.Bus, workerNum int) *AsyncEventBus {
	if bus == nil {
		bus = New()
	}
	if workerNum <= 0 {
		workerNum = DefaultWorkers
	}

	return &AsyncEventBus{
		bus:       bus,
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (aeb *AsyncEventBus) Start() {
	for i := 0; i < aeb.workerNum; i++ {
		aeb.wg.Add(1)
		go aeb.worker()
	}
}

// Stop waits for queued events, then stops the workers. Safe to call twice.
func (aeb *AsyncEventBus) Stop() {
	aeb.stopOnce.Do(func() {
		aeb.mu.Lock()
		aeb.stopped = true
		aeb.mu.Unlock()

		aeb.pending.Wait()
		close(aeb.stopChan)
		aeb.wg.Wait()
	})
}

func (aeb *AsyncEventBus) worker() {
	defer aeb.wg.Done()

	for {
		select {
		case <-aeb.stopChan:
			return
		case event := <-aeb.workChan:
			aeb.dispatch(event)
		}
	}
}

func (aeb *AsyncEventBus) dispatch(event asyncEvent) {
	defer aeb.pending.Done()
	defer func() {
		// a panicking subscriber must not take a worker down
		_ = recover()
	}()
	aeb.bus.Publish(event.topic, event.args...)
}

// Publish delivers synchronously on the caller's goroutine.
func (aeb *AsyncEventBus) Publish(topic string, args ...interface{}) {
	aeb.bus.Publish(topic, args...)
}

func (aeb *AsyncEventBus) PublishAsync(topic string, args ...interface{}) {
	aeb.mu.RLock()
	if aeb.stopped {
		aeb.mu.RUnlock()
		aeb.bus.Publish(topic, args...)
		return
	}
	aeb.pending.Add(1)
	aeb.mu.RUnlock()

	select {
	case aeb.workChan <- asyncEvent{topic: topic, args: args}:
	default:
		aeb.pending.Done()
		aeb.dropped.Add(1)
	}
}

// Bus returns the wrapped synchronous bus.
func (aeb *AsyncEventBus) Bus() evbus.Bus {
	return aeb.bus
}

// Wait blocks until every queued event has been delivered.
func (aeb *AsyncEventBus) Wait() {
	aeb.pending.Wait()
}

// Dropped returns the number of events discarded on a full queue.
func (aeb *AsyncEventBus) Dropped() int64 {
	return aeb.dropped.Load()
}
