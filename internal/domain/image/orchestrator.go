package image

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"image-resizer-go/internal/domain/eventbus"
	"image-resizer-go/internal/platform/logging"
	"image-resizer-go/internal/platform/observability"
)

// Publisher receives batch lifecycle events. evbus.Bus satisfies it.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// asyncPublisher is implemented by eventbus.AsyncEventBus. Per-image
// failure events go through it so subscribers do not hold up the response.
type asyncPublisher interface {
	PublishAsync(topic string, args ...interface{})
}

// OrchestratorOptions configures an Orchestrator. Zero values are usable.
type OrchestratorOptions struct {
	// Workers caps concurrent transforms; <= 0 means GOMAXPROCS.
	Workers     int
	Transformer *Transformer
	Publisher   Publisher
	Logger      *logging.Logger
}

// Orchestrator fans a batch out to a bounded worker pool and collects one
// outcome per item in input order.
type Orchestrator struct {
	workers     int
	transformer *Transformer
	publisher   Publisher
	logger      *logging.Logger
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	transformer := opts.Transformer
	if transformer == nil {
		transformer = NewTransformer(TransformerOptions{})
	}
	return &Orchestrator{
		workers:     workers,
		transformer: transformer,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
	}
}

// Run transforms every item. Per-item failures are recorded in the summary
// and never abort the batch. The summary is returned alongside ErrNoSuccess
// when nothing succeeded and alongside ctx.Err() after a cancellation, in
// which case items that never started are failures with ReasonCanceled.
func (o *Orchestrator) Run(ctx context.Context, items []SourceImage, spec ResizeSpec) (summary *BatchSummary, err error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, withCause(ErrNoValidImages, "image.run", fmt.Errorf("empty batch"))
	}

	batchID := observability.BatchID(ctx)
	ctx, end := observability.StartSpan(ctx, "image", "batch.run")
	defer func() { end(err) }()

	started := time.Now()
	o.publish(eventbus.EventBatchStarted, eventbus.BatchStartedData{
		BatchID: batchID,
		Items:   len(items),
		Width:   spec.Width,
		Height:  spec.Height,
		Format:  formatLabel(spec.Format),
	})
	o.logger.InfoTag("RESIZE", "batch %s: %d images -> %dx%d format=%s workers=%d",
		batchID, len(items), spec.Width, spec.Height, formatLabel(spec.Format), o.poolSize(len(items)))

	outcomes := make([]Outcome, len(items))

	var g errgroup.Group
	g.SetLimit(o.poolSize(len(items)))
	for i := range items {
		if ctx.Err() != nil {
			outcomes[i] = failed(items[i], ReasonCanceled, ctx.Err())
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = failed(items[i], ReasonCanceled, err)
				return nil
			}
			outcomes[i] = o.transformer.Transform(ctx, items[i], spec)
			return nil
		})
	}
	_ = g.Wait()

	summary = &BatchSummary{Spec: spec, Outcomes: outcomes}
	for i := range outcomes {
		outcomes[i].Index = i
		if outcomes[i].OK() {
			summary.SuccessCount++
			continue
		}
		summary.FailureCount++
		f := outcomes[i].Failure
		o.logger.WarnTag("RESIZE", "batch %s: %s failed: %s: %v", batchID, f.SourceName, f.Reason, f.Err)
		o.publishAsync(eventbus.EventImageFailed, eventbus.ImageFailedData{
			BatchID:    batchID,
			SourceName: f.SourceName,
			Reason:     string(f.Reason),
			Error:      errString(f.Err),
		})
	}
	assignUniqueNames(outcomes)

	canceled := ctx.Err()
	o.publish(eventbus.EventBatchCompleted, eventbus.BatchCompletedData{
		BatchID:   batchID,
		Items:     len(items),
		Successes: summary.SuccessCount,
		Failures:  summary.FailureCount,
		Duration:  time.Since(started),
		Canceled:  canceled != nil,
	})
	o.logger.InfoTag("RESIZE", "batch %s: done ok=%d failed=%d in %s",
		batchID, summary.SuccessCount, summary.FailureCount, time.Since(started).Round(time.Millisecond))

	if canceled != nil {
		return summary, canceled
	}
	if summary.SuccessCount == 0 {
		return summary, ErrNoSuccess
	}
	return summary, nil
}

func (o *Orchestrator) poolSize(n int) int {
	if n < o.workers {
		return n
	}
	return o.workers
}

func (o *Orchestrator) publish(topic string, data interface{}) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(topic, data)
}

func (o *Orchestrator) publishAsync(topic string, data interface{}) {
	if async, ok := o.publisher.(asyncPublisher); ok {
		async.PublishAsync(topic, data)
		return
	}
	o.publish(topic, data)
}

func formatLabel(f Format) string {
	if f == FormatNone {
		return "native"
	}
	return f.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
