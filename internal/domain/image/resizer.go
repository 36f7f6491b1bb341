package image

import (
	"context"

	"github.com/google/uuid"

	"image-resizer-go/internal/platform/logging"
	"image-resizer-go/internal/platform/observability"
)

// Options wires a Resizer.
type Options struct {
	Limits      Limits
	Workers     int
	JPEGQuality int
	// CompressionLevel is a compress/flate level; nil selects
	// DefaultCompressionLevel.
	CompressionLevel *int
	Publisher        Publisher
	Logger           *logging.Logger
}

// Resizer chains admission, the transform batch, packaging and reporting.
// It is shared by the HTTP and CLI front ends and safe for concurrent use.
type Resizer struct {
	validator    *Validator
	orchestrator *Orchestrator
	level        int
	logger       *logging.Logger
}

func New(opts Options) *Resizer {
	level := DefaultCompressionLevel
	if opts.CompressionLevel != nil {
		level = *opts.CompressionLevel
	}
	return &Resizer{
		validator: NewValidator(opts.Limits, opts.Logger),
		orchestrator: NewOrchestrator(OrchestratorOptions{
			Workers:     opts.Workers,
			Transformer: NewTransformer(TransformerOptions{JPEGQuality: opts.JPEGQuality}),
			Publisher:   opts.Publisher,
			Logger:      opts.Logger,
		}),
		level:  level,
		logger: opts.Logger,
	}
}

// Limits returns the effective admission limits.
func (r *Resizer) Limits() Limits {
	return r.validator.Limits()
}

// Resize admits items and runs the batch without packaging it.
func (r *Resizer) Resize(ctx context.Context, items []RawItem, spec ResizeSpec) (*BatchSummary, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	admitted, err := r.validator.Admit(items)
	if err != nil {
		return nil, err
	}
	if observability.BatchID(ctx) == "" {
		ctx = observability.WithBatchID(ctx, uuid.NewString())
	}
	return r.orchestrator.Run(ctx, admitted, spec)
}

// Process runs the whole pipeline and returns the report with the archive.
func (r *Resizer) Process(ctx context.Context, items []RawItem, spec ResizeSpec) (*Report, error) {
	summary, err := r.Resize(ctx, items, spec)
	if err != nil {
		return nil, err
	}
	return r.Package(summary)
}

// Package zips the successes of summary and describes the result.
func (r *Resizer) Package(summary *BatchSummary) (*Report, error) {
	archive, err := BuildArchive(summary, r.level)
	if err != nil {
		if summary != nil {
			r.logger.ErrorTag("ARCHIVE", "packaging %d images failed: %v", summary.SuccessCount, err)
		}
		return nil, err
	}
	r.logger.InfoTag("ARCHIVE", "packed %d entries, %d bytes", len(archive.Entries), len(archive.Data))

	return Describe(summary, archive)
}
