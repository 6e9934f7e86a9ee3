package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent mirroring of multiple targets.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-target execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each target.
	// We use a factory to ensure each target gets a fresh pipeline instance.
	pipelineFactory func(job *Job) *Pipeline

	// concurrency is the maximum number of targets mirrored at once.
	// Within one target the crawl is always sequential.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores the completed jobs.
	// Access is synchronized via mutex.
	results []*Job
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent targets.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each target to create a
// fresh pipeline instance. This ensures that pipeline state doesn't
// leak between targets and allows per-target customization (per-host
// depth or delay overrides, for example).
func NewBatchProcessor(pipelineFactory func(job *Job) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*Job, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch mirrors multiple targets concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each target gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all jobs in input order, even for targets that failed.
// The error return indicates whether the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []*Job) ([]*Job, error) {
	bp.logger.Info("starting batch processing",
		"total_targets", len(jobs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*Job, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("mirroring target",
				"target", job.StartURL,
				"index", i+1,
				"total", len(jobs),
			)

			pipeline := bp.pipelineFactory(job)
			err := pipeline.Execute(ctx, job)

			// Store the job regardless of error; the result carries
			// whatever the crawl managed to do
			bp.mu.Lock()
			bp.results[i] = job
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("mirror failed",
					"target", job.StartURL,
					"error", err,
				)
				// Don't return the error to errgroup - we want the
				// other targets to keep going
				return nil
			}

			bp.logger.Info("mirror completed",
				"target", job.StartURL,
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_targets", len(jobs),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback mirrors multiple targets and calls a callback
// for each completed one. This is useful for streaming results.
//
// The callback receives the job and the index of the target in the
// original slice. The callback is called from the goroutine that
// completed the mirror, so it should be thread-safe if it accesses
// shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []*Job,
	callback func(job *Job, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_targets", len(jobs),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			pipeline := bp.pipelineFactory(job)
			_ = pipeline.Execute(ctx, job) //nolint:errcheck // Partial results live on the job

			callback(job, i)

			return nil
		})
	}

	return g.Wait()
}
