// Package batch runs independent document jobs in parallel with a bounded
// number of workers.
package batch

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/case-intake/internal/observability"
)

// Result is the outcome of one item of a batch.
type Result[R any] struct {
	Index    int
	Value    R
	Err      error
	Duration time.Duration
}

// Processor runs jobs with at most Limit of them in flight.
type Processor struct {
	limit  int
	logger *observability.Logger
}

// NewProcessor creates a processor. A limit <= 0 means the number of CPU
// cores.
func NewProcessor(limit int, logger *observability.Logger) *Processor {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &Processor{
		limit:  limit,
		logger: observability.OrNop(logger).WithOperation("batch"),
	}
}

// Limit returns the worker limit.
func (p *Processor) Limit() int { return p.limit }

// Each runs fn for every item and collects every outcome in input order. A
// failing item does not stop the others; items not yet started when ctx is
// cancelled report ctx.Err().
func Each[T, R any](ctx context.Context, p *Processor, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(p.limit)

	start := time.Now()
	for i, item := range items {
		g.Go(func() error {
			t := time.Now()
			res := Result[R]{Index: i}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Value, res.Err = fn(ctx, item)
			}
			res.Duration = time.Since(t)
			// Each goroutine owns its own slot.
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.logger.Debug().
		Int("items", len(items)).
		Int("failed", failed).
		Int("workers", p.limit).
		Dur("duration", time.Since(start)).
		Msg("batch finished")
	return results
}

// Map runs fn for every item and returns the values in input order. The
// first error cancels the context passed to the remaining calls and is
// returned.
func Map[T, R any](ctx context.Context, p *Processor, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Errors returns the non-nil errors of results.
func Errors[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
