package pxl

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of pixels handed to a worker at a time.
const DefaultChunkSize = 1024

type parallelOptions struct {
	workers   int
	chunkSize int
	ctx       context.Context
}

// Option configures parallel image processing.
type Option func(*parallelOptions)

// WithWorkers limits the number of goroutines used. Values below 1 use
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *parallelOptions) { o.workers = n }
}

// WithChunkSize sets the number of pixels processed per task. Values below 1
// use DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(o *parallelOptions) { o.chunkSize = n }
}

// WithContext makes processing stop early when ctx is done.
func WithContext(ctx context.Context) Option {
	return func(o *parallelOptions) { o.ctx = ctx }
}

func newParallelOptions(opts []Option) parallelOptions {
	o := parallelOptions{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.chunkSize < 1 {
		o.chunkSize = DefaultChunkSize
	}
	return o
}

// forEachChunk splits [0, total) into chunks and runs fn on each. Chunks must
// not share mutable state.
func forEachChunk(o parallelOptions, total int, fn func(start, end int) error) error {
	g, ctx := errgroup.WithContext(o.ctx)
	g.SetLimit(o.workers)

	for start := 0; start < total; start += o.chunkSize {
		end := min(start+o.chunkSize, total)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(start, end)
		})
	}

	return g.Wait()
}
