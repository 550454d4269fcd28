package forkjoin

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond"
)

// Pool wraps a worker pool used for disjoint index-range fork-join work.
// Grounded on the sibling example's `pond.New(n, 0, pond.MinWorkers(n),
// pond.Context(ctx))` + `pool.Submit` usage.
type Pool struct {
	pool *pond.WorkerPool
}

// NewPool creates a Pool with workers goroutines. If workers <= 0, it
// defaults to runtime.NumCPU(). The pool is tied to ctx: cancelling ctx
// stops accepting new work.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{pool: pond.New(workers, 0, pond.MinWorkers(workers), pond.Context(ctx))}
}

// Stop drains and stops the pool. Call once, at orchestrator shutdown.
func (p *Pool) Stop() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.StopAndWait()
}

// Range splits [0, n) into chunks of grainSize and invokes fn once per
// chunk with the half-open [start, end) bounds, waiting for every chunk to
// finish before returning. grainSize <= 0 (or a nil pool) runs fn inline,
// once, over the full range — no goroutines spawned.
//
// The contract (spec §5): within one call, the ranges handed to fn are
// disjoint, so fn may write freely to indices in [start, end) without
// locking.
func (p *Pool) Range(n, grainSize int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if grainSize <= 0 || p == nil || p.pool == nil {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += grainSize {
		end := start + grainSize
		if end > n {
			end = n
		}
		wg.Add(1)
		s, e := start, end
		p.pool.Submit(func() {
			defer wg.Done()
			fn(s, e)
		})
	}
	wg.Wait()
}
