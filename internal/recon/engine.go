package recon

import (
	"context"
	"sync"
	"sync/atomic"

	"phototier/internal/blob"
	"phototier/internal/cache"
	"phototier/internal/fs"
	"phototier/internal/store"
)

// Options wires the engine to its tier gateways.
type Options struct {
	Records store.RecordStore
	Blobs   blob.Store
	Files   fs.FileStore

	// Index is the optional local fingerprint index. With a nil index the
	// duplicate check falls through to the record store alone.
	Index *cache.Index

	// Workers caps per-pass parallelism.
	Workers int
}

// Engine drives the Import, Export and Cloud-Sync passes. Each pass
// enumerates its candidates, asks the classification logic what every
// item needs, executes items under the worker cap and folds outcomes
// into a single result.
type Engine struct {
	opts *Options
}

func NewEngine(opts *Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	return &Engine{opts: opts}
}

// runItems fans count items out to the worker pool and blocks until they
// are done or cancellation drains the queue. Cancellation is observed
// between items only: in-flight items finish on their own terms, no new
// item is dispatched afterwards. Reports whether the run was cut short.
func (e *Engine) runItems(ctx context.Context, count int, run func(idx int)) bool {
	if count == 0 {
		return false
	}

	tasks := make(chan int, count)
	for i := 0; i < count; i++ {
		tasks <- i
	}
	close(tasks)

	workers := e.opts.Workers
	if workers > count {
		workers = count
	}

	var cancelled atomic.Bool
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				select {
				case <-ctx.Done():
					cancelled.Store(true)
					return
				default:
				}
				run(idx)
			}
		}()
	}
	wg.Wait()

	return cancelled.Load()
}
