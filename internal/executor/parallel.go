package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"swimevo/internal/sim"
)

// Parallel fans the batch out over a bounded worker pool.
type Parallel struct {
	// Workers defaults to the number of CPUs.
	Workers int
}

func (p Parallel) RunBatch(ctx context.Context, clones []sim.Clone, opts Options) ([]string, error) {
	batch, cancel := batchContext(ctx, opts.Timeout)
	defer cancel()

	type result struct {
		tag string
		err error
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(clones) {
		workers = len(clones)
	}

	jobs := make(chan sim.Clone)
	results := make(chan result, len(clones))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for clone := range jobs {
				err := clone.Run(batch, opts.Indicators, runTags(opts.TagPrefix, clone))
				results <- result{tag: clone.Tag(), err: err}
			}
		}()
	}

	for _, clone := range clones {
		jobs <- clone
	}
	close(jobs)

	wg.Wait()
	close(results)

	completed := make([]string, 0, len(clones))
	for res := range results {
		if res.err != nil {
			if timedOut(ctx, batch, res.err) {
				continue
			}
			return nil, fmt.Errorf("run %s: %w", res.tag, res.err)
		}
		completed = append(completed, res.tag)
	}
	return completed, nil
}
