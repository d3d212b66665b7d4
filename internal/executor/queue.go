package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swimevo/internal/sim"
)

type jobState string

const (
	jobQueued  jobState = "queued"
	jobRunning jobState = "running"
	jobDone    jobState = "done"
	jobFailed  jobState = "failed"
)

type queueJob struct {
	clone sim.Clone
	state jobState
	err   error
}

// Queue emulates a cluster queue: jobs wait for one of a fixed number of
// slots and the caller polls their states at a fixed interval instead of
// blocking on each job. Intended for long-running simulation batches where
// progress visibility matters more than latency.
type Queue struct {
	// Slots is the number of concurrently running jobs, default 1.
	Slots int
	// PollInterval is how often the batch is checked for completion,
	// default 10s.
	PollInterval time.Duration
	// OnPoll, if set, is called with (pending, running) counts at every
	// poll tick.
	OnPoll func(pending, running int)
}

func (q Queue) RunBatch(ctx context.Context, clones []sim.Clone, opts Options) ([]string, error) {
	batch, cancel := batchContext(ctx, opts.Timeout)
	defer cancel()

	slots := q.Slots
	if slots <= 0 {
		slots = 1
	}
	interval := q.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	var mu sync.Mutex
	jobs := make([]*queueJob, len(clones))
	for i, clone := range clones {
		jobs[i] = &queueJob{clone: clone, state: jobQueued}
	}

	pending := make(chan *queueJob, len(jobs))
	for _, job := range jobs {
		pending <- job
	}
	close(pending)

	var wg sync.WaitGroup
	wg.Add(slots)
	for s := 0; s < slots; s++ {
		go func() {
			defer wg.Done()
			for job := range pending {
				mu.Lock()
				job.state = jobRunning
				mu.Unlock()

				err := job.clone.Run(batch, opts.Indicators, runTags(opts.TagPrefix, job.clone))

				mu.Lock()
				if err != nil {
					job.state = jobFailed
					job.err = err
				} else {
					job.state = jobDone
				}
				mu.Unlock()
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-finished:
		case <-ticker.C:
			if q.OnPoll != nil {
				mu.Lock()
				var queued, running int
				for _, job := range jobs {
					switch job.state {
					case jobQueued:
						queued++
					case jobRunning:
						running++
					}
				}
				mu.Unlock()
				q.OnPoll(queued, running)
			}
			continue
		}
		break
	}

	completed := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if job.state == jobFailed {
			if timedOut(ctx, batch, job.err) {
				continue
			}
			return nil, fmt.Errorf("run %s: %w", job.clone.Tag(), job.err)
		}
		if job.state == jobDone {
			completed = append(completed, job.clone.Tag())
		}
	}
	return completed, nil
}
