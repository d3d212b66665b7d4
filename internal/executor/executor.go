// Package executor runs batches of simulation clones. The optimization core
// is single-threaded; whatever parallelism exists lives behind the Executor
// interface, which mirrors a cluster submission: hand over the clones, get
// back the tags of those that completed.
package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"swimevo/internal/sim"
)

// Options for one batch. Timeout is advisory: a batch that exceeds it
// reports the clones that did finish instead of failing.
type Options struct {
	Indicators []string
	TagPrefix  string
	Timeout    time.Duration
}

type Executor interface {
	RunBatch(ctx context.Context, clones []sim.Clone, opts Options) ([]string, error)
}

func runTags(prefix string, clone sim.Clone) string {
	return strings.TrimSpace(prefix + " " + clone.Tag())
}

func batchContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// timedOut reports whether err is the advisory batch timeout rather than a
// caller cancellation or a genuine clone failure. A non-context error is
// never swallowed, even when the batch deadline has already expired.
func timedOut(parent, batch context.Context, err error) bool {
	if err == nil || batch.Err() == nil || parent.Err() != nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
