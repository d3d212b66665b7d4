package executor

import (
	"context"
	"fmt"

	"swimevo/internal/sim"
)

// Serial runs clones one after another in the calling goroutine.
type Serial struct{}

func (Serial) RunBatch(ctx context.Context, clones []sim.Clone, opts Options) ([]string, error) {
	batch, cancel := batchContext(ctx, opts.Timeout)
	defer cancel()

	completed := make([]string, 0, len(clones))
	for _, clone := range clones {
		err := clone.Run(batch, opts.Indicators, runTags(opts.TagPrefix, clone))
		if err != nil {
			if timedOut(ctx, batch, err) {
				break
			}
			return completed, fmt.Errorf("run %s: %w", clone.Tag(), err)
		}
		completed = append(completed, clone.Tag())
	}
	return completed, nil
}
