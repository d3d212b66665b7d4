package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"swimevo/internal/sim"
)

// fakeClone records invocations and can be told to fail or to block until
// the batch context expires.
type fakeClone struct {
	tag      string
	err      error
	block    bool
	runs     atomic.Int32
	lastTags atomic.Value
}

func (c *fakeClone) Tag() string { return c.tag }

func (c *fakeClone) ApplyParameters(map[string]float64) error { return nil }

func (c *fakeClone) Run(ctx context.Context, _ []string, tags string) error {
	c.runs.Add(1)
	c.lastTags.Store(tags)
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.err
}

func (c *fakeClone) Remove() error { return nil }

func clones(tags ...string) ([]*fakeClone, []sim.Clone) {
	fakes := make([]*fakeClone, len(tags))
	out := make([]sim.Clone, len(tags))
	for i, tag := range tags {
		fakes[i] = &fakeClone{tag: tag}
		out[i] = fakes[i]
	}
	return fakes, out
}

func TestSerialRunsAll(t *testing.T) {
	fakes, batch := clones("sms-emoa_0", "sms-emoa_1", "sms-emoa_2")
	completed, err := Serial{}.RunBatch(context.Background(), batch, Options{
		Indicators: []string{"rmse"},
		TagPrefix:  "sms-emoa",
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(completed) != 3 {
		t.Fatalf("%d completed, want 3", len(completed))
	}
	for _, c := range fakes {
		if c.runs.Load() != 1 {
			t.Fatalf("clone %s ran %d times, want 1", c.tag, c.runs.Load())
		}
		if got := c.lastTags.Load().(string); got != "sms-emoa "+c.tag {
			t.Fatalf("clone %s run tags = %q", c.tag, got)
		}
	}
}

func TestSerialPropagatesErrors(t *testing.T) {
	fakes, batch := clones("sms-emoa_0", "sms-emoa_1")
	fakes[0].err = errors.New("model crashed")
	_, err := Serial{}.RunBatch(context.Background(), batch, Options{TagPrefix: "sms-emoa"})
	if err == nil {
		t.Fatal("expected the clone error to propagate")
	}
	if fakes[1].runs.Load() != 0 {
		t.Fatal("serial executor continued past a fatal error")
	}
}

func TestSerialAdvisoryTimeout(t *testing.T) {
	fakes, batch := clones("sms-emoa_0", "sms-emoa_1", "sms-emoa_2")
	fakes[1].block = true
	completed, err := Serial{}.RunBatch(context.Background(), batch, Options{
		TagPrefix: "sms-emoa",
		Timeout:   20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("advisory timeout returned error: %v", err)
	}
	if len(completed) != 1 || completed[0] != "sms-emoa_0" {
		t.Fatalf("completed = %v, want only sms-emoa_0", completed)
	}
}

func TestParallelRunsAll(t *testing.T) {
	fakes, batch := clones("p_0", "p_1", "p_2", "p_3")
	completed, err := Parallel{Workers: 2}.RunBatch(context.Background(), batch, Options{TagPrefix: "p"})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(completed) != 4 {
		t.Fatalf("%d completed, want 4", len(completed))
	}
	for _, c := range fakes {
		if c.runs.Load() != 1 {
			t.Fatalf("clone %s ran %d times", c.tag, c.runs.Load())
		}
	}
}

func TestParallelAdvisoryTimeout(t *testing.T) {
	fakes, batch := clones("p_0", "p_1")
	fakes[1].block = true
	completed, err := Parallel{Workers: 2}.RunBatch(context.Background(), batch, Options{
		TagPrefix: "p",
		Timeout:   20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("advisory timeout returned error: %v", err)
	}
	if len(completed) != 1 || completed[0] != "p_0" {
		t.Fatalf("completed = %v, want only p_0", completed)
	}
}

func TestParallelPropagatesErrors(t *testing.T) {
	fakes, batch := clones("p_0", "p_1")
	fakes[0].err = errors.New("model crashed")
	if _, err := (Parallel{Workers: 2}).RunBatch(context.Background(), batch, Options{TagPrefix: "p"}); err == nil {
		t.Fatal("expected the clone error to propagate")
	}
}

func TestQueueRunsAll(t *testing.T) {
	var polls atomic.Int32
	fakes, batch := clones("q_0", "q_1", "q_2")
	q := Queue{
		Slots:        2,
		PollInterval: time.Millisecond,
		OnPoll: func(pending, running int) {
			polls.Add(1)
		},
	}
	completed, err := q.RunBatch(context.Background(), batch, Options{TagPrefix: "q"})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(completed) != 3 {
		t.Fatalf("%d completed, want 3", len(completed))
	}
	for _, c := range fakes {
		if c.runs.Load() != 1 {
			t.Fatalf("clone %s ran %d times", c.tag, c.runs.Load())
		}
	}
}

func TestQueueAdvisoryTimeout(t *testing.T) {
	fakes, batch := clones("q_0", "q_1")
	fakes[1].block = true
	q := Queue{Slots: 2, PollInterval: time.Millisecond}
	completed, err := q.RunBatch(context.Background(), batch, Options{
		TagPrefix: "q",
		Timeout:   20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("advisory timeout returned error: %v", err)
	}
	if len(completed) != 1 || completed[0] != "q_0" {
		t.Fatalf("completed = %v, want only q_0", completed)
	}
}

func TestSerialRealErrorAfterDeadline(t *testing.T) {
	fakes, batch := clones("sms-emoa_0")
	fakes[0].err = errors.New("solver diverged")
	// The 1ns deadline has long expired by the time the clone reports its
	// failure; the failure must still surface.
	_, err := Serial{}.RunBatch(context.Background(), batch, Options{
		TagPrefix: "sms-emoa",
		Timeout:   time.Nanosecond,
	})
	if err == nil {
		t.Fatal("clone failure was swallowed as a timeout")
	}
	if !errors.Is(err, fakes[0].err) {
		t.Fatalf("RunBatch error = %v, want wrapped clone failure", err)
	}
}

func TestParallelRealErrorAfterDeadline(t *testing.T) {
	fakes, batch := clones("sms-emoa_0", "sms-emoa_1")
	fakes[1].err = errors.New("solver diverged")
	_, err := Parallel{Workers: 2}.RunBatch(context.Background(), batch, Options{
		TagPrefix: "sms-emoa",
		Timeout:   time.Nanosecond,
	})
	if err == nil {
		t.Fatal("clone failure was swallowed as a timeout")
	}
}
