// Package dispatch evaluates batches of candidate parameter sets: one
// persistent simulation clone per batch position, executed through an
// Executor, with objective values harvested from the browser.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"swimevo/internal/browser"
	"swimevo/internal/executor"
	"swimevo/internal/model"
	"swimevo/internal/sim"
)

// Penalty replaces an objective whose indicator is missing or ambiguous, so
// the strategy selects against the individual instead of the run crashing.
const Penalty = 2e31

// timeoutFactor scales the rolling mean generation time into the advisory
// batch timeout.
const timeoutFactor = 3

type Config struct {
	Project        sim.Project
	Browser        browser.Browser
	Executor       executor.Executor
	Prefix         string
	Parameters     []model.ParameterSpec
	Objectives     []model.ObjectiveSpec
	PopulationSize int
	// Diag receives warnings and missing-indicator notices; defaults to
	// io.Discard.
	Diag io.Writer
}

type Dispatcher struct {
	cfg       Config
	clones    map[string]sim.Clone
	tagWidth  int
	evalTimes []time.Duration
}

func New(cfg Config) (*Dispatcher, error) {
	if cfg.Project == nil {
		return nil, fmt.Errorf("project is required")
	}
	if cfg.Browser == nil {
		return nil, fmt.Errorf("browser is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("prefix is required")
	}
	if len(cfg.Parameters) == 0 || len(cfg.Objectives) == 0 {
		return nil, fmt.Errorf("parameters and objectives are required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Diag == nil {
		cfg.Diag = io.Discard
	}
	return &Dispatcher{
		cfg:      cfg,
		clones:   make(map[string]sim.Clone),
		tagWidth: len(strconv.Itoa(cfg.PopulationSize - 1)),
	}, nil
}

// Indicators returns the indicator names in objective order.
func (d *Dispatcher) Indicators() []string {
	out := make([]string, len(d.cfg.Objectives))
	for i, o := range d.cfg.Objectives {
		out[i] = o.Indicator
	}
	return out
}

// Evaluate runs one batch and assigns objective values in place. Clones are
// provisioned once per batch position and reused across generations.
func (d *Dispatcher) Evaluate(ctx context.Context, individuals []model.Individual) error {
	if len(individuals) == 0 {
		return fmt.Errorf("nothing to evaluate")
	}
	start := time.Now()

	clones := make([]sim.Clone, len(individuals))
	for i := range individuals {
		clone, err := d.cloneForIndex(i)
		if err != nil {
			return err
		}
		individuals[i].CloneTag = clone.Tag()
		if err := d.ApplyParameters(clone, individuals[i].Genome); err != nil {
			return err
		}
		clones[i] = clone
	}

	opts := executor.Options{
		Indicators: d.Indicators(),
		TagPrefix:  d.cfg.Prefix,
		Timeout:    d.timeoutHint(),
	}
	if _, err := d.cfg.Executor.RunBatch(ctx, clones, opts); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}

	// Harvest every clone's runs, then delete the records to keep the
	// browser from growing with one run per individual per generation.
	for i := range individuals {
		runs, err := d.cfg.Browser.RunsByTag(ctx, individuals[i].CloneTag)
		if err != nil {
			return fmt.Errorf("query runs for %s: %w", individuals[i].CloneTag, err)
		}
		individuals[i].Objectives, err = d.harvest(ctx, individuals[i].CloneTag, runs)
		if err != nil {
			return err
		}
		for _, run := range runs {
			if err := d.cfg.Browser.DeleteRun(ctx, run.ID); err != nil {
				return fmt.Errorf("delete run %d: %w", run.ID, err)
			}
		}
	}

	d.evalTimes = append(d.evalTimes, time.Since(start))
	return nil
}

// ApplyParameters sets basin-level parameters on a clone. Per-subcatchment
// overrides are not touched by this path, hence the warning when they are
// active.
func (d *Dispatcher) ApplyParameters(clone sim.Clone, genome []float64) error {
	if d.cfg.Project.SubcatchmentOverridesActive() {
		fmt.Fprintf(d.cfg.Diag, "warning: subcatchment parameter overrides are active; "+
			"basin-level values set on %s may be shadowed\n", clone.Tag())
	}
	parameters := make(map[string]float64, len(genome))
	for i, p := range d.cfg.Parameters {
		parameters[p.Name] = genome[i]
	}
	if err := clone.ApplyParameters(parameters); err != nil {
		return fmt.Errorf("apply parameters to %s: %w", clone.Tag(), err)
	}
	return nil
}

// harvest collects one value per declared indicator from the clone's runs,
// substituting the penalty when an indicator is absent or not unique.
func (d *Dispatcher) harvest(ctx context.Context, cloneTag string, runs []model.RunRecord) ([]float64, error) {
	values := make([]float64, len(d.cfg.Objectives))
	for i, objective := range d.cfg.Objectives {
		var found []model.IndicatorRecord
		for _, run := range runs {
			recs, err := d.cfg.Browser.Indicators(ctx, run.ID, objective.Indicator)
			if err != nil {
				return nil, fmt.Errorf("query indicator %s for %s: %w", objective.Indicator, cloneTag, err)
			}
			found = append(found, recs...)
		}
		if len(found) == 1 {
			values[i] = found[0].Value
			continue
		}
		fmt.Fprintf(d.cfg.Diag, "%s for %s returned %d records, setting it to %g\n",
			objective.Indicator, cloneTag, len(found), Penalty)
		values[i] = Penalty
	}
	return values, nil
}

func (d *Dispatcher) cloneForIndex(i int) (sim.Clone, error) {
	tag := fmt.Sprintf("%s_%0*d", d.cfg.Prefix, d.tagWidth, i)
	if clone, ok := d.clones[tag]; ok {
		return clone, nil
	}
	clone, err := d.cfg.Project.Clone(tag)
	if err != nil {
		return nil, fmt.Errorf("provision clone %s: %w", tag, err)
	}
	d.clones[tag] = clone
	return clone, nil
}

func (d *Dispatcher) timeoutHint() time.Duration {
	if len(d.evalTimes) == 0 {
		return 0
	}
	return d.MeanGenerationTime() * timeoutFactor
}

// MeanGenerationTime is the rolling mean over all completed batches.
func (d *Dispatcher) MeanGenerationTime() time.Duration {
	if len(d.evalTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, t := range d.evalTimes {
		total += t
	}
	return total / time.Duration(len(d.evalTimes))
}

// LastGenerationTime is the duration of the most recent batch.
func (d *Dispatcher) LastGenerationTime() time.Duration {
	if len(d.evalTimes) == 0 {
		return 0
	}
	return d.evalTimes[len(d.evalTimes)-1]
}

// ReleaseClones removes every provisioned clone. Tags are released in
// deterministic order so failures are reproducible.
func (d *Dispatcher) ReleaseClones() error {
	tags := make([]string, 0, len(d.clones))
	for tag := range d.clones {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		if err := d.clones[tag].Remove(); err != nil {
			return fmt.Errorf("remove clone %s: %w", tag, err)
		}
		delete(d.clones, tag)
	}
	return nil
}

// CloneTags lists the provisioned clone tags in sorted order.
func (d *Dispatcher) CloneTags() []string {
	tags := make([]string, 0, len(d.clones))
	for tag := range d.clones {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
