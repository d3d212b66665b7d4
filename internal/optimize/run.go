// Package optimize owns the generational loop of a calibration run: seeding,
// self-test, evaluation, population logging and the final summary record.
package optimize

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"swimevo/internal/browser"
	"swimevo/internal/dispatch"
	"swimevo/internal/evo"
	"swimevo/internal/executor"
	"swimevo/internal/model"
	"swimevo/internal/popfile"
	"swimevo/internal/sim"
)

// Run drives one optimization from seed population to summary record.
type Run struct {
	cfg        Config
	project    sim.Project
	browser    browser.Browser
	parameters []model.ParameterSpec
	objectives []model.ObjectiveSpec
	strategy   evo.Strategy
	dispatcher *dispatch.Dispatcher
	rng        *rand.Rand
	nextID     int
}

// New resolves the config merge and wires the run. The executor decides how
// clone batches are processed (serial, parallel or queued).
func New(project sim.Project, b browser.Browser, exec executor.Executor, cfg Config) (*Run, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	parameters := cfg.ParameterSpecs()
	objectives := cfg.ObjectiveSpecs()

	strategy, err := evo.New(cfg.Strategy, evo.Config{
		Parameters:     parameters,
		PopulationSize: cfg.PopulationSize,
		NumOffspring:   cfg.NumOffspring,
		MaxGenerations: cfg.MaxGenerations,
		Seed:           cfg.Seed,
		CrossoverRate:  cfg.CrossoverRate,
		MutationRate:   cfg.MutationRate,
		Eta:            cfg.Eta,
	})
	if err != nil {
		return nil, err
	}
	dispatcher, err := dispatch.New(dispatch.Config{
		Project:        project,
		Browser:        b,
		Executor:       exec,
		Prefix:         cfg.Prefix,
		Parameters:     parameters,
		Objectives:     objectives,
		PopulationSize: cfg.PopulationSize,
		Diag:           cfg.Progress,
	})
	if err != nil {
		return nil, err
	}
	return &Run{
		cfg:        cfg,
		project:    project,
		browser:    b,
		parameters: parameters,
		objectives: objectives,
		strategy:   strategy,
		dispatcher: dispatcher,
		rng:        rand.New(rand.NewSource(uint64(cfg.Seed))),
		nextID:     1,
	}, nil
}

// Run executes the whole optimization and returns the summary persisted
// through the browser. A self-test failure aborts before any generation is
// written. Provisioned clones are released on every exit path except a
// successful run with KeepClones set; an aborted run must not leave clone
// tags behind, or a retry with the same prefix would fail to provision.
func (r *Run) Run(ctx context.Context) (summary model.RunSummary, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			if rerr := r.dispatcher.ReleaseClones(); rerr != nil {
				fmt.Fprintf(r.cfg.Progress, "cleanup after failed run: %v\n", rerr)
			}
		}
	}()

	current := evo.SeedPopulation(evo.Config{
		Parameters:     r.parameters,
		PopulationSize: r.cfg.PopulationSize,
	}, r.rng)
	r.adopt(current, 0)

	if !r.cfg.SkipSelfTest {
		if err := r.selfTest(ctx, current[0]); err != nil {
			return model.RunSummary{}, fmt.Errorf("self-test: %w", err)
		}
	}
	if r.cfg.SelfTestOnly {
		return model.RunSummary{}, nil
	}

	writer, err := popfile.NewWriter(r.cfg.Output, r.parameters, r.objectives)
	if err != nil {
		return model.RunSummary{}, err
	}
	defer writer.Close()

	for gen := 0; ; gen++ {
		if err := r.dispatcher.Evaluate(ctx, current); err != nil {
			return model.RunSummary{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		if err := writer.Append(gen, current); err != nil {
			return model.RunSummary{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		r.report(gen, current)
		if r.strategy.Done(gen) {
			break
		}
		next, err := r.strategy.Next(current)
		if err != nil {
			return model.RunSummary{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		r.adopt(next, gen+1)
		current = next
	}

	if r.cfg.KeepClones {
		// Leave the clone pool populated with the final parameter sets.
		if err := r.dispatcher.Evaluate(ctx, current); err != nil {
			return model.RunSummary{}, fmt.Errorf("final population: %w", err)
		}
	} else {
		if err := r.dispatcher.ReleaseClones(); err != nil {
			return model.RunSummary{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return model.RunSummary{}, err
	}
	if err := r.browser.ResetIDs(ctx); err != nil {
		return model.RunSummary{}, fmt.Errorf("reset run IDs: %w", err)
	}

	summary, err = r.saveRun(ctx)
	if err != nil {
		return model.RunSummary{}, err
	}
	fmt.Fprintf(r.cfg.Progress, "Elapsed time: %s\n", time.Since(start).Round(time.Second))
	return summary, nil
}

// adopt numbers a new generation: fresh IDs, the generation stamp, and for
// seed individuals a birth generation of zero.
func (r *Run) adopt(individuals []model.Individual, generation int) {
	for i := range individuals {
		individuals[i].ID = r.nextID
		r.nextID++
		individuals[i].Generation = generation
	}
}

// selfTest dress-rehearses the evaluation path on a disposable clone before
// any generation is run: apply the first seed genome, run once, check that
// every declared indicator comes back exactly once, then clean up.
func (r *Run) selfTest(ctx context.Context, seed model.Individual) (err error) {
	tag := fmt.Sprintf("%s__test_%s", r.cfg.Prefix, uuid.NewString()[:8])
	clone, err := r.project.Clone(tag)
	if err != nil {
		return fmt.Errorf("provision clone %s: %w", tag, err)
	}
	defer func() {
		if err != nil {
			_ = clone.Remove()
		}
	}()
	if err := r.dispatcher.ApplyParameters(clone, seed.Genome); err != nil {
		return err
	}
	if err := clone.Run(ctx, r.dispatcher.Indicators(), "run_test "+tag); err != nil {
		return fmt.Errorf("run clone %s: %w", tag, err)
	}
	runs, err := r.browser.RunsByTag(ctx, tag)
	if err != nil {
		return err
	}
	if len(runs) != 1 {
		return fmt.Errorf("expected 1 run tagged %s, found %d", tag, len(runs))
	}
	recs, err := r.browser.AllIndicators(ctx, runs[0].ID)
	if err != nil {
		return err
	}
	if len(recs) != len(r.objectives) {
		return fmt.Errorf("run returned %d indicators, declared %d", len(recs), len(r.objectives))
	}
	fmt.Fprintln(r.cfg.Progress, "Test objective values:")
	for _, o := range r.objectives {
		vals, err := r.browser.Indicators(ctx, runs[0].ID, o.Indicator)
		if err != nil {
			return err
		}
		if len(vals) != 1 {
			return fmt.Errorf("indicator %s: expected 1 value, found %d", o.Indicator, len(vals))
		}
		fmt.Fprintf(r.cfg.Progress, "%s=%g\n", o.Name, vals[0].Value)
	}
	if err := r.browser.DeleteRun(ctx, runs[0].ID); err != nil {
		return err
	}
	if err := clone.Remove(); err != nil {
		return fmt.Errorf("remove clone %s: %w", tag, err)
	}
	return nil
}

// report prints the per-generation progress line with median and minimum
// objective values and a projected time to completion.
func (r *Run) report(gen int, population []model.Individual) {
	mean := r.dispatcher.MeanGenerationTime()
	remaining := mean * time.Duration(r.cfg.MaxGenerations-gen)
	fmt.Fprintf(r.cfg.Progress,
		"Generation %d completed in %s, mean generation time %s, max_generations in ~%s\n",
		gen, r.dispatcher.LastGenerationTime().Round(time.Millisecond),
		mean.Round(time.Millisecond), remaining.Round(time.Second))
	fmt.Fprintln(r.cfg.Progress, "Objectives (median, min):")
	for j, o := range r.objectives {
		values := make([]float64, len(population))
		for i, ind := range population {
			values[i] = ind.Objectives[j]
		}
		fmt.Fprintf(r.cfg.Progress, "%s: %3.6f %3.6f\n", o.Name, median(values), minimum(values))
	}
}

// saveRun reads the finished population file back and persists the summary:
// mean last-generation objective values as indicators, mean parameter values,
// and the population file attached as a result file.
func (r *Run) saveRun(ctx context.Context) (model.RunSummary, error) {
	store, err := popfile.Read(r.cfg.Output)
	if err != nil {
		return model.RunSummary{}, err
	}
	lastGen := store.LastGeneration()
	if len(lastGen) == 0 {
		return model.RunSummary{}, popfile.ErrEmptyPopulation
	}

	tags := r.cfg.Prefix
	if r.cfg.Prefix != r.strategy.Name() {
		tags += " " + r.strategy.Name()
	}
	notes := fmt.Sprintf("population_size=%d, max_generations=%d",
		r.cfg.PopulationSize, r.cfg.MaxGenerations)

	run, err := r.browser.InsertRun(ctx, tags, notes)
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("insert run: %w", err)
	}

	meanObjectives := make(map[string]float64, len(store.Objectives))
	for j, o := range store.Objectives {
		var sum float64
		for _, ind := range lastGen {
			sum += ind.Objectives[j]
		}
		meanObjectives[o.Indicator] = sum / float64(len(lastGen))
		err := r.browser.InsertIndicator(ctx, model.IndicatorRecord{
			RunID: run.ID,
			Name:  o.Indicator,
			Value: meanObjectives[o.Indicator],
			Tags:  "mean_final_population",
		})
		if err != nil {
			return model.RunSummary{}, fmt.Errorf("insert indicator %s: %w", o.Indicator, err)
		}
	}
	meanParameters := make(map[string]float64, len(store.Parameters))
	for j, p := range store.Parameters {
		var sum float64
		for _, ind := range lastGen {
			sum += ind.Genome[j]
		}
		meanParameters[p.Name] = sum / float64(len(lastGen))
		err := r.browser.InsertParameter(ctx, model.ParameterRecord{
			RunID: run.ID,
			Name:  p.Name,
			Value: meanParameters[p.Name],
			Tags:  "mean_final_population",
		})
		if err != nil {
			return model.RunSummary{}, fmt.Errorf("insert parameter %s: %w", p.Name, err)
		}
	}
	err = r.browser.AttachResultFile(ctx, model.ResultFileRecord{
		RunID: run.ID,
		Tags:  tags,
		Path:  r.cfg.Output,
	})
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("attach result file: %w", err)
	}

	return model.RunSummary{
		RunID:          run.ID,
		Tags:           tags,
		Notes:          notes,
		MeanObjectives: meanObjectives,
		MeanParameters: meanParameters,
		PopulationFile: r.cfg.Output,
	}, nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func minimum(values []float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
