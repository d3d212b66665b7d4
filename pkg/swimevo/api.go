// Package swimevo is the public entry point: a Client bundling the run
// browser, the simulation project and the optimization harness behind a
// small request/response API used by the CLI.
package swimevo

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"swimevo/internal/browser"
	"swimevo/internal/evo"
	"swimevo/internal/executor"
	"swimevo/internal/model"
	"swimevo/internal/optimize"
	"swimevo/internal/pareto"
	"swimevo/internal/plot"
	"swimevo/internal/popfile"
	"swimevo/internal/settings"
	"swimevo/internal/sim"
)

const defaultDBPath = "swimevo.db"

type Options struct {
	// BrowserKind selects the run record backend; empty picks the build's
	// default.
	BrowserKind string
	DBPath      string
	// SettingsPath points at a project settings file; empty skips the
	// settings layer of the config merge.
	SettingsPath string
	// Basin tunes the synthetic catchment the runs calibrate against.
	Basin sim.BasinOptions
}

type Client struct {
	browser  browser.Browser
	project  sim.Project
	settings *settings.Settings
}

func New(opts Options) (*Client, error) {
	kind := opts.BrowserKind
	if kind == "" {
		kind = browser.DefaultBrowserKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	var loaded *settings.Settings
	if opts.SettingsPath != "" {
		s, err := settings.Load(opts.SettingsPath)
		if err != nil {
			return nil, err
		}
		loaded = s
		if kind == browser.DefaultBrowserKind() && s.Browser.Kind != "" {
			kind = s.Browser.Kind
		}
		if opts.DBPath == "" && s.Browser.Path != "" {
			dbPath = s.Browser.Path
		}
	}

	b, err := browser.NewBrowser(kind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		browser:  b,
		project:  sim.NewBasinProject(b, opts.Basin),
		settings: loaded,
	}, nil
}

func (c *Client) Close() error {
	return browser.CloseIfSupported(c.browser)
}

func (c *Client) Init(ctx context.Context) error {
	return c.browser.Init(ctx)
}

type OptimizeRequest struct {
	Config optimize.Config
	// Executor is serial, parallel or queue; default parallel.
	Executor string
	// Workers bounds the parallel executor.
	Workers int
	// Slots bounds the queue executor.
	Slots int
	// UpdateInterval is the queue poll interval.
	UpdateInterval time.Duration
	Progress       io.Writer
}

// Optimize runs a full calibration and returns the persisted summary.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (model.RunSummary, error) {
	if err := c.browser.Init(ctx); err != nil {
		return model.RunSummary{}, err
	}
	cfg := req.Config
	if c.settings != nil {
		c.settings.Apply(&cfg)
	}
	cfg.Progress = req.Progress

	exec, err := c.executorFor(req)
	if err != nil {
		return model.RunSummary{}, err
	}
	run, err := optimize.New(c.project, c.browser, exec, cfg)
	if err != nil {
		return model.RunSummary{}, err
	}
	return run.Run(ctx)
}

// executorFor resolves the batch executor. Worker count and poll interval
// follow the config merge order: explicit request values win over the
// project settings file.
func (c *Client) executorFor(req OptimizeRequest) (executor.Executor, error) {
	workers := req.Workers
	if workers == 0 && c.settings != nil {
		workers = c.settings.Workers
	}
	interval := req.UpdateInterval
	if interval == 0 && c.settings != nil {
		interval = time.Duration(c.settings.UpdateInterval) * time.Second
	}
	switch req.Executor {
	case "serial":
		return &executor.Serial{}, nil
	case "", "parallel":
		return &executor.Parallel{Workers: workers}, nil
	case "queue":
		return &executor.Queue{Slots: req.Slots, PollInterval: interval}, nil
	default:
		return nil, fmt.Errorf("unknown executor: %q (want serial, parallel or queue)", req.Executor)
	}
}

type RunsRequest struct {
	// Tag filters runs whose tags contain the fragment; empty matches all.
	Tag   string
	Limit int
}

type RunItem struct {
	Run        model.RunRecord
	Indicators []model.IndicatorRecord
	Files      []model.ResultFileRecord
}

// Runs lists browser runs with their indicators and attached files.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if err := c.browser.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.browser.RunsByTag(ctx, req.Tag)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[len(runs)-req.Limit:]
	}
	items := make([]RunItem, len(runs))
	for i, run := range runs {
		indicators, err := c.browser.AllIndicators(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		files, err := c.browser.ResultFiles(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		items[i] = RunItem{Run: run, Indicators: indicators, Files: files}
	}
	return items, nil
}

// Populations reads a population file back as an immutable store.
func (c *Client) Populations(path string) (popfile.Store, error) {
	return popfile.Read(path)
}

// Best returns the best-tradeoff individual of a population file's last
// generation.
func (c *Client) Best(path string, minObjectives []float64) (model.Individual, popfile.Store, error) {
	store, err := popfile.Read(path)
	if err != nil {
		return model.Individual{}, popfile.Store{}, err
	}
	best, err := pareto.BestTradeoff(store, minObjectives)
	if err != nil {
		return model.Individual{}, popfile.Store{}, err
	}
	return best, store, nil
}

// Select filters a population file's last generation by objective ceilings.
func (c *Client) Select(path string, minObjectives []float64, named map[string]float64) ([]model.Individual, popfile.Store, error) {
	store, err := popfile.Read(path)
	if err != nil {
		return nil, popfile.Store{}, err
	}
	selected, err := pareto.SelectMinObjectives(store, minObjectives, named)
	if err != nil {
		return nil, popfile.Store{}, err
	}
	return selected, store, nil
}

type PlotRequest struct {
	PopulationFile string
	ScatterOut     string
	GenerationsOut string
}

// Plot renders the objective scatter and the per-generation chart. Either
// output may be empty to skip it.
func (c *Client) Plot(req PlotRequest) error {
	store, err := popfile.Read(req.PopulationFile)
	if err != nil {
		return err
	}
	if req.ScatterOut != "" {
		if err := plot.ObjectiveScatter(store, req.ScatterOut); err != nil {
			return fmt.Errorf("render scatter: %w", err)
		}
	}
	if req.GenerationsOut != "" {
		if err := plot.GenerationChart(store, req.GenerationsOut); err != nil {
			return fmt.Errorf("render generation chart: %w", err)
		}
	}
	return nil
}

// Reset resets the browser's run ID sequence.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.browser.Init(ctx); err != nil {
		return err
	}
	return c.browser.ResetIDs(ctx)
}

// Strategies lists the known strategy names.
func Strategies() string {
	kinds := []evo.Kind{evo.KindSMSEMOA, evo.KindCommaEA, evo.KindCMSAES, evo.KindNSGA2}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
