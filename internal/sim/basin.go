package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"swimevo/internal/browser"
	"swimevo/internal/model"
)

// Basin parameter names understood by ApplyParameters.
const (
	ParamRunoffCoeff = "runoff_coeff"
	ParamRecession   = "recession"
)

// Indicator names reported by basin runs. Both are error measures to be
// minimized.
const (
	IndicatorRMSE  = "rmse"
	IndicatorPBias = "pbias"
)

// BasinOptions configures the synthetic basin project. Zero values select a
// one-year daily forcing series and a plausible reference parameterization.
type BasinOptions struct {
	Steps           int
	TrueRunoffCoeff float64
	TrueRecession   float64
	// SubcatchmentOverrides marks per-subcatchment parameter scoping as
	// active, which the dispatcher warns about.
	SubcatchmentOverrides bool
}

// BasinProject is a self-contained rainfall-runoff model: a single linear
// reservoir fed by a synthetic precipitation series. Observed discharge is
// generated once from the reference parameters, so calibration against it
// has a known optimum. It stands in for a full SWIM project in tests and
// demo runs.
type BasinProject struct {
	browser browser.Browser
	opts    BasinOptions

	precip   []float64
	observed []float64

	mu     sync.Mutex
	clones map[string]*BasinClone
}

func NewBasinProject(b browser.Browser, opts BasinOptions) *BasinProject {
	if opts.Steps <= 0 {
		opts.Steps = 365
	}
	if opts.TrueRunoffCoeff == 0 {
		opts.TrueRunoffCoeff = 0.45
	}
	if opts.TrueRecession == 0 {
		opts.TrueRecession = 0.2
	}
	p := &BasinProject{
		browser: b,
		opts:    opts,
		clones:  make(map[string]*BasinClone),
	}
	p.precip = syntheticPrecipitation(opts.Steps)
	p.observed = simulateDischarge(p.precip, opts.TrueRunoffCoeff, opts.TrueRecession)
	return p
}

// syntheticPrecipitation produces a deterministic seasonal rainfall series:
// a wet-season sinusoid with a short recurring storm cycle on top.
func syntheticPrecipitation(steps int) []float64 {
	out := make([]float64, steps)
	for t := range out {
		season := 3 * (1 + math.Sin(2*math.Pi*float64(t)/365))
		storm := 0.0
		if t%11 < 3 {
			storm = 8 * math.Sin(math.Pi*float64(t%11)/3)
		}
		out[t] = season + storm
	}
	return out
}

// simulateDischarge runs the linear reservoir: a fixed share of rainfall
// becomes quickflow, the rest infiltrates and drains with the recession
// constant.
func simulateDischarge(precip []float64, runoffCoeff, recession float64) []float64 {
	out := make([]float64, len(precip))
	storage := 0.0
	for t, p := range precip {
		quick := runoffCoeff * p
		baseflow := recession * storage
		storage += (1-runoffCoeff)*p - baseflow
		out[t] = quick + baseflow
	}
	return out
}

func (p *BasinProject) Clone(tag string) (Clone, error) {
	if tag == "" {
		return nil, errors.New("clone tag is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.clones[tag]; exists {
		return nil, fmt.Errorf("clone already exists: %s", tag)
	}
	c := &BasinClone{
		project: p,
		tag:     tag,
		parameters: map[string]float64{
			ParamRunoffCoeff: p.opts.TrueRunoffCoeff,
			ParamRecession:   p.opts.TrueRecession,
		},
	}
	p.clones[tag] = c
	return c, nil
}

func (p *BasinProject) SubcatchmentOverridesActive() bool {
	return p.opts.SubcatchmentOverrides
}

// CloneCount reports how many clones are currently provisioned.
func (p *BasinProject) CloneCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clones)
}

func (p *BasinProject) removeClone(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clones, tag)
}

type BasinClone struct {
	project    *BasinProject
	tag        string
	parameters map[string]float64
}

func (c *BasinClone) Tag() string {
	return c.tag
}

func (c *BasinClone) ApplyParameters(parameters map[string]float64) error {
	for name, value := range parameters {
		switch name {
		case ParamRunoffCoeff, ParamRecession:
			c.parameters[name] = value
		default:
			return fmt.Errorf("unknown basin parameter: %s", name)
		}
	}
	return nil
}

// Run simulates the clone's parameterization and records the requested
// indicators against the observed series. Unknown indicator names are
// skipped silently; the harvest side treats the missing record as a failed
// objective.
func (c *BasinClone) Run(ctx context.Context, indicators []string, tags string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	simulated := simulateDischarge(c.project.precip,
		c.parameters[ParamRunoffCoeff], c.parameters[ParamRecession])

	run, err := c.project.browser.InsertRun(ctx, tags, "")
	if err != nil {
		return fmt.Errorf("insert run for %s: %w", c.tag, err)
	}
	for _, name := range indicators {
		var value float64
		switch name {
		case IndicatorRMSE:
			value = rmse(simulated, c.project.observed)
		case IndicatorPBias:
			value = math.Abs(percentBias(simulated, c.project.observed))
		default:
			continue
		}
		rec := model.IndicatorRecord{RunID: run.ID, Name: name, Value: value}
		if err := c.project.browser.InsertIndicator(ctx, rec); err != nil {
			return fmt.Errorf("insert indicator %s for %s: %w", name, c.tag, err)
		}
	}
	return nil
}

func (c *BasinClone) Remove() error {
	c.project.removeClone(c.tag)
	return nil
}

func rmse(simulated, observed []float64) float64 {
	sum := 0.0
	for i := range observed {
		d := simulated[i] - observed[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(observed)))
}

func percentBias(simulated, observed []float64) float64 {
	var diff, total float64
	for i := range observed {
		diff += simulated[i] - observed[i]
		total += observed[i]
	}
	return 100 * diff / total
}
