package optimize

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"swimevo/internal/evo"
	"swimevo/internal/model"
)

// Config holds every knob of an optimization run. Call-site values win over
// project settings, which win over the defaults below; Normalize resolves the
// merge once, before the run starts.
type Config struct {
	// Parameters maps a calibration parameter name to its (lower, upper)
	// bounds. Required.
	Parameters map[string][2]float64
	// Objectives is an ordered list of indicator names used verbatim as
	// objective names. Ignored when ObjectiveMap is set.
	Objectives []string
	// ObjectiveMap maps objective names to indicator names, for renaming
	// objectives. Processed in objective-name order for determinism.
	ObjectiveMap map[string]string

	PopulationSize int      // default 10
	MaxGenerations int      // default 10
	Strategy       evo.Kind // default sms-emoa
	// Prefix names run tags and clone directories. Default: strategy name.
	Prefix string
	// Output is the population CSV path. Default:
	// [<prefix>_]<strategy>_populations.csv under Dir.
	Output string
	// Dir anchors the default Output path.
	Dir string

	// KeepClones leaves the clone pool in place after the run and evaluates
	// the final population in it once more.
	KeepClones bool
	// SkipSelfTest starts the generational loop without the single-clone
	// dress rehearsal.
	SkipSelfTest bool
	// SelfTestOnly runs the dress rehearsal and stops.
	SelfTestOnly bool

	Seed int64

	// Variation settings forwarded to the strategy; zero values select the
	// strategy defaults.
	NumOffspring  int
	CrossoverRate float64
	MutationRate  float64
	Eta           float64

	// Progress receives per-generation reports; defaults to io.Discard.
	Progress io.Writer
}

// Normalize validates the config, fills defaults and resolves the derived
// fields. It is idempotent.
func (c *Config) Normalize() error {
	if len(c.Parameters) == 0 {
		return fmt.Errorf("parameters are required")
	}
	for name, bounds := range c.Parameters {
		if bounds[0] >= bounds[1] {
			return fmt.Errorf("parameter %s: lower bound %g must be below upper bound %g",
				name, bounds[0], bounds[1])
		}
	}
	if len(c.Objectives) == 0 && len(c.ObjectiveMap) == 0 {
		return fmt.Errorf("objectives are required")
	}
	if c.PopulationSize <= 0 {
		c.PopulationSize = 10
	}
	if c.MaxGenerations <= 0 {
		c.MaxGenerations = 10
	}
	if c.Strategy == "" {
		c.Strategy = evo.KindSMSEMOA
	}
	if _, err := evo.ParseKind(string(c.Strategy)); err != nil {
		return err
	}
	if c.Output == "" {
		name := string(c.Strategy) + "_populations.csv"
		if c.Prefix != "" {
			name = c.Prefix + "_" + name
		}
		c.Output = filepath.Join(c.Dir, name)
	}
	if c.Prefix == "" {
		c.Prefix = string(c.Strategy)
	}
	if c.Progress == nil {
		c.Progress = io.Discard
	}
	return nil
}

// ParameterSpecs returns the parameters sorted by name.
func (c *Config) ParameterSpecs() []model.ParameterSpec {
	names := make([]string, 0, len(c.Parameters))
	for name := range c.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	specs := make([]model.ParameterSpec, len(names))
	for i, name := range names {
		bounds := c.Parameters[name]
		specs[i] = model.ParameterSpec{Name: name, Lower: bounds[0], Upper: bounds[1]}
	}
	return specs
}

// ObjectiveSpecs resolves the objective declaration into sorted specs. A
// plain list maps each indicator to itself.
func (c *Config) ObjectiveSpecs() []model.ObjectiveSpec {
	var specs []model.ObjectiveSpec
	if len(c.ObjectiveMap) > 0 {
		for name, indicator := range c.ObjectiveMap {
			specs = append(specs, model.ObjectiveSpec{Name: name, Indicator: indicator})
		}
	} else {
		for _, name := range c.Objectives {
			specs = append(specs, model.ObjectiveSpec{Name: name, Indicator: name})
		}
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
