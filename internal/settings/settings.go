// Package settings reads project-level defaults for optimization runs from a
// YAML file. Values from the file sit between built-in defaults and explicit
// call arguments in the merge order.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"swimevo/internal/evo"
	"swimevo/internal/optimize"
)

// Settings mirrors the optimization section of a project settings file.
type Settings struct {
	// Parameters maps parameter names to [lower, upper] bounds.
	Parameters map[string][2]float64 `yaml:"parameters"`
	// Objectives lists indicator names used verbatim as objective names.
	Objectives []string `yaml:"objectives"`
	// ObjectiveMap renames objectives; keys are objective names, values
	// indicator names. Takes precedence over Objectives.
	ObjectiveMap map[string]string `yaml:"objective_map"`

	PopulationSize int    `yaml:"population_size"`
	MaxGenerations int    `yaml:"max_generations"`
	Strategy       string `yaml:"strategy"`
	Prefix         string `yaml:"prefix"`
	Output         string `yaml:"output"`
	KeepClones     bool   `yaml:"keep_clones"`
	Seed           int64  `yaml:"seed"`

	// UpdateInterval is the cluster-queue poll interval in seconds.
	UpdateInterval int `yaml:"update_interval"`
	// Workers bounds the parallel executor; 0 means one per CPU.
	Workers int `yaml:"workers"`

	Browser BrowserSettings `yaml:"browser"`
}

// BrowserSettings selects the run record backend.
type BrowserSettings struct {
	Kind string `yaml:"kind"` // memory or sqlite
	Path string `yaml:"path"` // sqlite database file
}

// Load reads and validates a settings file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML and validates it.
func Parse(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validate(s *Settings) error {
	for name, bounds := range s.Parameters {
		if bounds[0] >= bounds[1] {
			return fmt.Errorf("parameter %s: lower bound %g must be below upper bound %g",
				name, bounds[0], bounds[1])
		}
	}
	if s.Strategy != "" {
		if _, err := evo.ParseKind(s.Strategy); err != nil {
			return err
		}
	}
	if s.PopulationSize < 0 {
		return fmt.Errorf("population_size cannot be negative")
	}
	if s.MaxGenerations < 0 {
		return fmt.Errorf("max_generations cannot be negative")
	}
	if s.UpdateInterval < 0 {
		return fmt.Errorf("update_interval cannot be negative")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	switch s.Browser.Kind {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("invalid browser kind: %s (must be memory or sqlite)", s.Browser.Kind)
	}
	return nil
}

// Apply fills unset fields of an optimize config from the settings. Explicit
// config values are left alone.
func (s *Settings) Apply(cfg *optimize.Config) {
	if len(cfg.Parameters) == 0 {
		cfg.Parameters = s.Parameters
	}
	if len(cfg.Objectives) == 0 && len(cfg.ObjectiveMap) == 0 {
		cfg.Objectives = s.Objectives
		cfg.ObjectiveMap = s.ObjectiveMap
	}
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = s.PopulationSize
	}
	if cfg.MaxGenerations == 0 {
		cfg.MaxGenerations = s.MaxGenerations
	}
	if cfg.Strategy == "" {
		cfg.Strategy = evo.Kind(s.Strategy)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = s.Prefix
	}
	if cfg.Output == "" {
		cfg.Output = s.Output
	}
	if !cfg.KeepClones {
		cfg.KeepClones = s.KeepClones
	}
	if cfg.Seed == 0 {
		cfg.Seed = s.Seed
	}
}
