// Package evo provides the evolutionary strategies that drive parameter
// calibration. The orchestrator owns the generational loop; a Strategy only
// turns an evaluated generation into the next candidate generation. All
// objectives are minimized.
package evo

import (
	"fmt"

	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

// Kind selects a concrete strategy.
type Kind string

const (
	KindSMSEMOA Kind = "sms-emoa"
	KindCommaEA Kind = "comma-ea"
	KindCMSAES  Kind = "cmsa-es"
	KindNSGA2   Kind = "nsga2"
)

// ParseKind validates a strategy name from configuration or the CLI.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSMSEMOA, KindCommaEA, KindCMSAES, KindNSGA2:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown strategy: %q (want sms-emoa, comma-ea, cmsa-es or nsga2)", s)
	}
}

// Strategy proposes candidate generations. Next receives the fully evaluated
// current generation and returns the next generation's unevaluated
// candidates. Done reports whether the configured generation budget is
// exhausted after the given generation.
type Strategy interface {
	Name() string
	Next(current []model.Individual) ([]model.Individual, error)
	Done(generation int) bool
}

// Config is shared by all strategies.
type Config struct {
	Parameters     []model.ParameterSpec
	PopulationSize int
	// NumOffspring defaults to PopulationSize.
	NumOffspring   int
	MaxGenerations int
	Seed           int64

	// Variation settings; zero values select the defaults below.
	CrossoverRate float64 // default 0.9
	MutationRate  float64 // default 1/len(Parameters)
	Eta           float64 // SBX / polynomial mutation distribution index, default 20
}

func (c *Config) normalize() error {
	if len(c.Parameters) == 0 {
		return fmt.Errorf("parameters are required")
	}
	if c.PopulationSize <= 0 {
		return fmt.Errorf("population size must be > 0")
	}
	if c.MaxGenerations <= 0 {
		return fmt.Errorf("max generations must be > 0")
	}
	if c.NumOffspring <= 0 {
		c.NumOffspring = c.PopulationSize
	}
	if c.CrossoverRate <= 0 {
		c.CrossoverRate = 0.9
	}
	if c.MutationRate <= 0 {
		c.MutationRate = 1.0 / float64(len(c.Parameters))
	}
	if c.Eta <= 0 {
		c.Eta = 20
	}
	return nil
}

// New constructs the strategy for a Kind.
func New(kind Kind, cfg Config) (Strategy, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(uint64(cfg.Seed)))
	switch kind {
	case KindNSGA2:
		return &nsga2{cfg: cfg, rng: rng}, nil
	case KindSMSEMOA:
		return &smsEMOA{cfg: cfg, rng: rng}, nil
	case KindCommaEA:
		return &commaEA{cfg: cfg, rng: rng}, nil
	case KindCMSAES:
		return newCMSAES(cfg, rng), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind: %q", kind)
	}
}

// SeedPopulation samples every parameter independently and uniformly within
// its bounds.
func SeedPopulation(cfg Config, rng *rand.Rand) []model.Individual {
	population := make([]model.Individual, cfg.PopulationSize)
	for i := range population {
		genome := make([]float64, len(cfg.Parameters))
		for j, p := range cfg.Parameters {
			genome[j] = p.Lower + rng.Float64()*(p.Upper-p.Lower)
		}
		population[i] = model.Individual{Genome: genome}
	}
	return population
}
