package evo

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

var testParameters = []model.ParameterSpec{
	{Name: "recession", Lower: 0.01, Upper: 1},
	{Name: "runoff_coeff", Lower: 0, Upper: 1},
}

func testEvoConfig() Config {
	return Config{
		Parameters:     testParameters,
		PopulationSize: 8,
		MaxGenerations: 5,
		Seed:           7,
	}
}

// evaluate assigns synthetic objectives so strategies can rank individuals:
// distance to each parameter's midpoint, one per objective.
func evaluate(population []model.Individual) {
	for i := range population {
		g := population[i].Genome
		population[i].Objectives = []float64{
			math.Abs(g[0] - 0.5),
			math.Abs(g[1] - 0.5),
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"sms-emoa", "comma-ea", "cmsa-es", "nsga2"} {
		kind, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
		if string(kind) != name {
			t.Fatalf("ParseKind(%q) = %q", name, kind)
		}
	}
	if _, err := ParseKind("simulated-annealing"); err == nil {
		t.Fatal("expected unknown strategy name to be rejected")
	}
}

func TestSeedPopulationWithinBounds(t *testing.T) {
	cfg := testEvoConfig()
	rng := rand.New(rand.NewSource(7))
	population := SeedPopulation(cfg, rng)
	if len(population) != cfg.PopulationSize {
		t.Fatalf("seed population size = %d, want %d", len(population), cfg.PopulationSize)
	}
	for i, ind := range population {
		for j, p := range cfg.Parameters {
			if ind.Genome[j] < p.Lower || ind.Genome[j] > p.Upper {
				t.Fatalf("individual %d parameter %s = %g outside [%g, %g]",
					i, p.Name, ind.Genome[j], p.Lower, p.Upper)
			}
		}
	}
}

func TestStrategiesProduceFullGenerationsWithinBounds(t *testing.T) {
	for _, kind := range []Kind{KindSMSEMOA, KindCommaEA, KindCMSAES, KindNSGA2} {
		t.Run(string(kind), func(t *testing.T) {
			cfg := testEvoConfig()
			s, err := New(kind, cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			current := SeedPopulation(cfg, rand.New(rand.NewSource(7)))
			for gen := 0; gen < cfg.MaxGenerations; gen++ {
				evaluate(current)
				if s.Done(gen) {
					if gen != cfg.MaxGenerations-1 {
						t.Fatalf("Done at generation %d, want %d", gen, cfg.MaxGenerations-1)
					}
					break
				}
				next, err := s.Next(current)
				if err != nil {
					t.Fatalf("Next at generation %d: %v", gen, err)
				}
				if len(next) != cfg.PopulationSize {
					t.Fatalf("generation %d size = %d, want %d", gen+1, len(next), cfg.PopulationSize)
				}
				for i, ind := range next {
					if ind.Evaluated() {
						t.Fatalf("offspring %d of generation %d is already evaluated", i, gen+1)
					}
					if ind.BirthGeneration != gen+1 {
						t.Fatalf("offspring %d birth generation = %d, want %d", i, ind.BirthGeneration, gen+1)
					}
					for j, p := range cfg.Parameters {
						if ind.Genome[j] < p.Lower || ind.Genome[j] > p.Upper {
							t.Fatalf("offspring %d parameter %s = %g outside [%g, %g]",
								i, p.Name, ind.Genome[j], p.Lower, p.Upper)
						}
					}
				}
				current = next
			}
		})
	}
}

func TestStrategyDeterminism(t *testing.T) {
	offspring := make([][]model.Individual, 2)
	for trial := range offspring {
		cfg := testEvoConfig()
		s, err := New(KindNSGA2, cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		current := SeedPopulation(cfg, rand.New(rand.NewSource(7)))
		evaluate(current)
		next, err := s.Next(current)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		offspring[trial] = next
	}
	for i := range offspring[0] {
		for j := range offspring[0][i].Genome {
			if offspring[0][i].Genome[j] != offspring[1][i].Genome[j] {
				t.Fatalf("same seed produced different genomes at individual %d", i)
			}
		}
	}
}

func TestNextRejectsUnevaluated(t *testing.T) {
	cfg := testEvoConfig()
	s, err := New(KindSMSEMOA, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	current := SeedPopulation(cfg, rand.New(rand.NewSource(7)))
	if _, err := s.Next(current); err == nil {
		t.Fatal("expected unevaluated generation to be rejected")
	}
}

func TestConfigNormalizeDefaults(t *testing.T) {
	cfg := testEvoConfig()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.NumOffspring != cfg.PopulationSize {
		t.Fatalf("NumOffspring = %d, want %d", cfg.NumOffspring, cfg.PopulationSize)
	}
	if cfg.CrossoverRate != 0.9 || cfg.Eta != 20 {
		t.Fatalf("variation defaults = crossover %g eta %g", cfg.CrossoverRate, cfg.Eta)
	}
	if cfg.MutationRate != 0.5 {
		t.Fatalf("MutationRate = %g, want 1/2", cfg.MutationRate)
	}
}
