package evo

import (
	"fmt"

	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

// nsga2 is an elitist (mu+lambda) NSGA-II variant: survivors of the combined
// parent and candidate populations are kept by front rank and crowding
// distance, offspring come from binary tournaments with SBX crossover and
// polynomial mutation.
type nsga2 struct {
	cfg     Config
	rng     *rand.Rand
	archive []model.Individual
	gen     int
}

func (s *nsga2) Name() string { return string(KindNSGA2) }

func (s *nsga2) Done(generation int) bool {
	return generation >= s.cfg.MaxGenerations-1
}

func (s *nsga2) Next(current []model.Individual) ([]model.Individual, error) {
	if err := checkEvaluated(current); err != nil {
		return nil, err
	}
	combined := append(append([]model.Individual(nil), s.archive...), current...)
	s.archive = truncateByFronts(combined, s.cfg.PopulationSize)
	s.gen++

	pool := rankAll(s.archive)
	offspring := make([]model.Individual, 0, s.cfg.NumOffspring)
	for len(offspring) < s.cfg.NumOffspring {
		p1 := tournamentSelect(pool, s.rng)
		p2 := tournamentSelect(pool, s.rng)
		var g1, g2 []float64
		if s.rng.Float64() < s.cfg.CrossoverRate {
			g1, g2 = sbxCrossover(p1.Genome, p2.Genome, s.cfg.Parameters, s.cfg.Eta, s.rng)
		} else {
			g1, g2 = cloneGenome(p1.Genome), cloneGenome(p2.Genome)
		}
		polynomialMutation(g1, s.cfg.Parameters, s.cfg.MutationRate, s.cfg.Eta, s.rng)
		offspring = append(offspring, model.Individual{Genome: g1, BirthGeneration: s.gen})
		if len(offspring) < s.cfg.NumOffspring {
			polynomialMutation(g2, s.cfg.Parameters, s.cfg.MutationRate, s.cfg.Eta, s.rng)
			offspring = append(offspring, model.Individual{Genome: g2, BirthGeneration: s.gen})
		}
	}
	return offspring, nil
}

func checkEvaluated(population []model.Individual) error {
	if len(population) == 0 {
		return fmt.Errorf("current generation is empty")
	}
	for _, ind := range population {
		if !ind.Evaluated() {
			return fmt.Errorf("individual %d is unevaluated", ind.ID)
		}
	}
	return nil
}
