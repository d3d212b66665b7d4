package evo

import (
	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

// smsEMOA keeps survivors by non-dominated front and discards from the worst
// retained front by minimal exclusive hypervolume (two objectives) or minimal
// crowding distance (otherwise). Variation matches the NSGA-II operators.
type smsEMOA struct {
	cfg     Config
	rng     *rand.Rand
	archive []model.Individual
	gen     int
}

func (s *smsEMOA) Name() string { return string(KindSMSEMOA) }

func (s *smsEMOA) Done(generation int) bool {
	return generation >= s.cfg.MaxGenerations-1
}

func (s *smsEMOA) Next(current []model.Individual) ([]model.Individual, error) {
	if err := checkEvaluated(current); err != nil {
		return nil, err
	}
	combined := append(append([]model.Individual(nil), s.archive...), current...)
	s.archive = s.truncate(combined, s.cfg.PopulationSize)
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

func (s *smsEMOA) truncate(population []model.Individual, n int) []model.Individual {
	if n >= len(population) {
		return population
	}
	fronts := nonDominatedSort(population)
	out := make([]model.Individual, 0, n)
	for _, front := range fronts {
		if len(out)+len(front) <= n {
			for _, item := range front {
				out = append(out, item.ind)
			}
			continue
		}
		// Drop the lowest contributors of the split front one by one.
		keep := append([]*ranked(nil), front...)
		for len(out)+len(keep) > n {
			drop := 0
			if len(keep[0].ind.Objectives) == 2 {
				contrib := hypervolumeContribution2D(keep)
				for i := range contrib {
					if contrib[i] < contrib[drop] {
						drop = i
					}
				}
			} else {
				crowdingDistance(keep)
				for i := range keep {
					if keep[i].distance < keep[drop].distance {
						drop = i
					}
				}
			}
			keep = append(keep[:drop], keep[drop+1:]...)
		}
		for _, item := range keep {
			out = append(out, item.ind)
		}
		break
	}
	return out
}
