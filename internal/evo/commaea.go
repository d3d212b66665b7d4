package evo

import (
	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

// commaEA is a non-elitist (mu,lambda) evolution strategy: parents are the
// best PopulationSize individuals of the current generation only, offspring
// are produced by polynomial mutation of uniformly picked parents. Without
// elitism a good solution can be lost again, which trades convergence speed
// for diversity.
type commaEA struct {
	cfg Config
	rng *rand.Rand
	gen int
}

func (s *commaEA) Name() string { return string(KindCommaEA) }

func (s *commaEA) Done(generation int) bool {
	return generation >= s.cfg.MaxGenerations-1
}

func (s *commaEA) Next(current []model.Individual) ([]model.Individual, error) {
	if err := checkEvaluated(current); err != nil {
		return nil, err
	}
	parents := truncateByFronts(current, s.cfg.PopulationSize)
	s.gen++

	offspring := make([]model.Individual, s.cfg.NumOffspring)
	for i := range offspring {
		parent := parents[s.rng.Intn(len(parents))]
		genome := cloneGenome(parent.Genome)
		polynomialMutation(genome, s.cfg.Parameters, s.cfg.MutationRate, s.cfg.Eta, s.rng)
		offspring[i] = model.Individual{Genome: genome, BirthGeneration: s.gen}
	}
	return offspring, nil
}
