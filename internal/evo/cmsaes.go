package evo

import (
	"math"

	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

// cmsaES is a simplified covariance matrix self-adaptation ES with a diagonal
// model: offspring are sampled from a normal distribution around the mean of
// the mu best individuals, and each offspring carries its own step-size
// multiplier drawn log-normally (self-adaptation). The retained step size is
// the mean multiplier of the selected individuals.
type cmsaES struct {
	cfg   Config
	rng   *rand.Rand
	gen   int
	mu    int
	sigma []float64 // per-dimension step size
	tau   float64   // self-adaptation learning rate
}

func newCMSAES(cfg Config, rng *rand.Rand) *cmsaES {
	mu := cfg.PopulationSize / 2
	if mu < 1 {
		mu = 1
	}
	sigma := make([]float64, len(cfg.Parameters))
	for i, p := range cfg.Parameters {
		sigma[i] = (p.Upper - p.Lower) / 4
	}
	return &cmsaES{
		cfg:   cfg,
		rng:   rng,
		mu:    mu,
		sigma: sigma,
		tau:   1 / math.Sqrt(2*float64(len(cfg.Parameters))),
	}
}

func (s *cmsaES) Name() string { return string(KindCMSAES) }

func (s *cmsaES) Done(generation int) bool {
	return generation >= s.cfg.MaxGenerations-1
}

func (s *cmsaES) Next(current []model.Individual) ([]model.Individual, error) {
	if err := checkEvaluated(current); err != nil {
		return nil, err
	}
	selected := truncateByFronts(current, s.mu)
	s.gen++

	dim := len(s.cfg.Parameters)
	mean := make([]float64, dim)
	for _, ind := range selected {
		for j := range mean {
			mean[j] += ind.Genome[j] / float64(len(selected))
		}
	}

	offspring := make([]model.Individual, s.cfg.NumOffspring)
	scaleSum := 0.0
	for i := range offspring {
		scale := math.Exp(s.tau * s.rng.NormFloat64())
		scaleSum += scale
		genome := make([]float64, dim)
		for j := range genome {
			genome[j] = clamp(mean[j]+scale*s.sigma[j]*s.rng.NormFloat64(), s.cfg.Parameters[j])
		}
		offspring[i] = model.Individual{Genome: genome, BirthGeneration: s.gen}
	}
	// Self-adapt toward the mean sampled multiplier.
	meanScale := scaleSum / float64(len(offspring))
	for j := range s.sigma {
		s.sigma[j] *= meanScale
	}
	return offspring, nil
}
