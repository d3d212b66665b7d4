package evo

import (
	"math"

	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

// sbxCrossover performs simulated binary crossover per gene with probability
// 0.5, clamping children to the parameter bounds.
func sbxCrossover(p1, p2 []float64, parameters []model.ParameterSpec, eta float64, rng *rand.Rand) ([]float64, []float64) {
	c1 := make([]float64, len(p1))
	c2 := make([]float64, len(p2))
	for i := range p1 {
		if rng.Float64() >= 0.5 {
			c1[i] = p1[i]
			c2[i] = p2[i]
			continue
		}
		u := rng.Float64()
		var beta float64
		if u <= 0.5 {
			beta = math.Pow(2*u, 1/(eta+1))
		} else {
			beta = math.Pow(1/(2*(1-u)), 1/(eta+1))
		}
		c1[i] = clamp(0.5*((1+beta)*p1[i]+(1-beta)*p2[i]), parameters[i])
		c2[i] = clamp(0.5*((1-beta)*p1[i]+(1+beta)*p2[i]), parameters[i])
	}
	return c1, c2
}

// polynomialMutation perturbs each gene with the given probability using the
// polynomial distribution.
func polynomialMutation(genome []float64, parameters []model.ParameterSpec, rate, eta float64, rng *rand.Rand) {
	for i := range genome {
		if rng.Float64() >= rate {
			continue
		}
		span := parameters[i].Upper - parameters[i].Lower
		u := rng.Float64()
		var deltaq float64
		if u < 0.5 {
			deltaq = math.Pow(2*u, 1/(eta+1)) - 1
		} else {
			deltaq = 1 - math.Pow(2*(1-u), 1/(eta+1))
		}
		genome[i] = clamp(genome[i]+deltaq*span, parameters[i])
	}
}

func clamp(v float64, p model.ParameterSpec) float64 {
	return math.Max(p.Lower, math.Min(p.Upper, v))
}

func cloneGenome(g []float64) []float64 {
	return append([]float64(nil), g...)
}
