// Package pareto selects representative individuals from the final
// generation of a population store.
package pareto

import (
	"fmt"
	"math"

	"swimevo/internal/model"
	"swimevo/internal/popfile"
)

// BestTradeoff picks the last-generation individual with the shortest
// Euclidean distance to the objective-space origin after scaling each
// objective by its edge value. The edge is the per-objective maximum of the
// last generation, lowered where minObjectives declares a smaller ceiling.
// minObjectives may be nil; otherwise it must have one value per objective.
// Ties go to the earliest individual in row order.
func BestTradeoff(store popfile.Store, minObjectives []float64) (model.Individual, error) {
	lastGen := store.LastGeneration()
	if len(lastGen) == 0 {
		return model.Individual{}, fmt.Errorf("last generation is empty")
	}
	edges, err := edgeValues(store, lastGen, minObjectives)
	if err != nil {
		return model.Individual{}, err
	}

	bestIdx := 0
	bestDist := math.Inf(1)
	for i, ind := range lastGen {
		var sum float64
		for j, v := range ind.Objectives {
			scaled := v / edges[j]
			sum += scaled * scaled
		}
		if dist := math.Sqrt(sum); dist < bestDist {
			bestDist = dist
			bestIdx = i
		}
	}
	return lastGen[bestIdx], nil
}

// SelectMinObjectives filters the last generation to individuals whose
// objective values are all strictly below the given ceilings. minObjectives
// may be nil; named ceilings override the positional slice per objective.
// Objectives with no ceiling are unconstrained.
func SelectMinObjectives(store popfile.Store, minObjectives []float64, named map[string]float64) ([]model.Individual, error) {
	ceilings := make(map[string]float64)
	if minObjectives != nil {
		if len(minObjectives) != len(store.Objectives) {
			return nil, fmt.Errorf("got %d ceilings for %d objectives", len(minObjectives), len(store.Objectives))
		}
		for i, o := range store.Objectives {
			ceilings[o.Name] = minObjectives[i]
		}
	}
	for name, v := range named {
		if store.ObjectiveIndex(name) < 0 {
			return nil, fmt.Errorf("unknown objective %q", name)
		}
		ceilings[name] = v
	}

	var selected []model.Individual
	for _, ind := range store.LastGeneration() {
		keep := true
		for name, ceiling := range ceilings {
			if ind.Objectives[store.ObjectiveIndex(name)] >= ceiling {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, ind)
		}
	}
	return selected, nil
}

func edgeValues(store popfile.Store, lastGen []model.Individual, minObjectives []float64) ([]float64, error) {
	if minObjectives != nil && len(minObjectives) != len(store.Objectives) {
		return nil, fmt.Errorf("got %d ceilings for %d objectives", len(minObjectives), len(store.Objectives))
	}
	edges := make([]float64, len(store.Objectives))
	for j := range edges {
		max := math.Inf(-1)
		for _, ind := range lastGen {
			if ind.Objectives[j] > max {
				max = ind.Objectives[j]
			}
		}
		edges[j] = max
		if minObjectives != nil && minObjectives[j] < max {
			edges[j] = minObjectives[j]
		}
	}
	return edges, nil
}
