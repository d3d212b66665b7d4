package evo

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"swimevo/internal/model"
)

type ranked struct {
	ind      model.Individual
	rank     int
	distance float64
}

// dominates reports whether a Pareto-dominates b (all objectives minimized).
func dominates(a, b model.Individual) bool {
	better := false
	for i := range a.Objectives {
		if a.Objectives[i] > b.Objectives[i] {
			return false
		}
		if a.Objectives[i] < b.Objectives[i] {
			better = true
		}
	}
	return better
}

// nonDominatedSort partitions the population into fronts of mutually
// non-dominated individuals, best front first.
func nonDominatedSort(population []model.Individual) [][]*ranked {
	items := make([]*ranked, len(population))
	for i, ind := range population {
		items[i] = &ranked{ind: ind}
	}

	dominated := make([][]int, len(items))
	domCount := make([]int, len(items))
	for i := range items {
		for j := range items {
			if i == j {
				continue
			}
			if dominates(items[i].ind, items[j].ind) {
				dominated[i] = append(dominated[i], j)
			} else if dominates(items[j].ind, items[i].ind) {
				domCount[i]++
			}
		}
	}

	var fronts [][]*ranked
	var current []*ranked
	var currentIdx []int
	for i := range items {
		if domCount[i] == 0 {
			items[i].rank = 0
			current = append(current, items[i])
			currentIdx = append(currentIdx, i)
		}
	}
	fronts = append(fronts, current)

	frontIndex := 0
	for len(current) > 0 {
		var next []*ranked
		var nextIdx []int
		for _, idx := range currentIdx {
			for _, d := range dominated[idx] {
				domCount[d]--
				if domCount[d] == 0 {
					items[d].rank = frontIndex + 1
					next = append(next, items[d])
					nextIdx = append(nextIdx, d)
				}
			}
		}
		frontIndex++
		if len(next) > 0 {
			fronts = append(fronts, next)
		}
		current = next
		currentIdx = nextIdx
	}
	return fronts
}

// crowdingDistance assigns the NSGA-II crowding measure within one front.
// Boundary points get +Inf.
func crowdingDistance(front []*ranked) {
	if len(front) <= 2 {
		for _, item := range front {
			item.distance = math.Inf(1)
		}
		return
	}
	numObjectives := len(front[0].ind.Objectives)
	for _, item := range front {
		item.distance = 0
	}
	for m := 0; m < numObjectives; m++ {
		sort.Slice(front, func(i, j int) bool {
			return front[i].ind.Objectives[m] < front[j].ind.Objectives[m]
		})
		front[0].distance = math.Inf(1)
		front[len(front)-1].distance = math.Inf(1)
		span := front[len(front)-1].ind.Objectives[m] - front[0].ind.Objectives[m]
		if span == 0 {
			continue
		}
		for i := 1; i < len(front)-1; i++ {
			front[i].distance += (front[i+1].ind.Objectives[m] - front[i-1].ind.Objectives[m]) / span
		}
	}
}

// truncateByFronts keeps the n best individuals using front rank and, within
// the split front, crowding distance.
func truncateByFronts(population []model.Individual, n int) []model.Individual {
	if n >= len(population) {
		return population
	}
	fronts := nonDominatedSort(population)
	out := make([]model.Individual, 0, n)
	for _, front := range fronts {
		crowdingDistance(front)
		if len(out)+len(front) <= n {
			for _, item := range front {
				out = append(out, item.ind)
			}
			continue
		}
		sort.Slice(front, func(i, j int) bool {
			return front[i].distance > front[j].distance
		})
		for _, item := range front[:n-len(out)] {
			out = append(out, item.ind)
		}
		break
	}
	return out
}

// rankAll flattens the fronts with crowding distances computed, preserving
// front order.
func rankAll(population []model.Individual) []*ranked {
	fronts := nonDominatedSort(population)
	out := make([]*ranked, 0, len(population))
	for _, front := range fronts {
		crowdingDistance(front)
		out = append(out, front...)
	}
	return out
}

// tournamentSelect runs a binary tournament on rank then crowding distance.
func tournamentSelect(pool []*ranked, rng *rand.Rand) model.Individual {
	a := pool[rng.Intn(len(pool))]
	b := pool[rng.Intn(len(pool))]
	if b.rank < a.rank || (b.rank == a.rank && b.distance > a.distance) {
		return b.ind
	}
	return a.ind
}

// hypervolumeContribution2D computes, for a front of two-objective
// individuals, each individual's exclusive hypervolume. The reference point
// sits one objective span beyond the front's worst corner so the Pareto
// extremes carry positive contribution and are not truncated away first.
// Used by SMS-EMOA truncation.
func hypervolumeContribution2D(front []*ranked) []float64 {
	sorted := make([]*ranked, len(front))
	copy(sorted, front)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ind.Objectives[0] < sorted[j].ind.Objectives[0]
	})
	lo := [2]float64{math.Inf(1), math.Inf(1)}
	hi := [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, item := range sorted {
		for k := 0; k < 2; k++ {
			lo[k] = math.Min(lo[k], item.ind.Objectives[k])
			hi[k] = math.Max(hi[k], item.ind.Objectives[k])
		}
	}
	var ref [2]float64
	for k := 0; k < 2; k++ {
		span := hi[k] - lo[k]
		if span == 0 {
			span = 1
		}
		ref[k] = hi[k] + span
	}
	contrib := make([]float64, len(front))
	pos := make(map[*ranked]int, len(front))
	for i, item := range front {
		pos[item] = i
	}
	for i, item := range sorted {
		right := ref[0]
		if i+1 < len(sorted) {
			right = sorted[i+1].ind.Objectives[0]
		}
		upper := ref[1]
		if i > 0 {
			upper = sorted[i-1].ind.Objectives[1]
		}
		contrib[pos[item]] = (right - item.ind.Objectives[0]) * (upper - item.ind.Objectives[1])
	}
	return contrib
}
