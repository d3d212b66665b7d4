// Package plot renders optimization results as standalone HTML charts.
package plot

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"swimevo/internal/model"
	"swimevo/internal/pareto"
	"swimevo/internal/popfile"
)

// ObjectiveScatter plots the last generation in objective space with the
// best-tradeoff individual highlighted. Only two-objective stores can be
// drawn this way.
func ObjectiveScatter(store popfile.Store, outputPath string) error {
	if len(store.Objectives) != 2 {
		return fmt.Errorf("can only plot 2 objectives, store has %d", len(store.Objectives))
	}
	lastGen := store.LastGeneration()
	if len(lastGen) == 0 {
		return popfile.ErrEmptyPopulation
	}
	best, err := pareto.BestTradeoff(store, nil)
	if err != nil {
		return err
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Objective space, generation %d", store.MaxGeneration()),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      store.Objectives[0].Name,
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      store.Objectives[1].Name,
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}))

	points := make([]opts.ScatterData, 0, len(lastGen))
	for _, ind := range lastGen {
		if ind.ID == best.ID {
			continue
		}
		points = append(points, opts.ScatterData{
			Value:      []float64{ind.Objectives[0], ind.Objectives[1]},
			Symbol:     "circle",
			SymbolSize: 6,
		})
	}
	bestPoint := []opts.ScatterData{{
		Value:      []float64{best.Objectives[0], best.Objectives[1]},
		Symbol:     "triangle",
		SymbolSize: 12,
	}}

	scatter.AddSeries("Final population", points).
		AddSeries("Best tradeoff", bestPoint).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
			charts.WithEmphasisOpts(opts.Emphasis{}),
		)

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return scatter.Render(f)
}

// GenerationChart plots median, minimum and maximum per generation for every
// objective, one line series per statistic and objective.
func GenerationChart(store popfile.Store, outputPath string) error {
	maxGen := store.MaxGeneration()
	generations := make([]string, maxGen+1)
	for g := range generations {
		generations[g] = fmt.Sprintf("%d", g)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Objectives per generation"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "generation"}),
	)
	line.SetXAxis(generations)

	for j, o := range store.Objectives {
		med := make([]opts.LineData, maxGen+1)
		min := make([]opts.LineData, maxGen+1)
		max := make([]opts.LineData, maxGen+1)
		for g := 0; g <= maxGen; g++ {
			stats := generationStats(store.Generation(g), j)
			med[g] = opts.LineData{Value: stats.median}
			min[g] = opts.LineData{Value: stats.min}
			max[g] = opts.LineData{Value: stats.max}
		}
		line.AddSeries(o.Name+" median", med).
			AddSeries(o.Name+" min", min).
			AddSeries(o.Name+" max", max)
	}
	line.SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}

type stats struct {
	median, min, max float64
}

func generationStats(individuals []model.Individual, objective int) stats {
	values := make([]float64, len(individuals))
	for i, ind := range individuals {
		values[i] = ind.Objectives[objective]
	}
	if len(values) == 0 {
		return stats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s := stats{min: sorted[0], max: sorted[len(sorted)-1]}
	n := len(sorted)
	if n%2 == 1 {
		s.median = sorted[n/2]
	} else {
		s.median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return s
}
