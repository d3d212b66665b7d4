package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"swimevo/internal/browser"
	"swimevo/internal/evo"
	"swimevo/internal/optimize"
	api "swimevo/pkg/swimevo"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "optimize":
		return runOptimize(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "populations":
		return runPopulations(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	case "select":
		return runSelect(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: swimevoctl <optimize|runs|populations|best|select|plot|reset> [flags]", msg)
}

func newClient(browserKind, dbPath, settingsPath string) (*api.Client, error) {
	return api.New(api.Options{
		BrowserKind:  browserKind,
		DBPath:       dbPath,
		SettingsPath: settingsPath,
	})
}

func runOptimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	parameters := fs.String("parameters", "", "calibration parameters as name=lower:upper[,name=lower:upper...]")
	objectives := fs.String("objectives", "", "comma-separated indicator names used as objectives")
	objectiveMap := fs.String("objective-map", "", "objective renames as objective=indicator[,objective=indicator...]")
	population := fs.Int("pop", 0, "population size (default 10)")
	generations := fs.Int("gens", 0, "generation count (default 10)")
	strategyName := fs.String("strategy", "", "strategy: "+api.Strategies())
	prefix := fs.String("prefix", "", "run tag and clone prefix (default: strategy name)")
	output := fs.String("output", "", "population csv path (default: [<prefix>_]<strategy>_populations.csv)")
	keepClones := fs.Bool("keep-clones", false, "keep the clone pool and re-run the final population in it")
	skipSelfTest := fs.Bool("skip-self-test", false, "skip the pre-run self-test")
	selfTestOnly := fs.Bool("self-test-only", false, "run the self-test and exit")
	seed := fs.Int64("seed", 1, "rng seed")
	execName := fs.String("executor", "parallel", "batch executor: serial|parallel|queue")
	workers := fs.Int("workers", 0, "parallel executor worker count (0: one per cpu)")
	slots := fs.Int("slots", 1, "queue executor slot count")
	updateIntervalS := fs.Int("update-interval", 10, "queue poll interval in seconds")
	browserKind := fs.String("browser", browser.DefaultBrowserKind(), "run browser backend: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path")
	settingsPath := fs.String("settings", "", "project settings yaml path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := optimize.Config{
		PopulationSize: *population,
		MaxGenerations: *generations,
		Prefix:         *prefix,
		Output:         *output,
		KeepClones:     *keepClones,
		SkipSelfTest:   *skipSelfTest,
		SelfTestOnly:   *selfTestOnly,
		Seed:           *seed,
	}
	if *strategyName != "" {
		kind, err := evo.ParseKind(*strategyName)
		if err != nil {
			return err
		}
		cfg.Strategy = kind
	}
	if *parameters != "" {
		parsed, err := parseParameters(*parameters)
		if err != nil {
			return err
		}
		cfg.Parameters = parsed
	}
	if *objectives != "" {
		cfg.Objectives = strings.Split(*objectives, ",")
	}
	if *objectiveMap != "" {
		parsed, err := parseNamedStrings(*objectiveMap)
		if err != nil {
			return err
		}
		cfg.ObjectiveMap = parsed
	}

	client, err := newClient(*browserKind, *dbPath, *settingsPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Optimize(ctx, api.OptimizeRequest{
		Config:         cfg,
		Executor:       *execName,
		Workers:        *workers,
		Slots:          *slots,
		UpdateInterval: time.Duration(*updateIntervalS) * time.Second,
		Progress:       os.Stdout,
	})
	if err != nil {
		return err
	}
	if *selfTestOnly {
		fmt.Println("self-test passed")
		return nil
	}

	fmt.Printf("run completed run_id=%d tags=%q notes=%q\n", summary.RunID, summary.Tags, summary.Notes)
	for name, v := range summary.MeanObjectives {
		fmt.Printf("mean_objective %s=%.6f\n", name, v)
	}
	for name, v := range summary.MeanParameters {
		fmt.Printf("mean_parameter %s=%.6f\n", name, v)
	}
	fmt.Printf("population_file=%s\n", summary.PopulationFile)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	tag := fs.String("tag", "", "filter runs whose tags contain the fragment")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	browserKind := fs.String("browser", browser.DefaultBrowserKind(), "run browser backend: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*browserKind, *dbPath, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, api.RunsRequest{Tag: *tag, Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, item := range items {
		fmt.Printf("run_id=%d tags=%q notes=%q\n", item.Run.ID, item.Run.Tags, item.Run.Notes)
		for _, ind := range item.Indicators {
			fmt.Printf("indicator %s=%.6f tags=%q\n", ind.Name, ind.Value, ind.Tags)
		}
		for _, f := range item.Files {
			size := "missing"
			if info, err := os.Stat(f.Path); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			fmt.Printf("file path=%s size=%s tags=%q\n", f.Path, size, f.Tags)
		}
	}
	return nil
}

func runPopulations(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("populations", flag.ContinueOnError)
	path := fs.String("file", "", "population csv path")
	generation := fs.Int("gen", -1, "generation to print (-1: summary only)")
	jsonOut := fs.Bool("json", false, "emit individuals as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("populations requires --file")
	}

	client, err := newClient("", "", "")
	if err != nil {
		return err
	}
	store, err := client.Populations(*path)
	if err != nil {
		return err
	}

	fmt.Printf("file=%s generations=%d individuals=%s parameters=%d objectives=%d\n",
		store.Path, store.MaxGeneration()+1, humanize.Comma(int64(len(store.Individuals))),
		len(store.Parameters), len(store.Objectives))
	if *generation < 0 {
		return nil
	}
	individuals := store.Generation(*generation)
	if len(individuals) == 0 {
		return fmt.Errorf("no individuals in generation %d", *generation)
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(individuals)
	}
	for _, ind := range individuals {
		fmt.Printf("id=%d clone=%s birth_gen=%d objectives=%v genome=%v\n",
			ind.ID, ind.CloneTag, ind.BirthGeneration, ind.Objectives, ind.Genome)
	}
	return nil
}

func runBest(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	path := fs.String("file", "", "population csv path")
	ceilings := fs.String("ceilings", "", "comma-separated per-objective scaling ceilings")
	jsonOut := fs.Bool("json", false, "emit the individual as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("best requires --file")
	}
	minObjectives, err := parseFloats(*ceilings)
	if err != nil {
		return err
	}

	client, err := newClient("", "", "")
	if err != nil {
		return err
	}
	best, store, err := client.Best(*path, minObjectives)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(best)
	}

	fmt.Printf("id=%d clone=%s generation=%d\n", best.ID, best.CloneTag, best.Generation)
	for j, o := range store.Objectives {
		fmt.Printf("objective %s=%.6f\n", o.Name, best.Objectives[j])
	}
	for j, p := range store.Parameters {
		fmt.Printf("parameter %s=%.6f\n", p.Name, best.Genome[j])
	}
	return nil
}

func runSelect(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	path := fs.String("file", "", "population csv path")
	ceilings := fs.String("ceilings", "", "comma-separated per-objective ceilings, in objective order")
	named := fs.String("named", "", "named ceilings as objective=value[,objective=value...]")
	jsonOut := fs.Bool("json", false, "emit individuals as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("select requires --file")
	}
	if *ceilings == "" && *named == "" {
		return errors.New("select requires --ceilings or --named")
	}
	minObjectives, err := parseFloats(*ceilings)
	if err != nil {
		return err
	}
	namedCeilings, err := parseNamedFloats(*named)
	if err != nil {
		return err
	}

	client, err := newClient("", "", "")
	if err != nil {
		return err
	}
	selected, store, err := client.Select(*path, minObjectives, namedCeilings)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Println("no individuals below the given ceilings")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(selected)
	}

	for _, ind := range selected {
		parts := make([]string, len(store.Objectives))
		for j, o := range store.Objectives {
			parts[j] = fmt.Sprintf("%s=%.6f", o.Name, ind.Objectives[j])
		}
		fmt.Printf("id=%d clone=%s %s\n", ind.ID, ind.CloneTag, strings.Join(parts, " "))
	}
	return nil
}

func runPlot(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	path := fs.String("file", "", "population csv path")
	scatterOut := fs.String("scatter", "", "objective scatter html output path")
	generationsOut := fs.String("generations", "", "per-generation chart html output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("plot requires --file")
	}
	if *scatterOut == "" && *generationsOut == "" {
		return errors.New("plot requires --scatter or --generations")
	}

	client, err := newClient("", "", "")
	if err != nil {
		return err
	}
	err = client.Plot(api.PlotRequest{
		PopulationFile: *path,
		ScatterOut:     *scatterOut,
		GenerationsOut: *generationsOut,
	})
	if err != nil {
		return err
	}
	if *scatterOut != "" {
		fmt.Printf("scatter=%s\n", *scatterOut)
	}
	if *generationsOut != "" {
		fmt.Printf("generations=%s\n", *generationsOut)
	}
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	browserKind := fs.String("browser", browser.DefaultBrowserKind(), "run browser backend: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*browserKind, *dbPath, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset browser=%s\n", *browserKind)
	return nil
}
