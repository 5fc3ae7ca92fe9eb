package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"

	"bitgen/internal/storage"
	"bitgen/pkg/bitgen"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
	defaultDBPath = "bitgen.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "problem-summary":
		return runProblemSummary(ctx, args[1:])
	case "problems":
		return runProblems(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "benchmark-summary":
		return runBenchmarkSummary(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// runFlags holds the flags shared by run and benchmark.
type runFlags struct {
	configPath    *string
	runID         *string
	problem       *string
	target        *string
	trapOrder     *int
	population    *int
	size          *int
	generations   *int
	selection     *string
	crossover     *string
	crossoverRate *float64
	mutationRate  *float64
	elitism       *bool
	elite         *int
	seed          *int64
	storeKind     *string
	dbPath        *string
	jsonOut       *bool
	logLevel      *string
}

func registerRunFlags(fs *flag.FlagSet) *runFlags {
	return &runFlags{
		configPath:    fs.String("config", "", "optional run config path (.json or .toml)"),
		runID:         fs.String("run-id", "", "explicit run id (optional)"),
		problem:       fs.String("problem", "onemax", "problem name"),
		target:        fs.String("target", "", "target strand for the target problem"),
		trapOrder:     fs.Int("trap-order", 4, "block order for the trap problem"),
		population:    fs.Int("pop", 100, "population size"),
		size:          fs.Int("size", 0, "chromosome size (0 uses the problem default)"),
		generations:   fs.Int("gens", 1000, "generation count"),
		selection:     fs.String("selection", "tournament", "selection type: tournament|fitness-proportional"),
		crossover:     fs.String("crossover", "one-point", "crossover type: one-point|two-point|uniform"),
		crossoverRate: fs.Float64("crossover-rate", 0.7, "probability that a pair is recombined"),
		mutationRate:  fs.Float64("mutation-rate", 0.01, "per-gene flip probability"),
		elitism:       fs.Bool("elitism", true, "carry the best chromosomes over unchanged"),
		elite:         fs.Int("elite", 2, "elite count when elitism is enabled"),
		seed:          fs.Int64("seed", 1, "rng seed"),
		storeKind:     fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:        fs.String("db-path", defaultDBPath, "sqlite database path"),
		jsonOut:       fs.Bool("json", false, "emit the result as JSON"),
		logLevel:      fs.String("log-level", "info", "log level: debug|info|warn|error"),
	}
}

func (f *runFlags) values() map[string]any {
	return map[string]any{
		"run-id":         *f.runID,
		"problem":        *f.problem,
		"target":         *f.target,
		"trap-order":     *f.trapOrder,
		"pop":            *f.population,
		"size":           *f.size,
		"gens":           *f.generations,
		"selection":      *f.selection,
		"crossover":      *f.crossover,
		"crossover-rate": *f.crossoverRate,
		"mutation-rate":  *f.mutationRate,
		"elitism":        *f.elitism,
		"elite":          *f.elite,
		"seed":           *f.seed,
	}
}

// request builds the run request. Without a config file every flag applies;
// with one, only flags given on the command line override it.
func (f *runFlags) request(fs *flag.FlagSet) (bitgen.RunRequest, error) {
	req, err := loadOrDefaultRunRequest(*f.configPath)
	if err != nil {
		return bitgen.RunRequest{}, err
	}

	values := f.values()
	set := make(map[string]bool, len(values))
	if *f.configPath == "" {
		for name := range values {
			set[name] = true
		}
	} else {
		fs.Visit(func(fl *flag.Flag) {
			set[fl.Name] = true
		})
	}
	if err := overrideFromFlags(&req, set, values); err != nil {
		return bitgen.RunRequest{}, err
	}
	return req, nil
}

func (f *runFlags) client(render io.Writer) (*bitgen.Client, error) {
	logger, err := newLogger(os.Stderr, *f.logLevel)
	if err != nil {
		return nil, err
	}
	return bitgen.New(bitgen.Options{
		StoreKind:     *f.storeKind,
		DBPath:        *f.dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
		Logger:        logger,
		RenderOutput:  render,
	})
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	flags := registerRunFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := flags.request(fs)
	if err != nil {
		return err
	}

	var render io.Writer = os.Stdout
	if *flags.jsonOut {
		render = io.Discard
	}
	client, err := flags.client(render)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if *flags.jsonOut {
		return writeJSON(map[string]any{
			"run_id":        summary.RunID,
			"problem":       summary.Problem,
			"seed":          summary.Seed,
			"config":        summary.Config,
			"solved":        summary.Solved,
			"generations":   summary.Generations,
			"best_strand":   summary.BestStrand,
			"best_fitness":  summary.BestFitness,
			"artifacts_dir": summary.ArtifactsDir,
		})
	}

	fmt.Printf("run_id=%s problem=%s solved=%t generations=%s best_fitness=%g best=%s artifacts=%s\n",
		summary.RunID,
		summary.Problem,
		summary.Solved,
		humanize.Comma(int64(summary.Generations)),
		summary.BestFitness,
		summary.BestStrand,
		summary.ArtifactsDir,
	)
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	flags := registerRunFlags(fs)
	runs := fs.Int("runs", 10, "number of independent runs")
	workers := fs.Int("workers", 4, "concurrent runs (0 uses GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := flags.request(fs)
	if err != nil {
		return err
	}

	client, err := flags.client(nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Benchmark(ctx, bitgen.BenchmarkRequest{
		Base:    req,
		Runs:    *runs,
		Workers: *workers,
	})
	if err != nil {
		return err
	}
	if *flags.jsonOut {
		return writeJSON(result.Summary)
	}

	s := result.Summary
	fmt.Printf("benchmark_id=%s problem=%s runs=%d solved=%d success_rate=%.4f mean_generations=%.2f std_generations=%.2f mean_best_fitness=%.4f summary_dir=%s\n",
		result.BenchmarkID,
		s.Problem,
		s.TotalRuns,
		s.SolvedRuns,
		s.SuccessRate,
		s.MeanGenerations,
		s.StdGenerations,
		s.MeanBestFitness,
		result.ArtifactsDir,
	)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to print")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend used when no run index exists: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := bitgen.New(bitgen.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, bitgen.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs")
		return nil
	}
	if *jsonOut {
		return writeJSON(items)
	}

	for _, item := range items {
		fmt.Printf("run_id=%s created=%s problem=%s seed=%d pop=%d size=%d solved=%t generations=%s best_fitness=%g\n",
			item.RunID,
			humanizeCreated(item.CreatedAtUTC),
			item.Problem,
			item.Seed,
			item.PopulationSize,
			item.ChromosomeSize,
			item.Solved,
			humanize.Comma(int64(item.Generations)),
			item.FinalBestFitness,
		)
	}
	return nil
}

// runDataFlags holds the flags of the commands that read one recorded run.
type runDataFlags struct {
	runID     *string
	latest    *bool
	limit     *int
	jsonOut   *bool
	storeKind *string
	dbPath    *string
}

func registerRunDataFlags(fs *flag.FlagSet, what string, limit int) *runDataFlags {
	return &runDataFlags{
		runID:     fs.String("run-id", "", "run id"),
		latest:    fs.Bool("latest", false, "show "+what+" for the most recent run from run index"),
		limit:     fs.Int("limit", limit, "max entries to print (0 for all)"),
		jsonOut:   fs.Bool("json", false, "emit "+what+" as JSON"),
		storeKind: fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", defaultDBPath, "sqlite database path"),
	}
}

func (f *runDataFlags) open(command string) (*bitgen.Client, bitgen.RunDataRequest, error) {
	if *f.runID != "" && *f.latest {
		return nil, bitgen.RunDataRequest{}, errors.New("use either --run-id or --latest, not both")
	}
	if *f.runID == "" && !*f.latest {
		return nil, bitgen.RunDataRequest{}, fmt.Errorf("%s requires --run-id or --latest", command)
	}
	client, err := bitgen.New(bitgen.Options{
		StoreKind:     *f.storeKind,
		DBPath:        *f.dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return nil, bitgen.RunDataRequest{}, err
	}
	return client, bitgen.RunDataRequest{
		RunID:  *f.runID,
		Latest: *f.latest,
		Limit:  *f.limit,
	}, nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	flags := registerRunDataFlags(fs, "fitness history", 50)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, req, err := flags.open("fitness")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, req)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *flags.jsonOut {
		return writeJSON(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%g\n", i+1, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	flags := registerRunDataFlags(fs, "diagnostics", 50)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, req, err := flags.open("diagnostics")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, req)
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *flags.jsonOut {
		return writeJSON(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%g mean=%.4f min=%g stddev=%.4f total=%g distinct=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.StdDevFitness,
			d.TotalFitness,
			d.DistinctStrands,
		)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	flags := registerRunDataFlags(fs, "top chromosomes", 5)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, req, err := flags.open("top")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.TopChromosomes(ctx, req)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("no top chromosomes")
		return nil
	}
	if *flags.jsonOut {
		return writeJSON(top)
	}

	for _, item := range top {
		fmt.Printf("rank=%d fitness=%g strand=%s\n", item.Rank, item.Fitness, item.Strand)
	}
	return nil
}

func runProblemSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("problem-summary", flag.ContinueOnError)
	name := fs.String("name", "", "problem name")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("problem-summary requires --name")
	}

	client, err := bitgen.New(bitgen.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.ProblemSummary(ctx, *name)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary)
	}
	fmt.Printf("problem=%s runs=%s solved=%s best_fitness=%g description=%q\n",
		summary.Name,
		humanize.Comma(int64(summary.Runs)),
		humanize.Comma(int64(summary.Solved)),
		summary.BestFitness,
		summary.Description,
	)
	return nil
}

func runProblems(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("problems", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit problems as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items := bitgen.Problems()
	if *jsonOut {
		return writeJSON(items)
	}
	for _, item := range items {
		fmt.Printf("%s\t%s\n", item.Name, item.Description)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to export")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := bitgen.New(bitgen.Options{
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, bitgen.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s problem=%s seed=%d pop=%d size=%d dir=%s\n",
		exported.RunID,
		exported.Problem,
		exported.Seed,
		exported.Config.PopulationSize,
		exported.Config.ChromosomeSize,
		exported.Directory,
	)
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	flags := registerRunDataFlags(fs, "the run record", 0)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, req, err := flags.open("show")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	detail, err := client.RunDetail(ctx, req)
	if err != nil {
		return err
	}
	if *flags.jsonOut {
		return writeJSON(map[string]any{
			"run_id":         detail.RunID,
			"problem":        detail.Problem,
			"target":         detail.Target,
			"trap_order":     detail.TrapOrder,
			"seed":           detail.Seed,
			"config":         detail.Config,
			"solved":         detail.Solved,
			"generations":    detail.Generations,
			"best_strand":    detail.BestStrand,
			"best_fitness":   detail.BestFitness,
			"created_at_utc": detail.CreatedAtUTC,
		})
	}

	cfg := detail.Config
	fmt.Printf("run_id=%s problem=%s seed=%d created=%s\n", detail.RunID, detail.Problem, detail.Seed, humanizeCreated(detail.CreatedAtUTC))
	fmt.Printf("pop=%d size=%d gens=%d selection=%s crossover=%s crossover_rate=%g mutation_rate=%g elitism=%t elite=%d\n",
		cfg.PopulationSize,
		cfg.ChromosomeSize,
		cfg.SimulationNumber,
		cfg.SelectionType,
		cfg.CrossoverType,
		cfg.CrossoverRate,
		cfg.MutationRate,
		cfg.UseElitism,
		cfg.EliteNumber,
	)
	fmt.Printf("solved=%t generations=%s best_fitness=%g best=%s\n",
		detail.Solved,
		humanize.Comma(int64(detail.Generations)),
		detail.BestFitness,
		detail.BestStrand,
	)
	return nil
}

func runBenchmarkSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark-summary", flag.ContinueOnError)
	benchmarkID := fs.String("id", "", "benchmark id")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *benchmarkID == "" {
		return errors.New("benchmark-summary requires --id")
	}

	client, err := bitgen.New(bitgen.Options{
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	s, err := client.BenchmarkSummary(ctx, *benchmarkID)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(s)
	}
	fmt.Printf("benchmark_id=%s problem=%s created=%s runs=%d solved=%d success_rate=%.4f mean_generations=%.2f std_generations=%.2f min_generations=%g max_generations=%g mean_best_fitness=%.4f\n",
		s.BenchmarkID,
		s.Problem,
		humanizeCreated(s.CreatedAtUTC),
		s.TotalRuns,
		s.SolvedRuns,
		s.SuccessRate,
		s.MeanGenerations,
		s.StdGenerations,
		s.MinGenerations,
		s.MaxGenerations,
		s.MeanBestFitness,
	)
	return nil
}

func humanizeCreated(createdAtUTC string) string {
	created, err := time.Parse(time.RFC3339, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(created)
}

func writeJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: bitgenctl <run|benchmark|benchmark-summary|runs|show|fitness|diagnostics|top|problem-summary|problems|export> [flags]", msg)
}
