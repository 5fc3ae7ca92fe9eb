package bitgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"bitgen/internal/model"
	"bitgen/internal/problem"
	"bitgen/internal/stats"
	"bitgen/internal/storage"
)

const (
	defaultBenchmarksDir  = "benchmarks"
	defaultExportsDir     = "exports"
	defaultDBPath         = "bitgen.db"
	defaultProblem        = "onemax"
	defaultTopChromosomes = 10
	defaultRunsLimit      = 20
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
	// Logger receives run progress. Nil discards it.
	Logger *slog.Logger
	// RenderOutput receives the strands a problem renders at the end of a
	// single run. Nil discards them.
	RenderOutput io.Writer
}

type Client struct {
	store  storage.Store
	logger *slog.Logger
	render io.Writer

	benchmarksDir string
	exportsDir    string

	initMu      sync.Mutex
	initialized bool
}

// RunRequest describes one run. Zero values select defaults; the pointer
// fields distinguish an explicit zero from an unset value.
type RunRequest struct {
	RunID          string
	Problem        string
	Target         string
	TrapOrder      int
	Seed           int64
	PopulationSize int
	ChromosomeSize int
	Generations    int
	Selection      string
	Crossover      string
	CrossoverRate  *float64
	MutationRate   *float64
	UseElitism     *bool
	EliteNumber    *int
}

type RunSummary struct {
	RunID            string
	Problem          string
	Seed             int64
	Config           model.RunConfig
	Solved           bool
	Generations      int
	BestStrand       string
	BestFitness      float64
	BestByGeneration []float64
	ArtifactsDir     string
}

type BenchmarkRequest struct {
	Base    RunRequest
	Runs    int
	Workers int
}

type BenchmarkResult struct {
	BenchmarkID  string
	ArtifactsDir string
	Summary      stats.BenchmarkSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Problem          string
	Seed             int64
	PopulationSize   int
	ChromosomeSize   int
	Solved           bool
	Generations      int
	FinalBestFitness float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
	Problem   string
	Seed      int64
	Config    model.RunConfig
}

// RunDetail is everything recorded about one run.
type RunDetail struct {
	RunID        string
	Problem      string
	Target       string
	TrapOrder    int
	Seed         int64
	Config       model.RunConfig
	Solved       bool
	Generations  int
	BestStrand   string
	BestFitness  float64
	CreatedAtUTC string
}

// RunDataRequest addresses the stored records of one run.
type RunDataRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ProblemSummaryItem struct {
	Name        string
	Description string
	BestFitness float64
	Runs        int
	Solved      int
}

type ProblemItem struct {
	Name        string
	Description string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	render := opts.RenderOutput
	if render == nil {
		render = io.Discard
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		logger:        logger,
		render:        render,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// NewRunID returns an id of the form <problem>-<seed>-<8 hex chars>.
func NewRunID(problemName string, seed int64) string {
	return fmt.Sprintf("%s-%d-%s", problemName, seed, uuid.NewString()[:8])
}

// Run executes one evolution run and records its results.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	plan, err := resolveRun(req)
	if err != nil {
		return RunSummary{}, err
	}
	if plan.runID == "" {
		plan.runID = NewRunID(plan.problem, plan.seed)
	}

	exec, err := c.execute(ctx, plan, c.render)
	if err != nil {
		return RunSummary{}, err
	}
	return c.record(ctx, exec, time.Now().UTC())
}

// Benchmark executes independent runs of one configuration concurrently,
// seeding run i with Base.Seed+i, and records each run plus an aggregate
// summary.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkResult, error) {
	if req.Runs <= 0 {
		return BenchmarkResult{}, errors.New("benchmark runs must be > 0")
	}
	if req.Base.RunID != "" {
		return BenchmarkResult{}, errors.New("benchmark assigns run ids; leave run id empty")
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, req.Runs)

	if err := c.Init(ctx); err != nil {
		return BenchmarkResult{}, err
	}
	base, err := resolveRun(req.Base)
	if err != nil {
		return BenchmarkResult{}, err
	}
	benchmarkID := fmt.Sprintf("bench-%s-%s", base.problem, uuid.NewString()[:8])
	logger := c.logger.With("benchmark_id", benchmarkID)
	logger.Info("benchmark started", "runs", req.Runs, "workers", workers)

	p := pool.NewWithResults[execution]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(workers)
	for i := 0; i < req.Runs; i++ {
		plan := base
		plan.index = i
		plan.seed = base.seed + int64(i)
		plan.runID = NewRunID(plan.problem, plan.seed)
		p.Go(func(ctx context.Context) (execution, error) {
			return c.execute(ctx, plan, io.Discard)
		})
	}
	executions, err := p.Wait()
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("benchmark %s: %w", benchmarkID, err)
	}
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].plan.index < executions[j].plan.index
	})

	now := time.Now().UTC()
	runs := make([]stats.BenchmarkRun, 0, len(executions))
	curves := make([][]float64, 0, len(executions))
	for _, exec := range executions {
		summary, err := c.record(ctx, exec, now)
		if err != nil {
			return BenchmarkResult{}, err
		}
		runs = append(runs, stats.BenchmarkRun{
			RunID:       summary.RunID,
			Seed:        summary.Seed,
			Solved:      summary.Solved,
			Generations: summary.Generations,
			BestFitness: summary.BestFitness,
		})
		curves = append(curves, summary.BestByGeneration)
	}

	aggregate := stats.BuildBenchmarkSummary(benchmarkID, base.problem, runs, curves)
	aggregate.CreatedAtUTC = now.Format(time.RFC3339)
	dir, err := stats.WriteBenchmarkSummary(c.benchmarksDir, aggregate)
	if err != nil {
		return BenchmarkResult{}, err
	}
	logger.Info("benchmark finished",
		"solved_runs", aggregate.SolvedRuns,
		"success_rate", aggregate.SuccessRate,
		"mean_generations", aggregate.MeanGenerations,
	)
	return BenchmarkResult{
		BenchmarkID:  benchmarkID,
		ArtifactsDir: filepath.Clean(dir),
		Summary:      aggregate,
	}, nil
}

// Runs lists recorded runs, newest first. The run index is authoritative;
// without one the store's run records are listed instead.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		records, err := c.storedRunsNewestFirst(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]RunItem, 0, min(len(records), req.Limit))
		for _, r := range limited(records, req.Limit) {
			out = append(out, RunItem{
				RunID:            r.ID,
				CreatedAtUTC:     r.CreatedAtUTC,
				Problem:          r.Problem,
				Seed:             r.Seed,
				PopulationSize:   r.Config.PopulationSize,
				ChromosomeSize:   r.Config.ChromosomeSize,
				Solved:           r.Solved,
				Generations:      r.Generations,
				FinalBestFitness: r.BestFitness,
			})
		}
		return out, nil
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Problem:          e.Problem,
			Seed:             e.Seed,
			PopulationSize:   e.PopulationSize,
			ChromosomeSize:   e.ChromosomeSize,
			Solved:           e.Solved,
			Generations:      e.Generations,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return out, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	cfg, ok, err := stats.ReadRunConfig(req.OutDir, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("exported run %s has no config", runID)
	}
	return ExportSummary{
		RunID:     runID,
		Directory: filepath.Clean(exportedDir),
		Problem:   cfg.Problem,
		Seed:      cfg.Seed,
		Config:    cfg.RunConfig,
	}, nil
}

// RunDetail reports one run from the store, or from its artifacts when the
// store has no record of it.
func (c *Client) RunDetail(ctx context.Context, req RunDataRequest) (RunDetail, error) {
	runID, err := c.resolveRunData(ctx, req)
	if err != nil {
		return RunDetail{}, err
	}
	cfg, hasConfig, err := stats.ReadRunConfig(c.benchmarksDir, runID)
	if err != nil {
		return RunDetail{}, err
	}

	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if ok {
		return RunDetail{
			RunID:        record.ID,
			Problem:      record.Problem,
			Target:       cfg.Target,
			TrapOrder:    cfg.TrapOrder,
			Seed:         record.Seed,
			Config:       record.Config,
			Solved:       record.Solved,
			Generations:  record.Generations,
			BestStrand:   record.BestStrand,
			BestFitness:  record.BestFitness,
			CreatedAtUTC: record.CreatedAtUTC,
		}, nil
	}
	if !hasConfig {
		return RunDetail{}, fmt.Errorf("run not found: %s", runID)
	}

	detail := RunDetail{
		RunID:     runID,
		Problem:   cfg.Problem,
		Target:    cfg.Target,
		TrapOrder: cfg.TrapOrder,
		Seed:      cfg.Seed,
		Config:    cfg.RunConfig,
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return RunDetail{}, err
	}
	for _, e := range entries {
		if e.RunID == runID {
			detail.Solved = e.Solved
			detail.Generations = e.Generations
			detail.BestFitness = e.FinalBestFitness
			detail.CreatedAtUTC = e.CreatedAtUTC
			break
		}
	}
	top, ok, err := stats.ReadTopChromosomes(c.benchmarksDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if ok && len(top) > 0 {
		detail.BestStrand = top[0].Strand
	}
	return detail, nil
}

// BenchmarkSummary reads back the aggregate written by Benchmark.
func (c *Client) BenchmarkSummary(_ context.Context, benchmarkID string) (stats.BenchmarkSummary, error) {
	if benchmarkID == "" {
		return stats.BenchmarkSummary{}, errors.New("benchmark id is required")
	}
	summary, ok, err := stats.ReadBenchmarkSummary(c.benchmarksDir, benchmarkID)
	if err != nil {
		return stats.BenchmarkSummary{}, err
	}
	if !ok {
		return stats.BenchmarkSummary{}, fmt.Errorf("benchmark summary not found: %s", benchmarkID)
	}
	return summary, nil
}

// FitnessHistory returns the best fitness of every generation of a run. Runs
// recorded by another process with the memory store are read back from
// their artifacts.
func (c *Client) FitnessHistory(ctx context.Context, req RunDataRequest) ([]float64, error) {
	runID, err := c.resolveRunData(ctx, req)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadFitnessSeries(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	return limited(history, req.Limit), nil
}

func (c *Client) Diagnostics(ctx context.Context, req RunDataRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunData(ctx, req)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	return limited(diagnostics, req.Limit), nil
}

func (c *Client) TopChromosomes(ctx context.Context, req RunDataRequest) ([]model.TopChromosomeRecord, error) {
	runID, err := c.resolveRunData(ctx, req)
	if err != nil {
		return nil, err
	}
	top, ok, err := c.store.GetTopChromosomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		top, ok, err = stats.ReadTopChromosomes(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("top chromosomes not found for run id: %s", runID)
	}
	return limited(top, req.Limit), nil
}

// ProblemSummary reports what the store has recorded for one problem.
func (c *Client) ProblemSummary(ctx context.Context, name string) (ProblemSummaryItem, error) {
	if name == "" {
		return ProblemSummaryItem{}, errors.New("problem name is required")
	}
	if err := c.Init(ctx); err != nil {
		return ProblemSummaryItem{}, err
	}
	canonical := problem.Normalize(name)
	summary, ok, err := c.store.GetProblemSummary(ctx, canonical)
	if err != nil {
		return ProblemSummaryItem{}, err
	}
	if !ok {
		return ProblemSummaryItem{}, fmt.Errorf("problem summary not found: %s", canonical)
	}
	return ProblemSummaryItem{
		Name:        summary.Name,
		Description: summary.Description,
		BestFitness: summary.BestFitness,
		Runs:        summary.Runs,
		Solved:      summary.Solved,
	}, nil
}

// Problems lists the registered problems.
func Problems() []ProblemItem {
	names := problem.Names()
	out := make([]ProblemItem, 0, len(names))
	for _, name := range names {
		description, _ := problem.Describe(name)
		out = append(out, ProblemItem{Name: name, Description: description})
	}
	return out
}

func (c *Client) resolveRunData(ctx context.Context, req RunDataRequest) (string, error) {
	if req.Limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if req.RunID == "" && !req.Latest {
		return "", errors.New("run id or latest is required")
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	return c.resolveRunID(ctx, req.RunID, req.Latest)
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if !latest {
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) > 0 {
		return entries[0].RunID, nil
	}
	records, err := c.storedRunsNewestFirst(ctx)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", errors.New("no runs available")
	}
	return records[0].ID, nil
}

func (c *Client) storedRunsNewestFirst(ctx context.Context) ([]model.RunRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	return records, nil
}

func limited[T any](values []T, limit int) []T {
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	return append([]T(nil), values...)
}
