package bitgen

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bitgen/internal/evo"
	"bitgen/internal/problem"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	base := t.TempDir()
	if opts.BenchmarksDir == "" {
		opts.BenchmarksDir = filepath.Join(base, "benchmarks")
	}
	if opts.ExportsDir == "" {
		opts.ExportsDir = filepath.Join(base, "exports")
	}
	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func ptr[T any](v T) *T {
	return &v
}

func TestClientRunRecordsEverything(t *testing.T) {
	ctx := context.Background()
	var rendered bytes.Buffer
	client := newTestClient(t, Options{StoreKind: "memory", RenderOutput: &rendered})

	summary, err := client.Run(ctx, RunRequest{
		Problem:        "onemax",
		Seed:           42,
		PopulationSize: 30,
		ChromosomeSize: 16,
		Generations:    300,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(summary.RunID, "onemax-42-") || len(summary.RunID) != len("onemax-42-")+8 {
		t.Fatalf("unexpected run id: %s", summary.RunID)
	}
	if !summary.Solved || summary.BestFitness != 16 || summary.BestStrand != strings.Repeat("1", 16) {
		t.Fatalf("expected solved onemax run, got %+v", summary)
	}
	if len(summary.BestByGeneration) != summary.Generations {
		t.Fatalf("history length %d != generations %d", len(summary.BestByGeneration), summary.Generations)
	}
	if summary.Config.SelectionType != "tournament" || summary.Config.CrossoverType != "one-point" {
		t.Fatalf("unexpected defaults: %+v", summary.Config)
	}
	if got := rendered.String(); got != strings.Repeat("1", 16)+" 16\n" {
		t.Fatalf("unexpected rendered output: %q", got)
	}

	for _, file := range []string{"config.json", "fitness_history.json", "fitness_series.csv", "generation_diagnostics.json", "top_chromosomes.json"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}

	history, err := client.FitnessHistory(ctx, RunDataRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("fitness history: %v", err)
	}
	if len(history) != summary.Generations {
		t.Fatalf("unexpected history: %v", history)
	}

	diagnostics, err := client.Diagnostics(ctx, RunDataRequest{Latest: true, Limit: 1})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diagnostics) != 1 || diagnostics[0].Generation != 1 {
		t.Fatalf("unexpected diagnostics: %+v", diagnostics)
	}

	top, err := client.TopChromosomes(ctx, RunDataRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("top chromosomes: %v", err)
	}
	if len(top) != defaultTopChromosomes || top[0].Rank != 1 || top[0].Fitness != 16 {
		t.Fatalf("unexpected top chromosomes: %+v", top)
	}

	problemSummary, err := client.ProblemSummary(ctx, "OneMax")
	if err != nil {
		t.Fatalf("problem summary: %v", err)
	}
	if problemSummary.Runs != 1 || problemSummary.Solved != 1 || problemSummary.BestFitness != 16 {
		t.Fatalf("unexpected problem summary: %+v", problemSummary)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || !runs[0].Solved {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID || exported.Problem != "onemax" || exported.Seed != 42 {
		t.Fatalf("unexpected export: %+v", exported)
	}
	if exported.Config != summary.Config {
		t.Fatalf("expected exported config %+v, got %+v", summary.Config, exported.Config)
	}
	if _, err := os.Stat(filepath.Join(exported.Directory, "config.json")); err != nil {
		t.Fatalf("expected exported config: %v", err)
	}
}

func TestClientRunIsDeterministicForSeed(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, Options{})
	req := RunRequest{
		Problem:        "trap",
		Seed:           7,
		PopulationSize: 20,
		Generations:    15,
		Crossover:      "uniform",
	}

	first, err := client.Run(ctx, req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := client.Run(ctx, req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.RunID == second.RunID {
		t.Fatalf("expected distinct run ids, got %s twice", first.RunID)
	}
	if first.BestStrand != second.BestStrand || first.Generations != second.Generations {
		t.Fatalf("same seed diverged: %+v vs %+v", first, second)
	}
	for i := range first.BestByGeneration {
		if first.BestByGeneration[i] != second.BestByGeneration[i] {
			t.Fatalf("history diverged at generation %d", i+1)
		}
	}

	summary, err := client.ProblemSummary(ctx, "trap")
	if err != nil {
		t.Fatalf("problem summary: %v", err)
	}
	if summary.Runs != 2 {
		t.Fatalf("expected 2 recorded runs, got %+v", summary)
	}
}

func TestClientRunExplicitZeroRates(t *testing.T) {
	client := newTestClient(t, Options{})
	summary, err := client.Run(context.Background(), RunRequest{
		RunID:          "frozen",
		Problem:        "onemax",
		Seed:           3,
		PopulationSize: 6,
		ChromosomeSize: 12,
		Generations:    5,
		CrossoverRate:  ptr(0.0),
		MutationRate:   ptr(0.0),
		UseElitism:     ptr(false),
		EliteNumber:    ptr(0),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != "frozen" {
		t.Fatalf("expected explicit run id, got %s", summary.RunID)
	}
	if summary.Config.CrossoverRate != 0 || summary.Config.MutationRate != 0 || summary.Config.UseElitism {
		t.Fatalf("explicit zero values not applied: %+v", summary.Config)
	}
}

func TestClientRunRejectsInvalidRequests(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	_, err := client.Run(ctx, RunRequest{Problem: "knapsack"})
	if !errors.Is(err, problem.ErrUnknownProblem) {
		t.Fatalf("expected unknown problem, got %v", err)
	}

	_, err = client.Run(ctx, RunRequest{Selection: "roulette"})
	var cfgErr *evo.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "selection_type" {
		t.Fatalf("expected selection configuration error, got %v", err)
	}

	_, err = client.Run(ctx, RunRequest{MutationRate: ptr(2.0)})
	if !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}

	_, err = client.Run(ctx, RunRequest{Problem: "hiff", ChromosomeSize: 24})
	if !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected hiff size rejection, got %v", err)
	}

	_, err = client.Run(ctx, RunRequest{Problem: "target"})
	if err == nil {
		t.Fatal("expected missing target error")
	}
}

func TestClientRunHonoursCancelledContext(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Run(ctx, RunRequest{Problem: "onemax", Generations: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestClientBenchmark(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, Options{})

	result, err := client.Benchmark(ctx, BenchmarkRequest{
		Base: RunRequest{
			Problem:        "target",
			Target:         "1011001110",
			Seed:           100,
			PopulationSize: 30,
			Generations:    200,
		},
		Runs:    4,
		Workers: 2,
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	if !strings.HasPrefix(result.BenchmarkID, "bench-target-") {
		t.Fatalf("unexpected benchmark id: %s", result.BenchmarkID)
	}
	summary := result.Summary
	if summary.TotalRuns != 4 || len(summary.Runs) != 4 {
		t.Fatalf("unexpected run count: %+v", summary)
	}
	for i, run := range summary.Runs {
		if run.Seed != 100+int64(i) {
			t.Fatalf("run %d has seed %d", i, run.Seed)
		}
	}
	if summary.SolvedRuns == 0 || len(summary.Curve) == 0 {
		t.Fatalf("expected solved runs and a curve: %+v", summary)
	}

	loaded, err := client.BenchmarkSummary(ctx, result.BenchmarkID)
	if err != nil || loaded.TotalRuns != 4 || loaded.SolvedRuns != summary.SolvedRuns {
		t.Fatalf("unexpected benchmark summary file: err=%v summary=%+v", err, loaded)
	}
	if _, err := client.BenchmarkSummary(ctx, "bench-missing"); err == nil {
		t.Fatal("expected missing benchmark summary error")
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 10})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("expected 4 indexed runs, got %d", len(runs))
	}
}

func TestClientBenchmarkRejectsBadRequests(t *testing.T) {
	client := newTestClient(t, Options{})
	if _, err := client.Benchmark(context.Background(), BenchmarkRequest{Runs: 0}); err == nil {
		t.Fatal("expected runs error")
	}
	if _, err := client.Benchmark(context.Background(), BenchmarkRequest{Runs: 2, Base: RunRequest{RunID: "x"}}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestClientReadsArtifactsRecordedByAnotherClient(t *testing.T) {
	ctx := context.Background()
	benchmarksDir := filepath.Join(t.TempDir(), "benchmarks")

	writer := newTestClient(t, Options{BenchmarksDir: benchmarksDir})
	summary, err := writer.Run(ctx, RunRequest{Problem: "onemax", Seed: 5, PopulationSize: 10, ChromosomeSize: 8, Generations: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	reader := newTestClient(t, Options{BenchmarksDir: benchmarksDir})
	history, err := reader.FitnessHistory(ctx, RunDataRequest{Latest: true})
	if err != nil {
		t.Fatalf("fitness history: %v", err)
	}
	if len(history) != summary.Generations {
		t.Fatalf("unexpected history: %v", history)
	}
	top, err := reader.TopChromosomes(ctx, RunDataRequest{RunID: summary.RunID, Limit: 3})
	if err != nil {
		t.Fatalf("top chromosomes: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 top chromosomes, got %d", len(top))
	}
	if _, err := reader.Diagnostics(ctx, RunDataRequest{RunID: summary.RunID}); err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
}

func TestClientListsStoredRunsWithoutRunIndex(t *testing.T) {
	ctx := context.Background()
	benchmarksDir := filepath.Join(t.TempDir(), "benchmarks")
	client := newTestClient(t, Options{BenchmarksDir: benchmarksDir})

	summary, err := client.Run(ctx, RunRequest{Problem: "onemax", Seed: 8, PopulationSize: 10, ChromosomeSize: 8, Generations: 4})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := os.Remove(filepath.Join(benchmarksDir, "run_index.json")); err != nil {
		t.Fatalf("remove run index: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].ChromosomeSize != 8 || runs[0].Generations != summary.Generations {
		t.Fatalf("unexpected stored runs: %+v", runs)
	}

	detail, err := client.RunDetail(ctx, RunDataRequest{Latest: true})
	if err != nil {
		t.Fatalf("run detail: %v", err)
	}
	if detail.RunID != summary.RunID || detail.BestStrand != summary.BestStrand || detail.BestFitness != summary.BestFitness {
		t.Fatalf("unexpected run detail: %+v", detail)
	}
	if detail.CreatedAtUTC == "" || detail.Config != summary.Config {
		t.Fatalf("expected stored record fields, got %+v", detail)
	}
}

func TestClientRunDetailFromArtifacts(t *testing.T) {
	ctx := context.Background()
	benchmarksDir := filepath.Join(t.TempDir(), "benchmarks")

	writer := newTestClient(t, Options{BenchmarksDir: benchmarksDir})
	summary, err := writer.Run(ctx, RunRequest{Problem: "target", Target: "110010", Seed: 4, PopulationSize: 12, Generations: 5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	reader := newTestClient(t, Options{BenchmarksDir: benchmarksDir})
	detail, err := reader.RunDetail(ctx, RunDataRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("run detail: %v", err)
	}
	if detail.Problem != "target" || detail.Target != "110010" || detail.Seed != 4 {
		t.Fatalf("unexpected run detail: %+v", detail)
	}
	if detail.Generations != summary.Generations || detail.Solved != summary.Solved || detail.BestStrand != summary.BestStrand {
		t.Fatalf("expected indexed outcome %+v, got %+v", summary, detail)
	}
	if detail.Config.ChromosomeSize != 6 {
		t.Fatalf("expected chromosome size from config, got %d", detail.Config.ChromosomeSize)
	}

	if _, err := reader.RunDetail(ctx, RunDataRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected unknown run error")
	}
}

func TestClientRunDataValidation(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	if _, err := client.FitnessHistory(ctx, RunDataRequest{}); err == nil {
		t.Fatal("expected missing run id error")
	}
	if _, err := client.FitnessHistory(ctx, RunDataRequest{RunID: "a", Latest: true}); err == nil {
		t.Fatal("expected run id and latest conflict")
	}
	if _, err := client.Diagnostics(ctx, RunDataRequest{RunID: "a", Limit: -1}); err == nil {
		t.Fatal("expected limit error")
	}
	if _, err := client.TopChromosomes(ctx, RunDataRequest{Latest: true}); err == nil {
		t.Fatal("expected no runs error")
	}
	if _, err := client.FitnessHistory(ctx, RunDataRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected not found error")
	}
	if _, err := client.ProblemSummary(ctx, "hiff"); err == nil {
		t.Fatal("expected missing problem summary")
	}
}

func TestProblemsListsRegistry(t *testing.T) {
	items := Problems()
	if len(items) != 4 {
		t.Fatalf("expected 4 problems, got %+v", items)
	}
	for _, item := range items {
		if item.Description == "" {
			t.Fatalf("problem %s has no description", item.Name)
		}
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "redis"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}
