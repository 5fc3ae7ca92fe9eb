package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const benchmarkSummaryFile = "benchmark_summary.json"

// BenchmarkRun is the outcome of one seed in a benchmark.
type BenchmarkRun struct {
	RunID       string  `json:"run_id"`
	Seed        int64   `json:"seed"`
	Solved      bool    `json:"solved"`
	Generations int     `json:"generations"`
	BestFitness float64 `json:"best_fitness"`
}

// BenchmarkCurvePoint is the mean best fitness of all runs still active at a
// generation.
type BenchmarkCurvePoint struct {
	Generation int     `json:"generation"`
	MeanBest   float64 `json:"mean_best"`
	Runs       int     `json:"runs"`
}

type BenchmarkSummary struct {
	BenchmarkID     string                `json:"benchmark_id"`
	Problem         string                `json:"problem"`
	TotalRuns       int                   `json:"total_runs"`
	SolvedRuns      int                   `json:"solved_runs"`
	SuccessRate     float64               `json:"success_rate"`
	MeanGenerations float64               `json:"mean_generations"`
	StdGenerations  float64               `json:"std_generations"`
	MinGenerations  float64               `json:"min_generations"`
	MaxGenerations  float64               `json:"max_generations"`
	MeanBestFitness float64               `json:"mean_best_fitness"`
	StdBestFitness  float64               `json:"std_best_fitness"`
	Curve           []BenchmarkCurvePoint `json:"curve,omitempty"`
	Runs            []BenchmarkRun        `json:"runs"`
	CreatedAtUTC    string                `json:"created_at_utc"`
}

// BuildBenchmarkSummary aggregates independent runs. Generation statistics
// cover solved runs only; fitness statistics cover every run.
func BuildBenchmarkSummary(benchmarkID, problem string, runs []BenchmarkRun, bestByGeneration [][]float64) BenchmarkSummary {
	summary := BenchmarkSummary{
		BenchmarkID: benchmarkID,
		Problem:     problem,
		TotalRuns:   len(runs),
		Runs:        append([]BenchmarkRun(nil), runs...),
		Curve:       BuildAverageCurve(bestByGeneration),
	}
	if len(runs) == 0 {
		return summary
	}

	solvedGenerations := make([]float64, 0, len(runs))
	best := make([]float64, len(runs))
	for i, run := range runs {
		best[i] = run.BestFitness
		if run.Solved {
			summary.SolvedRuns++
			solvedGenerations = append(solvedGenerations, float64(run.Generations))
		}
	}
	summary.SuccessRate = float64(summary.SolvedRuns) / float64(summary.TotalRuns)
	summary.MeanBestFitness, summary.StdBestFitness = stat.PopMeanStdDev(best, nil)

	if len(solvedGenerations) > 0 {
		summary.MeanGenerations, summary.StdGenerations = stat.PopMeanStdDev(solvedGenerations, nil)
		summary.MinGenerations = floats.Min(solvedGenerations)
		summary.MaxGenerations = floats.Max(solvedGenerations)
	}
	return summary
}

// BuildAverageCurve averages the best fitness across runs generation by
// generation. Runs that stopped early drop out of later points.
func BuildAverageCurve(lists [][]float64) []BenchmarkCurvePoint {
	longest := 0
	for _, list := range lists {
		longest = max(longest, len(list))
	}

	points := make([]BenchmarkCurvePoint, 0, longest)
	values := make([]float64, 0, len(lists))
	for gen := 0; gen < longest; gen++ {
		values = values[:0]
		for _, list := range lists {
			if gen < len(list) {
				values = append(values, list[gen])
			}
		}
		points = append(points, BenchmarkCurvePoint{
			Generation: gen + 1,
			MeanBest:   stat.Mean(values, nil),
			Runs:       len(values),
		})
	}
	return points
}

func WriteBenchmarkSummary(baseDir string, summary BenchmarkSummary) (string, error) {
	if summary.BenchmarkID == "" {
		return "", fmt.Errorf("benchmark id is required")
	}
	dir := filepath.Join(baseDir, summary.BenchmarkID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, benchmarkSummaryFile), summary); err != nil {
		return "", err
	}
	return dir, nil
}

func ReadBenchmarkSummary(baseDir, benchmarkID string) (BenchmarkSummary, bool, error) {
	var summary BenchmarkSummary
	ok, err := readJSON(filepath.Join(baseDir, benchmarkID, benchmarkSummaryFile), &summary)
	if err != nil || !ok {
		return BenchmarkSummary{}, ok, err
	}
	return summary, true, nil
}
