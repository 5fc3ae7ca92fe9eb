package bitgen

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"bitgen/internal/evo"
	"bitgen/internal/model"
	"bitgen/internal/problem"
	"bitgen/internal/random"
	"bitgen/internal/stats"
	"bitgen/internal/storage"
)

// runPlan is a RunRequest with defaults applied and strategy keys parsed.
type runPlan struct {
	index   int
	runID   string
	problem string
	params  problem.Params
	seed    int64
	cfg     evo.Config
}

type execution struct {
	plan        runPlan
	cfg         evo.Config
	description string
	outcome     evo.Outcome
}

func resolveRun(req RunRequest) (runPlan, error) {
	name := req.Problem
	if name == "" {
		name = defaultProblem
	}
	canonical := problem.Normalize(name)
	if _, ok := problem.Describe(canonical); !ok {
		return runPlan{}, fmt.Errorf("%w: %s", problem.ErrUnknownProblem, name)
	}

	cfg := evo.DefaultConfig()
	if req.PopulationSize != 0 {
		cfg.PopulationSize = req.PopulationSize
	}
	if req.ChromosomeSize != 0 {
		cfg.ChromosomeSize = req.ChromosomeSize
	}
	if req.Generations != 0 {
		cfg.SimulationNumber = req.Generations
	}
	if req.Selection != "" {
		selection, err := evo.ParseSelectionType(req.Selection)
		if err != nil {
			return runPlan{}, err
		}
		cfg.Selection = selection
	}
	if req.Crossover != "" {
		crossover, err := evo.ParseCrossoverType(req.Crossover)
		if err != nil {
			return runPlan{}, err
		}
		cfg.Crossover = crossover
	}
	if req.CrossoverRate != nil {
		cfg.CrossoverRate = *req.CrossoverRate
	}
	if req.MutationRate != nil {
		cfg.MutationRate = *req.MutationRate
	}
	if req.UseElitism != nil {
		cfg.UseElitism = *req.UseElitism
	}
	if req.EliteNumber != nil {
		cfg.EliteNumber = *req.EliteNumber
	}

	return runPlan{
		runID:   req.RunID,
		problem: canonical,
		params:  problem.Params{Target: req.Target, TrapOrder: req.TrapOrder},
		seed:    req.Seed,
		cfg:     cfg,
	}, nil
}

// execute runs the engine for one plan. It touches no shared state, so
// benchmark workers call it concurrently.
func (c *Client) execute(ctx context.Context, plan runPlan, render io.Writer) (execution, error) {
	definition, err := problem.New(plan.problem, plan.params, render)
	if err != nil {
		return execution{}, err
	}
	logger := c.logger.With("run_id", plan.runID, "problem", plan.problem, "seed", plan.seed)
	population, err := evo.NewPopulation(plan.cfg, definition, random.New(plan.seed), evo.WithLogger(logger))
	if err != nil {
		return execution{}, err
	}
	outcome, err := population.Run(ctx)
	if err != nil {
		return execution{}, fmt.Errorf("run %s: %w", plan.runID, err)
	}
	return execution{
		plan:        plan,
		cfg:         population.Config(),
		description: definition.Description(),
		outcome:     outcome,
	}, nil
}

// record persists one finished run to the store, the artifacts directory and
// the run index.
func (c *Client) record(ctx context.Context, exec execution, now time.Time) (RunSummary, error) {
	runID := exec.plan.runID
	out := exec.outcome
	runConfig := toRunConfig(exec.cfg)
	bestStrand := out.Best.Strand.String()
	createdAt := now.Format(time.RFC3339)

	top := make([]model.TopChromosomeRecord, 0, min(defaultTopChromosomes, len(out.FinalGeneration)))
	for i, member := range out.FinalGeneration {
		if i == defaultTopChromosomes {
			break
		}
		top = append(top, model.TopChromosomeRecord{
			VersionedRecord: storage.CurrentVersion(),
			Rank:            i + 1,
			Strand:          member.Strand.String(),
			Fitness:         member.Fitness,
		})
	}

	if err := c.store.SaveRun(ctx, model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		Problem:         exec.plan.problem,
		Seed:            exec.plan.seed,
		Config:          runConfig,
		Solved:          out.Solved,
		Generations:     out.Generations,
		BestStrand:      bestStrand,
		BestFitness:     out.Best.Fitness,
		CreatedAtUTC:    createdAt,
	}); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, out.BestByGeneration); err != nil {
		return RunSummary{}, fmt.Errorf("save fitness history %s: %w", runID, err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, out.Diagnostics); err != nil {
		return RunSummary{}, fmt.Errorf("save diagnostics %s: %w", runID, err)
	}
	if err := c.store.SaveTopChromosomes(ctx, runID, top); err != nil {
		return RunSummary{}, fmt.Errorf("save top chromosomes %s: %w", runID, err)
	}
	if err := c.updateProblemSummary(ctx, exec); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:     runID,
			Problem:   exec.plan.problem,
			Target:    exec.plan.params.Target,
			TrapOrder: exec.plan.params.TrapOrder,
			Seed:      exec.plan.seed,
			RunConfig: runConfig,
		},
		Solved:                out.Solved,
		Generations:           out.Generations,
		BestByGeneration:      out.BestByGeneration,
		GenerationDiagnostics: out.Diagnostics,
		FinalBestFitness:      out.Best.Fitness,
		TopChromosomes:        top,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:            runID,
		Problem:          exec.plan.problem,
		PopulationSize:   exec.cfg.PopulationSize,
		ChromosomeSize:   exec.cfg.ChromosomeSize,
		Seed:             exec.plan.seed,
		Solved:           out.Solved,
		Generations:      out.Generations,
		FinalBestFitness: out.Best.Fitness,
		CreatedAtUTC:     createdAt,
	}); err != nil {
		return RunSummary{}, err
	}

	c.logger.Info("run recorded",
		"run_id", runID,
		"solved", out.Solved,
		"generations", out.Generations,
		"best_fitness", out.Best.Fitness,
	)
	return RunSummary{
		RunID:            runID,
		Problem:          exec.plan.problem,
		Seed:             exec.plan.seed,
		Config:           runConfig,
		Solved:           out.Solved,
		Generations:      out.Generations,
		BestStrand:       bestStrand,
		BestFitness:      out.Best.Fitness,
		BestByGeneration: append([]float64(nil), out.BestByGeneration...),
		ArtifactsDir:     filepath.Clean(runDir),
	}, nil
}

func (c *Client) updateProblemSummary(ctx context.Context, exec execution) error {
	name := exec.plan.problem
	summary, ok, err := c.store.GetProblemSummary(ctx, name)
	if err != nil {
		return fmt.Errorf("load problem summary %s: %w", name, err)
	}
	if !ok || exec.outcome.Best.Fitness > summary.BestFitness {
		summary.BestFitness = exec.outcome.Best.Fitness
	}
	summary.VersionedRecord = storage.CurrentVersion()
	summary.Name = name
	summary.Description = exec.description
	summary.Runs++
	if exec.outcome.Solved {
		summary.Solved++
	}
	if err := c.store.SaveProblemSummary(ctx, summary); err != nil {
		return fmt.Errorf("save problem summary %s: %w", name, err)
	}
	return nil
}

func toRunConfig(cfg evo.Config) model.RunConfig {
	return model.RunConfig{
		PopulationSize:   cfg.PopulationSize,
		ChromosomeSize:   cfg.ChromosomeSize,
		SimulationNumber: cfg.SimulationNumber,
		SelectionType:    cfg.Selection.String(),
		CrossoverType:    cfg.Crossover.String(),
		CrossoverRate:    cfg.CrossoverRate,
		MutationRate:     cfg.MutationRate,
		UseElitism:       cfg.UseElitism,
		EliteNumber:      cfg.EliteNumber,
	}
}
