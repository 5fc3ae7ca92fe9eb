package evo

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitgen/internal/random"
)

func TestNewPopulationBuildsRandomFirstGeneration(t *testing.T) {
	problem := &oneMaxProblem{size: 12}
	pop, err := NewPopulation(testConfig(), problem, random.New(1))
	require.NoError(t, err)

	require.Equal(t, 12, pop.Config().ChromosomeSize)
	gen := pop.Generation()
	require.Len(t, gen, 20)
	for _, c := range gen {
		assert.Equal(t, 12, c.Len())
		assert.False(t, c.Evaluated())
	}
	require.Zero(t, pop.TotalFitness())
}

func TestNewPopulationPropagatesSetupError(t *testing.T) {
	setupErr := errors.New("target missing")
	_, err := NewPopulation(testConfig(), &oneMaxProblem{size: 4, setupErr: setupErr}, random.New(1))
	require.ErrorIs(t, err, setupErr)
}

func TestNewPopulationRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MutationRate = -0.1
	_, err := NewPopulation(cfg, &oneMaxProblem{size: 4}, random.New(1))

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "mutation_rate", cfgErr.Field)
}

func TestNewPopulationRejectsMissingChromosomeSize(t *testing.T) {
	_, err := NewPopulation(testConfig(), &oneMaxProblem{}, random.New(1))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEvaluateAndTestRanksGeneration(t *testing.T) {
	pop, err := NewPopulation(testConfig(), &oneMaxProblem{size: 16}, random.New(2))
	require.NoError(t, err)

	pop.EvaluateAndTest()

	gen := pop.Generation()
	total := 0.0
	for i, c := range gen {
		require.True(t, c.Evaluated())
		total += c.Fitness()
		if i > 0 {
			require.GreaterOrEqual(t, gen[i-1].Fitness(), c.Fitness())
		}
	}
	require.Equal(t, total, pop.TotalFitness())
}

func TestEvaluateAndTestReturnsSolution(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 1
	pop, err := NewPopulation(cfg, &oneMaxProblem{size: 1}, random.New(3))
	require.NoError(t, err)

	pop.generation[0] = NewChromosome(mustStrand("1"))
	winner := pop.EvaluateAndTest()
	require.NotNil(t, winner)
	require.Equal(t, 1.0, winner.Fitness())

	pop.generation[0] = NewChromosome(mustStrand("0"))
	require.Nil(t, pop.EvaluateAndTest())
}

func TestReproduceKeepsPopulationSize(t *testing.T) {
	cases := []struct {
		name     string
		size     int
		elitism  bool
		elite    int
		rate     float64
		strategy CrossoverType
	}{
		{"even no elitism", 10, false, 0, 0.7, CrossoverOnePoint},
		{"odd no elitism", 11, false, 0, 0.7, CrossoverTwoPoint},
		{"odd one elite", 9, true, 1, 1.0, CrossoverUniform},
		{"even odd elite", 8, true, 3, 0.0, CrossoverOnePoint},
		{"single member", 1, false, 0, 0.7, CrossoverUniform},
		{"all elite", 4, true, 4, 0.7, CrossoverOnePoint},
		{"elite above size", 3, true, 7, 0.7, CrossoverTwoPoint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.PopulationSize = tc.size
			cfg.UseElitism = tc.elitism
			cfg.EliteNumber = tc.elite
			cfg.CrossoverRate = tc.rate
			cfg.Crossover = tc.strategy

			pop, err := NewPopulation(cfg, &oneMaxProblem{size: 6}, random.New(4))
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				pop.EvaluateAndTest()
				pop.Reproduce()
				require.Len(t, pop.Generation(), tc.size)
			}
		})
	}
}

func TestReproduceCopiesElitesVerbatim(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 10
	cfg.EliteNumber = 3
	cfg.MutationRate = 1.0

	pop, err := NewPopulation(cfg, &oneMaxProblem{size: 24}, random.New(5))
	require.NoError(t, err)
	pop.EvaluateAndTest()
	before := pop.Generation()

	pop.Reproduce()
	after := pop.Generation()

	for i := 0; i < 3; i++ {
		require.NotSame(t, before[i], after[i])
		require.True(t, before[i].Strand().Equal(after[i].Strand()), "elite %d changed", i)
		require.False(t, after[i].Evaluated())
	}
}

func TestReproduceWithoutCrossoverMutatesParentCopies(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 4
	cfg.UseElitism = false
	cfg.CrossoverRate = 0
	cfg.MutationRate = 1.0

	pop, err := NewPopulation(cfg, &oneMaxProblem{size: 8}, random.New(6))
	require.NoError(t, err)
	for _, c := range pop.generation {
		copy(c.strand, mustStrand("11111111"))
	}
	pop.EvaluateAndTest()
	pop.Reproduce()

	for _, c := range pop.Generation() {
		require.Equal(t, "00000000", c.Strand().String())
	}
}

func TestReproduceLogsUniformFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := testConfig()
	cfg.Selection = SelectionFitnessProportional
	pop, err := NewPopulation(cfg, &oneMaxProblem{size: 4}, random.New(7), WithLogger(logger))
	require.NoError(t, err)

	pop.Reproduce()
	require.Contains(t, buf.String(), "falling back to uniform")
	require.Len(t, pop.Generation(), cfg.PopulationSize)
}

func TestSameSeedSameRun(t *testing.T) {
	run := func() Outcome {
		cfg := testConfig()
		cfg.SimulationNumber = 15
		pop, err := NewPopulation(cfg, &oneMaxProblem{size: 40}, random.New(99))
		require.NoError(t, err)
		out, err := pop.Run(context.Background())
		require.NoError(t, err)
		return out
	}

	first := run()
	second := run()
	require.Equal(t, first.Generations, second.Generations)
	require.Equal(t, first.BestByGeneration, second.BestByGeneration)
	require.Equal(t, first.FinalGeneration, second.FinalGeneration)
}

func TestRunSolvesOneMax(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 40
	cfg.SimulationNumber = 500
	problem := &oneMaxProblem{size: 16}

	pop, err := NewPopulation(cfg, problem, random.New(10))
	require.NoError(t, err)
	out, err := pop.Run(context.Background())
	require.NoError(t, err)

	require.True(t, out.Solved)
	require.Equal(t, 16.0, out.Best.Fitness)
	require.Equal(t, []string{out.Best.Strand.String()}, problem.rendered)
	require.Len(t, out.BestByGeneration, out.Generations)
	require.Len(t, out.Diagnostics, out.Generations)
	require.Equal(t, out.Generations, out.Diagnostics[len(out.Diagnostics)-1].Generation)
}

func TestRunExhaustionRendersFinalGeneration(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 7
	cfg.SimulationNumber = 4
	problem := &unsolvableProblem{size: 5}

	pop, err := NewPopulation(cfg, problem, random.New(11))
	require.NoError(t, err)
	out, err := pop.Run(context.Background())
	require.NoError(t, err)

	require.False(t, out.Solved)
	require.Equal(t, 4, out.Generations)
	require.Equal(t, 7, problem.rendered)
	require.Len(t, out.FinalGeneration, 7)
	for _, s := range out.FinalGeneration {
		require.Equal(t, SanitizedFitness, s.Fitness)
	}
}

func TestRunFitnessProportionalWithNaNFitness(t *testing.T) {
	cfg := testConfig()
	cfg.Selection = SelectionFitnessProportional
	cfg.SimulationNumber = 6

	pop, err := NewPopulation(cfg, &unsolvableProblem{size: 8}, random.New(12))
	require.NoError(t, err)
	out, err := pop.Run(context.Background())
	require.NoError(t, err)
	require.False(t, out.Solved)
	require.Len(t, out.BestByGeneration, 6)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	pop, err := NewPopulation(testConfig(), &oneMaxProblem{size: 64}, random.New(13))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pop.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOutcomeIsDetachedFromPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.SimulationNumber = 1
	pop, err := NewPopulation(cfg, &unsolvableProblem{size: 3}, random.New(14))
	require.NoError(t, err)
	out, err := pop.Run(context.Background())
	require.NoError(t, err)

	out.FinalGeneration[0].Strand[0] = !out.FinalGeneration[0].Strand[0]
	require.NotEqual(t, out.FinalGeneration[0].Strand.String(), pop.Generation()[0].Strand().String())
}
