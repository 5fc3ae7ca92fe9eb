package evo

import (
	"context"
	"fmt"
	"log/slog"

	"bitgen/internal/model"
	"bitgen/internal/random"
)

// Problem is the pluggable definition being optimized.
type Problem interface {
	// Setup fills in or checks run parameters before the first generation.
	Setup(cfg *Config) error
	Fitness(strand Strand) float64
	IsSolution(strand Strand) bool
	// Render reports a strand. Its output is not consumed by the engine.
	Render(strand Strand)
}

// ScoredStrand is a detached copy of an evaluated chromosome.
type ScoredStrand struct {
	Strand  Strand  `json:"strand"`
	Fitness float64 `json:"fitness"`
}

// Outcome summarizes a finished run.
type Outcome struct {
	Solved           bool
	Generations      int
	Best             ScoredStrand
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	FinalGeneration  []ScoredStrand
}

type Option func(*Population)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Population) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Population owns the chromosomes of the current generation and drives the
// evaluate, rank, test, reproduce loop.
type Population struct {
	cfg       Config
	problem   Problem
	rng       random.Source
	logger    *slog.Logger
	selector  Selector
	crossover Crossover

	generation   []*Chromosome
	totalFitness float64
	evaluated    bool
	index        int
}

// NewPopulation runs the problem's setup, validates the resulting
// configuration and builds a random first generation.
func NewPopulation(cfg Config, problem Problem, rng random.Source, opts ...Option) (*Population, error) {
	if problem == nil {
		return nil, fmt.Errorf("problem is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := problem.Setup(&cfg); err != nil {
		return nil, fmt.Errorf("problem setup: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	selector, err := NewSelector(cfg.Selection)
	if err != nil {
		return nil, err
	}
	crossover, err := NewCrossover(cfg.Crossover)
	if err != nil {
		return nil, err
	}

	p := &Population{
		cfg:       cfg,
		problem:   problem,
		rng:       rng,
		logger:    slog.New(slog.DiscardHandler),
		selector:  selector,
		crossover: crossover,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.initialize()
	return p, nil
}

func (p *Population) initialize() {
	p.generation = make([]*Chromosome, p.cfg.PopulationSize)
	for i := range p.generation {
		p.generation[i] = NewRandomChromosome(p.rng, p.cfg.ChromosomeSize)
	}
	p.totalFitness = 0
	p.evaluated = false
	p.index = 1
}

// Config returns the validated parameters, including problem setup changes.
func (p *Population) Config() Config {
	return p.cfg
}

// Generation returns the current chromosomes in rank order. The pointers are
// valid until the next Reproduce.
func (p *Population) Generation() []*Chromosome {
	out := make([]*Chromosome, len(p.generation))
	copy(out, p.generation)
	return out
}

// TotalFitness is the fitness sum of the last evaluation, or 0 before one.
func (p *Population) TotalFitness() float64 {
	return p.totalFitness
}

// EvaluateAndTest scores and ranks the generation, and returns its best member
// if the problem accepts it as a solution.
func (p *Population) EvaluateAndTest() *Chromosome {
	p.totalFitness = 0
	for _, candidate := range p.generation {
		candidate.SetFitness(p.problem.Fitness(candidate.strand))
		p.totalFitness += candidate.fitness
	}
	sortByFitness(p.generation)
	p.evaluated = true

	best := p.generation[0]
	if p.problem.IsSolution(best.strand) {
		return best
	}
	return nil
}

// SelectParent picks one parent with the configured strategy.
func (p *Population) SelectParent() *Chromosome {
	return p.selector.PickParent(p.rng, p.generation, p.totalFitness)
}

// Reproduce replaces the current generation with its offspring.
func (p *Population) Reproduce() {
	if p.cfg.Selection == SelectionFitnessProportional && (!p.evaluated || !wheelDefined(p.totalFitness)) {
		p.logger.Debug("fitness-proportional selection falling back to uniform",
			"generation", p.index,
			"total_fitness", p.totalFitness,
			"evaluated", p.evaluated,
		)
	}

	next := make([]*Chromosome, 0, p.cfg.PopulationSize+1)
	for _, elite := range p.generation[:p.cfg.eliteCount()] {
		next = append(next, elite.Copy())
	}

	for len(next) < p.cfg.PopulationSize {
		a := p.SelectParent()
		b := p.SelectParent()

		var first, second *Chromosome
		if p.rng.Float64() < p.cfg.CrossoverRate {
			first, second = Breed(p.crossover, p.rng, a, b, p.problem.Fitness)
		} else {
			first, second = a.Copy(), b.Copy()
		}
		first.Mutate(p.rng, p.cfg.MutationRate)
		second.Mutate(p.rng, p.cfg.MutationRate)

		next = append(next, first)
		if len(next) < p.cfg.PopulationSize {
			next = append(next, second)
		}
	}
	if len(next) != p.cfg.PopulationSize {
		panic(fmt.Sprintf("evo: reproduced %d chromosomes, want %d", len(next), p.cfg.PopulationSize))
	}

	p.generation = next
	p.totalFitness = 0
	p.evaluated = false
	p.index++
}

// Run evolves until a solution is found or SimulationNumber generations have
// been evaluated. The final generation is evaluated but not reproduced.
func (p *Population) Run(ctx context.Context) (Outcome, error) {
	bestHistory := make([]float64, 0, p.cfg.SimulationNumber)
	diagnostics := make([]model.GenerationDiagnostics, 0, p.cfg.SimulationNumber)

	for gen := 1; gen <= p.cfg.SimulationNumber; gen++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		winner := p.EvaluateAndTest()
		summary := summarizeGeneration(p.generation, p.index, p.totalFitness)
		bestHistory = append(bestHistory, summary.BestFitness)
		diagnostics = append(diagnostics, summary)
		p.logger.Debug("generation evaluated",
			"generation", gen,
			"best_fitness", summary.BestFitness,
			"mean_fitness", summary.MeanFitness,
			"distinct_strands", summary.DistinctStrands,
		)

		if winner != nil {
			p.logger.Info("solution found", "generation", gen, "fitness", winner.fitness)
			p.problem.Render(winner.strand)
			return p.outcome(true, gen, bestHistory, diagnostics), nil
		}
		if gen < p.cfg.SimulationNumber {
			p.Reproduce()
		}
	}

	p.logger.Info("solution not found", "generations", p.cfg.SimulationNumber)
	// The rendered generation is the last evaluated one, not its offspring.
	for _, candidate := range p.generation {
		p.problem.Render(candidate.strand)
	}
	return p.outcome(false, p.cfg.SimulationNumber, bestHistory, diagnostics), nil
}

func (p *Population) outcome(solved bool, generations int, bestHistory []float64, diagnostics []model.GenerationDiagnostics) Outcome {
	final := make([]ScoredStrand, len(p.generation))
	for i, c := range p.generation {
		final[i] = ScoredStrand{Strand: c.strand.Clone(), Fitness: c.fitness}
	}
	return Outcome{
		Solved:           solved,
		Generations:      generations,
		Best:             final[0],
		BestByGeneration: bestHistory,
		Diagnostics:      diagnostics,
		FinalGeneration:  final,
	}
}
