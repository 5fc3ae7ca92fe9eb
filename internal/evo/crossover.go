package evo

import (
	"fmt"

	"bitgen/internal/random"
)

// FitnessFunc scores a strand. Greedy crossovers use it to pick a winner.
type FitnessFunc func(Strand) float64

// Crossover combines two parent strands of equal length into two children.
type Crossover interface {
	Name() string
	Cross(rng random.Source, a, b Strand, fitness FitnessFunc) (Strand, Strand)
}

// OnePointCrossover cuts both parents at one point and keeps only the fitter
// of the two recombinations, returned twice.
type OnePointCrossover struct{}

func (OnePointCrossover) Name() string {
	return CrossoverOnePoint.String()
}

func (OnePointCrossover) Cross(rng random.Source, a, b Strand, fitness FitnessFunc) (Strand, Strand) {
	cut := rng.Intn(len(a))
	first := splice(a, b, cut, len(a))
	second := splice(b, a, cut, len(a))
	winner := fitter(first, second, fitness)
	return winner, winner.Clone()
}

// TwoPointCrossover swaps the segment between two cuts and keeps only the
// fitter of the two recombinations, returned twice.
type TwoPointCrossover struct{}

func (TwoPointCrossover) Name() string {
	return CrossoverTwoPoint.String()
}

func (TwoPointCrossover) Cross(rng random.Source, a, b Strand, fitness FitnessFunc) (Strand, Strand) {
	lo := rng.Intn(len(a))
	hi := rng.Intn(len(a))
	if lo > hi {
		lo, hi = hi, lo
	}
	first := splice(a, b, lo, hi)
	second := splice(b, a, lo, hi)
	winner := fitter(first, second, fitness)
	return winner, winner.Clone()
}

// UniformCrossover takes each gene from either parent on a fair coin flip.
// The second child is a second, independently drawn combination.
type UniformCrossover struct{}

func (UniformCrossover) Name() string {
	return CrossoverUniform.String()
}

func (UniformCrossover) Cross(rng random.Source, a, b Strand, _ FitnessFunc) (Strand, Strand) {
	return mix(rng, a, b), mix(rng, a, b)
}

// NewCrossover returns the strategy bound to t.
func NewCrossover(t CrossoverType) (Crossover, error) {
	switch t {
	case CrossoverOnePoint:
		return OnePointCrossover{}, nil
	case CrossoverTwoPoint:
		return TwoPointCrossover{}, nil
	case CrossoverUniform:
		return UniformCrossover{}, nil
	default:
		return nil, &ConfigurationError{Field: "crossover_type", Value: int(t), Reason: "unknown crossover type"}
	}
}

// Breed crosses two parent chromosomes into two new, unevaluated children.
func Breed(strategy Crossover, rng random.Source, a, b *Chromosome, fitness FitnessFunc) (*Chromosome, *Chromosome) {
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("evo: crossover of strands with different lengths %d and %d", a.Len(), b.Len()))
	}
	first, second := strategy.Cross(rng, a.strand, b.strand, fitness)
	return &Chromosome{strand: first}, &Chromosome{strand: second}
}

// splice copies base and overwrites [lo, hi) with donor's genes.
func splice(base, donor Strand, lo, hi int) Strand {
	out := base.Clone()
	copy(out[lo:hi], donor[lo:hi])
	return out
}

func mix(rng random.Source, a, b Strand) Strand {
	out := a.Clone()
	for i := range out {
		if rng.Bit() {
			out[i] = b[i]
		}
	}
	return out
}

// fitter prefers first only when it scores strictly higher.
func fitter(first, second Strand, fitness FitnessFunc) Strand {
	if fitness(first) > fitness(second) {
		return first
	}
	return second
}
