package evo

import (
	"math"
	"sort"

	"bitgen/internal/random"
)

// SanitizedFitness replaces NaN scores. It ranks below any legitimate score.
const SanitizedFitness = -1.0

// Chromosome is one candidate: a strand plus its cached fitness. A chromosome
// belongs to exactly one generation.
type Chromosome struct {
	strand    Strand
	fitness   float64
	evaluated bool
}

// NewChromosome takes a private copy of strand.
func NewChromosome(strand Strand) *Chromosome {
	return &Chromosome{strand: strand.Clone()}
}

// NewRandomChromosome draws size independent random genes.
func NewRandomChromosome(rng random.Source, size int) *Chromosome {
	c := &Chromosome{}
	c.Randomize(rng, size)
	return c
}

func (c *Chromosome) Randomize(rng random.Source, size int) {
	c.strand = make(Strand, size)
	for i := range c.strand {
		c.strand[i] = rng.Bit()
	}
	c.fitness = 0
	c.evaluated = false
}

// Strand returns the chromosome's own strand. Callers must not modify it.
func (c *Chromosome) Strand() Strand {
	return c.strand
}

func (c *Chromosome) Len() int {
	return len(c.strand)
}

func (c *Chromosome) Fitness() float64 {
	return c.fitness
}

// SetFitness stores fitness, mapping NaN to SanitizedFitness.
func (c *Chromosome) SetFitness(fitness float64) {
	if math.IsNaN(fitness) {
		fitness = SanitizedFitness
	}
	c.fitness = fitness
	c.evaluated = true
}

// Evaluated reports whether SetFitness has run since the chromosome was built.
func (c *Chromosome) Evaluated() bool {
	return c.evaluated
}

// Copy returns a new, unevaluated chromosome with equal strand content.
func (c *Chromosome) Copy() *Chromosome {
	return NewChromosome(c.strand)
}

// Mutate flips every gene independently with probability rate.
func (c *Chromosome) Mutate(rng random.Source, rate float64) {
	for i := range c.strand {
		if rng.Float64() < rate {
			c.strand[i] = !c.strand[i]
		}
	}
}

// sortByFitness orders a generation by descending fitness, keeping the
// relative order of equal scores.
func sortByFitness(generation []*Chromosome) {
	sort.SliceStable(generation, func(i, j int) bool {
		return generation[i].fitness > generation[j].fitness
	})
}
