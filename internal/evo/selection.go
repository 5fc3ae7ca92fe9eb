package evo

import (
	"math"

	"bitgen/internal/random"
)

// DefaultTournamentSize is the sample size of tournament selection.
const DefaultTournamentSize = 5

// Selector chooses a parent from an evaluated, ranked generation. The
// returned chromosome is a view into ranked and is valid only until the
// generation is replaced.
type Selector interface {
	Name() string
	PickParent(rng random.Source, ranked []*Chromosome, totalFitness float64) *Chromosome
}

// FitnessProportionalSelector picks a parent with probability proportional
// to its share of the total fitness. When the total is not a positive finite
// number the wheel is undefined and the pick falls back to a uniform draw.
type FitnessProportionalSelector struct{}

func (FitnessProportionalSelector) Name() string {
	return SelectionFitnessProportional.String()
}

func (FitnessProportionalSelector) PickParent(rng random.Source, ranked []*Chromosome, totalFitness float64) *Chromosome {
	if len(ranked) == 0 {
		panic("evo: selection from an empty generation")
	}
	if !wheelDefined(totalFitness) {
		return ranked[rng.Intn(len(ranked))]
	}

	spin := rng.Float64() * totalFitness
	cumulative := 0.0
	for _, candidate := range ranked {
		cumulative += candidate.fitness
		if cumulative >= spin {
			return candidate
		}
	}
	return ranked[len(ranked)-1]
}

func wheelDefined(totalFitness float64) bool {
	return totalFitness > 0 && !math.IsInf(totalFitness, 0) && !math.IsNaN(totalFitness)
}

// TournamentSelector samples Size distinct members and returns the one with
// the strictly greatest fitness, first in sample order on ties.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return SelectionTournament.String()
}

func (s TournamentSelector) PickParent(rng random.Source, ranked []*Chromosome, _ float64) *Chromosome {
	if len(ranked) == 0 {
		panic("evo: selection from an empty generation")
	}
	size := s.Size
	if size <= 0 {
		size = DefaultTournamentSize
	}
	if size > len(ranked) {
		size = len(ranked)
	}

	sample := sampleDistinct(rng, len(ranked), size)
	best := sample[0]
	for _, idx := range sample[1:] {
		if ranked[idx].fitness > ranked[best].fitness {
			best = idx
		}
	}
	return ranked[best]
}

// sampleDistinct draws k distinct indices from [0, n) in draw order using a
// partial Fisher-Yates shuffle.
func sampleDistinct(rng random.Source, n, k int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices[:k]
}

// NewSelector returns the strategy bound to t.
func NewSelector(t SelectionType) (Selector, error) {
	switch t {
	case SelectionFitnessProportional:
		return FitnessProportionalSelector{}, nil
	case SelectionTournament:
		return TournamentSelector{Size: DefaultTournamentSize}, nil
	default:
		return nil, &ConfigurationError{Field: "selection_type", Value: int(t), Reason: "unknown selection type"}
	}
}
