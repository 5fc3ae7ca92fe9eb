// Package random provides the uniform draws consumed by the evolution engine.
package random

import "math/rand/v2"

// Source supplies independent uniform draws. Implementations are not safe for
// concurrent use; every run owns its own Source.
type Source interface {
	// Bit returns an unbiased boolean.
	Bit() bool
	// Intn returns an integer in [0, limit). It panics if limit <= 0.
	Intn(limit int) int
	// Float64 returns a real in [0, 1).
	Float64() float64
}

// PCG is a Source backed by a seeded PCG generator.
type PCG struct {
	rng *rand.Rand
}

// New returns a PCG source. Equal seeds produce equal draw sequences.
func New(seed int64) *PCG {
	s := uint64(seed)
	return &PCG{rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

func (p *PCG) Bit() bool {
	return p.rng.Uint64()&1 == 1
}

func (p *PCG) Intn(limit int) int {
	return p.rng.IntN(limit)
}

func (p *PCG) Float64() float64 {
	return p.rng.Float64()
}
