package evo

import (
	"math"

	"bitgen/internal/random"
)

// scriptedSource replays queued draws and defers to a seeded source once a
// queue runs dry.
type scriptedSource struct {
	bits   []bool
	ints   []int
	floats []float64
	next   random.Source
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{next: random.New(1)}
}

func (s *scriptedSource) Bit() bool {
	if len(s.bits) > 0 {
		b := s.bits[0]
		s.bits = s.bits[1:]
		return b
	}
	return s.next.Bit()
}

func (s *scriptedSource) Intn(limit int) int {
	if len(s.ints) > 0 {
		v := s.ints[0]
		s.ints = s.ints[1:]
		if v < 0 || v >= limit {
			panic("scripted int out of range")
		}
		return v
	}
	return s.next.Intn(limit)
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) > 0 {
		f := s.floats[0]
		s.floats = s.floats[1:]
		return f
	}
	return s.next.Float64()
}

// oneMaxProblem scores a strand by its number of set genes.
type oneMaxProblem struct {
	size     int
	setupErr error
	rendered []string
}

func (p *oneMaxProblem) Setup(cfg *Config) error {
	if cfg.ChromosomeSize == 0 {
		cfg.ChromosomeSize = p.size
	}
	return p.setupErr
}

func (p *oneMaxProblem) Fitness(s Strand) float64 {
	return float64(s.Ones())
}

func (p *oneMaxProblem) IsSolution(s Strand) bool {
	return s.Ones() == len(s)
}

func (p *oneMaxProblem) Render(s Strand) {
	p.rendered = append(p.rendered, s.String())
}

// unsolvableProblem never accepts a strand and scores every strand NaN.
type unsolvableProblem struct {
	size     int
	rendered int
}

func (p *unsolvableProblem) Setup(cfg *Config) error {
	cfg.ChromosomeSize = p.size
	return nil
}

func (p *unsolvableProblem) Fitness(Strand) float64 {
	return math.NaN()
}

func (p *unsolvableProblem) IsSolution(Strand) bool {
	return false
}

func (p *unsolvableProblem) Render(Strand) {
	p.rendered++
}

func mustStrand(s string) Strand {
	strand, err := ParseStrand(s)
	if err != nil {
		panic(err)
	}
	return strand
}

func rankedWithFitness(values ...float64) []*Chromosome {
	out := make([]*Chromosome, len(values))
	for i, v := range values {
		out[i] = NewChromosome(Strand{i%2 == 0})
		out[i].SetFitness(v)
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 20
	cfg.SimulationNumber = 50
	return cfg
}
