package problem

import (
	"errors"
	"fmt"
	"io"

	"bitgen/internal/evo"
)

// Target scores a strand by the number of genes equal to a fixed target.
type Target struct {
	renderer
	target evo.Strand
}

func newTarget(params Params, out io.Writer) (Definition, error) {
	if params.Target == "" {
		return nil, errors.New("target problem requires a target strand")
	}
	target, err := evo.ParseStrand(params.Target)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	if len(target) == 0 {
		return nil, errors.New("target problem requires a target strand")
	}
	p := &Target{target: target}
	p.renderer = renderer{out: out, fitness: p.Fitness}
	return p, nil
}

func (*Target) Name() string {
	return "target"
}

func (p *Target) Description() string {
	return fmt.Sprintf("match the %d-gene target %s", len(p.target), p.target)
}

func (p *Target) Setup(cfg *evo.Config) error {
	if cfg.ChromosomeSize != 0 && cfg.ChromosomeSize != len(p.target) {
		return &evo.ConfigurationError{
			Field:  "chromosome_size",
			Value:  cfg.ChromosomeSize,
			Reason: fmt.Sprintf("target has %d genes", len(p.target)),
		}
	}
	cfg.ChromosomeSize = len(p.target)
	return nil
}

func (p *Target) Fitness(strand evo.Strand) float64 {
	matches := 0
	for i := range strand {
		if i < len(p.target) && strand[i] == p.target[i] {
			matches++
		}
	}
	return float64(matches)
}

func (p *Target) IsSolution(strand evo.Strand) bool {
	return strand.Equal(p.target)
}
