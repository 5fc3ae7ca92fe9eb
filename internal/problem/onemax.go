package problem

import (
	"io"

	"bitgen/internal/evo"
)

const defaultOneMaxSize = 32

type OneMax struct {
	renderer
}

func newOneMax(_ Params, out io.Writer) (Definition, error) {
	p := &OneMax{}
	p.renderer = renderer{out: out, fitness: p.Fitness}
	return p, nil
}

func (*OneMax) Name() string {
	return "onemax"
}

func (*OneMax) Description() string {
	return "maximize the number of set genes"
}

func (*OneMax) Setup(cfg *evo.Config) error {
	if cfg.ChromosomeSize == 0 {
		cfg.ChromosomeSize = defaultOneMaxSize
	}
	return nil
}

func (*OneMax) Fitness(strand evo.Strand) float64 {
	return float64(strand.Ones())
}

func (*OneMax) IsSolution(strand evo.Strand) bool {
	return strand.Ones() == len(strand)
}
