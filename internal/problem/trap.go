package problem

import (
	"fmt"
	"io"

	"bitgen/internal/evo"
)

const defaultTrapOrder = 4

// Trap concatenates deceptive trap blocks of Order genes. A block with u set
// genes scores Order when full and Order-1-u otherwise, so the gradient of
// every partial block leads away from the optimum.
type Trap struct {
	renderer
	Order int
}

func newTrap(params Params, out io.Writer) (Definition, error) {
	order := params.TrapOrder
	if order == 0 {
		order = defaultTrapOrder
	}
	if order < 2 {
		return nil, fmt.Errorf("trap order must be >= 2, got %d", order)
	}
	p := &Trap{Order: order}
	p.renderer = renderer{out: out, fitness: p.Fitness}
	return p, nil
}

func (*Trap) Name() string {
	return "trap"
}

func (p *Trap) Description() string {
	return fmt.Sprintf("concatenated deceptive traps of order %d", p.Order)
}

func (p *Trap) Setup(cfg *evo.Config) error {
	if cfg.ChromosomeSize == 0 {
		cfg.ChromosomeSize = 8 * p.Order
	}
	if cfg.ChromosomeSize%p.Order != 0 {
		return &evo.ConfigurationError{
			Field:  "chromosome_size",
			Value:  cfg.ChromosomeSize,
			Reason: fmt.Sprintf("must be a multiple of trap order %d", p.Order),
		}
	}
	return nil
}

func (p *Trap) Fitness(strand evo.Strand) float64 {
	total := 0
	for start := 0; start+p.Order <= len(strand); start += p.Order {
		ones := strand[start : start+p.Order].Ones()
		if ones == p.Order {
			total += p.Order
		} else {
			total += p.Order - 1 - ones
		}
	}
	return float64(total)
}

func (p *Trap) IsSolution(strand evo.Strand) bool {
	return strand.Ones() == len(strand)
}
