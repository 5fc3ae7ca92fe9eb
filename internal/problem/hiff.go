package problem

import (
	"io"
	"math/bits"

	"bitgen/internal/evo"
)

const defaultHIFFSize = 32

// HIFF is Watson's hierarchical if-and-only-if function. Every block at every
// level of a binary split scores its length when its genes agree.
type HIFF struct {
	renderer
}

func newHIFF(_ Params, out io.Writer) (Definition, error) {
	p := &HIFF{}
	p.renderer = renderer{out: out, fitness: p.Fitness}
	return p, nil
}

func (*HIFF) Name() string {
	return "hiff"
}

func (*HIFF) Description() string {
	return "hierarchical if-and-only-if over power-of-two strands"
}

func (*HIFF) Setup(cfg *evo.Config) error {
	if cfg.ChromosomeSize == 0 {
		cfg.ChromosomeSize = defaultHIFFSize
	}
	if cfg.ChromosomeSize <= 0 || bits.OnesCount(uint(cfg.ChromosomeSize)) != 1 {
		return &evo.ConfigurationError{
			Field:  "chromosome_size",
			Value:  cfg.ChromosomeSize,
			Reason: "must be a power of two",
		}
	}
	return nil
}

func (*HIFF) Fitness(strand evo.Strand) float64 {
	score, _ := hiffBlock(strand)
	return float64(score)
}

func (*HIFF) IsSolution(strand evo.Strand) bool {
	ones := strand.Ones()
	return ones == 0 || ones == len(strand)
}

// hiffBlock returns the score of block and whether all its genes agree.
func hiffBlock(block evo.Strand) (int, bool) {
	if len(block) <= 1 {
		return len(block), true
	}
	half := len(block) / 2
	left, leftUniform := hiffBlock(block[:half])
	right, rightUniform := hiffBlock(block[half:])
	score := left + right
	uniform := leftUniform && rightUniform && block[0] == block[half]
	if uniform {
		score += len(block)
	}
	return score, uniform
}
