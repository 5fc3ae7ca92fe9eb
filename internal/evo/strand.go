package evo

import (
	"fmt"
	"strings"
)

// Strand is the fixed-length bit encoding of one candidate solution.
type Strand []bool

func NewStrand(size int) Strand {
	return make(Strand, size)
}

// ParseStrand decodes a string of '0' and '1' characters, index 0 first.
func ParseStrand(s string) (Strand, error) {
	s = strings.TrimSpace(s)
	strand := make(Strand, len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			strand[i] = true
		default:
			return nil, fmt.Errorf("invalid strand character %q at index %d", c, i)
		}
	}
	return strand, nil
}

func (s Strand) Clone() Strand {
	out := make(Strand, len(s))
	copy(out, s)
	return out
}

func (s Strand) Equal(other Strand) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Ones counts the set genes.
func (s Strand) Ones() int {
	n := 0
	for _, gene := range s {
		if gene {
			n++
		}
	}
	return n
}

func (s Strand) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, gene := range s {
		if gene {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
