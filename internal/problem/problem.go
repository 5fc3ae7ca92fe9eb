package problem

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"bitgen/internal/evo"
)

var (
	ErrUnknownProblem = errors.New("unknown problem")
	ErrProblemExists  = errors.New("problem already registered")
)

// Definition is a problem the engine can optimize, plus the metadata the
// CLI and stores report.
type Definition interface {
	evo.Problem
	Name() string
	Description() string
}

// Params carries the problem-specific knobs of a run. Problems ignore the
// fields they do not use.
type Params struct {
	Target    string
	TrapOrder int
}

// Factory builds a fresh problem instance. out receives rendered strands.
type Factory func(params Params, out io.Writer) (Definition, error)

type registeredProblem struct {
	description string
	factory     Factory
}

var problemRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredProblem
}{
	m: make(map[string]registeredProblem),
}

func init() {
	mustRegister("onemax", "maximize the number of set genes", newOneMax)
	mustRegister("target", "match a fixed target strand gene by gene", newTarget)
	mustRegister("trap", "concatenated deceptive traps of order k", newTrap)
	mustRegister("hiff", "hierarchical if-and-only-if over power-of-two strands", newHIFF)
}

// Register adds a problem under its canonical name.
func Register(name, description string, factory Factory) error {
	name = Normalize(name)
	if name == "" {
		return errors.New("problem name is required")
	}
	if factory == nil {
		return errors.New("problem factory is required")
	}

	problemRegistry.mu.Lock()
	defer problemRegistry.mu.Unlock()

	if _, exists := problemRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrProblemExists, name)
	}
	problemRegistry.m[name] = registeredProblem{description: description, factory: factory}
	return nil
}

func mustRegister(name, description string, factory Factory) {
	if err := Register(name, description, factory); err != nil {
		panic(err)
	}
}

// New builds the named problem. A nil out discards rendered strands.
func New(name string, params Params, out io.Writer) (Definition, error) {
	canonical := Normalize(name)

	problemRegistry.mu.RLock()
	entry, ok := problemRegistry.m[canonical]
	problemRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProblem, name)
	}
	if out == nil {
		out = io.Discard
	}
	return entry.factory(params, out)
}

// Names lists the registered problems in sorted order.
func Names() []string {
	problemRegistry.mu.RLock()
	defer problemRegistry.mu.RUnlock()

	names := make([]string, 0, len(problemRegistry.m))
	for name := range problemRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the registered description of a problem.
func Describe(name string) (string, bool) {
	problemRegistry.mu.RLock()
	defer problemRegistry.mu.RUnlock()

	entry, ok := problemRegistry.m[Normalize(name)]
	return entry.description, ok
}

// renderer writes "strand fitness" lines for problems that score strands
// with a plain function.
type renderer struct {
	out     io.Writer
	fitness func(evo.Strand) float64
}

func (r renderer) Render(strand evo.Strand) {
	fmt.Fprintf(r.out, "%s %g\n", strand, r.fitness(strand))
}
