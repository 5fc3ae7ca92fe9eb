package evo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig is wrapped by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError reports a run parameter rejected before the first
// generation is built.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s=%v: %s", ErrInvalidConfig, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}

type SelectionType int

const (
	SelectionFitnessProportional SelectionType = iota + 1
	SelectionTournament
)

func (t SelectionType) String() string {
	switch t {
	case SelectionFitnessProportional:
		return "fitness-proportional"
	case SelectionTournament:
		return "tournament"
	default:
		return fmt.Sprintf("selection(%d)", int(t))
	}
}

// ParseSelectionType maps a configuration key to its selection strategy.
func ParseSelectionType(name string) (SelectionType, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "fitness-proportional":
		return SelectionFitnessProportional, nil
	case "tournament":
		return SelectionTournament, nil
	default:
		return 0, &ConfigurationError{Field: "selection_type", Value: name, Reason: "unknown selection type"}
	}
}

type CrossoverType int

const (
	CrossoverOnePoint CrossoverType = iota + 1
	CrossoverTwoPoint
	CrossoverUniform
)

func (t CrossoverType) String() string {
	switch t {
	case CrossoverOnePoint:
		return "one-point"
	case CrossoverTwoPoint:
		return "two-point"
	case CrossoverUniform:
		return "uniform"
	default:
		return fmt.Sprintf("crossover(%d)", int(t))
	}
}

// ParseCrossoverType maps a configuration key to its crossover strategy.
func ParseCrossoverType(name string) (CrossoverType, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "one-point":
		return CrossoverOnePoint, nil
	case "two-point":
		return CrossoverTwoPoint, nil
	case "uniform":
		return CrossoverUniform, nil
	default:
		return 0, &ConfigurationError{Field: "crossover_type", Value: name, Reason: "unknown crossover type"}
	}
}

// Config holds the immutable parameters of one run.
type Config struct {
	PopulationSize   int
	ChromosomeSize   int
	SimulationNumber int
	Selection        SelectionType
	Crossover        CrossoverType
	CrossoverRate    float64
	MutationRate     float64
	UseElitism       bool
	EliteNumber      int
}

// DefaultConfig returns the parameters used when a run leaves them unset.
// ChromosomeSize is left to the problem's Setup.
func DefaultConfig() Config {
	return Config{
		PopulationSize:   100,
		SimulationNumber: 1000,
		Selection:        SelectionTournament,
		Crossover:        CrossoverOnePoint,
		CrossoverRate:    0.7,
		MutationRate:     0.01,
		UseElitism:       true,
		EliteNumber:      2,
	}
}

func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return &ConfigurationError{Field: "population_size", Value: c.PopulationSize, Reason: "must be > 0"}
	}
	if c.ChromosomeSize <= 0 {
		return &ConfigurationError{Field: "chromosome_size", Value: c.ChromosomeSize, Reason: "must be > 0"}
	}
	if c.SimulationNumber <= 0 {
		return &ConfigurationError{Field: "simulation_number", Value: c.SimulationNumber, Reason: "must be > 0"}
	}
	if _, err := NewSelector(c.Selection); err != nil {
		return err
	}
	if _, err := NewCrossover(c.Crossover); err != nil {
		return err
	}
	if !isRate(c.CrossoverRate) {
		return &ConfigurationError{Field: "crossover_rate", Value: c.CrossoverRate, Reason: "must be in [0, 1]"}
	}
	if !isRate(c.MutationRate) {
		return &ConfigurationError{Field: "mutation_rate", Value: c.MutationRate, Reason: "must be in [0, 1]"}
	}
	if c.EliteNumber < 0 {
		return &ConfigurationError{Field: "elite_number", Value: c.EliteNumber, Reason: "must be >= 0"}
	}
	return nil
}

// eliteCount is the number of chromosomes copied verbatim into the next
// generation.
func (c Config) eliteCount() int {
	if !c.UseElitism {
		return 0
	}
	return min(c.EliteNumber, c.PopulationSize)
}

func isRate(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
