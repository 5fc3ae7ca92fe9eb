package problem

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"bitgen/internal/evo"
)

func mustStrand(t *testing.T, s string) evo.Strand {
	t.Helper()
	strand, err := evo.ParseStrand(s)
	if err != nil {
		t.Fatalf("parse strand %q: %v", s, err)
	}
	return strand
}

func mustProblem(t *testing.T, name string, params Params) Definition {
	t.Helper()
	p, err := New(name, params, io.Discard)
	if err != nil {
		t.Fatalf("new %s: %v", name, err)
	}
	return p
}

func TestNamesListsBuiltins(t *testing.T) {
	want := []string{"hiff", "onemax", "target", "trap"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected names: got=%v want=%v", got, want)
	}
}

func TestNewResolvesAliases(t *testing.T) {
	for alias, want := range map[string]string{
		"OneMax":         "onemax",
		"one_max":        "onemax",
		"deceptive-trap": "trap",
		" HIFF ":         "hiff",
	} {
		p := mustProblem(t, alias, Params{})
		if p.Name() != want {
			t.Fatalf("alias %q resolved to %s, want %s", alias, p.Name(), want)
		}
	}
}

func TestNewRejectsUnknownProblem(t *testing.T) {
	_, err := New("knapsack", Params{}, nil)
	if !errors.Is(err, ErrUnknownProblem) {
		t.Fatalf("expected ErrUnknownProblem, got %v", err)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	err := Register("one-max", "again", newOneMax)
	if !errors.Is(err, ErrProblemExists) {
		t.Fatalf("expected ErrProblemExists, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	desc, ok := Describe("trap")
	if !ok || !strings.Contains(desc, "deceptive") {
		t.Fatalf("unexpected description: %q ok=%v", desc, ok)
	}
	if _, ok := Describe("missing"); ok {
		t.Fatal("expected missing problem to have no description")
	}
}

func TestOneMax(t *testing.T) {
	p := mustProblem(t, "onemax", Params{})
	cfg := evo.DefaultConfig()
	if err := p.Setup(&cfg); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if cfg.ChromosomeSize != defaultOneMaxSize {
		t.Fatalf("expected default size %d, got %d", defaultOneMaxSize, cfg.ChromosomeSize)
	}
	if got := p.Fitness(mustStrand(t, "10110")); got != 3 {
		t.Fatalf("expected fitness 3, got %f", got)
	}
	if !p.IsSolution(mustStrand(t, "111")) || p.IsSolution(mustStrand(t, "110")) {
		t.Fatal("unexpected solution check")
	}
}

func TestTargetSetupForcesTargetLength(t *testing.T) {
	p := mustProblem(t, "target", Params{Target: "1010011"})

	cfg := evo.DefaultConfig()
	if err := p.Setup(&cfg); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if cfg.ChromosomeSize != 7 {
		t.Fatalf("expected chromosome size 7, got %d", cfg.ChromosomeSize)
	}

	cfg.ChromosomeSize = 9
	err := p.Setup(&cfg)
	var cfgErr *evo.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "chromosome_size" {
		t.Fatalf("expected chromosome_size configuration error, got %v", err)
	}
}

func TestTargetFitness(t *testing.T) {
	p := mustProblem(t, "target", Params{Target: "1010"})
	if got := p.Fitness(mustStrand(t, "1001")); got != 2 {
		t.Fatalf("expected 2 matches, got %f", got)
	}
	if !p.IsSolution(mustStrand(t, "1010")) || p.IsSolution(mustStrand(t, "1011")) {
		t.Fatal("unexpected solution check")
	}
}

func TestTargetRequiresValidTarget(t *testing.T) {
	if _, err := New("target", Params{}, nil); err == nil {
		t.Fatal("expected missing target error")
	}
	if _, err := New("target", Params{Target: "10x"}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTrapFitnessIsDeceptive(t *testing.T) {
	p := mustProblem(t, "trap", Params{TrapOrder: 4})
	cases := map[string]float64{
		"0000":     3,
		"1000":     2,
		"1100":     1,
		"1110":     0,
		"1111":     4,
		"11110000": 7,
	}
	for strand, want := range cases {
		if got := p.Fitness(mustStrand(t, strand)); got != want {
			t.Fatalf("trap(%s): got %f want %f", strand, got, want)
		}
	}
	if !p.IsSolution(mustStrand(t, "11111111")) || p.IsSolution(mustStrand(t, "00000000")) {
		t.Fatal("unexpected solution check")
	}
}

func TestTrapSetup(t *testing.T) {
	p := mustProblem(t, "trap", Params{TrapOrder: 3})
	cfg := evo.DefaultConfig()
	if err := p.Setup(&cfg); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if cfg.ChromosomeSize != 24 {
		t.Fatalf("expected default size 24, got %d", cfg.ChromosomeSize)
	}
	cfg.ChromosomeSize = 10
	if err := p.Setup(&cfg); !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if _, err := New("trap", Params{TrapOrder: 1}, nil); err == nil {
		t.Fatal("expected trap order error")
	}
}

func TestHIFF(t *testing.T) {
	p := mustProblem(t, "hiff", Params{})
	cases := map[string]float64{
		"1111":     12,
		"0000":     12,
		"1100":     8,
		"1010":     4,
		"11110000": 24,
	}
	for strand, want := range cases {
		if got := p.Fitness(mustStrand(t, strand)); got != want {
			t.Fatalf("hiff(%s): got %f want %f", strand, got, want)
		}
	}
	if !p.IsSolution(mustStrand(t, "0000")) || !p.IsSolution(mustStrand(t, "1111")) || p.IsSolution(mustStrand(t, "0001")) {
		t.Fatal("unexpected solution check")
	}

	cfg := evo.DefaultConfig()
	cfg.ChromosomeSize = 12
	if err := p.Setup(&cfg); !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected power-of-two error, got %v", err)
	}
}

func TestRenderWritesStrandAndFitness(t *testing.T) {
	var buf bytes.Buffer
	p, err := New("onemax", Params{}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	p.Render(mustStrand(t, "0110"))
	if got := buf.String(); got != "0110 2\n" {
		t.Fatalf("unexpected render output: %q", got)
	}
}
