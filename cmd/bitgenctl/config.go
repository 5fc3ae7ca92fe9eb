package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bitgen/pkg/bitgen"
)

// loadRunRequestFromConfig reads a run config file. Files ending in .toml are
// decoded as TOML, everything else as JSON; both share the same keys.
func loadRunRequestFromConfig(path string) (bitgen.RunRequest, error) {
	raw, err := readConfigMap(path)
	if err != nil {
		return bitgen.RunRequest{}, err
	}

	var req bitgen.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["problem"]); ok {
		req.Problem = v
	}
	if v, ok := asString(raw["target"]); ok {
		req.Target = v
	}
	if v, ok := asInt(raw["trap_order"]); ok {
		req.TrapOrder = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["population_size"]); ok {
		req.PopulationSize = v
	}
	if v, ok := asInt(raw["chromosome_size"]); ok {
		req.ChromosomeSize = v
	}
	if v, ok := asInt(raw["simulation_number"]); ok {
		req.Generations = v
	}
	if v, ok := asString(raw["selection_type"]); ok {
		req.Selection = v
	}
	if v, ok := asString(raw["crossover_type"]); ok {
		req.Crossover = v
	}
	if v, ok := asFloat64(raw["crossover_rate"]); ok {
		req.CrossoverRate = &v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = &v
	}
	if v, ok := asBool(raw["use_elitism"]); ok {
		req.UseElitism = &v
	}
	if v, ok := asInt(raw["elite_number"]); ok {
		req.EliteNumber = &v
	}
	return req, nil
}

func readConfigMap(path string) (map[string]any, error) {
	var raw map[string]any
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags applies only the flags set on the command line, so a
// config file keeps its values for everything else.
func overrideFromFlags(req *bitgen.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "problem":
			req.Problem = v.(string)
		case "target":
			req.Target = v.(string)
		case "trap-order":
			req.TrapOrder = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "pop":
			req.PopulationSize = v.(int)
		case "size":
			req.ChromosomeSize = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "selection":
			req.Selection = v.(string)
		case "crossover":
			req.Crossover = v.(string)
		case "crossover-rate":
			rate := v.(float64)
			req.CrossoverRate = &rate
		case "mutation-rate":
			rate := v.(float64)
			req.MutationRate = &rate
		case "elitism":
			elitism := v.(bool)
			req.UseElitism = &elitism
		case "elite":
			elite := v.(int)
			req.EliteNumber = &elite
		default:
			return fmt.Errorf("flag %s cannot override a config value", name)
		}
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (bitgen.RunRequest, error) {
	if configPath == "" {
		return bitgen.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return bitgen.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
