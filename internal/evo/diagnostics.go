package evo

import (
	"gonum.org/v1/gonum/stat"

	"bitgen/internal/model"
)

// summarizeGeneration reports the fitness distribution of an evaluated,
// ranked generation.
func summarizeGeneration(generation []*Chromosome, index int, totalFitness float64) model.GenerationDiagnostics {
	if len(generation) == 0 {
		return model.GenerationDiagnostics{Generation: index}
	}

	fitnesses := make([]float64, len(generation))
	distinct := make(map[string]struct{}, len(generation))
	minFitness := generation[0].fitness
	for i, c := range generation {
		fitnesses[i] = c.fitness
		if c.fitness < minFitness {
			minFitness = c.fitness
		}
		distinct[c.strand.String()] = struct{}{}
	}
	mean, std := stat.PopMeanStdDev(fitnesses, nil)

	return model.GenerationDiagnostics{
		Generation:      index,
		BestFitness:     generation[0].fitness,
		MeanFitness:     mean,
		MinFitness:      minFitness,
		StdDevFitness:   std,
		TotalFitness:    totalFitness,
		DistinctStrands: len(distinct),
	}
}
