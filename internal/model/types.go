package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunConfig is the string-keyed form of a run's parameters as persisted.
type RunConfig struct {
	PopulationSize   int     `json:"population_size"`
	ChromosomeSize   int     `json:"chromosome_size"`
	SimulationNumber int     `json:"simulation_number"`
	SelectionType    string  `json:"selection_type"`
	CrossoverType    string  `json:"crossover_type"`
	CrossoverRate    float64 `json:"crossover_rate"`
	MutationRate     float64 `json:"mutation_rate"`
	UseElitism       bool    `json:"use_elitism"`
	EliteNumber      int     `json:"elite_number"`
}

// RunRecord is the outcome of one evolution run.
type RunRecord struct {
	VersionedRecord
	ID           string    `json:"id"`
	Problem      string    `json:"problem"`
	Seed         int64     `json:"seed"`
	Config       RunConfig `json:"config"`
	Solved       bool      `json:"solved"`
	Generations  int       `json:"generations"`
	BestStrand   string    `json:"best_strand"`
	BestFitness  float64   `json:"best_fitness"`
	CreatedAtUTC string    `json:"created_at_utc"`
}

type GenerationDiagnostics struct {
	Generation      int     `json:"generation"`
	BestFitness     float64 `json:"best_fitness"`
	MeanFitness     float64 `json:"mean_fitness"`
	MinFitness      float64 `json:"min_fitness"`
	StdDevFitness   float64 `json:"stddev_fitness"`
	TotalFitness    float64 `json:"total_fitness"`
	DistinctStrands int     `json:"distinct_strands"`
}

// TopChromosomeRecord is one ranked member of a run's final generation.
type TopChromosomeRecord struct {
	VersionedRecord
	Rank    int     `json:"rank"`
	Strand  string  `json:"strand"`
	Fitness float64 `json:"fitness"`
}

// ProblemSummary aggregates results across every run of one problem.
type ProblemSummary struct {
	VersionedRecord
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BestFitness float64 `json:"best_fitness"`
	Runs        int     `json:"runs"`
	Solved      int     `json:"solved"`
}
