package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// GenomeRecord is the persisted form of a genome. Fitness is nil until the
// genome has been evaluated; Failed marks an evaluation that errored.
type GenomeRecord struct {
	VersionedRecord
	RunID       string                 `json:"run_id"`
	ID          int                    `json:"id"`
	Inputs      int                    `json:"inputs"`
	Outputs     int                    `json:"outputs"`
	Nodes       []NodeGeneRecord       `json:"nodes"`
	Connections []ConnectionGeneRecord `json:"connections"`
	Fitness     *float64               `json:"fitness,omitempty"`
	Failed      bool                   `json:"failed,omitempty"`
	RNGState    []byte                 `json:"rng_state,omitempty"`
}

type NodeGeneRecord struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Rule string `json:"rule"`
}

type ConnectionGeneRecord struct {
	ID         int     `json:"id"`
	InNode     int     `json:"in_node"`
	OutNode    int     `json:"out_node"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
	Innovation int     `json:"innovation"`
}

type PopulationRecord struct {
	VersionedRecord
	RunID      string `json:"run_id"`
	Generation int    `json:"generation"`
	State      string `json:"state"`
	GenomeIDs  []int  `json:"genome_ids"`
}

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	StdFitness  float64 `json:"std_fitness"`
	Evaluated   int     `json:"evaluated"`
	Failures    int     `json:"failures"`
	Survivors   int     `json:"survivors"`
}

type RunRecord struct {
	VersionedRecord
	ID          string    `json:"id"`
	Scape       string    `json:"scape"`
	Seed        uint64    `json:"seed"`
	Population  int       `json:"population"`
	Generations int       `json:"generations"`
	BestFitness float64   `json:"best_fitness"`
	TopGenomeID int       `json:"top_genome_id"`
	Solved      bool      `json:"solved"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
