package model

import "popgen/internal/genotype"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one simulation run: the inputs needed to reproduce
// it and a few outcome fields for listings.
type RunRecord struct {
	VersionedRecord
	ID           string `json:"id"`
	CreatedAtUTC string `json:"created_at_utc"`

	GrowthRate       float64  `json:"growth_rate"`
	CarryingCapacity *int     `json:"carrying_capacity,omitempty"`
	MaxDrift         float64  `json:"max_drift"`
	MutationRate     *float64 `json:"mutation_rate,omitempty"`

	BottleneckGeneration *int `json:"bottleneck_generation,omitempty"`
	BottleneckSize       *int `json:"bottleneck_size,omitempty"`

	Generations int                     `json:"generations"`
	Seed        uint64                  `json:"seed"`
	Initial     genotype.GenerateConfig `json:"initial"`

	InitialSize int  `json:"initial_size"`
	FinalSize   int  `json:"final_size"`
	Extinct     bool `json:"extinct"`
}

// HistoryRecord is the ordered per-generation genotype data of a run.
type HistoryRecord struct {
	VersionedRecord
	RunID       string          `json:"run_id"`
	Generations []genotype.Data `json:"generations"`
}
