package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"popgen/internal/genotype"
	"popgen/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// Stamp sets the current schema and codec versions on a run record.
func Stamp(run model.RunRecord) model.RunRecord {
	run.VersionedRecord = currentVersion()
	return run
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeHistory(runID string, history []genotype.Data) ([]byte, error) {
	return json.Marshal(model.HistoryRecord{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		Generations:     history,
	})
}

// DecodeHistory decodes and re-validates every generation.
func DecodeHistory(data []byte) ([]genotype.Data, error) {
	var record model.HistoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return nil, err
	}
	for i, generation := range record.Generations {
		if err := generation.Validate(); err != nil {
			return nil, fmt.Errorf("generation %d: %w", i, err)
		}
	}
	return record.Generations, nil
}

// EncodeGeneration encodes a single history entry for backends that keep one
// row per generation. Versions are stored alongside the row.
func EncodeGeneration(data genotype.Data) ([]byte, error) {
	return json.Marshal(data)
}

func DecodeGeneration(payload []byte, version model.VersionedRecord) (genotype.Data, error) {
	if err := checkVersion(version); err != nil {
		return genotype.Data{}, err
	}
	var data genotype.Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return genotype.Data{}, err
	}
	if err := data.Validate(); err != nil {
		return genotype.Data{}, err
	}
	return data, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func cloneHistory(history []genotype.Data) []genotype.Data {
	out := make([]genotype.Data, len(history))
	for i, data := range history {
		out[i] = data.Clone()
	}
	return out
}
