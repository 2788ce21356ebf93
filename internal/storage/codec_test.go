package storage

import (
	"errors"
	"testing"

	"popgen/internal/genotype"
	"popgen/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	capacity := 50
	run := Stamp(model.RunRecord{ID: "r1", CarryingCapacity: &capacity, MaxDrift: 0.1, Generations: 4})
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "r1" || decoded.CarryingCapacity == nil || *decoded.CarryingCapacity != 50 || decoded.MutationRate != nil {
		t.Fatalf("unexpected run: %+v", decoded)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.RunRecord{ID: "r1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestHistoryCodecValidatesGenerations(t *testing.T) {
	history := sampleHistory(t)
	data, err := EncodeHistory("r1", history)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeHistory(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 || !decoded[0].Sexed || decoded[0].Total() != 10 {
		t.Fatalf("unexpected history: %+v", decoded)
	}

	bad := []byte(`{"schema_version":1,"codec_version":1,"run_id":"r1","generations":[{"sexed":false,"entries":[{"genotype":{"first":"A","second":"A"},"fitness":1,"count":-4}]}]}`)
	if _, err := DecodeHistory(bad); !errors.Is(err, genotype.ErrInvalidData) {
		t.Fatalf("expected invalid data error, got %v", err)
	}
}

func TestGenerationCodecChecksVersionAndData(t *testing.T) {
	data := sampleHistory(t)[0]
	payload, err := EncodeGeneration(data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeGeneration(payload, currentVersion())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Total() != data.Total() || decoded.Males() != data.Males() {
		t.Fatalf("unexpected generation: %+v", decoded)
	}
	if _, err := DecodeGeneration(payload, model.VersionedRecord{SchemaVersion: 2, CodecVersion: 1}); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
	bad := []byte(`{"sexed":true,"entries":[{"genotype":{"first":"A","second":"A"},"fitness":1,"count":5,"male":1,"female":1}]}`)
	if _, err := DecodeGeneration(bad, currentVersion()); !errors.Is(err, genotype.ErrInvalidData) {
		t.Fatalf("expected invalid data error, got %v", err)
	}
}
