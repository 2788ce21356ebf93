package evo

import (
	"testing"

	"popgen/internal/genotype"
)

func twoGenotypeData(t *testing.T, aa, bb int, fitAA, fitBB float64) genotype.Data {
	t.Helper()
	data, err := genotype.New(false, []genotype.Entry{
		{Genotype: genotype.NewGenotype("A", "A"), Fitness: fitAA, Count: aa},
		{Genotype: genotype.NewGenotype("a", "a"), Fitness: fitBB, Count: bb},
	})
	if err != nil {
		t.Fatalf("new data: %v", err)
	}
	return data
}

func sexedCompleteData(t *testing.T) genotype.Data {
	t.Helper()
	data, err := genotype.New(true, []genotype.Entry{
		{Genotype: genotype.NewGenotype("A", "A"), Fitness: 1.2, Male: 20, Female: 25},
		{Genotype: genotype.NewGenotype("A", "a"), Fitness: 1.0, Male: 15, Female: 10},
		{Genotype: genotype.NewGenotype("a", "a"), Fitness: 0.7, Male: 12, Female: 18},
	})
	if err != nil {
		t.Fatalf("new data: %v", err)
	}
	return data
}

func countOf(data genotype.Data, a, b string) int {
	i := data.Index(genotype.NewGenotype(a, b))
	if i < 0 {
		return -1
	}
	return data.Entries[i].Count
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
