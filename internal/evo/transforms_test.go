package evo

import (
	"errors"
	"math"
	"testing"

	"popgen/internal/genotype"
	"popgen/internal/sampling"
)

func TestAdjustByFitnessEqualFitnessIsIdentity(t *testing.T) {
	data := twoGenotypeData(t, 60, 40, 1, 1)
	out, err := AdjustByFitness(data)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if countOf(out, "A", "A") != 60 || countOf(out, "a", "a") != 40 {
		t.Fatalf("unexpected counts: %+v", out.Entries)
	}
}

func TestAdjustByFitnessReweightsAndPreservesTotal(t *testing.T) {
	data := twoGenotypeData(t, 60, 40, 2, 1)
	out, err := AdjustByFitness(data)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if countOf(out, "A", "A") != 75 || countOf(out, "a", "a") != 25 {
		t.Fatalf("unexpected counts: %+v", out.Entries)
	}
	if countOf(data, "A", "A") != 60 {
		t.Fatal("expected input to be left untouched")
	}
}

func TestAdjustByFitnessZeroFitnessLeavesCounts(t *testing.T) {
	out, err := AdjustByFitness(twoGenotypeData(t, 60, 40, 0, 0))
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if out.Total() != 100 || countOf(out, "A", "A") != 60 {
		t.Fatalf("unexpected counts: %+v", out.Entries)
	}
}

func TestAdjustByFitnessPreservesSexTotals(t *testing.T) {
	data := sexedCompleteData(t)
	out, err := AdjustByFitness(data)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if out.Males() != data.Males() || out.Females() != data.Females() || out.Total() != data.Total() {
		t.Fatalf("sex totals changed: %+v", out)
	}
	if countOf(out, "A", "A") <= countOf(data, "A", "A") {
		t.Fatalf("expected fittest genotype to gain: before=%d after=%d", countOf(data, "A", "A"), countOf(out, "A", "A"))
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("invalid output: %v", err)
	}
}

func TestAdjustByDriftZeroRateIsNoop(t *testing.T) {
	data := twoGenotypeData(t, 60, 40, 1, 1)
	out, err := AdjustByDrift(data, 0, 100, nil, nil)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if countOf(out, "A", "A") != 60 || countOf(out, "a", "a") != 40 {
		t.Fatalf("unexpected counts: %+v", out.Entries)
	}
}

func TestAdjustByDriftRejectsBadInput(t *testing.T) {
	data := twoGenotypeData(t, 60, 40, 1, 1)
	if _, err := AdjustByDrift(data, 1.5, 100, nil, sampling.NewRand(1)); !errors.Is(err, genotype.ErrInvalidData) {
		t.Fatalf("expected invalid rate error, got %v", err)
	}
	if _, err := AdjustByDrift(data, 0.5, 100, nil, nil); !errors.Is(err, ErrNoRandomSource) {
		t.Fatalf("expected missing rng error, got %v", err)
	}
}

func TestAdjustByDriftPreservesTotals(t *testing.T) {
	rng := sampling.NewRand(11)
	plain := twoGenotypeData(t, 60, 40, 1, 1)
	sexed := sexedCompleteData(t)
	for i := 0; i < 200; i++ {
		out, err := AdjustByDrift(plain, 1, 10, nil, rng)
		if err != nil {
			t.Fatalf("drift: %v", err)
		}
		if out.Total() != 100 {
			t.Fatalf("drift resized population to %d", out.Total())
		}
		out, err = AdjustByDrift(sexed, 0.8, 10, intPtr(50), rng)
		if err != nil {
			t.Fatalf("drift sexed: %v", err)
		}
		if out.Males() != sexed.Males() || out.Females() != sexed.Females() {
			t.Fatalf("drift changed sex totals: %+v", out)
		}
		if err := out.Validate(); err != nil {
			t.Fatalf("invalid drift output: %v", err)
		}
	}
}

func meanDriftDeviation(t *testing.T, n int, capacity *int, seed uint64) float64 {
	t.Helper()
	rng := sampling.NewRand(seed)
	data := twoGenotypeData(t, 600, 400, 1, 1)
	const trials = 300
	sum := 0.0
	for i := 0; i < trials; i++ {
		out, err := AdjustByDrift(data, 1, n, capacity, rng)
		if err != nil {
			t.Fatalf("drift: %v", err)
		}
		sum += math.Abs(float64(countOf(out, "A", "A"))/1000 - 0.6)
	}
	return sum / trials
}

func TestAdjustByDriftScalesInverselyWithN(t *testing.T) {
	small := meanDriftDeviation(t, 20, nil, 3)
	large := meanDriftDeviation(t, 2000, nil, 3)
	if small <= 3*large {
		t.Fatalf("expected much larger drift for small N: small=%f large=%f", small, large)
	}
	capped := meanDriftDeviation(t, 2000, intPtr(20), 5)
	if capped <= 3*large {
		t.Fatalf("expected capacity to bound the sampling size: capped=%f large=%f", capped, large)
	}
}

func TestAdjustByMutationNilAndZeroAreNoops(t *testing.T) {
	data := twoGenotypeData(t, 60, 40, 1, 1)
	out, err := AdjustByMutation(data, nil, nil)
	if err != nil || countOf(out, "A", "A") != 60 {
		t.Fatalf("unexpected nil-rate result %+v (%v)", out.Entries, err)
	}
	out, err = AdjustByMutation(data, floatPtr(0), nil)
	if err != nil || countOf(out, "a", "a") != 40 {
		t.Fatalf("unexpected zero-rate result %+v (%v)", out.Entries, err)
	}
}

func TestAdjustByMutationRequiresCompleteKeySet(t *testing.T) {
	data := twoGenotypeData(t, 60, 40, 1, 1)
	_, err := AdjustByMutation(data, floatPtr(0.01), sampling.NewRand(1))
	if !errors.Is(err, genotype.ErrInvalidData) {
		t.Fatalf("expected invalid data error, got %v", err)
	}
	if _, err := AdjustByMutation(data, floatPtr(-0.1), sampling.NewRand(1)); !errors.Is(err, genotype.ErrInvalidData) {
		t.Fatalf("expected rate range error, got %v", err)
	}
}

func TestAdjustByMutationCertainFlipSwapsHomozygotes(t *testing.T) {
	data, err := genotype.New(false, []genotype.Entry{
		{Genotype: genotype.NewGenotype("A", "A"), Fitness: 1, Count: 60},
		{Genotype: genotype.NewGenotype("A", "a"), Fitness: 1, Count: 5},
		{Genotype: genotype.NewGenotype("a", "a"), Fitness: 1, Count: 40},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := AdjustByMutation(data, floatPtr(1), sampling.NewRand(2))
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if countOf(out, "A", "A") != 40 || countOf(out, "a", "a") != 60 || countOf(out, "A", "a") != 5 {
		t.Fatalf("unexpected counts: %+v", out.Entries)
	}
}

func TestAdjustByMutationRateProducesExpectedHeterozygotes(t *testing.T) {
	data, err := genotype.New(true, []genotype.Entry{
		{Genotype: genotype.NewGenotype("A", "A"), Fitness: 1, Male: 5000, Female: 5000},
		{Genotype: genotype.NewGenotype("A", "a"), Fitness: 1},
		{Genotype: genotype.NewGenotype("a", "a"), Fitness: 1},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := AdjustByMutation(data, floatPtr(0.01), sampling.NewRand(9))
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if out.Total() != 10000 || out.Males() != 5000 || out.Females() != 5000 {
		t.Fatalf("mutation changed sizes: N=%d Nm=%d Nf=%d", out.Total(), out.Males(), out.Females())
	}
	// Expected heterozygotes: 2*0.01*0.99*10000 = 198.
	if het := countOf(out, "A", "a"); het < 130 || het > 270 {
		t.Fatalf("heterozygote count %d far from expectation", het)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("invalid output: %v", err)
	}
}

func TestAdjustByMutationMultiAllelePreservesTotal(t *testing.T) {
	data, err := genotype.Generate(genotype.GenerateConfig{Alleles: []string{"A", "B", "C"}, Size: 300}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	rng := sampling.NewRand(4)
	for i := 0; i < 50; i++ {
		data, err = AdjustByMutation(data, floatPtr(0.2), rng)
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
		if data.Total() != 300 {
			t.Fatalf("mutation changed total to %d", data.Total())
		}
	}
}

func TestSynthesizeHitsTargetExactly(t *testing.T) {
	rng := sampling.NewRand(5)
	plain := twoGenotypeData(t, 60, 40, 1, 1)
	sexed := sexedCompleteData(t)
	for _, target := range []int{0, 1, 7, 50, 100, 1000} {
		out, err := Synthesize(plain, target, rng)
		if err != nil {
			t.Fatalf("synthesize %d: %v", target, err)
		}
		if out.Total() != target {
			t.Fatalf("target %d: got %d", target, out.Total())
		}
		out, err = Synthesize(sexed, target, rng)
		if err != nil {
			t.Fatalf("synthesize sexed %d: %v", target, err)
		}
		if out.Total() != target || out.Males()+out.Females() != target {
			t.Fatalf("sexed target %d: got N=%d Nm=%d Nf=%d", target, out.Total(), out.Males(), out.Females())
		}
		if err := out.Validate(); err != nil {
			t.Fatalf("invalid output: %v", err)
		}
	}
}

func TestSynthesizeExtinction(t *testing.T) {
	data := twoGenotypeData(t, 60, 40, 1.5, 1)
	out, err := Synthesize(data, 0, nil)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if out.Total() != 0 || len(out.Entries) != 2 || out.Entries[0].Fitness != 1.5 {
		t.Fatalf("expected zero data with same keys, got %+v", out)
	}
	again, err := Synthesize(out, 10, sampling.NewRand(1))
	if err != nil || again.Total() != 0 {
		t.Fatalf("expected extinct population to stay extinct, got %+v (%v)", again, err)
	}
	if _, err := Synthesize(data, -1, nil); !errors.Is(err, genotype.ErrInvalidData) {
		t.Fatalf("expected invalid target error, got %v", err)
	}
}

func TestSynthesizeFollowsProportions(t *testing.T) {
	out, err := Synthesize(twoGenotypeData(t, 60, 40, 1, 1), 10000, sampling.NewRand(8))
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if aa := countOf(out, "A", "A"); aa < 5800 || aa > 6200 {
		t.Fatalf("AA count %d far from 6000", aa)
	}
}
