package evo

import (
	"math"
	"math/rand/v2"

	"popgen/internal/genotype"
	"popgen/internal/sampling"

	"gonum.org/v1/gonum/floats"
)

// AdjustByDrift perturbs genotype proportions with Wright-Fisher scaled
// noise and apportions the unchanged total back over the genotypes.
//
// Each proportion p moves by driftRate*z*sqrt(p(1-p)/n) with z ~ N(0,1),
// so smaller populations drift further per unit rate. n is capped at the
// carrying capacity when one is set. Sexed data drifts each sex
// independently using that sex's share of n, so Nm and Nf are preserved.
// A genotype at proportion 0 or 1 cannot move.
func AdjustByDrift(data genotype.Data, driftRate float64, n int, carryingCapacity *int, rng *rand.Rand) (genotype.Data, error) {
	if err := data.Validate(); err != nil {
		return genotype.Data{}, err
	}
	if math.IsNaN(driftRate) || driftRate < 0 || driftRate > 1 {
		return genotype.Data{}, genotype.Invalidf("drift rate %v is outside [0,1]", driftRate)
	}
	if driftRate == 0 || n <= 0 {
		return data.Clone(), nil
	}
	if rng == nil {
		return genotype.Data{}, ErrNoRandomSource
	}

	effective := n
	if carryingCapacity != nil && *carryingCapacity > 0 && effective > *carryingCapacity {
		effective = *carryingCapacity
	}

	out := data.Clone()
	overall := data.Total()
	weights := make([]float64, len(data.Entries))
	for _, col := range columnsOf(data) {
		total := col.total(data)
		if total == 0 {
			continue
		}
		sampleSize := float64(effective)
		if data.Sexed && overall > 0 {
			sampleSize = math.Max(1, sampleSize*float64(total)/float64(overall))
		}
		for i, e := range data.Entries {
			p := float64(col.get(e)) / float64(total)
			sd := math.Sqrt(p * (1 - p) / sampleSize)
			weights[i] = math.Max(0, p+driftRate*sampling.StandardNormal(rng)*sd)
		}
		if floats.Sum(weights) <= 0 {
			continue
		}
		counts := sampling.Apportion(weights, total)
		for i := range out.Entries {
			col.set(&out.Entries[i], counts[i])
		}
	}
	syncCounts(&out)
	return out, nil
}
