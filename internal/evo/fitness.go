package evo

import (
	"popgen/internal/genotype"
	"popgen/internal/sampling"

	"gonum.org/v1/gonum/floats"
)

// AdjustByFitness re-weights each genotype count by its fitness and
// apportions the original total back over the genotypes. Relative
// proportions change; N (and Nm/Nf on sexed data) does not.
func AdjustByFitness(data genotype.Data) (genotype.Data, error) {
	if err := data.Validate(); err != nil {
		return genotype.Data{}, err
	}
	out := data.Clone()
	weights := make([]float64, len(data.Entries))
	for _, col := range columnsOf(data) {
		total := col.total(data)
		for i, e := range data.Entries {
			weights[i] = float64(col.get(e)) * e.Fitness
		}
		// All-zero fitness leaves nothing to renormalise against.
		if total == 0 || floats.Sum(weights) <= 0 {
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
