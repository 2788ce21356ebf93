package evo

import (
	"math"
	"math/rand/v2"

	"popgen/internal/genotype"
	"popgen/internal/sampling"
)

// AdjustByMutation flips each allele copy to a different allele of the
// alphabet with probability mutationRate. A nil rate is a no-op. The
// number of individuals is preserved (per sex on sexed data), and the data
// must carry every genotype of its alphabet so that mutants always land on
// an existing key.
func AdjustByMutation(data genotype.Data, mutationRate *float64, rng *rand.Rand) (genotype.Data, error) {
	if err := data.Validate(); err != nil {
		return genotype.Data{}, err
	}
	if mutationRate == nil {
		return data.Clone(), nil
	}
	mu := *mutationRate
	if math.IsNaN(mu) || mu < 0 || mu > 1 {
		return genotype.Data{}, genotype.Invalidf("mutation rate %v is outside [0,1]", mu)
	}
	alleles := data.Alleles()
	if mu == 0 || len(alleles) < 2 {
		return data.Clone(), nil
	}
	if !data.Complete() {
		return genotype.Data{}, genotype.Invalidf("mutation needs every genotype of alphabet %v", alleles)
	}
	if rng == nil {
		return genotype.Data{}, ErrNoRandomSource
	}

	index := make(map[genotype.Genotype]int, len(data.Entries))
	for i, e := range data.Entries {
		index[e.Genotype] = i
	}

	// Per individual: neither copy, first only, second only, or both mutate.
	classes := []float64{(1 - mu) * (1 - mu), mu * (1 - mu), mu * (1 - mu), mu * mu}

	out := data.Zeroed()
	for _, col := range columnsOf(data) {
		for _, e := range data.Entries {
			count := col.get(e)
			if count == 0 {
				continue
			}
			drawn := sampling.Multinomial(rng, count, classes)
			add := func(g genotype.Genotype, n int) {
				j := index[genotype.NewGenotype(g.First, g.Second)]
				col.set(&out.Entries[j], col.get(out.Entries[j])+n)
			}
			add(e.Genotype, drawn[0])
			for k := 0; k < drawn[1]; k++ {
				add(genotype.Genotype{First: otherAllele(rng, alleles, e.Genotype.First), Second: e.Genotype.Second}, 1)
			}
			for k := 0; k < drawn[2]; k++ {
				add(genotype.Genotype{First: e.Genotype.First, Second: otherAllele(rng, alleles, e.Genotype.Second)}, 1)
			}
			for k := 0; k < drawn[3]; k++ {
				add(genotype.Genotype{
					First:  otherAllele(rng, alleles, e.Genotype.First),
					Second: otherAllele(rng, alleles, e.Genotype.Second),
				}, 1)
			}
		}
	}
	syncCounts(&out)
	return out, nil
}

// otherAllele picks uniformly among the alleles that differ from current.
func otherAllele(rng *rand.Rand, alleles []string, current string) string {
	pick := rng.IntN(len(alleles) - 1)
	for _, a := range alleles {
		if a == current {
			continue
		}
		if pick == 0 {
			return a
		}
		pick--
	}
	return current
}
