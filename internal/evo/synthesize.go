package evo

import (
	"math/rand/v2"

	"popgen/internal/genotype"
	"popgen/internal/sampling"
)

// OffspringMaleFraction is the probability that an offspring is male when
// synthesizing sexed data.
const OffspringMaleFraction = 0.5

// Synthesize produces the next generation by drawing exactly targetN
// individuals multinomially from the genotype proportions of data.
//
// On sexed data the offspring sex split is Binomial(targetN, 1/2) and both
// sexes sample from the pooled proportions. targetN == 0 yields all-zero
// data with the same keys and fitness. An already extinct population
// stays extinct.
func Synthesize(data genotype.Data, targetN int, rng *rand.Rand) (genotype.Data, error) {
	if err := data.Validate(); err != nil {
		return genotype.Data{}, err
	}
	if targetN < 0 {
		return genotype.Data{}, genotype.Invalidf("target size must be >= 0, got %d", targetN)
	}
	out := data.Zeroed()
	if targetN == 0 || data.Total() == 0 {
		return out, nil
	}
	if rng == nil {
		return genotype.Data{}, ErrNoRandomSource
	}

	weights := make([]float64, len(data.Entries))
	for i, e := range data.Entries {
		weights[i] = float64(e.Count)
	}

	if !data.Sexed {
		counts := sampling.Multinomial(rng, targetN, weights)
		for i := range out.Entries {
			out.Entries[i].Count = counts[i]
		}
		return out, nil
	}

	males := sampling.Binomial(rng, targetN, OffspringMaleFraction)
	maleCounts := sampling.Multinomial(rng, males, weights)
	femaleCounts := sampling.Multinomial(rng, targetN-males, weights)
	for i := range out.Entries {
		out.Entries[i].Male = maleCounts[i]
		out.Entries[i].Female = femaleCounts[i]
	}
	syncCounts(&out)
	return out, nil
}
