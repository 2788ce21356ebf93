package genotype

import (
	"fmt"
	"math"
	"math/rand/v2"

	"popgen/internal/sampling"
)

// Mode selects how initial genotype proportions are derived from allele
// frequencies.
type Mode string

const (
	// ModeHardyWeinberg assigns p_i^2 to homozygotes and 2*p_i*p_j to
	// heterozygotes.
	ModeHardyWeinberg Mode = "hardy_weinberg"
	// ModeHomozygous places all individuals in homozygous genotypes in
	// proportion to the allele frequencies.
	ModeHomozygous Mode = "homozygous"
)

const DefaultMaleFraction = 0.5

// GenerateConfig describes a starting population.
type GenerateConfig struct {
	// Alleles is the allele alphabet. Symbols must be unique and non-empty.
	Alleles []string `yaml:"alleles" json:"alleles"`
	// AlleleFrequencies pairs with Alleles and must sum to 1. Nil means
	// uniform frequencies.
	AlleleFrequencies []float64 `yaml:"allele_frequencies" json:"allele_frequencies,omitempty"`
	// Size is the initial population size N.
	Size int `yaml:"size" json:"size"`
	// Mode defaults to ModeHardyWeinberg.
	Mode Mode `yaml:"mode" json:"mode,omitempty"`
	// GenotypeCounts sets explicit counts per genotype key ("Aa"). When
	// present it replaces the frequency-derived counts entirely and Size is
	// ignored.
	GenotypeCounts map[string]int `yaml:"genotype_counts" json:"genotype_counts,omitempty"`
	// Fitness per genotype key. Genotypes not listed get fitness 1.
	Fitness map[string]float64 `yaml:"fitness" json:"fitness,omitempty"`
	// Sexed splits every count into male and female sub-counts.
	Sexed bool `yaml:"sexed" json:"sexed"`
	// MaleFraction is the expected male share when Sexed. Zero means 0.5.
	MaleFraction float64 `yaml:"male_fraction" json:"male_fraction,omitempty"`
	// Stochastic draws counts multinomially (and sexes binomially) instead
	// of apportioning them deterministically. It requires an RNG.
	Stochastic bool `yaml:"stochastic" json:"stochastic"`
}

func (c GenerateConfig) Validate() error {
	if len(c.Alleles) == 0 {
		return invalidf("at least one allele is required")
	}
	seen := make(map[string]struct{}, len(c.Alleles))
	for _, a := range c.Alleles {
		if a == "" {
			return invalidf("allele symbols must be non-empty")
		}
		if _, dup := seen[a]; dup {
			return invalidf("duplicate allele %q", a)
		}
		seen[a] = struct{}{}
	}
	keys := make(map[string]Genotype)
	for _, g := range allPairs(c.Alleles) {
		if prev, dup := keys[g.Key()]; dup {
			return invalidf("alleles %v are ambiguous: %s/%s and %s/%s share key %q",
				c.Alleles, prev.First, prev.Second, g.First, g.Second, g.Key())
		}
		keys[g.Key()] = g
	}
	if c.AlleleFrequencies != nil {
		if len(c.AlleleFrequencies) != len(c.Alleles) {
			return invalidf("allele frequencies: got %d values for %d alleles", len(c.AlleleFrequencies), len(c.Alleles))
		}
		sum := 0.0
		for _, f := range c.AlleleFrequencies {
			if f < 0 || math.IsNaN(f) {
				return invalidf("allele frequency %v is out of range", f)
			}
			sum += f
		}
		if math.Abs(sum-1) > 1e-9 {
			return invalidf("allele frequencies sum to %v, want 1", sum)
		}
	}
	if c.Size < 0 {
		return invalidf("size must be >= 0, got %d", c.Size)
	}
	switch c.Mode {
	case "", ModeHardyWeinberg, ModeHomozygous:
	default:
		return invalidf("unknown mode %q", c.Mode)
	}
	if c.MaleFraction < 0 || c.MaleFraction > 1 {
		return invalidf("male fraction %v is outside [0,1]", c.MaleFraction)
	}
	for key, f := range c.Fitness {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return invalidf("fitness for %q is invalid: %v", key, f)
		}
	}
	return nil
}

// Generate builds generation-0 genotype data. The result always carries
// every genotype of the alphabet, with zero counts where none occur.
func Generate(cfg GenerateConfig, rng *rand.Rand) (Data, error) {
	if err := cfg.Validate(); err != nil {
		return Data{}, err
	}
	if cfg.Stochastic && rng == nil {
		return Data{}, fmt.Errorf("stochastic generation: random source is required")
	}

	genotypes := allPairs(cfg.Alleles)
	index := make(map[string]int, len(genotypes))
	for i, g := range genotypes {
		index[g.Key()] = i
	}

	var counts []int
	if cfg.GenotypeCounts != nil {
		counts = make([]int, len(genotypes))
		for key, n := range cfg.GenotypeCounts {
			i, ok := lookupKey(index, key)
			if !ok {
				return Data{}, invalidf("genotype count for %q does not match the allele alphabet", key)
			}
			if n < 0 {
				return Data{}, invalidf("genotype count for %q is negative", key)
			}
			counts[i] = n
		}
	} else {
		weights := genotypeWeights(cfg, genotypes)
		if cfg.Stochastic {
			counts = sampling.Multinomial(rng, cfg.Size, weights)
		} else {
			counts = sampling.Apportion(weights, cfg.Size)
		}
	}

	for key := range cfg.Fitness {
		if _, ok := lookupKey(index, key); !ok {
			return Data{}, invalidf("fitness for %q does not match the allele alphabet", key)
		}
	}

	maleFraction := cfg.MaleFraction
	if maleFraction == 0 {
		maleFraction = DefaultMaleFraction
	}
	entries := make([]Entry, len(genotypes))
	for i, g := range genotypes {
		entries[i] = Entry{Genotype: g, Fitness: 1, Count: counts[i]}
		if f, ok := lookupFitness(cfg.Fitness, g); ok {
			entries[i].Fitness = f
		}
		if cfg.Sexed {
			if cfg.Stochastic {
				entries[i].Male = sampling.Binomial(rng, counts[i], maleFraction)
			} else {
				entries[i].Male = int(math.Round(float64(counts[i]) * maleFraction))
			}
			entries[i].Female = counts[i] - entries[i].Male
		}
	}
	return New(cfg.Sexed, entries)
}

func genotypeWeights(cfg GenerateConfig, genotypes []Genotype) []float64 {
	freq := make(map[string]float64, len(cfg.Alleles))
	for i, a := range cfg.Alleles {
		if cfg.AlleleFrequencies == nil {
			freq[a] = 1 / float64(len(cfg.Alleles))
		} else {
			freq[a] = cfg.AlleleFrequencies[i]
		}
	}
	weights := make([]float64, len(genotypes))
	for i, g := range genotypes {
		switch {
		case cfg.Mode == ModeHomozygous && g.Homozygous():
			weights[i] = freq[g.First]
		case cfg.Mode == ModeHomozygous:
			weights[i] = 0
		case g.Homozygous():
			weights[i] = freq[g.First] * freq[g.First]
		default:
			weights[i] = 2 * freq[g.First] * freq[g.Second]
		}
	}
	return weights
}

func allPairs(alleles []string) []Genotype {
	pairs := make([]Genotype, 0, len(alleles)*(len(alleles)+1)/2)
	for i := range alleles {
		for j := i; j < len(alleles); j++ {
			pairs = append(pairs, NewGenotype(alleles[i], alleles[j]))
		}
	}
	return pairs
}

// lookupKey resolves a genotype key irrespective of allele order ("aA"
// and "Aa" are the same genotype). Multi-character allele symbols must use
// the canonical key.
func lookupKey(index map[string]int, key string) (int, bool) {
	if i, ok := index[key]; ok {
		return i, true
	}
	if len(key) == 2 {
		i, ok := index[NewGenotype(key[:1], key[1:]).Key()]
		return i, ok
	}
	return 0, false
}

func lookupFitness(fitness map[string]float64, g Genotype) (float64, bool) {
	if f, ok := fitness[g.Key()]; ok {
		return f, true
	}
	f, ok := fitness[g.Second+g.First]
	return f, ok
}
