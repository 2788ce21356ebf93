// Package stats derives per-generation statistics from a simulation
// history and writes them out as run artifacts.
package stats

import (
	"fmt"
	"sort"

	"popgen/internal/evo"
	"popgen/internal/genotype"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistic names accepted by Extract.
const (
	StatGenotypeCounts       = "genotype_counts"
	StatGenotypeFrequencies  = "genotype_frequencies"
	StatAlleleCounts         = "allele_counts"
	StatAlleleFrequencies    = "allele_frequencies"
	StatPopulationSizes      = "population_sizes"
	StatEffectivePopulations = "effective_population_sizes"
	StatAverageFitness       = "average_fitness"
)

// Series is a set of labelled per-generation value sequences. Every line in
// Values has one value per history entry.
type Series struct {
	Name   string               `json:"name"`
	Title  string               `json:"title"`
	YLabel string               `json:"y_label"`
	Labels []string             `json:"labels"`
	Values map[string][]float64 `json:"values"`
}

func newSeries(name, title, yLabel string, labels []string, generations int) Series {
	s := Series{Name: name, Title: title, YLabel: yLabel, Labels: labels, Values: make(map[string][]float64, len(labels))}
	for _, label := range labels {
		s.Values[label] = make([]float64, generations)
	}
	return s
}

// Generations returns the number of values per line.
func (s Series) Generations() int {
	for _, label := range s.Labels {
		return len(s.Values[label])
	}
	return 0
}

// Names lists the statistics Extract understands, sorted.
func Names() []string {
	names := make([]string, 0, len(extractors))
	for name := range extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var extractors = map[string]func([]genotype.Data) (Series, error){
	StatGenotypeCounts:       GenotypeCounts,
	StatGenotypeFrequencies:  GenotypeFrequencies,
	StatAlleleCounts:         AlleleCounts,
	StatAlleleFrequencies:    AlleleFrequencies,
	StatPopulationSizes:      PopulationSizes,
	StatEffectivePopulations: EffectivePopulationSizes,
	StatAverageFitness:       AverageFitness,
}

// Extract computes the named statistic over history.
func Extract(name string, history []genotype.Data) (Series, error) {
	fn, ok := extractors[name]
	if !ok {
		return Series{}, fmt.Errorf("unknown statistic %q (want one of %v)", name, Names())
	}
	return fn(history)
}

func genotypeLabels(history []genotype.Data) []string {
	if len(history) == 0 {
		return nil
	}
	return history[0].Keys()
}

func alleleLabels(history []genotype.Data) []string {
	if len(history) == 0 {
		return nil
	}
	return history[0].Alleles()
}

func GenotypeCounts(history []genotype.Data) (Series, error) {
	s := newSeries(StatGenotypeCounts, "Genotype Counts", "Count", genotypeLabels(history), len(history))
	for g, data := range history {
		for _, e := range data.Entries {
			line, ok := s.Values[e.Genotype.Key()]
			if !ok {
				return Series{}, genotype.Invalidf("generation %d: genotype %q not in generation 0", g, e.Genotype.Key())
			}
			line[g] = float64(e.Count)
		}
	}
	return s, nil
}

// GenotypeFrequencies reports count/N, or 0 for an empty generation.
func GenotypeFrequencies(history []genotype.Data) (Series, error) {
	s, err := GenotypeCounts(history)
	if err != nil {
		return Series{}, err
	}
	s.Name, s.Title, s.YLabel = StatGenotypeFrequencies, "Genotype Frequencies", "Frequency"
	for g, data := range history {
		normalize(s, g, float64(data.Total()))
	}
	return s, nil
}

// AlleleCounts counts allele copies: two per homozygote, one of each per
// heterozygote.
func AlleleCounts(history []genotype.Data) (Series, error) {
	s := newSeries(StatAlleleCounts, "Allele Counts", "Count", alleleLabels(history), len(history))
	for g, data := range history {
		for _, e := range data.Entries {
			for _, a := range []string{e.Genotype.First, e.Genotype.Second} {
				line, ok := s.Values[a]
				if !ok {
					return Series{}, genotype.Invalidf("generation %d: allele %q not in generation 0", g, a)
				}
				line[g] += float64(e.Count)
			}
		}
	}
	return s, nil
}

func AlleleFrequencies(history []genotype.Data) (Series, error) {
	s, err := AlleleCounts(history)
	if err != nil {
		return Series{}, err
	}
	s.Name, s.Title, s.YLabel = StatAlleleFrequencies, "Allele Frequencies", "Frequency"
	for g, data := range history {
		normalize(s, g, 2*float64(data.Total()))
	}
	return s, nil
}

// PopulationSizes reports N, and Nm/Nf when the history is sex-stratified.
func PopulationSizes(history []genotype.Data) (Series, error) {
	labels := []string{"N"}
	sexed := len(history) > 0 && history[0].Sexed
	if sexed {
		labels = append(labels, genotype.SubMale, genotype.SubFemale)
	}
	s := newSeries(StatPopulationSizes, "Population Size", "Population Sizes", labels, len(history))
	for g, data := range history {
		n, err := evo.CurrentSize(data)
		if err != nil {
			return Series{}, fmt.Errorf("generation %d: %w", g, err)
		}
		s.Values["N"][g] = float64(n)
	}
	if sexed {
		for _, key := range []string{genotype.SubMale, genotype.SubFemale} {
			sizes, err := evo.SubSizes(history, key)
			if err != nil {
				return Series{}, err
			}
			for g, n := range sizes {
				s.Values[key][g] = float64(n)
			}
		}
	}
	return s, nil
}

// EffectivePopulationSizes reports the sex-ratio effective size
// Ne = 4*Nm*Nf/(Nm+Nf) per generation and its running harmonic mean, which
// is the long-term Ne of a population with fluctuating size. Generations
// with Ne == 0 pin the harmonic mean to 0.
func EffectivePopulationSizes(history []genotype.Data) (Series, error) {
	males, err := evo.SubSizes(history, genotype.SubMale)
	if err != nil {
		return Series{}, err
	}
	females, err := evo.SubSizes(history, genotype.SubFemale)
	if err != nil {
		return Series{}, err
	}
	s := newSeries(StatEffectivePopulations, "Effective Population Size", "Effective Population Size", []string{"Ne", "Ne (harmonic)"}, len(history))
	perGen := s.Values["Ne"]
	for g := range history {
		nm, nf := float64(males[g]), float64(females[g])
		if nm > 0 && nf > 0 {
			perGen[g] = 4 * nm * nf / (nm + nf)
		}
		s.Values["Ne (harmonic)"][g] = harmonicMean(perGen[:g+1])
	}
	return s, nil
}

// AverageFitness reports the count-weighted mean fitness, 0 when extinct.
func AverageFitness(history []genotype.Data) (Series, error) {
	s := newSeries(StatAverageFitness, "Average Fitness", "Fitness", []string{"fitness"}, len(history))
	for g, data := range history {
		if data.Total() == 0 {
			continue
		}
		values := make([]float64, len(data.Entries))
		weights := make([]float64, len(data.Entries))
		for i, e := range data.Entries {
			values[i] = e.Fitness
			weights[i] = float64(e.Count)
		}
		s.Values["fitness"][g] = stat.Mean(values, weights)
	}
	return s, nil
}

// Summary describes one line of a series.
type Summary struct {
	Label  string  `json:"label"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Final  float64 `json:"final"`
}

// Summarize reduces every line of s, in label order. Empty lines yield
// zero summaries.
func Summarize(s Series) []Summary {
	out := make([]Summary, 0, len(s.Labels))
	for _, label := range s.Labels {
		values := s.Values[label]
		summary := Summary{Label: label}
		if len(values) > 0 {
			summary.Mean = stat.Mean(values, nil)
			if len(values) > 1 {
				summary.StdDev = stat.StdDev(values, nil)
			}
			summary.Min = floats.Min(values)
			summary.Max = floats.Max(values)
			summary.Final = values[len(values)-1]
		}
		out = append(out, summary)
	}
	return out
}

func normalize(s Series, g int, denom float64) {
	for _, label := range s.Labels {
		if denom == 0 {
			s.Values[label][g] = 0
			continue
		}
		s.Values[label][g] /= denom
	}
}

func harmonicMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	for _, v := range values {
		if v <= 0 {
			return 0
		}
	}
	return stat.HarmonicMean(values, nil)
}
