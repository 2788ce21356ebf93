// Package genotype defines the per-generation genotype data carried through
// a population simulation, together with its validation rules and the
// generator that builds a starting population.
package genotype

import (
	"math"
	"sort"
)

// Sub-category keys used when reading sex-specific population sizes.
const (
	SubMale   = "Nm"
	SubFemale = "Nf"
)

// Genotype is an unordered pair of allele symbols. Use NewGenotype so that
// {"a","A"} and {"A","a"} compare equal.
type Genotype struct {
	First  string `json:"first" yaml:"first"`
	Second string `json:"second" yaml:"second"`
}

func NewGenotype(a, b string) Genotype {
	if b < a {
		a, b = b, a
	}
	return Genotype{First: a, Second: b}
}

// Key is the canonical identifier of the genotype, e.g. "Aa".
func (g Genotype) Key() string {
	return g.First + g.Second
}

func (g Genotype) Homozygous() bool {
	return g.First == g.Second
}

// Entry is one genotype row. Count is always populated; Male and Female
// are populated only for sex-stratified data and then sum to Count.
type Entry struct {
	Genotype Genotype `json:"genotype"`
	Fitness  float64  `json:"fitness"`
	Count    int      `json:"count"`
	Male     int      `json:"male,omitempty"`
	Female   int      `json:"female,omitempty"`
}

// Data is the genotype composition of one generation. Entries are kept
// sorted by genotype key.
type Data struct {
	Sexed   bool    `json:"sexed"`
	Entries []Entry `json:"entries"`
}

// New builds Data from entries, canonicalising genotype order, sorting by
// key and deriving Count from the sub-counts when sexed.
func New(sexed bool, entries []Entry) (Data, error) {
	out := Data{Sexed: sexed, Entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		e.Genotype = NewGenotype(e.Genotype.First, e.Genotype.Second)
		if sexed {
			e.Count = e.Male + e.Female
		}
		out.Entries = append(out.Entries, e)
	}
	sort.SliceStable(out.Entries, func(i, j int) bool {
		return out.Entries[i].Genotype.Key() < out.Entries[j].Genotype.Key()
	})
	if err := out.Validate(); err != nil {
		return Data{}, err
	}
	return out, nil
}

// Clone returns a deep copy.
func (d Data) Clone() Data {
	return Data{Sexed: d.Sexed, Entries: append([]Entry(nil), d.Entries...)}
}

// Total sums Count over all entries without validating.
func (d Data) Total() int {
	total := 0
	for _, e := range d.Entries {
		total += e.Count
	}
	return total
}

func (d Data) Males() int {
	total := 0
	for _, e := range d.Entries {
		total += e.Male
	}
	return total
}

func (d Data) Females() int {
	total := 0
	for _, e := range d.Entries {
		total += e.Female
	}
	return total
}

func (d Data) Keys() []string {
	keys := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		keys[i] = e.Genotype.Key()
	}
	return keys
}

// Index returns the position of the genotype in Entries, or -1.
func (d Data) Index(g Genotype) int {
	g = NewGenotype(g.First, g.Second)
	for i, e := range d.Entries {
		if e.Genotype == g {
			return i
		}
	}
	return -1
}

// Alleles returns the sorted allele alphabet appearing in the genotype keys.
func (d Data) Alleles() []string {
	seen := make(map[string]struct{})
	for _, e := range d.Entries {
		seen[e.Genotype.First] = struct{}{}
		seen[e.Genotype.Second] = struct{}{}
	}
	alleles := make([]string, 0, len(seen))
	for a := range seen {
		alleles = append(alleles, a)
	}
	sort.Strings(alleles)
	return alleles
}

// Complete reports whether every unordered allele pair of the alphabet has
// an entry, so that any allele substitution lands on a known genotype.
func (d Data) Complete() bool {
	alleles := d.Alleles()
	for i := range alleles {
		for j := i; j < len(alleles); j++ {
			if d.Index(NewGenotype(alleles[i], alleles[j])) < 0 {
				return false
			}
		}
	}
	return true
}

// Zeroed returns the same key set and fitness values with all counts zero.
func (d Data) Zeroed() Data {
	out := d.Clone()
	for i := range out.Entries {
		out.Entries[i].Count = 0
		out.Entries[i].Male = 0
		out.Entries[i].Female = 0
	}
	return out
}

// Validate enforces the structural invariants of genotype data.
func (d Data) Validate() error {
	seen := make(map[string]struct{}, len(d.Entries))
	for _, e := range d.Entries {
		key := e.Genotype.Key()
		if e.Genotype.First == "" || e.Genotype.Second == "" {
			return invalidf("genotype %q has an empty allele", key)
		}
		if e.Genotype != NewGenotype(e.Genotype.First, e.Genotype.Second) {
			return invalidf("genotype %q is not in canonical order", key)
		}
		if _, dup := seen[key]; dup {
			return invalidf("duplicate genotype %q", key)
		}
		seen[key] = struct{}{}
		if e.Count < 0 || e.Male < 0 || e.Female < 0 {
			return invalidf("genotype %q has a negative count", key)
		}
		if math.IsNaN(e.Fitness) || math.IsInf(e.Fitness, 0) || e.Fitness < 0 {
			return invalidf("genotype %q has invalid fitness %v", key, e.Fitness)
		}
		if d.Sexed && e.Male+e.Female != e.Count {
			return invalidf("genotype %q sub-counts %d+%d do not sum to %d", key, e.Male, e.Female, e.Count)
		}
		if !d.Sexed && (e.Male != 0 || e.Female != 0) {
			return invalidf("genotype %q carries sex sub-counts on unsexed data", key)
		}
	}
	return nil
}

// Sub returns the sub-category size identified by key.
func (d Data) Sub(key string) (int, error) {
	if !d.Sexed {
		return 0, invalidf("sub-count %q requested on data without sex sub-counts", key)
	}
	switch key {
	case SubMale:
		return d.Males(), nil
	case SubFemale:
		return d.Females(), nil
	default:
		return 0, invalidf("unknown sub-count key %q", key)
	}
}
