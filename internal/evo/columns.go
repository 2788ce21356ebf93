package evo

import (
	"errors"

	"popgen/internal/genotype"
)

// column selects which count of an entry a transform reads and writes.
// Sex-stratified data is processed one sex at a time so that each sex
// keeps its own total.
type column int

const (
	columnCount column = iota
	columnMale
	columnFemale
)

func columnsOf(data genotype.Data) []column {
	if data.Sexed {
		return []column{columnMale, columnFemale}
	}
	return []column{columnCount}
}

func (c column) get(e genotype.Entry) int {
	switch c {
	case columnMale:
		return e.Male
	case columnFemale:
		return e.Female
	default:
		return e.Count
	}
}

func (c column) set(e *genotype.Entry, v int) {
	switch c {
	case columnMale:
		e.Male = v
	case columnFemale:
		e.Female = v
	default:
		e.Count = v
	}
}

func (c column) total(data genotype.Data) int {
	total := 0
	for _, e := range data.Entries {
		total += c.get(e)
	}
	return total
}

// syncCounts re-derives Count from the sub-counts on sexed data.
func syncCounts(data *genotype.Data) {
	if !data.Sexed {
		return
	}
	for i := range data.Entries {
		data.Entries[i].Count = data.Entries[i].Male + data.Entries[i].Female
	}
}

var ErrNoRandomSource = errors.New("random source is required")
