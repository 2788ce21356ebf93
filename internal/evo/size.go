package evo

import (
	"fmt"
	"math"

	"popgen/internal/genotype"
)

// CurrentSize returns the population size N of data after validating it.
func CurrentSize(data genotype.Data) (int, error) {
	if err := data.Validate(); err != nil {
		return 0, err
	}
	return data.Total(), nil
}

// NextSize applies growth to currentN, rounding half away from zero, then
// clamps the result to [0, carryingCapacity]. A nil capacity is unbounded.
func NextSize(currentN int, growthRate float64, carryingCapacity *int) int {
	next := int(math.Round(float64(currentN) * (1 + growthRate)))
	if carryingCapacity != nil && next > *carryingCapacity {
		next = *carryingCapacity
	}
	if next < 0 {
		next = 0
	}
	return next
}

// SubSizes extracts the sub-count identified by key (genotype.SubMale or
// genotype.SubFemale) from every snapshot in history.
func SubSizes(history []genotype.Data, key string) ([]int, error) {
	out := make([]int, 0, len(history))
	for i, data := range history {
		n, err := data.Sub(key)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}
