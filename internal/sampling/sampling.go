// Package sampling holds the discrete draws shared by the generator and the
// evolutionary transforms: binomial and multinomial counts, standard normal
// noise, and deterministic largest-remainder apportionment.
package sampling

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// NewRand returns a seeded source. A zero seed is still deterministic.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Binomial draws the number of successes in n trials with probability p.
func Binomial(rng *rand.Rand, n int, p float64) int {
	switch {
	case n <= 0 || p <= 0:
		return 0
	case p >= 1:
		return n
	}
	k := int(math.Round(distuv.Binomial{N: float64(n), P: p, Src: rng}.Rand()))
	return min(max(k, 0), n)
}

// Multinomial splits n draws across categories proportionally to weights
// using sequential conditional binomials. Non-positive weights never
// receive draws. The result always sums to n when any weight is positive.
func Multinomial(rng *rand.Rand, n int, weights []float64) []int {
	out := make([]int, len(weights))
	remainingWeight := 0.0
	for _, w := range weights {
		if w > 0 {
			remainingWeight += w
		}
	}
	if n <= 0 || remainingWeight <= 0 {
		return out
	}
	remaining := n
	last := -1
	for i, w := range weights {
		if w > 0 {
			last = i
		}
	}
	for i, w := range weights {
		if w <= 0 || remaining == 0 {
			continue
		}
		if i == last {
			out[i] = remaining
			break
		}
		k := Binomial(rng, remaining, w/remainingWeight)
		out[i] = k
		remaining -= k
		remainingWeight -= w
	}
	return out
}

// StandardNormal draws z ~ N(0, 1).
func StandardNormal(rng *rand.Rand) float64 {
	return distuv.Normal{Mu: 0, Sigma: 1, Src: rng}.Rand()
}

// Apportion distributes total across categories proportionally to weights
// with the largest-remainder method. Ties on the remainder go to the lower
// index. If no weight is positive the result is all zero.
func Apportion(weights []float64, total int) []int {
	out := make([]int, len(weights))
	positive := make([]float64, len(weights))
	for i, w := range weights {
		if w > 0 && !math.IsInf(w, 0) {
			positive[i] = w
		}
	}
	sum := floats.Sum(positive)
	if total <= 0 || sum <= 0 {
		return out
	}

	type remainder struct {
		index int
		frac  float64
	}
	rems := make([]remainder, 0, len(weights))
	assigned := 0
	for i, w := range positive {
		exact := w / sum * float64(total)
		whole := math.Floor(exact)
		out[i] = int(whole)
		assigned += out[i]
		if w > 0 {
			rems = append(rems, remainder{index: i, frac: exact - whole})
		}
	}
	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac
	})
	for i := 0; assigned < total && len(rems) > 0; i++ {
		out[rems[i%len(rems)].index]++
		assigned++
	}
	return out
}
