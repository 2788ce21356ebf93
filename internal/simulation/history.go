package simulation

import "popgen/internal/genotype"

// History returns copies of the recorded snapshots in generation order.
// Entry i is the genotype data that entered generation i.
func (s *Simulator) History() []genotype.Data {
	out := make([]genotype.Data, len(s.history))
	for i, data := range s.history {
		out[i] = data.Clone()
	}
	return out
}

func (s *Simulator) Len() int {
	return len(s.history)
}
