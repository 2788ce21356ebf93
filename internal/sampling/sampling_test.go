package sampling

import (
	"testing"
)

func TestApportionKeepsTotal(t *testing.T) {
	got := Apportion([]float64{1, 1, 1}, 10)
	if got[0] != 4 || got[1] != 3 || got[2] != 3 {
		t.Fatalf("unexpected apportionment: %v", got)
	}
	got = Apportion([]float64{0.6, 0, 0.4}, 7)
	if got[0]+got[1]+got[2] != 7 || got[1] != 0 {
		t.Fatalf("unexpected apportionment: %v", got)
	}
	if got := Apportion([]float64{0, 0}, 5); got[0] != 0 || got[1] != 0 {
		t.Fatalf("expected zero apportionment, got %v", got)
	}
}

func TestBinomialBounds(t *testing.T) {
	rng := NewRand(3)
	if Binomial(rng, 10, 0) != 0 || Binomial(rng, 10, 1) != 10 || Binomial(rng, 0, 0.5) != 0 {
		t.Fatal("unexpected degenerate binomial draw")
	}
	for i := 0; i < 100; i++ {
		if k := Binomial(rng, 20, 0.3); k < 0 || k > 20 {
			t.Fatalf("draw out of range: %d", k)
		}
	}
}

func TestMultinomialSumsToN(t *testing.T) {
	rng := NewRand(11)
	for i := 0; i < 50; i++ {
		out := Multinomial(rng, 37, []float64{0.2, 0, 0.5, 0.3})
		if out[1] != 0 {
			t.Fatalf("zero weight received draws: %v", out)
		}
		if out[0]+out[2]+out[3] != 37 {
			t.Fatalf("draws do not sum to n: %v", out)
		}
	}
	if out := Multinomial(rng, 5, []float64{0, 0}); out[0] != 0 || out[1] != 0 {
		t.Fatalf("expected no draws without positive weights, got %v", out)
	}
}

func TestNewRandIsDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		if StandardNormal(a) != StandardNormal(b) {
			t.Fatal("equal seeds diverged")
		}
	}
}
