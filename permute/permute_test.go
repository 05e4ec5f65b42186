package permute

import (
	"math"
	"testing"
)

func TestRunSharedMaxStartAcrossSets(t *testing.T) {
	stat := make([]float64, 20)
	for i := range stat {
		stat[i] = float64(i)
	}
	// Two sets of very different sizes; max_start must derive from the
	// larger set (size 5), not be recomputed per set. With the shared
	// max_start = 20-5-1 = 14, the largest size-2 window is stat[13]+stat[14]
	// = 27, so 27 is never exceeded; a per-set max_start of 17 would allow
	// windows up to 16+17 = 33 and produce nonzero counts.
	sets := []SetSpec{
		{Size: 2, Observed: 27},
		{Size: 5, Observed: 1e9},
	}
	seed := make([]byte, 32)
	counts, err := Run(stat, sets, 100, seed, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("len(counts) = %d, want 2", len(counts))
	}
	for i, c := range counts {
		if c != 0 {
			t.Fatalf("set %d: count = %d, want 0 (observed unreachable within shared max_start)", i, c)
		}
	}
}

func TestRunDeterministicForFixedSeedAndNCores(t *testing.T) {
	stat := make([]float64, 30)
	for i := range stat {
		stat[i] = float64((i * 7) % 13)
	}
	sets := []SetSpec{{Size: 3, Observed: 10}}
	seed := []byte("a fixed deterministic test seed!")

	c1, err := Run(stat, sets, 500, seed, 1)
	if err != nil {
		t.Fatalf("Run 1: %v", err)
	}
	c2, err := Run(stat, sets, 500, seed, 1)
	if err != nil {
		t.Fatalf("Run 2: %v", err)
	}
	if c1[0] != c2[0] {
		t.Fatalf("repeated runs disagree: %d vs %d", c1[0], c2[0])
	}
}

func TestRunConvergesToExactTailProbability(t *testing.T) {
	m := 50
	stat := make([]float64, m)
	for i := range stat {
		stat[i] = float64((i*37 + 11) % 23)
	}
	size := 4
	observed := 30.0
	maxStart := m - size - 1

	exactExceed := 0
	for k1 := 1; k1 <= maxStart; k1++ {
		sum := windowSum(stat, k1, size)
		if sum > observed {
			exactExceed++
		}
	}
	wantP := float64(exactExceed) / float64(maxStart)

	seed := make([]byte, 32)
	seed[1] = 0x42
	np := 20000
	counts, err := Run(stat, []SetSpec{{Size: size, Observed: observed}}, np, seed, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	gotP := float64(counts[0]) / float64(np)

	// Binomial standard error at worst case p=0.5 is ~1/(2*sqrt(np)); allow
	// a generous 10-sigma band to keep this property test robust.
	tolerance := 10.0 / (2 * math.Sqrt(float64(np)))
	if math.Abs(gotP-wantP) > tolerance+0.01 {
		t.Fatalf("count/np = %v, want ~%v (tolerance %v)", gotP, wantP, tolerance+0.01)
	}
}

func TestRunRejectsSetSizeLargerThanM(t *testing.T) {
	stat := []float64{1, 2, 3}
	sets := []SetSpec{{Size: 10, Observed: 1}}
	if _, err := Run(stat, sets, 10, make([]byte, 32), 1); err == nil {
		t.Fatal("expected ShapeError for set size exceeding m")
	}
}

func TestRunRejectsEmptySets(t *testing.T) {
	stat := []float64{1, 2, 3}
	if _, err := Run(stat, nil, 10, make([]byte, 32), 1); err == nil {
		t.Fatal("expected ShapeError for empty set list")
	}
}
