// Package permute computes set-based enrichment p-values by comparing an
// observed per-set statistic against the sum of a random contiguous
// window of marker statistics, drawn np times per set. Per spec.md §4.8,
// max_start is shared across every set (derived from the largest set
// size), not recomputed per set. The outer set loop is parallelized; each
// worker thread owns an independent frand.RNG stream from internal/prngpool,
// grounded on the teacher's per-party PRG table in mpc/random.go.
package permute

import (
	"github.com/quantgen/genocore/generrors"
	"github.com/quantgen/genocore/internal/prngpool"
	"github.com/quantgen/genocore/internal/workerpool"
)

// SetSpec names one marker set: its size and its observed statistic.
type SetSpec struct {
	Size     int
	Observed float64
}

// Run draws np random contiguous windows per set and counts how many
// exceed the set's observed statistic. Seed is expanded deterministically
// per worker thread so that repeated runs with the same seed and ncores
// produce identical counts; varying ncores may reorder draws across
// threads and so does not guarantee bitwise-identical counts, only the
// same asymptotic tail probability.
func Run(stat []float64, sets []SetSpec, np int, seed []byte, ncores int) ([]int, error) {
	m := len(stat)
	if m == 0 {
		return nil, generrors.NewShapeError("marker statistic vector must be non-empty")
	}
	if len(sets) == 0 {
		return nil, generrors.NewShapeError("set list must be non-empty")
	}
	if np <= 0 {
		return nil, generrors.NewShapeError("draw count np must be positive, got %d", np)
	}

	maxSize := 0
	for _, s := range sets {
		if s.Size <= 0 || s.Size > m {
			return nil, generrors.NewShapeError("set size %d out of range [1,%d]", s.Size, m)
		}
		if s.Size > maxSize {
			maxSize = s.Size
		}
	}
	maxStart := m - maxSize - 1
	if maxStart < 1 {
		return nil, generrors.NewShapeError("m=%d too small for max set size %d", m, maxSize)
	}

	counts := make([]int, len(sets))
	if ncores < 1 {
		ncores = 1
	}
	if ncores > len(sets) {
		ncores = len(sets)
	}

	pool := prngpool.New(seed, ncores)

	type job struct {
		idx int
		set SetSpec
	}
	jobs := make([]job, len(sets))
	for i, s := range sets {
		jobs[i] = job{idx: i, set: s}
	}

	workerpool.RunIndexed(ncores, jobs, func(thread int, j job) {
		rng := pool.Stream(thread)
		count := 0
		for d := 0; d < np; d++ {
			k1 := 1 + rng.Intn(maxStart)
			sum := windowSum(stat, k1, j.set.Size)
			if sum > j.set.Observed {
				count++
			}
		}
		counts[j.idx] = count
	})

	return counts, nil
}

func windowSum(stat []float64, k1, size int) float64 {
	var sum float64
	for i := k1; i < k1+size; i++ {
		sum += stat[i-1]
	}
	return sum
}
