// Package prs accumulates polygenic scores from per-variant effect
// weights, reading directly from the packed genotype store. Per spec.md
// §9, the accumulation is restructured from the teacher's single shared
// accumulator into one partial slab per worker thread, reduced once after
// the parallel region — avoiding a mutex or atomic add on every column.
package prs

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgen/genocore/codec"
	"github.com/quantgen/genocore/generrors"
	"github.com/quantgen/genocore/internal/workerpool"
	"github.com/quantgen/genocore/transform"
)

// ColumnReader is the minimal read surface Accumulate needs.
type ColumnReader interface {
	ReadColumn(col int) ([]byte, error)
	NumRows() int
}

// ColumnDef names one variant column and the per-column policy the score
// accumulator should apply to it.
type ColumnDef struct {
	Col       int
	Direction transform.Direction
	AF        float64 // 0 means "compute from the row subset" under ImputeMean
}

// Accumulate computes prs[nr,nprs] = sum over columns of g*S[col,:], where
// g is the transformed dosage vector for that column restricted to rws.
// S is nc x nprs (one row of effect weights per entry in cls). Columns are
// processed across ncores worker threads, each with its own partial
// accumulator, reduced into the returned matrix after every column has
// been processed.
func Accumulate(r ColumnReader, rws []int, cls []ColumnDef, s *mat.Dense, impute transform.Impute, ncores int) (*mat.Dense, error) {
	if len(rws) == 0 {
		return nil, generrors.NewShapeError("row subset must be non-empty")
	}
	if len(cls) == 0 {
		return nil, generrors.NewShapeError("column subset must be non-empty")
	}
	scRows, nprs := s.Dims()
	if scRows != len(cls) {
		return nil, generrors.NewShapeError("effect matrix has %d rows, want %d (one per column)", scRows, len(cls))
	}

	nr := len(rws)
	n := r.NumRows()

	if ncores < 1 {
		ncores = 1
	}
	if ncores > len(cls) {
		ncores = len(cls)
	}
	partials := make([]*mat.Dense, ncores)
	for t := range partials {
		partials[t] = mat.NewDense(nr, nprs, nil)
	}

	type job struct {
		idx int
		def ColumnDef
	}
	jobs := make([]job, len(cls))
	for i, d := range cls {
		jobs[i] = job{idx: i, def: d}
	}

	var mu sync.Mutex
	var firstErr error
	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	workerpool.RunIndexed(ncores, jobs, func(thread int, j job) {
		raw, err := r.ReadColumn(j.def.Col)
		if err != nil {
			record(err)
			return
		}
		gcol := codec.DecodeReal(raw, n)
		out, _, err := transform.Apply(gcol, transform.Params{
			RowSubset: rws,
			Impute:    impute,
			Direction: j.def.Direction,
			Scale:     transform.ScaleNone,
		}, j.def.AF)
		if err != nil {
			record(err)
			return
		}

		partial := partials[thread]
		for trait := 0; trait < nprs; trait++ {
			weight := s.At(j.idx, trait)
			if weight == 0 {
				continue
			}
			for row := 0; row < nr; row++ {
				partial.Set(row, trait, partial.At(row, trait)+out[row]*weight)
			}
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}

	prs := mat.NewDense(nr, nprs, nil)
	for _, p := range partials {
		prs.Add(prs, p)
	}
	return prs, nil
}
