// Package stats computes per-variant call counts and allele frequency,
// reading directly from the packed genotype store. A serial and a
// parallel variant share identical math; the parallel variant reads through
// one shared handle, guarding each absolute seek+read pair with a mutex,
// per the concurrency model in spec.md §5.
package stats

import (
	"sync"

	"github.com/quantgen/genocore/codec"
	"github.com/quantgen/genocore/generrors"
	"github.com/quantgen/genocore/internal/workerpool"
)

// ColumnReader is the minimal read surface stats needs; both
// *genofile.Reader and *genofile.SharedReader satisfy it.
type ColumnReader interface {
	ReadColumn(col int) ([]byte, error)
	NumRows() int
}

// ColumnStat holds the per-variant counts and allele frequency defined in
// spec.md §3.
type ColumnStat struct {
	AF     float64
	N0     int
	N1     int
	N2     int
	NMiss  int
}

const missingCode = 3.0

// computeStat tallies counts over g[rws] (one-based indices into g) and
// derives af = (n1+2*n2) / (2*(nUsed-nMiss)), or 0 if every selected call
// is missing.
func computeStat(g []float64, rws []int) (ColumnStat, error) {
	var stat ColumnStat
	for _, row := range rws {
		if row < 1 || row > len(g) {
			return ColumnStat{}, generrors.NewShapeError("row index %d out of range [1,%d]", row, len(g))
		}
		switch g[row-1] {
		case 0:
			stat.N0++
		case 1:
			stat.N1++
		case 2:
			stat.N2++
		case missingCode:
			stat.NMiss++
		}
	}
	nUsed := len(rws) - stat.NMiss
	if nUsed == 0 {
		stat.AF = 0
		return stat, nil
	}
	stat.AF = float64(stat.N1+2*stat.N2) / float64(2*nUsed)
	return stat, nil
}

// Summarize computes ColumnStat for every column in cls (one-based),
// restricted to the row subset rws (one-based), reading columns serially
// in the order given.
func Summarize(r ColumnReader, cls, rws []int) ([]ColumnStat, error) {
	if len(cls) == 0 {
		return nil, generrors.NewShapeError("column subset must be non-empty")
	}
	if len(rws) == 0 {
		return nil, generrors.NewShapeError("row subset must be non-empty")
	}

	out := make([]ColumnStat, len(cls))
	n := r.NumRows()
	for i, col := range cls {
		raw, err := r.ReadColumn(col)
		if err != nil {
			return nil, err
		}
		g := codec.DecodeReal(raw, n)
		stat, err := computeStat(g, rws)
		if err != nil {
			return nil, err
		}
		out[i] = stat
	}
	return out, nil
}

type summaryJob struct {
	idx int
	col int
}

// SummarizeParallel computes the same result as Summarize but dispatches
// the per-column reads across ncores workers sharing one read handle, via
// a mutex-guarded seek+read pair per iteration, so that the thread count
// cannot change the computed statistics (only their arrival order).
func SummarizeParallel(r ColumnReader, cls, rws []int, ncores int) ([]ColumnStat, error) {
	if len(cls) == 0 {
		return nil, generrors.NewShapeError("column subset must be non-empty")
	}
	if len(rws) == 0 {
		return nil, generrors.NewShapeError("row subset must be non-empty")
	}

	out := make([]ColumnStat, len(cls))
	n := r.NumRows()

	jobs := make([]summaryJob, len(cls))
	for i, col := range cls {
		jobs[i] = summaryJob{idx: i, col: col}
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

	var readMu sync.Mutex
	workerpool.Run(ncores, jobs, func(j summaryJob) {
		readMu.Lock()
		raw, err := r.ReadColumn(j.col)
		readMu.Unlock()
		if err != nil {
			record(err)
			return
		}
		g := codec.DecodeReal(raw, n)
		stat, err := computeStat(g, rws)
		if err != nil {
			record(err)
			return
		}
		out[j.idx] = stat
	})

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
