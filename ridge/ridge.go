// Package ridge solves (WtW + Λ) s = Wt y by Gauss-Seidel coordinate
// descent with an in-place residual update (GSRU), reading the
// standardized design matrix W directly from the packed genotype store
// instead of ever materializing WtW. Per spec.md §9, this is a rewrite of
// the teacher's Jacobi/conjugate-gradient ciphertext solver
// (lmm/ridge_regression.go) into a sequential, single-threaded-per-column
// solver: the coordinate updates have a true Gauss-Seidel dependency and
// must not be parallelized across columns.
package ridge

import (
	"math"
	"time"

	"github.com/raulk/go-watchdog"
	"go.dedis.ch/onet/v3/log"

	"github.com/quantgen/genocore/codec"
	"github.com/quantgen/genocore/generrors"
)

const degenerateSDThreshold = 1e-5
const missingCode = 3.0

// ColumnReader is the minimal read surface Solve needs.
type ColumnReader interface {
	ReadColumn(col int) ([]byte, error)
	NumRows() int
}

// ColumnSpec names one marker column together with the pre-supplied
// per-column mean/SD it should be standardized against (typically
// produced by a prior stats.Summarize pass over the full cohort) and its
// ridge penalty.
type ColumnSpec struct {
	Col    int
	Mean   float64
	SD     float64
	Lambda float64
	InitS  float64 // warm-start coefficient; 0 triggers the §4.7 seeding rule
}

// Result is the solver's output: the coefficient vector, the residual
// (length N, meaningful only at rws, zero elsewhere), the iteration count
// actually run, and the final relative coefficient delta.
type Result struct {
	S          []float64
	E          []float64
	Iterations int
	FinalDelta float64
}

// Option configures Solve.
type Option func(*options)

type options struct {
	maxIterations int
	tolerance     float64
	cacheColumns  bool
	memoryLimit   uint64
}

// WithMaxIterations overrides the default iteration cap (100).
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithTolerance overrides the default convergence tolerance (1e-6).
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithColumnCache keeps every column's standardized vector resident in
// memory across iterations instead of re-reading and re-standardizing it
// every pass — trading O(nr*nc) memory for one disk pass total instead of
// one per iteration.
func WithColumnCache() Option {
	return func(o *options) { o.cacheColumns = true }
}

// WithMemoryLimit installs a heap-driven watchdog that makes garbage
// collection more aggressive as the heap approaches limitBytes; it does
// not abort the solve, since
// the solver itself holds at most O(nr*nc) floats regardless of M.
func WithMemoryLimit(limitBytes uint64) Option {
	return func(o *options) { o.memoryLimit = limitBytes }
}

// Solve runs GSRU to convergence or until the iteration cap is hit.
func Solve(r ColumnReader, rws []int, cls []ColumnSpec, y []float64, opts ...Option) (*Result, error) {
	if len(rws) == 0 {
		return nil, generrors.NewShapeError("row subset must be non-empty")
	}
	if len(cls) == 0 {
		return nil, generrors.NewShapeError("column subset must be non-empty")
	}

	o := options{maxIterations: 100, tolerance: 1e-6}
	for _, opt := range opts {
		opt(&o)
	}

	if o.memoryLimit > 0 {
		err, stop := watchdog.HeapDriven(o.memoryLimit, 5, watchdog.NewAdaptivePolicy(0.5))
		if err != nil {
			log.Lvl2("ridge: heap watchdog unavailable:", err)
		} else {
			defer stop()
		}
	}

	nc := len(cls)
	n := r.NumRows()

	var cache [][]float64
	if o.cacheColumns {
		cache = make([][]float64, nc)
	}

	loadColumn := func(idx int) ([]float64, error) {
		if cache != nil && cache[idx] != nil {
			return cache[idx], nil
		}
		raw, err := r.ReadColumn(cls[idx].Col)
		if err != nil {
			return nil, err
		}
		g := codec.DecodeReal(raw, n)
		w, err := standardizeGiven(g, rws, cls[idx].Mean, cls[idx].SD)
		if err != nil {
			return nil, err
		}
		if cache != nil {
			cache[idx] = w
		}
		return w, nil
	}

	s := make([]float64, nc)
	dww := make([]float64, nc)
	e := make([]float64, n)
	for _, row := range rws {
		e[row-1] = y[row-1]
	}

	// e starts at y, i.e. consistent with every s_j == 0. Each column's
	// initial coefficient (whether a caller-supplied warm start or the
	// §4.7 seed) is therefore folded into e immediately, column by
	// column, the same way the main loop folds in every subsequent
	// update -- otherwise e silently drifts out of sync with s before
	// the first real iteration even starts.
	for j, c := range cls {
		w, err := loadColumn(j)
		if err != nil {
			return nil, err
		}
		dww[j] = sumSquares(w)
		s[j] = c.InitS
		if s[j] == 0 && dww[j] != 0 {
			dot := dotAtRows(w, e, rws)
			s[j] = (dot / dww[j]) / float64(nc)
		}
		if s[j] != 0 {
			for i, row := range rws {
				e[row-1] -= w[i] * s[j]
			}
		}
	}

	iterations := 0
	finalDelta := math.Inf(1)
	for it := 1; it <= o.maxIterations; it++ {
		iterations = it
		var deltaSq float64
		for j := range cls {
			w, err := loadColumn(j)
			if err != nil {
				return nil, err
			}
			lhs := dww[j] + cls[j].Lambda
			if lhs == 0 {
				continue
			}
			rhs := dotAtRows(w, e, rws) + dww[j]*s[j]
			sNew := rhs / lhs
			delta := sNew - s[j]
			for i, row := range rws {
				e[row-1] -= w[i] * delta
			}
			s[j] = sNew
			deltaSq += delta * delta
		}
		finalDelta = deltaSq / math.Sqrt(float64(nc))
		log.Lvl3(time.Now().Format(time.StampMilli), "ridge: iteration", it, "delta", finalDelta)
		if finalDelta < o.tolerance {
			break
		}
	}

	return &Result{S: s, E: e, Iterations: iterations, FinalDelta: finalDelta}, nil
}

// standardizeGiven selects g[rws] and mean-centers/scales it against the
// supplied mean and sd, zeroing missing entries after centering per the
// §4.3.1 scaling semantics, but against externally supplied statistics
// rather than ones computed from the selected subset.
func standardizeGiven(g []float64, rws []int, mean, sd float64) ([]float64, error) {
	out := make([]float64, len(rws))
	for i, row := range rws {
		if row < 1 || row > len(g) {
			return nil, generrors.NewShapeError("row index %d out of range [1,%d]", row, len(g))
		}
		v := g[row-1]
		if v == missingCode {
			out[i] = 0
			continue
		}
		out[i] = v - mean
	}
	if sd <= degenerateSDThreshold {
		for i := range out {
			out[i] = 0
		}
		return out, nil
	}
	for i := range out {
		out[i] /= sd
	}
	return out, nil
}

func sumSquares(w []float64) float64 {
	var s float64
	for _, v := range w {
		s += v * v
	}
	return s
}

func dotAtRows(w, e []float64, rws []int) float64 {
	var s float64
	for i, row := range rws {
		s += w[i] * e[row-1]
	}
	return s
}
