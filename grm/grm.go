// Package grm builds genomic relationship matrices from the packed
// genotype store under four models (additive, dominance, pairwise
// epistasis via elementwise panel product, and Hadamard-squared epistasis),
// via blocked panel loading and a symmetric rank-k update.
package grm

import (
	"sync"

	"github.com/raulk/go-watchdog"
	"go.dedis.ch/onet/v3/log"
	"gonum.org/v1/gonum/mat"

	"github.com/quantgen/genocore/codec"
	"github.com/quantgen/genocore/generrors"
	"github.com/quantgen/genocore/internal/binmat"
	"github.com/quantgen/genocore/internal/workerpool"
	"github.com/quantgen/genocore/transform"
)

// Model selects the genetic model used to build the panel staged before
// the rank-k update.
type Model int

const (
	// Additive stages one standardized panel per block.
	Additive Model = iota
	// Dominance stages one panel per block, using the caller's
	// pre-encoded dominance dosages; the transformer performs the same
	// mean/SD standardization it would for Additive (see transform's
	// ScaleDominance).
	Dominance
	// EpistasisProduct stages two panels per block (Columns1, Columns2)
	// and combines them elementwise, column by column, before the rank-k
	// update.
	EpistasisProduct
	// EpistasisHadamard stages one panel per block exactly like
	// Additive; only the on-disk column writer treats it specially,
	// squaring every entry before writing.
	EpistasisHadamard
)

// ColumnReader is the minimal read surface Build needs.
type ColumnReader interface {
	ReadColumn(col int) ([]byte, error)
	NumRows() int
}

// ColumnDef names one variant column and the per-column policy the panel
// loader should apply to it.
type ColumnDef struct {
	Col       int
	Direction transform.Direction
	AF        float64 // 0 means "compute from the row subset" under ImputeMean
}

// BuildInput bundles everything Build needs to stage panels and accumulate
// the relationship matrix.
type BuildInput struct {
	RowSubset []int // one-based row subset, length nr
	Columns1  []ColumnDef
	Columns2  []ColumnDef // required, same length as Columns1, iff Model == EpistasisProduct
	Model     Model
	Impute    transform.Impute
	BlockSize int // msize; <=0 defaults to len(Columns1) (one block)
	NCores    int
}

// Option configures Build.
type Option func(*options)

type options struct {
	memoryLimit uint64
}

// WithMemoryLimit installs a heap-driven watchdog that makes garbage
// collection more aggressive as the heap approaches limitBytes; it does
// not abort the build. Useful
// when msize*nr is large enough that per-block panel staging becomes a
// meaningful share of the process's working set.
func WithMemoryLimit(limitBytes uint64) Option {
	return func(o *options) { o.memoryLimit = limitBytes }
}

// Build streams Columns1 (and Columns2, for EpistasisProduct) in blocks of
// up to BlockSize columns, standardizes each block into a panel, and
// accumulates G += W*Wt via a symmetric rank-k update. The returned matrix
// is normalized so that trace(G)/N_used == 1 and is exactly symmetric
// (mat.SymDense guarantees G[i][j] == G[j][i] by construction, since only
// the upper triangle is ever stored).
func Build(r ColumnReader, in BuildInput, opts ...Option) (*mat.Dense, error) {
	nr := len(in.RowSubset)
	if nr == 0 {
		return nil, generrors.NewShapeError("row subset must be non-empty")
	}
	if len(in.Columns1) == 0 {
		return nil, generrors.NewShapeError("column set must be non-empty")
	}
	if in.Model == EpistasisProduct && len(in.Columns2) != len(in.Columns1) {
		return nil, generrors.NewShapeError("epistasis product requires Columns2 the same length as Columns1, got %d and %d", len(in.Columns2), len(in.Columns1))
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.memoryLimit > 0 {
		err, stop := watchdog.HeapDriven(o.memoryLimit, 5, watchdog.NewAdaptivePolicy(0.5))
		if err != nil {
			log.Lvl2("grm: heap watchdog unavailable:", err)
		} else {
			defer stop()
		}
	}

	blockSize := in.BlockSize
	if blockSize <= 0 {
		blockSize = len(in.Columns1)
	}

	g := mat.NewSymDense(nr, nil)
	nBlocks := 0

	for start := 0; start < len(in.Columns1); start += blockSize {
		end := start + blockSize
		if end > len(in.Columns1) {
			end = len(in.Columns1)
		}
		nBlocks++

		w1, err := loadPanel(r, in.RowSubset, in.Columns1[start:end], in.Impute, scaleFor(in.Model), in.NCores)
		if err != nil {
			return nil, err
		}

		if in.Model == EpistasisProduct {
			w2, err := loadPanel(r, in.RowSubset, in.Columns2[start:end], in.Impute, scaleFor(in.Model), in.NCores)
			if err != nil {
				return nil, err
			}
			multiplyColumnsInPlace(w1, w2)
		}

		block := mat.NewSymDense(nr, nil)
		block.SymOuterK(1.0, w1)
		g.AddSym(g, block)

		log.Lvl3("grm: accumulated block", nBlocks, "columns", start+1, "to", end)
	}

	trace := 0.0
	for i := 0; i < nr; i++ {
		trace += g.At(i, i)
	}
	normFactor := trace / float64(nr)
	if normFactor != 0 {
		g.ScaleSym(1/normFactor, g)
	}

	return mat.DenseCopyOf(g), nil
}

func scaleFor(model Model) transform.Scale {
	if model == Dominance {
		return transform.ScaleDominance
	}
	return transform.ScaleStandardize
}

// multiplyColumnsInPlace sets w1[:,j] *= w2[:,j] for every column j,
// implementing the epistasis-product panel combination.
func multiplyColumnsInPlace(w1, w2 *mat.Dense) {
	nr, nc := w1.Dims()
	for j := 0; j < nc; j++ {
		for i := 0; i < nr; i++ {
			w1.Set(i, j, w1.At(i, j)*w2.At(i, j))
		}
	}
}

type panelJob struct {
	col int
	def ColumnDef
}

// loadPanel reads, decodes, and standardizes each column in defs into an
// nr x len(defs) panel, restricted to rowSubset. Column loads are
// independent and may be dispatched across ncores workers sharing r.
func loadPanel(r ColumnReader, rowSubset []int, defs []ColumnDef, impute transform.Impute, scale transform.Scale, ncores int) (*mat.Dense, error) {
	nr := len(rowSubset)
	w := mat.NewDense(nr, len(defs), nil)
	n := r.NumRows()

	jobs := make([]panelJob, len(defs))
	for i, d := range defs {
		jobs[i] = panelJob{col: i, def: d}
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

	workerpool.Run(ncores, jobs, func(job panelJob) {
		raw, err := r.ReadColumn(job.def.Col)
		if err != nil {
			record(err)
			return
		}
		gcol := codec.DecodeReal(raw, n)
		out, _, err := transform.Apply(gcol, transform.Params{
			RowSubset: rowSubset,
			Impute:    impute,
			Direction: job.def.Direction,
			Scale:     scale,
		}, job.def.AF)
		if err != nil {
			record(err)
			return
		}
		w.SetCol(job.col, out)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return w, nil
}

// WriteColumns streams g to path column by column via internal/binmat.
// When squareHadamard is true (the EpistasisHadamard model), each written
// value is g[i][j]^2; the in-memory matrix returned by Build is never
// itself squared.
func WriteColumns(path string, g *mat.Dense, squareHadamard bool) error {
	if !squareHadamard {
		return binmat.WriteColumnMajor(path, g)
	}
	rows, cols := g.Dims()
	squared := mat.NewDense(rows, cols, nil)
	squared.Apply(func(i, j int, v float64) float64 { return v * v }, g)
	return binmat.WriteColumnMajor(path, squared)
}
