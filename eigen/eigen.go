// Package eigen binds the dense symmetric eigensolver required by
// spec.md §4.9. Per spec, this is explicitly a thin wrapper: no custom
// algorithm, eigenvalues ascending, eigenvectors as columns.
package eigen

import (
	"gonum.org/v1/gonum/mat"

	"github.com/quantgen/genocore/generrors"
)

// Result holds the eigendecomposition of a dense symmetric matrix:
// Values is ascending, and Vectors' j-th column is the eigenvector for
// Values[j].
type Result struct {
	Values  []float64
	Vectors *mat.Dense
}

// Decompose computes the full eigendecomposition of the symmetric N x N
// matrix g. g is read via its upper triangle only (mat.Symmetric's
// contract); callers that hold a plain *mat.Dense known to be symmetric
// (e.g. grm.Build's output) can pass its backing data to mat.NewSymDense.
func Decompose(g mat.Symmetric) (*Result, error) {
	n, _ := g.Dims()
	if n == 0 {
		return nil, generrors.NewShapeError("matrix must be non-empty")
	}

	var eig mat.EigenSym
	ok := eig.Factorize(g, true)
	if !ok {
		return nil, generrors.NewShapeError("eigendecomposition failed to converge")
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	return &Result{Values: values, Vectors: &vectors}, nil
}
