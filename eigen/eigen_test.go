package eigen

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDecomposeAscendingEigenvalues(t *testing.T) {
	g := mat.NewSymDense(2, []float64{2, 1, 1, 2})
	res, err := Decompose(g)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(res.Values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(res.Values))
	}
	if res.Values[0] > res.Values[1] {
		t.Fatalf("values not ascending: %v", res.Values)
	}
	wantLow, wantHigh := 1.0, 3.0
	if math.Abs(res.Values[0]-wantLow) > 1e-9 || math.Abs(res.Values[1]-wantHigh) > 1e-9 {
		t.Fatalf("values = %v, want [%v %v]", res.Values, wantLow, wantHigh)
	}
}

func TestDecomposeEigenvectorsSatisfyGv(t *testing.T) {
	g := mat.NewSymDense(2, []float64{2, 1, 1, 2})
	res, err := Decompose(g)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	rows, cols := res.Vectors.Dims()
	if rows != 2 || cols != 2 {
		t.Fatalf("vectors dims = %d x %d, want 2 x 2", rows, cols)
	}

	for j := 0; j < cols; j++ {
		v := mat.NewVecDense(2, []float64{res.Vectors.At(0, j), res.Vectors.At(1, j)})
		var gv mat.VecDense
		gv.MulVec(g, v)
		for i := 0; i < 2; i++ {
			want := res.Values[j] * v.AtVec(i)
			if math.Abs(gv.AtVec(i)-want) > 1e-9 {
				t.Fatalf("G*v[%d] = %v, want lambda*v = %v (column %d)", i, gv.AtVec(i), want, j)
			}
		}
	}
}

// emptySymmetric is a mat.Symmetric with SymmetricDim() == 0. It exists
// because mat.NewSymDense(0, nil) panics in this gonum version instead of
// constructing a zero-size matrix.
type emptySymmetric struct{}

func (emptySymmetric) Dims() (r, c int)    { return 0, 0 }
func (emptySymmetric) At(i, j int) float64 { panic("unreachable") }
func (m emptySymmetric) T() mat.Matrix     { return m }
func (emptySymmetric) SymmetricDim() int   { return 0 }

func TestDecomposeEmptyMatrix(t *testing.T) {
	if _, err := Decompose(emptySymmetric{}); err == nil {
		t.Fatal("expected ShapeError for empty matrix")
	}
}
