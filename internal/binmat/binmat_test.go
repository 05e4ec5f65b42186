package binmat

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestWriteReadRoundTrip(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1.5, -2.25,
		0, 3.125,
		7, -1,
	})
	path := filepath.Join(t.TempDir(), "m.bin")

	if err := WriteColumnMajor(path, m); err != nil {
		t.Fatalf("WriteColumnMajor: %v", err)
	}

	got, err := ReadColumnMajor(path, 3, 2)
	if err != nil {
		t.Fatalf("ReadColumnMajor: %v", err)
	}

	rows, cols := got.Dims()
	if rows != 3 || cols != 2 {
		t.Fatalf("Dims() = (%d,%d), want (3,2)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if got.At(i, j) != m.At(i, j) {
				t.Fatalf("At(%d,%d) = %v, want %v", i, j, got.At(i, j), m.At(i, j))
			}
		}
	}
}

func TestReadColumnMajorMissingFile(t *testing.T) {
	if _, err := ReadColumnMajor("/nonexistent/path/m.bin", 2, 2); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteColumnMajorBadPath(t *testing.T) {
	m := mat.NewDense(1, 1, []float64{1})
	if err := WriteColumnMajor("/nonexistent/dir/m.bin", m); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
