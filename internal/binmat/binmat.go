// Package binmat streams a dense matrix to and from a flat binary file of
// IEEE-754 little-endian doubles, adapted from the teacher's
// lmm/utils.go (Float64bytes/Float64frombytes, ReadFloatBin/WriteFloatBin).
// The teacher's helpers buffer an entire row-major matrix in memory and
// log.Fatal on I/O failure (acceptable for its batch-script callers); core
// kernels here return typed errors instead and stream column by column to
// match the genotype store's own column orientation, so a GRM the size of
// the full cohort never needs a second full in-memory copy to serialize.
package binmat

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgen/genocore/generrors"
)

// WriteColumnMajor streams m to path, one column at a time, each entry as
// an 8-byte little-endian double.
func WriteColumnMajor(path string, m mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return generrors.NewIOError("create", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	rows, cols := m.Dims()
	var buf [8]byte
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(m.At(i, j)))
			if _, err := w.Write(buf[:]); err != nil {
				return generrors.NewIOError("write", path, err)
			}
		}
	}
	return w.Flush() // an error here would be swallowed by Close otherwise
}

// ReadColumnMajor reads a rows x cols matrix previously written by
// WriteColumnMajor.
func ReadColumnMajor(path string, rows, cols int) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, generrors.NewIOError("open", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	data := make([]float64, rows*cols)
	var buf [8]byte
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, generrors.NewIOError("read", path, err)
			}
			data[i*cols+j] = math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
		}
	}
	return mat.NewDense(rows, cols, data), nil
}
