package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quantgen/genocore/genofile"
)

func openFixture(t *testing.T) *genofile.Reader {
	t.Helper()
	// N=4 individuals, one column with codes [0,1,2,3] (raw bits low-to-high
	// per the codec fixed table: 00,10,11,01 -> 0,1,2,3).
	raw := []byte{0b01_11_10_00}
	dir := t.TempDir()
	path := filepath.Join(dir, "g.raw")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	r, err := genofile.Open(path, genofile.FormatRaw, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return r
}

func TestSummarizeAlleleFrequency(t *testing.T) {
	r := openFixture(t)
	defer r.Close()

	out, err := Summarize(r, []int{1}, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	stat := out[0]
	if stat.N0 != 1 || stat.N1 != 1 || stat.N2 != 1 || stat.NMiss != 1 {
		t.Fatalf("counts = %+v, want n0=n1=n2=1 nmiss=1", stat)
	}
	if stat.AF != 0.5 {
		t.Fatalf("af = %v, want 0.5", stat.AF)
	}
}

func TestSummarizeCountsSumToNUsed(t *testing.T) {
	r := openFixture(t)
	defer r.Close()

	out, err := Summarize(r, []int{1}, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	stat := out[0]
	total := stat.N0 + stat.N1 + stat.N2 + stat.NMiss
	if total != 4 {
		t.Fatalf("n0+n1+n2+nmiss = %d, want 4", total)
	}
}

func TestSummarizeAllMissingZeroAF(t *testing.T) {
	raw := []byte{0b01_01_01_01}
	dir := t.TempDir()
	path := filepath.Join(dir, "g.raw")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	r, err := genofile.Open(path, genofile.FormatRaw, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	out, err := Summarize(r, []int{1}, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out[0].AF != 0 {
		t.Fatalf("af = %v, want 0 when all missing", out[0].AF)
	}
}

func TestSummarizeSerialParallelAgree(t *testing.T) {
	// Two columns, N=4.
	raw := []byte{0b01_11_10_00, 0b00_10_11_01}
	dir := t.TempDir()
	path := filepath.Join(dir, "g.raw")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	r, err := genofile.Open(path, genofile.FormatRaw, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	serial, err := Summarize(r, []int{1, 2}, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	shared := genofile.NewSharedReader(r)
	parallel, err := SummarizeParallel(shared, []int{1, 2}, []int{1, 2, 3, 4}, 4)
	if err != nil {
		t.Fatalf("SummarizeParallel: %v", err)
	}

	if len(serial) != len(parallel) {
		t.Fatalf("len mismatch: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("column %d: serial=%+v parallel=%+v", i, serial[i], parallel[i])
		}
	}
}

func TestSummarizeOutOfRangeRow(t *testing.T) {
	r := openFixture(t)
	defer r.Close()

	if _, err := Summarize(r, []int{1}, []int{1, 5}); err == nil {
		t.Fatal("expected ShapeError for out-of-range row")
	}
}
