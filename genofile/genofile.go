// Package genofile provides column-addressed random access to the packed
// on-disk genotype store: an ordered sequence of M variant columns, each
// exactly bytes_per_col = ceil(N/4) bytes, with an optional 3-byte magic
// prefix.
//
// Format detection (the ".bed" vs ".raw" suffix rule) is deliberately kept
// out of Reader itself: Reader always takes an explicit Format, and
// DetectFormat is offered as a small helper for outer callers, per the
// "filename-suffix format detection... should only appear in the outer
// wrapper" guidance.
package genofile

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.dedis.ch/onet/v3/log"

	"github.com/quantgen/genocore/codec"
	"github.com/quantgen/genocore/generrors"
)

// Format says whether a genotype file carries the 3-byte magic prefix.
type Format int

const (
	// FormatRaw has no magic prefix; the first byte is the start of column 1.
	FormatRaw Format = iota
	// FormatBED carries the conventional 3-byte PLINK magic prefix.
	FormatBED
)

// Magic is the conventional 3-byte prefix of a .bed-suffixed file.
var Magic = [3]byte{0x6C, 0x1B, 0x01}

// DetectFormat classifies a path by suffix: ".bed" implies FormatBED,
// anything else (including ".raw") implies FormatRaw. This is an outer
// convenience only; it is never consulted by Reader.
func DetectFormat(path string) Format {
	if strings.HasSuffix(path, ".bed") {
		return FormatBED
	}
	return FormatRaw
}

// Reader gives column-indexed random access into a packed genotype file.
// The underlying file handle is shared read-only across goroutines: every
// read positions itself with an absolute seek immediately before reading,
// so concurrent callers must serialize their own seek+read pairs (see
// NewSharedReader for a helper that does this with a mutex).
type Reader struct {
	file        *os.File
	path        string
	format      Format
	numRows     int
	bytesPerCol int
	headerLen   int64
	numCols     int
}

// Open opens path for column-indexed reading. numRows is N, the number of
// individuals; it is required up front because bytes_per_col depends on it.
// Open validates that the resulting file length is consistent with an
// integral number of columns once the header is accounted for.
func Open(path string, format Format, numRows int) (*Reader, error) {
	if numRows <= 0 {
		return nil, generrors.NewShapeError("numRows must be positive, got %d", numRows)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, generrors.NewIOError("open", path, err)
	}

	var headerLen int64
	if format == FormatBED {
		headerLen = 3
		var prefix [3]byte
		if _, err := io.ReadFull(f, prefix[:]); err != nil {
			f.Close()
			return nil, generrors.NewIOError("read magic", path, err)
		}
		if prefix != Magic {
			f.Close()
			return nil, generrors.NewFormatError(path, "bad magic prefix")
		}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, generrors.NewIOError("stat", path, err)
	}

	bytesPerCol := codec.BytesPerCol(numRows)
	body := info.Size() - headerLen
	if body < 0 || body%int64(bytesPerCol) != 0 {
		f.Close()
		return nil, generrors.NewFormatError(path, "file length is not a multiple of bytes_per_col")
	}

	return &Reader{
		file:        f,
		path:        path,
		format:      format,
		numRows:     numRows,
		bytesPerCol: bytesPerCol,
		headerLen:   headerLen,
		numCols:     int(body / int64(bytesPerCol)),
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// NumCols reports M, the number of variant columns inferred from the file
// length.
func (r *Reader) NumCols() int { return r.numCols }

// NumRows reports N, the number of individuals this reader was opened with.
func (r *Reader) NumRows() int { return r.numRows }

// BytesPerCol reports ceil(N/4).
func (r *Reader) BytesPerCol() int { return r.bytesPerCol }

// offset computes the absolute byte offset of the one-based column col.
func (r *Reader) offset(col int) (int64, error) {
	if col < 1 || col > r.numCols {
		return 0, generrors.NewShapeError("column index %d out of range [1,%d]", col, r.numCols)
	}
	return r.headerLen + int64(col-1)*int64(r.bytesPerCol), nil
}

// ReadColumn seeks to the one-based column col and reads exactly
// bytes_per_col bytes. It is not safe to call concurrently on the same
// *Reader without external synchronization (see SharedReader); the seek
// and the read are two syscalls and must not interleave with another
// goroutine's seek+read pair on the shared descriptor.
func (r *Reader) ReadColumn(col int) ([]byte, error) {
	off, err := r.offset(col)
	if err != nil {
		return nil, err
	}
	if _, err := r.file.Seek(off, io.SeekStart); err != nil {
		return nil, generrors.NewIOError("seek", r.path, err)
	}
	buf := make([]byte, r.bytesPerCol)
	if _, err := io.ReadFull(r.file, buf); err != nil {
		return nil, generrors.NewIOError("read", r.path, err)
	}
	return buf, nil
}

// SharedReader wraps a Reader with a mutex so that multiple goroutines can
// issue ReadColumn calls against one shared descriptor safely. Kernels that
// need true per-iteration independence (e.g. when msize block panels are
// staged in parallel) should instead open one Reader per worker goroutine;
// SharedReader is the cheaper option when contention is low.
type SharedReader struct {
	mu sync.Mutex
	r  *Reader
}

// NewSharedReader wraps r for safe concurrent use.
func NewSharedReader(r *Reader) *SharedReader {
	return &SharedReader{r: r}
}

// ReadColumn performs a mutex-guarded seek+read against the shared
// descriptor.
func (s *SharedReader) ReadColumn(col int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.ReadColumn(col)
}

// NumCols delegates to the wrapped Reader.
func (s *SharedReader) NumCols() int { return s.r.NumCols() }

// NumRows delegates to the wrapped Reader.
func (s *SharedReader) NumRows() int { return s.r.NumRows() }

// OpenPerWorker opens numWorkers independent *Reader handles against the
// same path, so that each worker goroutine gets its own file descriptor and
// positional reads never interleave. grm.Build and prs.Accumulate do not
// take such a set: each shares the single ColumnReader it is given across
// its workers.
func OpenPerWorker(path string, format Format, numRows, numWorkers int) ([]*Reader, error) {
	if numWorkers < 1 {
		return nil, generrors.NewShapeError("numWorkers must be positive, got %d", numWorkers)
	}
	readers := make([]*Reader, numWorkers)
	for i := 0; i < numWorkers; i++ {
		r, err := Open(path, format, numRows)
		if err != nil {
			for j := 0; j < i; j++ {
				readers[j].Close()
			}
			return nil, err
		}
		readers[i] = r
	}
	return readers, nil
}

// CloseAll closes every reader in readers, logging (but not failing on) any
// individual close error, matching the teacher's own best-effort cleanup
// style for batches of resources.
func CloseAll(readers []*Reader) {
	for _, r := range readers {
		if err := r.Close(); err != nil {
			log.Lvl2("genofile: close error:", err)
		}
	}
}
