// Package transform implements the per-column pipeline applied to a
// decoded genotype column before it is consumed by the summary, GRM,
// score, or ridge kernels: row-subset selection, missing-value policy,
// allele-direction flipping, and optional mean/SD standardization.
//
// Order of operations is fixed: missing-policy -> direction-flip -> scale.
// If every selected call is missing, the output is all-zero regardless of
// the other flags.
package transform

import (
	"math"

	"github.com/quantgen/genocore/generrors"
)

// Impute selects the missing-value policy.
type Impute int

const (
	// ImputeZero zero-fills missing calls.
	ImputeZero Impute = 0
	// ImputeMean replaces missing calls with 2*af, computing af from the
	// subset when the caller-supplied af is zero.
	ImputeMean Impute = 1
	// ImputeSentinel leaves missing calls as the sentinel code 3, for
	// callers (the GRM builder) that need to handle missingness
	// explicitly downstream.
	ImputeSentinel Impute = 3
)

// Direction selects whether a column is re-alleled to the reference.
type Direction int

const (
	// FlipAllele applies gsc <- 2 - gsc after imputation.
	FlipAllele Direction = 0
	// KeepAllele leaves dosages as decoded.
	KeepAllele Direction = 1
)

// Scale selects the optional standardization step.
type Scale int

const (
	// ScaleNone performs no scaling.
	ScaleNone Scale = 0
	// ScaleStandardize subtracts the subset mean and divides by the
	// subset SD (see Standardize).
	ScaleStandardize Scale = 1
	// ScaleDominance is reserved for a dominance encoding the caller has
	// already applied to the decoded dosages before calling Apply; the
	// transformer itself performs no distinct dominance re-encoding and
	// treats this the same as ScaleStandardize.
	ScaleDominance Scale = 2
)

// degenerateSDThreshold is the cutoff below which a column is treated as
// zero-variance and zeroed out instead of divided by its SD.
const degenerateSDThreshold = 1e-5

// missingCode is the in-memory sentinel for a missing call.
const missingCode = 3.0

// Params bundles the three policy knobs plus the row subset a call to
// Apply should use.
type Params struct {
	RowSubset []int // one-based indices into g, length nr
	Impute    Impute
	Direction Direction
	Scale     Scale
}

// Apply selects g[RowSubset], applies the missing-value policy, the
// direction flip, and optional scaling, in that order, and returns the
// resulting length-nr vector along with the allele frequency actually used
// (echoing the caller-supplied af when it was nonzero, or the freshly
// computed subset af otherwise; 0 when every selected call is missing).
// af is consulted only when Impute is ImputeMean.
func Apply(g []float64, p Params, af float64) ([]float64, float64, error) {
	nr := len(p.RowSubset)
	if nr == 0 {
		return nil, 0, generrors.NewShapeError("row subset must be non-empty")
	}

	grws := make([]float64, nr)
	nMiss := 0
	for i, row := range p.RowSubset {
		if row < 1 || row > len(g) {
			return nil, 0, generrors.NewShapeError("row index %d out of range [1,%d]", row, len(g))
		}
		v := g[row-1]
		grws[i] = v
		if v == missingCode {
			nMiss++
		}
	}

	if nMiss == nr {
		return make([]float64, nr), 0, nil
	}

	usedAF := af
	if p.Impute == ImputeMean && usedAF == 0 {
		usedAF = alleleFrequency(grws)
	}

	applyImpute(grws, p.Impute, usedAF)
	applyDirection(grws, p.Direction, p.Impute)

	if p.Scale != ScaleNone {
		Standardize(grws)
	}

	return grws, usedAF, nil
}

// alleleFrequency computes af = (n1+2*n2)/(2*(n-n_miss)) over the given
// values, returning 0 if every value is missing.
func alleleFrequency(g []float64) float64 {
	var n0, n1, n2, nMiss int
	for _, v := range g {
		switch v {
		case 0:
			n0++
		case 1:
			n1++
		case 2:
			n2++
		case missingCode:
			nMiss++
		}
	}
	used := len(g) - nMiss
	if used == 0 {
		return 0
	}
	_ = n0
	return float64(n1+2*n2) / float64(2*used)
}

func applyImpute(g []float64, impute Impute, af float64) {
	switch impute {
	case ImputeZero:
		for i, v := range g {
			if v == missingCode {
				g[i] = 0
			}
		}
	case ImputeMean:
		fill := 2 * af
		for i, v := range g {
			if v == missingCode {
				g[i] = fill
			}
		}
	case ImputeSentinel:
		// leave missing calls as 3
	}
}

// applyDirection flips non-missing dosages as gsc <- 2 - gsc. A sentinel
// left behind by ImputeSentinel is never flipped: it is not a dosage, and
// flipping it would corrupt the missingness marker the GRM builder relies
// on for explicit handling.
func applyDirection(g []float64, direction Direction, impute Impute) {
	if direction == KeepAllele {
		return
	}
	for i, v := range g {
		if impute == ImputeSentinel && v == missingCode {
			continue
		}
		g[i] = 2 - v
	}
}

// Standardize centers g on the mean of its non-missing (< 3.0) entries,
// zeroes missing entries, and divides by the sample SD (n-1 denominator).
// If the SD is at or below degenerateSDThreshold the column is treated as
// zero-variance and left all-zero rather than divided by a near-zero
// number.
func Standardize(g []float64) {
	var sum float64
	n := 0
	for _, v := range g {
		if v < missingCode {
			sum += v
			n++
		}
	}
	if n == 0 {
		for i := range g {
			g[i] = 0
		}
		return
	}
	mean := sum / float64(n)

	for i, v := range g {
		if v < missingCode {
			g[i] = v - mean
		} else {
			g[i] = 0
		}
	}

	if n < 2 {
		for i := range g {
			g[i] = 0
		}
		return
	}

	var sumSq float64
	for _, v := range g {
		sumSq += v * v
	}
	sd := math.Sqrt(sumSq / float64(n-1))

	if sd <= degenerateSDThreshold {
		for i := range g {
			g[i] = 0
		}
		return
	}
	for i := range g {
		g[i] /= sd
	}
}
