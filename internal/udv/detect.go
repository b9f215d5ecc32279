package udv

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FirstDifference returns col[i+1]-col[i] for every adjacent pair
func FirstDifference(col []float64) []float64 {
	if len(col) < 2 {
		return []float64{}
	}
	diff := make([]float64, len(col)-1)
	floats.SubTo(diff, col[1:], col[:len(col)-1])
	return diff
}

// JumpPoints returns, in ascending order, every index i of the first
// difference whose magnitude exceeds threshold
func JumpPoints(col []float64, threshold float64) []int {
	var jumps []int
	for i, d := range FirstDifference(col) {
		if math.Abs(d) > threshold {
			jumps = append(jumps, i)
		}
	}
	return jumps
}

// Span is a half-open range [Start, End) of column samples
type Span struct {
	Start, End int
}

// Len returns the number of samples in the span
func (s Span) Len() int {
	return s.End - s.Start
}

// PairSpans pairs consecutive jump points (0&1, 2&3, ...) into corrupted
// spans. A jump at difference index b separates samples b and b+1, so the
// pair (a, b) covers samples [a, b+1). An unpaired final jump is dropped.
func PairSpans(jumps []int) []Span {
	spans := make([]Span, 0, len(jumps)/2)
	for i := 0; i+1 < len(jumps); i += 2 {
		spans = append(spans, Span{Start: jumps[i], End: jumps[i+1] + 1})
	}
	return spans
}

// MaskSpans returns a mask of length n that is true inside any span
func MaskSpans(n int, spans []Span) []bool {
	mask := make([]bool, n)
	for _, s := range spans {
		for i := max(s.Start, 0); i < min(s.End, n); i++ {
			mask[i] = true
		}
	}
	return mask
}

// OutlierMask flags the samples of col that fall inside a detected span
func OutlierMask(col []float64, threshold float64) []bool {
	return MaskSpans(len(col), PairSpans(JumpPoints(col, threshold)))
}
