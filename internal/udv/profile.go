package udv

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StartIndexForDepth returns the first depth index whose depth is not less
// than depthMM, i.e. the insertion point of depthMM in the ascending axis
func StartIndexForDepth(depth []float64, depthMM float64) int {
	return sort.SearchFloat64s(depth, depthMM)
}

// NearestDepthIndex returns the index of the depth sample closest to depthMM
func NearestDepthIndex(depth []float64, depthMM float64) int {
	i := sort.SearchFloat64s(depth, depthMM)
	if i == len(depth) {
		return len(depth) - 1
	}
	if i > 0 && depthMM-depth[i-1] <= depth[i]-depthMM {
		return i - 1
	}
	return i
}

// DepthLine holds raw and corrected velocity over time at one depth row
type DepthLine struct {
	Index     int
	DepthMM   float64
	Raw       []float64
	Corrected []float64
}

// LineAtDepth extracts the raw and corrected series at the row nearest
// depthMM, for side-by-side comparison
func LineAtDepth(depth []float64, raw, corrected mat.Matrix, depthMM float64) (DepthLine, error) {
	if len(depth) == 0 {
		return DepthLine{}, fmt.Errorf("%w: depth axis is empty", ErrInvalidParameter)
	}
	rr, rc := raw.Dims()
	cr, cc := corrected.Dims()
	if rr != cr || rc != cc || rr != len(depth) {
		return DepthLine{}, fmt.Errorf("%w: raw %dx%d and corrected %dx%d grids disagree with %d depth samples",
			ErrMalformedInput, rr, rc, cr, cc, len(depth))
	}
	i := NearestDepthIndex(depth, depthMM)
	return DepthLine{
		Index:     i,
		DepthMM:   depth[i],
		Raw:       mat.Row(nil, i, raw),
		Corrected: mat.Row(nil, i, corrected),
	}, nil
}

// MeanProfile returns the time-averaged velocity of each depth row.
// NaN samples are skipped; a row with no finite samples averages to NaN.
func MeanProfile(velocity mat.Matrix) []float64 {
	rows, cols := velocity.Dims()
	profile := make([]float64, rows)
	buf := make([]float64, 0, cols)
	for i := 0; i < rows; i++ {
		buf = buf[:0]
		for j := 0; j < cols; j++ {
			if v := velocity.At(i, j); !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			profile[i] = math.NaN()
			continue
		}
		profile[i] = stat.Mean(buf, nil)
	}
	return profile
}
