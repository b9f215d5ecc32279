package udv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// fillFunc replaces the NaN samples of col in place. known holds the
// ascending indices of the non-NaN samples.
type fillFunc func(col []float64, known []int) error

type strategy struct {
	minPoints int
	fallback  Method
	fill      fillFunc
}

type fittablePredictor interface {
	Fit(xs, ys []float64) error
	Predict(x float64) float64
}

var strategies = map[Method]strategy{
	MethodNone:         {minPoints: 0, fill: leaveMissing},
	MethodClampExtreme: {minPoints: 1, fill: clampExtreme},
	MethodLinear: {minPoints: 2, fill: interpolate(func() fittablePredictor {
		return &interp.PiecewiseLinear{}
	})},
	MethodQuadratic: {minPoints: 3, fallback: MethodLinear, fill: interpolate(func() fittablePredictor {
		return &quadraticSpline{}
	})},
	MethodCubic: {minPoints: 4, fallback: MethodQuadratic, fill: interpolate(func() fittablePredictor {
		return &interp.NotAKnotCubic{}
	})},
	MethodAkima: {minPoints: 5, fallback: MethodLinear, fill: interpolate(func() fittablePredictor {
		return &interp.AkimaSpline{}
	})},
	MethodPCHIP: {minPoints: 3, fallback: MethodLinear, fill: interpolate(func() fittablePredictor {
		return &interp.FritschButland{}
	})},
}

// Reconstruct fills the NaN samples of col in place using method. Unless
// strict is set, a method whose minimum number of known points is not met
// degrades to its lower-order fallback. The method actually applied is
// returned.
func Reconstruct(col []float64, method Method, strict bool) (Method, error) {
	s, ok := strategies[method]
	if !ok {
		return method, fmt.Errorf("%w: unknown reconstruction method %q", ErrInvalidParameter, method)
	}

	known := knownIndices(col)
	if len(known) == len(col) {
		return method, nil
	}

	for len(known) < s.minPoints {
		if strict || s.fallback == "" {
			return method, fmt.Errorf("%w: %s needs %d known samples, column has %d",
				ErrInsufficientData, method, s.minPoints, len(known))
		}
		method = s.fallback
		s = strategies[method]
	}

	if err := s.fill(col, known); err != nil {
		return method, fmt.Errorf("%s reconstruction failed: %w", method, err)
	}
	return method, nil
}

func knownIndices(col []float64) []int {
	known := make([]int, 0, len(col))
	for i, v := range col {
		if !math.IsNaN(v) {
			known = append(known, i)
		}
	}
	return known
}

func leaveMissing(col []float64, known []int) error {
	return nil
}

// clampExtreme fills every gap with whichever of the column's known maximum
// and minimum has the larger magnitude. Ties resolve to the maximum.
func clampExtreme(col []float64, known []int) error {
	values := make([]float64, len(known))
	for i, k := range known {
		values[i] = col[k]
	}
	hi, lo := floats.Max(values), floats.Min(values)
	fill := hi
	if math.Abs(lo) > math.Abs(hi) {
		fill = lo
	}
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = fill
		}
	}
	return nil
}

// interpolate fits a predictor through the known (index, value) pairs and
// evaluates it at the missing indices. Gaps before the first or after the
// last known sample hold the nearest known value.
func interpolate(newPredictor func() fittablePredictor) fillFunc {
	return func(col []float64, known []int) error {
		xs := make([]float64, len(known))
		ys := make([]float64, len(known))
		for i, k := range known {
			xs[i] = float64(k)
			ys[i] = col[k]
		}

		p := newPredictor()
		if err := p.Fit(xs, ys); err != nil {
			return err
		}

		first, last := known[0], known[len(known)-1]
		for i, v := range col {
			if !math.IsNaN(v) {
				continue
			}
			switch {
			case i < first:
				col[i] = col[first]
			case i > last:
				col[i] = col[last]
			default:
				col[i] = p.Predict(float64(i))
			}
		}
		return nil
	}
}
