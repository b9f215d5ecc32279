package udv

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const quadraticDegree = 2

// quadraticSpline is the interpolating quadratic B-spline through the fitted
// points. Interior knots sit at the midpoints between samples, omitting the
// first and last midpoint, which gives a square collocation system.
type quadraticSpline struct {
	knots  []float64
	coeffs []float64
}

// Fit solves the collocation system for the spline coefficients. xs must be
// strictly increasing.
func (q *quadraticSpline) Fit(xs, ys []float64) error {
	n := len(xs)
	if len(ys) != n {
		return errors.New("quadratic spline: xs and ys differ in length")
	}
	if n < quadraticDegree+1 {
		return fmt.Errorf("quadratic spline: need at least %d points, got %d", quadraticDegree+1, n)
	}
	for i := 1; i < n; i++ {
		if xs[i] <= xs[i-1] {
			return errors.New("quadratic spline: xs must be strictly increasing")
		}
	}

	k := quadraticDegree
	knots := make([]float64, 0, n+k+1)
	for i := 0; i <= k; i++ {
		knots = append(knots, xs[0])
	}
	for i := 1; i < n-2; i++ {
		knots = append(knots, (xs[i]+xs[i+1])/2)
	}
	for i := 0; i <= k; i++ {
		knots = append(knots, xs[n-1])
	}
	q.knots = knots

	a := mat.NewDense(n, n, nil)
	for i, x := range xs {
		span := q.findSpan(x)
		for r, b := range basisFuncs(q.knots, span, x, k) {
			a.Set(i, span-k+r, b)
		}
	}

	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), ys...))); err != nil {
		return fmt.Errorf("quadratic spline: collocation solve: %w", err)
	}
	q.coeffs = make([]float64, n)
	for i := range q.coeffs {
		q.coeffs[i] = c.AtVec(i)
	}
	return nil
}

// Predict evaluates the spline at x. Values outside the fitted range are
// evaluated on the boundary polynomial pieces.
func (q *quadraticSpline) Predict(x float64) float64 {
	k := quadraticDegree
	span := q.findSpan(x)
	var y float64
	for r, b := range basisFuncs(q.knots, span, x, k) {
		y += b * q.coeffs[span-k+r]
	}
	return y
}

// findSpan returns the knot interval index j with knots[j] <= x < knots[j+1],
// restricted to the non-degenerate intervals of the spline.
func (q *quadraticSpline) findSpan(x float64) int {
	k := quadraticDegree
	nCoeffs := len(q.knots) - k - 1
	if x >= q.knots[nCoeffs] {
		return nCoeffs - 1
	}
	if x <= q.knots[k] {
		return k
	}
	// first knot strictly greater than x, minus one
	j := sort.Search(len(q.knots), func(i int) bool { return q.knots[i] > x }) - 1
	return min(max(j, k), nCoeffs-1)
}

// basisFuncs evaluates the k+1 non-zero B-spline basis functions of degree k
// on knot interval span at x (Cox-de Boor recursion).
func basisFuncs(knots []float64, span int, x float64, k int) []float64 {
	n := make([]float64, k+1)
	left := make([]float64, k+1)
	right := make([]float64, k+1)
	n[0] = 1
	for j := 1; j <= k; j++ {
		left[j] = x - knots[span+1-j]
		right[j] = knots[span+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		n[j] = saved
	}
	return n
}
