// Package udv detects and corrects velocity spikes in ultrasound Doppler
// velocimetry grids.
package udv

import (
	"fmt"
	"runtime"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// EdgeRows is the number of trailing depth rows that are never corrected.
// Readings near the probe's maximum range are unreliable.
const EdgeRows = 4

// Method selects how masked samples are reconstructed
type Method string

const (
	MethodNone         Method = "none"
	MethodClampExtreme Method = "clamp_extreme"
	MethodLinear       Method = "linear"
	MethodQuadratic    Method = "quadratic"
	MethodCubic        Method = "cubic"
	MethodAkima        Method = "akima"
	MethodPCHIP        Method = "pchip"
)

// Methods lists every supported reconstruction method in display order
func Methods() []Method {
	return []Method{
		MethodNone,
		MethodClampExtreme,
		MethodLinear,
		MethodQuadratic,
		MethodCubic,
		MethodAkima,
		MethodPCHIP,
	}
}

// ParseMethod converts a method name into a Method. The legacy name
// "velo_max" is accepted for clamp_extreme.
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "velo_max" {
		return MethodClampExtreme, nil
	}
	m := Method(name)
	if _, ok := strategies[m]; !ok {
		return "", fmt.Errorf("%w: unknown reconstruction method %q", ErrInvalidParameter, s)
	}
	return m, nil
}

// Interpolates reports whether the method fits an interpolant
func (m Method) Interpolates() bool {
	s, ok := strategies[m]
	return ok && s.minPoints > 1
}

// Params holds the corrector's scalar parameters
type Params struct {
	// Threshold is the first-difference magnitude (mm/s) above which a
	// sample boundary is considered a jump point
	Threshold float64

	// StartDepthIndex is the first depth row eligible for correction
	StartDepthIndex int

	// Method is the reconstruction strategy for masked spans
	Method Method

	// Workers bounds the number of columns processed concurrently
	Workers int

	// Strict disables the lower-order interpolation fallback; a column with
	// too few known points then fails the whole run
	Strict bool
}

// DefaultParams returns the parameters the original acquisition tooling used
func DefaultParams() Params {
	return Params{
		Threshold:       70.0,
		StartDepthIndex: 0,
		Method:          MethodLinear,
		Workers:         runtime.GOMAXPROCS(0),
	}
}

// Dataset is a depth×time velocity grid with its axes
type Dataset struct {
	Time     []float64 // seconds, length T
	Depth    []float64 // millimetres, length D
	Velocity *mat.Dense // mm/s, D rows × T columns
}

// Validate checks that the axes agree with the velocity matrix
func (d Dataset) Validate() error {
	if d.Velocity == nil {
		return fmt.Errorf("%w: velocity matrix is nil", ErrInvalidParameter)
	}
	return validateShape(d.Time, d.Depth, d.Velocity)
}

// ColumnReport describes what happened to one time column
type ColumnReport struct {
	Column     int
	JumpPoints []int  // indices into the column's first difference
	Flagged    int    // samples masked and reconstructed
	Requested  Method // method asked for
	Applied    Method // method actually used after any fallback
	Warning    error
}

// Result is the outcome of a correction run
type Result struct {
	Corrected *mat.Dense
	Columns   []ColumnReport
}
