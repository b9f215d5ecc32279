package udv

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidParameter covers bad shapes, out-of-range indices,
	// non-positive thresholds and unknown methods
	ErrInvalidParameter = errors.New("udv: invalid parameter")

	// ErrInsufficientData is returned when a column lacks enough known
	// points for the requested reconstruction
	ErrInsufficientData = errors.New("udv: insufficient data")

	// ErrMalformedInput is returned when axis lengths disagree with the
	// velocity matrix
	ErrMalformedInput = errors.New("udv: malformed input")
)

// ColumnError ties a failure to the time column it occurred in
type ColumnError struct {
	Column int
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %d: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}

func validateShape(timeAxis, depthAxis []float64, raw mat.Matrix) error {
	if raw == nil {
		return fmt.Errorf("%w: velocity matrix is nil", ErrInvalidParameter)
	}
	rows, cols := raw.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: velocity matrix is empty", ErrInvalidParameter)
	}
	if len(depthAxis) != rows {
		return fmt.Errorf("%w: depth axis has %d samples, matrix has %d rows", ErrMalformedInput, len(depthAxis), rows)
	}
	if len(timeAxis) != cols {
		return fmt.Errorf("%w: time axis has %d samples, matrix has %d columns", ErrMalformedInput, len(timeAxis), cols)
	}
	return nil
}

func (p Params) validate(depthRows int) error {
	if p.StartDepthIndex < 0 || p.StartDepthIndex >= depthRows {
		return fmt.Errorf("%w: start depth index %d outside [0, %d)", ErrInvalidParameter, p.StartDepthIndex, depthRows)
	}
	if math.IsNaN(p.Threshold) || p.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive, got %v", ErrInvalidParameter, p.Threshold)
	}
	if _, ok := strategies[p.Method]; !ok {
		return fmt.Errorf("%w: unknown reconstruction method %q", ErrInvalidParameter, p.Method)
	}
	return nil
}
