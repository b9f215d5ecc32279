package udv

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Corrector removes velocity spikes from UDV grids. It holds no state
// between runs and is safe for concurrent use.
type Corrector struct {
	params Params
	logger *zap.SugaredLogger
}

// NewCorrector creates a corrector. A nil logger discards output.
func NewCorrector(params Params, logger *zap.SugaredLogger) *Corrector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if params.Workers < 1 {
		params.Workers = 1
	}
	return &Corrector{
		params: params,
		logger: logger,
	}
}

// Params returns the corrector's parameters
func (c *Corrector) Params() Params {
	return c.params
}

// Correct is the single-call form of Corrector.Correct. It returns a new
// matrix with the same shape as raw.
func Correct(timeAxis, depthAxis []float64, raw mat.Matrix, params Params) (*mat.Dense, error) {
	if err := validateShape(timeAxis, depthAxis, raw); err != nil {
		return nil, err
	}
	ds := Dataset{
		Time:     timeAxis,
		Depth:    depthAxis,
		Velocity: mat.DenseCopyOf(raw),
	}
	res, err := NewCorrector(params, nil).Correct(context.Background(), ds)
	if err != nil {
		return nil, err
	}
	return res.Corrected, nil
}

// Correct detects and reconstructs spikes in every time column of ds. The
// dataset is never modified.
func (c *Corrector) Correct(ctx context.Context, ds Dataset) (*Result, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	rows, cols := ds.Velocity.Dims()
	if err := c.params.validate(rows); err != nil {
		return nil, err
	}

	start, end := c.params.StartDepthIndex, rows-EdgeRows
	corrected := mat.DenseCopyOf(ds.Velocity)
	reports := make([]ColumnReport, cols)
	for t := range reports {
		reports[t] = ColumnReport{Column: t, Requested: c.params.Method, Applied: c.params.Method}
	}

	if end-start < 1 {
		c.logger.Debugf("eligible depth range [%d, %d) is empty; grid copied unchanged", start, end)
		return &Result{Corrected: corrected, Columns: reports}, nil
	}

	subranges := make([][]float64, cols)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.params.Workers)
	for t := 0; t < cols; t++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			col := make([]float64, end-start)
			mat.Col(col, 0, ds.Velocity.Slice(start, end, t, t+1))

			report, fixed, err := c.correctColumn(t, col)
			if err != nil {
				return &ColumnError{Column: t, Err: err}
			}
			reports[t] = report
			subranges[t] = fixed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for t, fixed := range subranges {
		if fixed != nil {
			corrected.Slice(start, end, t, t+1).(*mat.Dense).SetCol(0, fixed)
		}
	}

	res := &Result{Corrected: corrected, Columns: reports}
	c.logger.Debugf("corrected %d columns: %d samples flagged, method %s", cols, res.Flagged(), c.params.Method)
	return res, nil
}

// correctColumn runs detection, masking and reconstruction on one eligible
// sub-range. A nil slice is returned when nothing was flagged.
func (c *Corrector) correctColumn(t int, col []float64) (ColumnReport, []float64, error) {
	report := ColumnReport{
		Column:    t,
		Requested: c.params.Method,
		Applied:   c.params.Method,
	}

	// samples already missing in the raw grid stay missing
	missing := make([]bool, len(col))
	for i, v := range col {
		missing[i] = math.IsNaN(v)
	}

	report.JumpPoints = JumpPoints(col, c.params.Threshold)
	mask := MaskSpans(len(col), PairSpans(report.JumpPoints))
	for i, bad := range mask {
		if bad {
			col[i] = math.NaN()
			report.Flagged++
		}
	}
	if report.Flagged == 0 {
		return report, nil, nil
	}

	applied, err := Reconstruct(col, c.params.Method, c.params.Strict)
	if err != nil {
		return report, nil, err
	}
	report.Applied = applied
	for i, gap := range missing {
		if gap && !mask[i] {
			col[i] = math.NaN()
		}
	}
	if applied != c.params.Method {
		report.Warning = &ColumnError{
			Column: t,
			Err:    fmt.Errorf("%w: fell back from %s to %s", ErrInsufficientData, c.params.Method, applied),
		}
		c.logger.Warnf("column %d: too few known samples for %s, used %s", t, c.params.Method, applied)
	}
	return report, col, nil
}

// Flagged returns the total number of masked samples across all columns
func (r *Result) Flagged() int {
	var n int
	for _, col := range r.Columns {
		n += col.Flagged
	}
	return n
}

// Warnings joins the per-column fallback warnings, or returns nil
func (r *Result) Warnings() error {
	var err error
	for _, col := range r.Columns {
		err = multierr.Append(err, col.Warning)
	}
	return err
}

// ColumnErrorIndex extracts the failing column index from err, if any
func ColumnErrorIndex(err error) (int, bool) {
	var ce *ColumnError
	if errors.As(err, &ce) {
		return ce.Column, true
	}
	return 0, false
}
