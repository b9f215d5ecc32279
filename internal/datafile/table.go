// Package datafile reads and writes corrected UDV grids.
//
// The text layout is a whitespace-delimited table: the first row holds a
// placeholder 0 followed by the depth axis, every following row holds one
// time sample followed by the velocity at each depth.
package datafile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
)

// ErrMalformedTable is returned when a text table cannot be parsed into a grid
var ErrMalformedTable = errors.New("datafile: malformed table")

// WriteTable writes ds in the transposed text layout. Cell (0,0) is 0, row 0
// carries the depth axis, column 0 carries the time axis and cell (i,j) is the
// velocity at depth j-1 and time i-1.
func WriteTable(w io.Writer, ds udv.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	header := make([]float64, 0, len(ds.Depth)+1)
	header = append(header, 0)
	header = append(header, ds.Depth...)
	if err := writeRow(bw, header); err != nil {
		return err
	}

	row := make([]float64, len(ds.Depth)+1)
	for i, t := range ds.Time {
		row[0] = t
		mat.Col(row[1:], i, ds.Velocity)
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, row []float64) error {
	for j, v := range row {
		if j > 0 {
			if err := w.WriteByte(' '); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(formatValue(v)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// formatValue renders v with 18 fractional digits in exponent form, which
// survives a round trip through ParseFloat unchanged
func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'e', 18, 64)
}

// ReadTable parses the text layout written by WriteTable. Blank lines and
// lines starting with '#' are ignored.
func ReadTable(r io.Reader) (udv.Dataset, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		row := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return udv.Dataset{}, fmt.Errorf("%w: line %d field %d: %v", ErrMalformedTable, line, j+1, err)
			}
			row[j] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return udv.Dataset{}, fmt.Errorf("%w: line %d has %d fields, expected %d", ErrMalformedTable, line, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return udv.Dataset{}, fmt.Errorf("error reading table: %w", err)
	}

	if len(rows) < 2 || len(rows[0]) < 2 {
		return udv.Dataset{}, fmt.Errorf("%w: need a header row, a time row and at least one depth column", ErrMalformedTable)
	}

	depthN, timeN := len(rows[0])-1, len(rows)-1
	ds := udv.Dataset{
		Time:     make([]float64, timeN),
		Depth:    append([]float64(nil), rows[0][1:]...),
		Velocity: mat.NewDense(depthN, timeN, nil),
	}
	for i, row := range rows[1:] {
		ds.Time[i] = row[0]
		ds.Velocity.SetCol(i, row[1:])
	}
	return ds, nil
}
