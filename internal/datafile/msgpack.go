package datafile

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
)

// snapshot is the MessagePack form of a dataset. Velocity is stored
// depth-major: one row per depth sample.
type snapshot struct {
	Version  int         `msgpack:"version"`
	Time     []float64   `msgpack:"time"`
	Depth    []float64   `msgpack:"depth"`
	Velocity [][]float64 `msgpack:"velocity"`
}

const snapshotVersion = 1

// WriteMsgpack encodes ds as a MessagePack snapshot
func WriteMsgpack(w io.Writer, ds udv.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	rows, _ := ds.Velocity.Dims()
	s := snapshot{
		Version:  snapshotVersion,
		Time:     ds.Time,
		Depth:    ds.Depth,
		Velocity: make([][]float64, rows),
	}
	for i := range s.Velocity {
		s.Velocity[i] = mat.Row(nil, i, ds.Velocity)
	}
	return msgpack.NewEncoder(w).Encode(&s)
}

// ReadMsgpack decodes a snapshot written by WriteMsgpack
func ReadMsgpack(r io.Reader) (udv.Dataset, error) {
	var s snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return udv.Dataset{}, fmt.Errorf("error decoding msgpack snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return udv.Dataset{}, fmt.Errorf("%w: unsupported snapshot version %d", ErrMalformedTable, s.Version)
	}
	v, err := DenseFromRows(s.Velocity)
	if err != nil {
		return udv.Dataset{}, err
	}
	ds := udv.Dataset{Time: s.Time, Depth: s.Depth, Velocity: v}
	if err := ds.Validate(); err != nil {
		return udv.Dataset{}, err
	}
	return ds, nil
}

// DenseFromRows builds a matrix from equal-length rows
func DenseFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: velocity grid is empty", ErrMalformedTable)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: velocity row %d has %d samples, expected %d", ErrMalformedTable, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// DenseToRows flattens a matrix into row slices
func DenseToRows(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}
