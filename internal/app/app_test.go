package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/datafile"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
	"github.com/rahulmitra166/UDV-DataFiltering/pkg/config"
)

const testConfig = `
processing:
  threshold: 70
  start-depth-mm: 100
  method: linear
  workers: 2
rest:
  listen-addr: 127.0.0.1
  port: 18089
`

func writeConfig(t *testing.T, dir, doc string) config.ConfigProvider {
	t.Helper()
	path := filepath.Join(dir, "udv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return config.NewYAMLProvider(path)
}

func spikyDataset() udv.Dataset {
	const rows, cols = 60, 4
	depth := make([]float64, rows)
	for i := range depth {
		depth[i] = float64(i) * 5
	}
	timeAxis := make([]float64, cols)
	for j := range timeAxis {
		timeAxis[j] = float64(j) * 0.5
	}
	raw := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			raw.Set(i, j, 10)
		}
	}
	raw.Set(30, 2, 600)
	// above the start depth: left alone
	raw.Set(5, 1, 600)
	return udv.Dataset{Time: timeAxis, Depth: depth, Velocity: raw}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.dat")
	output := filepath.Join(dir, "corrected.dat")
	profile := filepath.Join(dir, "profile.dat")
	require.NoError(t, datafile.Save(input, datafile.FormatText, spikyDataset()))

	a := New(writeConfig(t, dir, testConfig), zap.NewNop().Sugar())
	res, err := a.RunBatch(context.Background(), input, output, profile)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Flagged())

	got, err := datafile.Load(output, datafile.FormatText)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Velocity.At(30, 2))
	assert.Equal(t, 600.0, got.Velocity.At(5, 1))

	b, err := os.ReadFile(profile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(b)), "\n"), 60)
}

func TestRunBatchOverrides(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.dat")
	output := filepath.Join(dir, "corrected.msgpack")
	require.NoError(t, datafile.Save(input, datafile.FormatText, spikyDataset()))

	a := New(writeConfig(t, dir, testConfig), zap.NewNop().Sugar())
	start := 0.0
	a.SetOverrides(Overrides{StartDepthMM: &start, Method: "none", OutputFormat: "msgpack"})

	res, err := a.RunBatch(context.Background(), input, output, "")
	require.NoError(t, err)
	// both spikes are now in range
	assert.Equal(t, 4, res.Flagged())

	got, err := datafile.Load(output, datafile.FormatMsgpack)
	require.NoError(t, err)
	assert.True(t, got.Velocity.At(30, 2) != got.Velocity.At(30, 2), "masked cell stays missing")
}

func TestRunBatchErrors(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.dat")
	require.NoError(t, datafile.Save(input, datafile.FormatText, spikyDataset()))

	a := New(writeConfig(t, dir, testConfig), zap.NewNop().Sugar())
	a.SetOverrides(Overrides{Method: "spline"})
	_, err := a.RunBatch(context.Background(), input, filepath.Join(dir, "out.dat"), "")
	assert.ErrorIs(t, err, udv.ErrInvalidParameter)

	a.SetOverrides(Overrides{})
	_, err = a.RunBatch(context.Background(), filepath.Join(dir, "missing.dat"), filepath.Join(dir, "out.dat"), "")
	assert.Error(t, err)

	deep := 10000.0
	a.SetOverrides(Overrides{StartDepthMM: &deep})
	_, err = a.RunBatch(context.Background(), input, filepath.Join(dir, "out.dat"), "")
	assert.ErrorIs(t, err, udv.ErrInvalidParameter)
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zap.InfoLevel)
	a := New(writeConfig(t, dir, testConfig), zap.New(core).Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, 1, logs.FilterMessage("Application started successfully").Len())
		assert.Equal(t, 1, logs.FilterMessage("shutdown complete").Len())
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestRunBatchLogsReferenceDepthLine(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.dat")
	require.NoError(t, datafile.Save(input, datafile.FormatText, spikyDataset()))

	core, logs := observer.New(zap.InfoLevel)
	a := New(writeConfig(t, dir, testConfig), zap.New(core).Sugar())
	_, err := a.RunBatch(context.Background(), input, filepath.Join(dir, "out.dat"), "")
	require.NoError(t, err)

	assert.Equal(t, 0, logs.FilterLevelExact(zap.WarnLevel).Len())
	lines := logs.FilterMessageSnippet("reference depth 150.00 mm (row 30)").All()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Message, "1 of 4 samples changed")
}
