package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/database"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
	"github.com/rahulmitra166/UDV-DataFiltering/pkg/config"
	"github.com/rahulmitra166/UDV-DataFiltering/pkg/responseformat"
)

type fakeRecorder struct {
	id        uuid.UUID
	err       error
	calls     int
	last      udv.Params
	runs      []database.CorrectionRun
	lastLimit int
}

func (f *fakeRecorder) Recent(_ context.Context, limit int) ([]database.CorrectionRun, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.runs) > limit {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeRecorder) Record(_ context.Context, source string, params udv.Params, _ *udv.Result) (uuid.UUID, error) {
	f.calls++
	f.last = params
	return f.id, f.err
}

func newTestController(t *testing.T, rec Recorder) *Controller {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ctrl, err := NewController(ctx, &sync.WaitGroup{}, config.RESTServerData{}, config.DefaultProcessing(), rec, zap.NewNop().Sugar())
	require.NoError(t, err)
	return ctrl
}

func ptr[T any](v T) *T { return &v }

func grid(rows, cols int) [][]*float64 {
	g := make([][]*float64, rows)
	for i := range g {
		g[i] = make([]*float64, cols)
		for j := range g[i] {
			g[i][j] = ptr(0.0)
		}
	}
	return g
}

func axis(n int, step float64) []float64 {
	a := make([]float64, n)
	for i := range a {
		a[i] = float64(i) * step
	}
	return a
}

func postJSON(t *testing.T, h http.Handler, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", responseformat.ContentTypeJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMethods(t *testing.T) {
	h := newTestController(t, nil).Server.Handler

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/methods", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MethodsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "linear", resp.Default)
	assert.Contains(t, resp.Methods, "clamp_extreme")
	assert.Contains(t, resp.Methods, "cubic")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/correct", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCorrectRemovesSpike(t *testing.T) {
	rec := &fakeRecorder{id: uuid.New()}
	h := newTestController(t, rec).Server.Handler

	velocity := grid(100, 3)
	velocity[50][1] = ptr(1000.0)

	resp := postJSON(t, h, "/correct", CorrectRequest{
		Time:             axis(3, 1),
		Depth:            axis(100, 10),
		Velocity:         velocity,
		StartDepthIndex:  ptr(0),
		ReferenceDepthMM: ptr(500.0),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out CorrectResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, rec.id.String(), out.RunID)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 0, rec.last.StartDepthIndex)
	assert.Equal(t, "linear", out.Method)
	assert.Equal(t, 2, out.Flagged)
	require.Len(t, out.Columns, 1)
	assert.Equal(t, 1, out.Columns[0].Column)
	assert.Equal(t, []int{49, 50}, out.Columns[0].JumpPoints)
	require.NotNil(t, out.Corrected[50][1])
	assert.Equal(t, 0.0, *out.Corrected[50][1])
	assert.Len(t, out.MeanProfile, 100)

	require.NotNil(t, out.DepthLine)
	assert.Equal(t, 50, out.DepthLine.Index)
	assert.Equal(t, 1000.0, *out.DepthLine.Raw[1])
	assert.Equal(t, 0.0, *out.DepthLine.Corrected[1])
}

func TestCorrectArchiveFailureStillResponds(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database is down")}
	h := newTestController(t, rec).Server.Handler

	resp := postJSON(t, h, "/correct", CorrectRequest{
		Time:     axis(2, 1),
		Depth:    axis(20, 10),
		Velocity: grid(20, 2),
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var out CorrectResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	_, err := uuid.Parse(out.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 5, out.StartIndex)
}

func TestCorrectNoneMethodReturnsNulls(t *testing.T) {
	h := newTestController(t, nil).Server.Handler

	velocity := grid(30, 1)
	velocity[10][0] = ptr(900.0)

	resp := postJSON(t, h, "/correct", CorrectRequest{
		Time:            axis(1, 1),
		Depth:           axis(30, 1),
		Velocity:        velocity,
		StartDepthIndex: ptr(0),
		Method:          "none",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var out CorrectResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Nil(t, out.Corrected[9][0])
	assert.Nil(t, out.Corrected[10][0])
	require.NotNil(t, out.Corrected[11][0])
}

func TestCorrectErrors(t *testing.T) {
	h := newTestController(t, nil).Server.Handler

	insufficient := grid(10, 2)
	for i := 1; i < 5; i++ {
		insufficient[i][1] = ptr(500.0)
	}

	tests := []struct {
		name   string
		body   CorrectRequest
		status int
		column *int
	}{
		{
			name:   "unknown method",
			body:   CorrectRequest{Time: axis(2, 1), Depth: axis(10, 1), Velocity: grid(10, 2), Method: "spline"},
			status: http.StatusBadRequest,
		},
		{
			name:   "axis mismatch",
			body:   CorrectRequest{Time: axis(3, 1), Depth: axis(10, 1), Velocity: grid(10, 2)},
			status: http.StatusBadRequest,
		},
		{
			name:   "ragged grid",
			body:   CorrectRequest{Time: axis(2, 1), Depth: axis(2, 1), Velocity: [][]*float64{{ptr(1.0), ptr(2.0)}, {ptr(1.0)}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "negative threshold",
			body:   CorrectRequest{Time: axis(2, 1), Depth: axis(10, 1), Velocity: grid(10, 2), Threshold: ptr(-1.0)},
			status: http.StatusBadRequest,
		},
		{
			name:   "start index out of range",
			body:   CorrectRequest{Time: axis(2, 1), Depth: axis(10, 1), Velocity: grid(10, 2), StartDepthIndex: ptr(10)},
			status: http.StatusBadRequest,
		},
		{
			name: "insufficient data",
			body: CorrectRequest{
				Time: axis(2, 1), Depth: axis(10, 1), Velocity: insufficient,
				StartDepthIndex: ptr(0), Method: "cubic",
			},
			status: http.StatusUnprocessableEntity,
			column: ptr(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, h, "/correct", tt.body)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())

			var body responseformat.ErrorBody
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.column, body.Column)
		})
	}
}

func TestCorrectRejectsMalformedBody(t *testing.T) {
	h := newTestController(t, nil).Server.Handler

	req := httptest.NewRequest(http.MethodPost, "/correct", bytes.NewBufferString(`{"time": [1], "velocity": `))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorrectMsgPack(t *testing.T) {
	h := newTestController(t, nil).Server.Handler

	velocity := grid(40, 2)
	velocity[20][0] = ptr(-700.0)

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	require.NoError(t, enc.Encode(CorrectRequest{
		Time: axis(2, 1), Depth: axis(40, 1), Velocity: velocity, StartDepthIndex: ptr(0),
	}))

	req := httptest.NewRequest(http.MethodPost, "/correct?format=msgpack", &buf)
	req.Header.Set("Content-Type", responseformat.ContentTypeMsgPack)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, responseformat.ContentTypeMsgPack, rec.Header().Get("Content-Type"))

	dec := msgpack.NewDecoder(rec.Body)
	dec.SetCustomStructTag("json")
	var out CorrectResponse
	require.NoError(t, dec.Decode(&out))
	assert.Equal(t, 2, out.Flagged)
	assert.Equal(t, 0.0, *out.Corrected[20][0])
}

func TestNewControllerRejectsUnknownMethod(t *testing.T) {
	proc := config.DefaultProcessing()
	proc.Method = "spline"
	_, err := NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{}, proc, nil, zap.NewNop().Sugar())
	assert.ErrorIs(t, err, udv.ErrInvalidParameter)
}

func getRuns(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetRuns(t *testing.T) {
	runID := uuid.New()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{runs: []database.CorrectionRun{
		{
			ID: runID, CreatedAt: created, Source: "pipe.dat", Method: "cubic",
			Threshold: 70, DepthRows: 100, TimeColumns: 3, FlaggedSamples: 13, Fallbacks: 1,
			Columns: []database.CorrectionColumn{
				{RunID: runID, TimeColumn: 2, JumpPoints: 2, Flagged: 13, AppliedMethod: "quadratic", Warning: "fell back"},
			},
		},
		{ID: uuid.New(), CreatedAt: created.Add(-time.Hour), Method: "linear"},
	}}
	h := newTestController(t, rec).Server.Handler

	resp := getRuns(t, h, "/runs")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, defaultRunLimit, rec.lastLimit)

	var out RunsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Runs, 2)
	first := out.Runs[0]
	assert.Equal(t, runID.String(), first.ID)
	assert.True(t, created.Equal(first.CreatedAt))
	assert.Equal(t, 13, first.FlaggedSamples)
	assert.Equal(t, 1, first.Fallbacks)
	require.Len(t, first.Columns, 1)
	assert.Equal(t, 2, first.Columns[0].Column)
	assert.Equal(t, "quadratic", first.Columns[0].Applied)

	resp = getRuns(t, h, "/runs?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Len(t, out.Runs, 1)

	getRuns(t, h, "/runs?limit=100000")
	assert.Equal(t, maxRunLimit, rec.lastLimit)

	assert.Equal(t, http.StatusBadRequest, getRuns(t, h, "/runs?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, getRuns(t, h, "/runs?limit=ten").Code)
}

func TestGetRunsErrors(t *testing.T) {
	h := newTestController(t, nil).Server.Handler
	assert.Equal(t, http.StatusServiceUnavailable, getRuns(t, h, "/runs").Code)

	h = newTestController(t, &fakeRecorder{err: errors.New("database is down")}).Server.Handler
	assert.Equal(t, http.StatusInternalServerError, getRuns(t, h, "/runs").Code)
}
