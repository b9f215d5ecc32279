package responseformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func TestWriteResponseJSON(t *testing.T) {
	f := NewFormatter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/methods", nil)

	require.NoError(t, f.WriteResponse(rec, req, http.StatusCreated, payload{Name: "a", Values: []float64{1, 2}}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var got payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payload{Name: "a", Values: []float64{1, 2}}, got)
}

func TestWriteResponseMsgPack(t *testing.T) {
	f := NewFormatter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/methods?format=msgpack", nil)

	require.NoError(t, f.WriteResponse(rec, req, http.StatusOK, payload{Name: "b", Values: []float64{3}}))
	assert.Equal(t, ContentTypeMsgPack, rec.Header().Get("Content-Type"))

	dec := msgpack.NewDecoder(rec.Body)
	dec.SetCustomStructTag("json")
	var got payload
	require.NoError(t, dec.Decode(&got))
	assert.Equal(t, "b", got.Name)
}

func TestWantsMsgPackFromAccept(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, WantsMsgPack(req))
	req.Header.Set("Accept", ContentTypeMsgPack)
	assert.True(t, WantsMsgPack(req))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/correct", nil)
	require.NoError(t, NewFormatter().WriteError(rec, req, http.StatusBadRequest, errors.New("bad grid")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bad grid"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	f := NewFormatter()

	var got payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","values":[1]}`))
	require.NoError(t, f.Decode(req, &got))
	assert.Equal(t, "x", got.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","bogus":1}`))
	assert.Error(t, f.Decode(req, &got))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"} {}`))
	assert.Error(t, f.Decode(req, &got))

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	require.NoError(t, enc.Encode(payload{Name: "m", Values: []float64{9}}))
	req = httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", ContentTypeMsgPack)
	require.NoError(t, f.Decode(req, &got))
	assert.Equal(t, payload{Name: "m", Values: []float64{9}}, got)
}
