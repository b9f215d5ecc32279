package restserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/datafile"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
	"github.com/rahulmitra166/UDV-DataFiltering/pkg/responseformat"
)

// maxBodyBytes bounds the size of a correction request
const maxBodyBytes = 256 << 20

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// Health reports that the service is accepting requests
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMethods lists the reconstruction methods the service accepts
func (h *Handlers) GetMethods(w http.ResponseWriter, req *http.Request) {
	resp := MethodsResponse{Default: h.controller.processing.Method}
	for _, m := range udv.Methods() {
		resp.Methods = append(resp.Methods, string(m))
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, resp)
}

// Correct runs the outlier corrector over the grid in the request body
func (h *Handlers) Correct(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	var body CorrectRequest
	if err := h.formatter.Decode(req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err)
		return
	}

	velocity, err := datafile.DenseFromRows(fromNullableRows(body.Velocity))
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err)
		return
	}
	ds := udv.Dataset{Time: body.Time, Depth: body.Depth, Velocity: velocity}
	if err := ds.Validate(); err != nil {
		h.writeCorrectionError(w, req, err)
		return
	}

	proc := h.controller.processing
	if body.Threshold != nil {
		proc.Threshold = *body.Threshold
	}
	if body.Method != "" {
		proc.Method = body.Method
	}
	if body.Strict != nil {
		proc.Strict = *body.Strict
	}
	if body.StartDepthMM != nil {
		proc.StartDepthMM = *body.StartDepthMM
	}
	if body.StartDepthIndex != nil {
		// an explicit index replaces the depth lookup
		proc.StartDepthMM = 0
	}
	if body.ReferenceDepthMM != nil {
		proc.ReferenceDepthMM = *body.ReferenceDepthMM
	}

	params, err := proc.Params(ds.Depth)
	if err != nil {
		h.writeCorrectionError(w, req, err)
		return
	}
	if body.StartDepthIndex != nil {
		params.StartDepthIndex = *body.StartDepthIndex
	}

	res, err := udv.NewCorrector(params, h.controller.logger).Correct(req.Context(), ds)
	if err != nil {
		h.writeCorrectionError(w, req, err)
		return
	}

	runID := uuid.New()
	if h.controller.archive != nil {
		id, err := h.controller.archive.Record(req.Context(), "rest", params, res)
		if err != nil {
			h.controller.logger.Warnf("could not archive correction run: %v", err)
		} else {
			runID = id
		}
	}

	resp := CorrectResponse{
		RunID:       runID.String(),
		Method:      string(params.Method),
		StartIndex:  params.StartDepthIndex,
		Corrected:   nullableRows(datafile.DenseToRows(res.Corrected)),
		Flagged:     res.Flagged(),
		MeanProfile: nullable(udv.MeanProfile(res.Corrected)),
	}
	resp.Columns, resp.Warnings = summarize(res)

	if body.ReferenceDepthMM != nil {
		line, err := udv.LineAtDepth(ds.Depth, ds.Velocity, res.Corrected, proc.ReferenceDepthMM)
		if err != nil {
			h.controller.logger.Warnf("could not extract reference depth line: %v", err)
		} else {
			resp.DepthLine = &DepthLine{
				Index:     line.Index,
				DepthMM:   line.DepthMM,
				Raw:       nullable(line.Raw),
				Corrected: nullable(line.Corrected),
			}
		}
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, resp)
}

// writeCorrectionError maps corrector failures onto HTTP status codes
func (h *Handlers) writeCorrectionError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, udv.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, udv.ErrInvalidParameter), errors.Is(err, udv.ErrMalformedInput):
		status = http.StatusBadRequest
	}

	body := responseformat.ErrorBody{Error: err.Error()}
	if col, ok := udv.ColumnErrorIndex(err); ok {
		body.Column = &col
	}
	if status == http.StatusInternalServerError {
		h.controller.logger.Errorf("correction failed: %v", err)
	}
	h.formatter.WriteResponse(w, req, status, body)
}

// GetRuns lists the most recent archived correction runs
func (h *Handlers) GetRuns(w http.ResponseWriter, req *http.Request) {
	if h.controller.archive == nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, errors.New("run archive is not configured"))
		return
	}

	limit := defaultRunLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.formatter.WriteError(w, req, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.controller.archive.Recent(req.Context(), limit)
	if err != nil {
		h.controller.logger.Errorf("error listing correction runs: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, err)
		return
	}

	resp := RunsResponse{Runs: make([]RunSummary, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, summarizeRun(r))
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, resp)
}
