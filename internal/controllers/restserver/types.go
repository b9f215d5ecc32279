package restserver

import (
	"math"
	"time"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/database"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
)

// CorrectRequest is the body of POST /correct. Velocity is depth-major: one
// row per depth sample, one value per time sample. A null cell is a missing
// sample. Unset parameters take the server's configured values.
type CorrectRequest struct {
	Time             []float64    `json:"time"`
	Depth            []float64    `json:"depth"`
	Velocity         [][]*float64 `json:"velocity"`
	Threshold        *float64     `json:"threshold,omitempty"`
	StartDepthIndex  *int         `json:"start_depth_index,omitempty"`
	StartDepthMM     *float64     `json:"start_depth_mm,omitempty"`
	Method           string       `json:"method,omitempty"`
	Strict           *bool        `json:"strict,omitempty"`
	ReferenceDepthMM *float64     `json:"reference_depth_mm,omitempty"`
}

// CorrectResponse is the body returned by POST /correct. Cells left missing
// by the "none" method are encoded as null.
type CorrectResponse struct {
	RunID       string          `json:"run_id"`
	Method      string          `json:"method"`
	StartIndex  int             `json:"start_depth_index"`
	Corrected   [][]*float64    `json:"corrected"`
	Flagged     int             `json:"flagged"`
	Columns     []ColumnSummary `json:"columns,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	MeanProfile []*float64      `json:"mean_profile"`
	DepthLine   *DepthLine      `json:"depth_line,omitempty"`
}

// ColumnSummary reports a time column in which spikes were masked
type ColumnSummary struct {
	Column     int    `json:"column"`
	JumpPoints []int  `json:"jump_points"`
	Flagged    int    `json:"flagged"`
	Applied    string `json:"applied_method"`
	Warning    string `json:"warning,omitempty"`
}

// DepthLine carries raw and corrected velocity at the reference depth
type DepthLine struct {
	Index     int        `json:"index"`
	DepthMM   float64    `json:"depth_mm"`
	Raw       []*float64 `json:"raw"`
	Corrected []*float64 `json:"corrected"`
}

// MethodsResponse is the body of GET /methods
type MethodsResponse struct {
	Methods []string `json:"methods"`
	Default string   `json:"default"`
}

// RunsResponse is the body of GET /runs
type RunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary describes one archived correction run
type RunSummary struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Source          string          `json:"source"`
	Method          string          `json:"method"`
	Threshold       float64         `json:"threshold"`
	StartDepthIndex int             `json:"start_depth_index"`
	DepthRows       int             `json:"depth_rows"`
	TimeColumns     int             `json:"time_columns"`
	FlaggedSamples  int             `json:"flagged"`
	Fallbacks       int             `json:"fallbacks"`
	Columns         []ColumnSummary `json:"columns,omitempty"`
}

func summarizeRun(r database.CorrectionRun) RunSummary {
	s := RunSummary{
		ID:              r.ID.String(),
		CreatedAt:       r.CreatedAt,
		Source:          r.Source,
		Method:          r.Method,
		Threshold:       r.Threshold,
		StartDepthIndex: r.StartDepthIndex,
		DepthRows:       r.DepthRows,
		TimeColumns:     r.TimeColumns,
		FlaggedSamples:  r.FlaggedSamples,
		Fallbacks:       r.Fallbacks,
	}
	for _, c := range r.Columns {
		s.Columns = append(s.Columns, ColumnSummary{
			Column:  c.TimeColumn,
			Flagged: c.Flagged,
			Applied: c.AppliedMethod,
			Warning: c.Warning,
		})
	}
	return s
}

func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

func nullableRows(rows [][]float64) [][]*float64 {
	out := make([][]*float64, len(rows))
	for i, r := range rows {
		out[i] = nullable(r)
	}
	return out
}

func fromNullableRows(rows [][]*float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, len(r))
		for j, v := range r {
			if v == nil {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = *v
		}
	}
	return out
}

func summarize(res *udv.Result) ([]ColumnSummary, []string) {
	var cols []ColumnSummary
	var warnings []string
	for _, c := range res.Columns {
		if c.Flagged == 0 {
			continue
		}
		s := ColumnSummary{
			Column:     c.Column,
			JumpPoints: c.JumpPoints,
			Flagged:    c.Flagged,
			Applied:    string(c.Applied),
		}
		if c.Warning != nil {
			s.Warning = c.Warning.Error()
			warnings = append(warnings, s.Warning)
		}
		cols = append(cols, s)
	}
	return cols, warnings
}
