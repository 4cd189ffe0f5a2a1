package api

import "github.com/piwi3910/cutplan/internal/engine"

// CompareRow summarizes one strategy of a comparison.
type CompareRow struct {
	Name         string  `json:"name"`
	Placed       int     `json:"placed"`
	Unplaced     int     `json:"unplaced"`
	Efficiency   float64 `json:"efficiency"`
	WastePercent float64 `json:"wastePercent"`
	Offcuts      int     `json:"offcuts"`
	Error        string  `json:"error,omitempty"`
}

// CompareResponse is the body of POST /furniture/cut/compare. Best indexes
// Results and is -1 when every strategy failed.
type CompareResponse struct {
	Best    int          `json:"best"`
	Results []CompareRow `json:"results"`
}

// FromComparison renders comparison results in scenario order.
func FromComparison(results []engine.ComparisonResult) CompareResponse {
	resp := CompareResponse{
		Best:    engine.Best(results),
		Results: make([]CompareRow, 0, len(results)),
	}
	for _, r := range results {
		resp.Results = append(resp.Results, CompareRow{
			Name:         r.Scenario.Name,
			Placed:       r.Placed,
			Unplaced:     r.Unplaced,
			Efficiency:   r.Efficiency,
			WastePercent: r.WastePercent,
			Offcuts:      r.Offcuts,
			Error:        r.Err,
		})
	}
	return resp
}
