// Package api defines the JSON shapes of the cut endpoint and converts them
// to and from the domain model. It does no packing itself.
package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/model"
)

// CutRequest is the body of POST /furniture/cut. Pointer fields distinguish
// a missing value from zero.
type CutRequest struct {
	SheetWidth  *float64        `json:"sheetWidth"`
	SheetHeight *float64        `json:"sheetHeight"`
	Elements    []Element       `json:"elements"`
	Options     *RequestOptions `json:"options,omitempty"`
}

// Element is one requested part. ID may be a JSON number, a string or absent.
type Element struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Label  string          `json:"label,omitempty"`
	Width  *float64        `json:"width"`
	Height *float64        `json:"height"`
	Rotate *bool           `json:"rotate,omitempty"` // false pins the element's orientation
}

// RequestOptions overrides the server's packing options for one request.
type RequestOptions struct {
	Heuristic     string   `json:"heuristic,omitempty"`
	Ordering      string   `json:"ordering,omitempty"`
	Split         string   `json:"split,omitempty"`
	AllowRotation *bool    `json:"allowRotation,omitempty"`
	MergeFree     *bool    `json:"mergeFree,omitempty"`
	MinOffcut     *float64 `json:"minOffcut,omitempty"`
}

// Job is a validated request ready for the engine.
type Job struct {
	Sheet   model.Sheet
	Parts   []model.Part
	Options model.Options

	// numeric holds the ids that are echoed back as JSON numbers.
	numeric map[string]bool
}

// ToDomain validates field presence and converts the request into a Job.
// Elements without an id get their 1-based position. Missing dimensions fail
// with INVALID_DIMENSIONS; value checks are left to the engine.
func (r CutRequest) ToDomain(base model.Options) (Job, error) {
	if r.SheetWidth == nil || r.SheetHeight == nil {
		return Job{}, errors.New(errors.ErrCodeInvalidDimensions,
			"Invalid sheet dimensions: sheetWidth and sheetHeight are required")
	}
	if r.Elements == nil {
		return Job{}, errors.New(errors.ErrCodeInvalidDimensions, "Invalid request: elements are required")
	}

	opts, err := r.Options.Apply(base)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		Sheet:   model.Sheet{Width: *r.SheetWidth, Height: *r.SheetHeight},
		Parts:   make([]model.Part, 0, len(r.Elements)),
		Options: opts,
		numeric: make(map[string]bool, len(r.Elements)),
	}
	for i, el := range r.Elements {
		id, numeric, err := parseID(el.ID, i+1)
		if err != nil {
			return Job{}, err
		}
		if el.Width == nil || el.Height == nil {
			return Job{}, errors.New(errors.ErrCodeInvalidDimensions,
				"Invalid dimensions for element %s: width and height are required", id)
		}
		if numeric {
			job.numeric[id] = true
		}
		job.Parts = append(job.Parts, model.Part{
			ID:       id,
			Label:    el.Label,
			Width:    *el.Width,
			Height:   *el.Height,
			NoRotate: el.Rotate != nil && !*el.Rotate,
		})
	}
	return job, nil
}

// parseID returns the element id as a string and whether it should be echoed
// as a number.
func parseID(raw json.RawMessage, position int) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return strconv.Itoa(position), true, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, errors.Wrap(errors.ErrCodeInvalidInput, err, "Invalid id for element %d", position)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return strconv.Itoa(position), true, nil
		}
		return s, false, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false, errors.New(errors.ErrCodeInvalidInput,
				"Invalid id for element %d: must be a number or a string", position)
		}
		return n.String(), true, nil
	}
}

// Apply merges the overrides into base. A nil receiver returns base.
func (o *RequestOptions) Apply(base model.Options) (model.Options, error) {
	if o == nil {
		return base, nil
	}
	opts := base
	if o.Heuristic != "" {
		h, err := model.ParseHeuristic(o.Heuristic)
		if err != nil {
			return base, errors.New(errors.ErrCodeUnsupported, "Invalid options: %v", err)
		}
		opts.Heuristic = h
	}
	if o.Ordering != "" {
		ord, err := model.ParseOrdering(o.Ordering)
		if err != nil {
			return base, errors.New(errors.ErrCodeUnsupported, "Invalid options: %v", err)
		}
		opts.Ordering = ord
	}
	if o.Split != "" {
		s, err := model.ParseSplitRule(o.Split)
		if err != nil {
			return base, errors.New(errors.ErrCodeUnsupported, "Invalid options: %v", err)
		}
		opts.Split = s
	}
	if o.AllowRotation != nil {
		opts.AllowRotation = *o.AllowRotation
	}
	if o.MergeFree != nil {
		opts.MergeFree = *o.MergeFree
	}
	if o.MinOffcut != nil {
		if *o.MinOffcut < 0 {
			return base, errors.New(errors.ErrCodeInvalidInput, "Invalid options: minOffcut must not be negative")
		}
		opts.MinOffcut = *o.MinOffcut
	}
	return opts, nil
}

// IsNumeric reports whether id is echoed back as a JSON number.
func (j Job) IsNumeric(id string) bool {
	return j.numeric[id]
}

// Response renders a plan produced for this job.
func (j Job) Response(plan model.CutPlan) CutResponse {
	return FromPlan(plan, j.IsNumeric)
}

// PlacementDTO is one placed element in the response.
type PlacementDTO struct {
	ID      json.RawMessage `json:"id"`
	Label   string          `json:"label,omitempty"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Width   float64         `json:"width"`
	Height  float64         `json:"height"`
	Rotated bool            `json:"rotated"`
}

// CutResponse is the success body of POST /furniture/cut.
type CutResponse struct {
	PlanID     string            `json:"planId,omitempty"`
	Placements []PlacementDTO    `json:"placements"`
	Unplaced   []json.RawMessage `json:"unplaced,omitempty"`
	Waste      float64           `json:"waste,omitempty"`
	Efficiency float64           `json:"efficiency,omitempty"`
	Offcuts    []model.Offcut    `json:"offcuts,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// FromPlan renders a plan. isNumeric decides which ids are written as JSON
// numbers; nil writes every id as a string.
func FromPlan(plan model.CutPlan, isNumeric func(id string) bool) CutResponse {
	encode := func(id string) json.RawMessage {
		if isNumeric != nil && isNumeric(id) {
			return json.RawMessage(id)
		}
		b, _ := json.Marshal(id)
		return b
	}

	resp := CutResponse{
		PlanID:     plan.ID,
		Placements: make([]PlacementDTO, 0, len(plan.Placements)),
		Waste:      plan.Waste,
		Efficiency: plan.Efficiency(),
		Offcuts:    plan.Offcuts,
	}
	for _, p := range plan.Placements {
		resp.Placements = append(resp.Placements, PlacementDTO{
			ID:      encode(p.ID),
			Label:   p.Label,
			X:       p.X,
			Y:       p.Y,
			Width:   p.Width,
			Height:  p.Height,
			Rotated: p.Rotated,
		})
	}
	for _, id := range plan.Unplaced {
		resp.Unplaced = append(resp.Unplaced, encode(id))
	}
	return resp
}

// ErrorFrom builds the error body for err. Only structured errors expose
// their message; anything else is reported generically.
func ErrorFrom(err error) ErrorResponse {
	code := errors.GetCode(err)
	if code == "" {
		return ErrorResponse{Message: "internal server error", Code: string(errors.ErrCodeInternal)}
	}
	return ErrorResponse{Message: errors.UserMessage(err), Code: string(code)}
}
