// Package engine implements the sheet packing core: a guillotine free-space
// tracker, pluggable placement heuristics and the run loop that turns a sheet
// and a list of parts into a model.CutPlan.
package engine

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/geom"
	"github.com/piwi3910/cutplan/internal/logging"
	"github.com/piwi3910/cutplan/internal/model"
)

// planNamespace seeds the name-based UUIDs used as plan ids, so identical
// inputs always produce the same id.
var planNamespace = uuid.MustParse("6f1c7a52-3b0e-4c55-9a8e-2d4b61f0c9aa")

// Packer runs the packing algorithm with a fixed set of options.
type Packer struct {
	Options model.Options
}

// New returns a Packer for the given options. Options are validated when
// Pack runs.
func New(opts model.Options) *Packer {
	return &Packer{Options: opts}
}

// Pack is shorthand for New(opts).Pack(ctx, sheet, parts).
func Pack(ctx context.Context, sheet model.Sheet, parts []model.Part, opts model.Options) (model.CutPlan, error) {
	return New(opts).Pack(ctx, sheet, parts)
}

// Pack places parts on the sheet and returns the resulting plan.
//
// Invalid dimensions fail before any placement work. Parts that do not fit are
// listed in CutPlan.Unplaced and never cause an error. A run that exceeds its
// free-rectangle or time budget fails as a whole with RESOURCE_EXCEEDED; a
// canceled context fails with CANCELED. Cancellation is checked between parts.
func (p *Packer) Pack(ctx context.Context, sheet model.Sheet, parts []model.Part) (model.CutPlan, error) {
	opts, err := ValidateOptions(p.Options)
	if err != nil {
		return model.CutPlan{}, err
	}
	p = New(opts)
	parts, err = Validate(sheet, parts)
	if err != nil {
		return model.CutPlan{}, err
	}

	plan := model.CutPlan{
		ID:         PlanID(sheet, parts, p.Options),
		Sheet:      sheet,
		Placements: []model.Placement{},
		Unplaced:   []string{},
		Waste:      sheet.Area(),
		Stats: model.Stats{
			Ordering:  orderingOrDefault(p.Options.Ordering),
			Heuristic: heuristicOrDefault(p.Options.Heuristic),
		},
	}
	if len(parts) == 0 {
		plan.Offcuts = model.SelectOffcuts([]geom.Rect{sheet.Rect()}, p.Options.MinOffcut)
		plan.Stats.PeakFreeRects = 1
		return plan, nil
	}

	if p.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Options.Timeout)
		defer cancel()
	}

	logger := logging.FromContext(ctx)
	progress := logging.NewProgress(logger)

	ordered, err := p.order(ctx, sheet, parts)
	if err != nil {
		return model.CutPlan{}, err
	}

	res, err := p.run(ctx, sheet, ordered)
	if err != nil {
		logger.Debug("packing aborted", "plan", plan.ID, "error", err)
		return model.CutPlan{}, err
	}

	plan.Placements = res.placements
	plan.Unplaced = res.unplaced
	plan.Waste = sheet.Area() - res.placedArea
	plan.Offcuts = model.SelectOffcuts(res.free, p.Options.MinOffcut)
	plan.Stats.PeakFreeRects = res.peak

	if err := Verify(plan, parts, p.Options.AllowRotation); err != nil {
		logger.Error("packed plan is inconsistent", "plan", plan.ID, "error", err)
		return model.CutPlan{}, err
	}

	logger.Debug("packed sheet",
		"plan", plan.ID,
		"sheet", sheet,
		"placed", len(plan.Placements),
		"unplaced", len(plan.Unplaced),
		"efficiency", strconv.FormatFloat(plan.Efficiency(), 'f', 1, 64),
		"free_area", res.freeArea,
		"elapsed", progress.Elapsed())
	return plan, nil
}

// runResult is the raw outcome of one pass over the parts.
type runResult struct {
	placements []model.Placement
	unplaced   []string
	placedArea float64
	freeArea   float64
	free       []geom.Rect
	peak       int
}

// run feeds parts to the heuristic in the given order on a fresh tracker.
func (p *Packer) run(ctx context.Context, sheet model.Sheet, parts []model.Part) (runResult, error) {
	tracker := NewTracker(sheet, p.Options)
	res := runResult{
		placements: make([]model.Placement, 0, len(parts)),
		unplaced:   []string{},
	}

	for _, part := range parts {
		if err := checkContext(ctx); err != nil {
			return runResult{}, err
		}

		allowRotation := p.Options.AllowRotation && !part.NoRotate
		c, ok := Select(p.Options.Heuristic, tracker.Candidates(part.Width, part.Height, allowRotation))
		if !ok {
			res.unplaced = append(res.unplaced, part.ID)
			continue
		}

		r, err := tracker.Commit(c)
		if err != nil {
			return runResult{}, err
		}
		res.placements = append(res.placements, model.Placement{
			ID:      part.ID,
			Label:   part.Label,
			X:       r.X,
			Y:       r.Y,
			Width:   r.W,
			Height:  r.H,
			Rotated: c.Rotated,
		})
		res.placedArea += geom.Area(r)
	}

	res.free = tracker.Free()
	res.freeArea = tracker.FreeArea()
	res.peak = tracker.Peak()
	return res, nil
}

// checkContext converts a done context into the matching engine error.
func checkContext(ctx context.Context) error {
	switch err := ctx.Err(); err {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return errors.Wrap(errors.ErrCodeResourceExceeded, err, "packing exceeded its time budget")
	default:
		return errors.Wrap(errors.ErrCodeCanceled, err, "packing canceled")
	}
}

// Validate checks the sheet and every part and returns a copy of parts in
// which missing ids are replaced by the 1-based input position.
func Validate(sheet model.Sheet, parts []model.Part) ([]model.Part, error) {
	if !geom.Valid(sheet.Width, sheet.Height) {
		return nil, errors.New(errors.ErrCodeInvalidDimensions,
			"Invalid sheet dimensions: width and height must be positive (got %g x %g)", sheet.Width, sheet.Height)
	}
	if math.IsInf(sheet.Area(), 0) {
		return nil, errors.New(errors.ErrCodeInvalidDimensions,
			"Invalid sheet dimensions: area of %g x %g is out of range", sheet.Width, sheet.Height)
	}

	out := make([]model.Part, len(parts))
	seen := make(map[string]int, len(parts))
	for i, part := range parts {
		if part.ID == "" {
			part.ID = strconv.Itoa(i + 1)
		}
		if !geom.Valid(part.Width, part.Height) {
			return nil, errors.New(errors.ErrCodeInvalidDimensions,
				"Invalid dimensions for element %s: width and height must be positive (got %g x %g)",
				part.ID, part.Width, part.Height)
		}
		if math.IsInf(part.Area(), 0) {
			return nil, errors.New(errors.ErrCodeInvalidDimensions,
				"Invalid dimensions for element %s: area of %g x %g is out of range",
				part.ID, part.Width, part.Height)
		}
		if prev, dup := seen[part.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"Duplicate element id %s (elements %d and %d)", part.ID, prev+1, i+1)
		}
		seen[part.ID] = i
		out[i] = part
	}
	return out, nil
}

// ValidateOptions rejects unknown strategy names and returns opts with the
// names in canonical form. Empty names select the defaults.
func ValidateOptions(opts model.Options) (model.Options, error) {
	norm, err := opts.Normalize()
	if err != nil {
		return model.Options{}, errors.New(errors.ErrCodeUnsupported, "invalid options: %v", err)
	}
	if norm.MaxFreeRects < 0 || norm.Timeout < 0 {
		return model.Options{}, errors.New(errors.ErrCodeInvalidInput, "invalid options: limits must not be negative")
	}
	return norm, nil
}

// PlanID derives the deterministic id of the plan for these inputs. Parts
// must already carry their ids (see Validate). Resource limits do not change
// the layout and are left out.
func PlanID(sheet model.Sheet, parts []model.Part, opts model.Options) string {
	opts.Timeout = 0
	opts.MaxFreeRects = 0
	data, err := json.Marshal(struct {
		Sheet   model.Sheet   `json:"sheet"`
		Parts   []model.Part  `json:"parts"`
		Options model.Options `json:"options"`
	}{sheet, parts, opts})
	if err != nil {
		// Only non-finite floats fail to marshal and Validate rejects those.
		return uuid.NewString()
	}
	return uuid.NewSHA1(planNamespace, data).String()
}

func orderingOrDefault(o model.Ordering) model.Ordering {
	if o == "" {
		return model.OrderInput
	}
	return o
}

func heuristicOrDefault(h model.Heuristic) model.Heuristic {
	if h == "" {
		return model.HeuristicBestAreaFit
	}
	return h
}
