package engine

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/geom"
	"github.com/piwi3910/cutplan/internal/model"
)

// ViolationKind classifies a broken plan invariant.
type ViolationKind string

const (
	ViolationOutOfBounds ViolationKind = "out-of-bounds"
	ViolationOverlap     ViolationKind = "overlap"
	ViolationSize        ViolationKind = "size-mismatch"
	ViolationRotation    ViolationKind = "rotation-not-allowed"
	ViolationMissing     ViolationKind = "missing"
	ViolationDuplicate   ViolationKind = "duplicate"
	ViolationUnknown     ViolationKind = "unknown-part"
	ViolationWaste       ViolationKind = "waste-mismatch"
)

// Violation describes one problem found in a plan.
type Violation struct {
	Kind ViolationKind
	IDs  []string
	Msg  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Msg)
}

// placedItem adapts a placement to the R-tree.
type placedItem struct {
	index int
	rect  geom.Rect
	box   rtreego.Rect
}

func (p *placedItem) Bounds() rtreego.Rect {
	return p.box
}

// Violations checks a plan against the parts it was built from. An empty
// result means the plan is valid: every part appears exactly once, placed
// parts lie on the sheet with their own dimensions, and no two placements
// share interior area.
func Violations(plan model.CutPlan, parts []model.Part, allowRotation bool) []Violation {
	var out []Violation

	byID := make(map[string]model.Part, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}
	seen := make(map[string]int, len(parts))

	sheet := plan.Sheet.Rect()
	items := make([]rtreego.Spatial, 0, len(plan.Placements))
	for i, pl := range plan.Placements {
		seen[pl.ID]++
		r := pl.Rect()

		if !geom.Contains(sheet, r) {
			out = append(out, Violation{
				Kind: ViolationOutOfBounds,
				IDs:  []string{pl.ID},
				Msg:  fmt.Sprintf("part %s at (%g,%g) %gx%g exceeds sheet %s", pl.ID, pl.X, pl.Y, pl.Width, pl.Height, plan.Sheet),
			})
		}

		if part, ok := byID[pl.ID]; ok {
			w, h := part.Width, part.Height
			if pl.Rotated {
				w, h = h, w
				if !allowRotation || part.NoRotate {
					out = append(out, Violation{
						Kind: ViolationRotation,
						IDs:  []string{pl.ID},
						Msg:  fmt.Sprintf("part %s is rotated but rotation is not allowed", pl.ID),
					})
				}
			}
			if !approxEqual(pl.Width, w) || !approxEqual(pl.Height, h) {
				out = append(out, Violation{
					Kind: ViolationSize,
					IDs:  []string{pl.ID},
					Msg:  fmt.Sprintf("part %s placed as %gx%g, expected %gx%g", pl.ID, pl.Width, pl.Height, w, h),
				})
			}
		} else {
			out = append(out, Violation{
				Kind: ViolationUnknown,
				IDs:  []string{pl.ID},
				Msg:  fmt.Sprintf("placement %s does not match any part", pl.ID),
			})
		}

		box, err := rtreego.NewRect(rtreego.Point{r.X, r.Y}, []float64{r.W, r.H})
		if err != nil {
			// Degenerate rectangles cannot overlap anything.
			continue
		}
		items = append(items, &placedItem{index: i, rect: r, box: box})
	}

	out = append(out, overlaps(plan, items)...)

	for _, id := range plan.Unplaced {
		seen[id]++
		if _, ok := byID[id]; !ok {
			out = append(out, Violation{
				Kind: ViolationUnknown,
				IDs:  []string{id},
				Msg:  fmt.Sprintf("unplaced id %s does not match any part", id),
			})
		}
	}
	for _, p := range parts {
		switch n := seen[p.ID]; {
		case n == 0:
			out = append(out, Violation{
				Kind: ViolationMissing,
				IDs:  []string{p.ID},
				Msg:  fmt.Sprintf("part %s is neither placed nor unplaced", p.ID),
			})
		case n > 1:
			out = append(out, Violation{
				Kind: ViolationDuplicate,
				IDs:  []string{p.ID},
				Msg:  fmt.Sprintf("part %s appears %d times", p.ID, n),
			})
		}
	}

	expected := plan.Sheet.Area() - plan.UsedArea()
	if math.Abs(plan.Waste-expected) > 1e-6*math.Max(1, plan.Sheet.Area()) {
		out = append(out, Violation{
			Kind: ViolationWaste,
			Msg:  fmt.Sprintf("waste is %g, expected %g", plan.Waste, expected),
		})
	}
	return out
}

// overlaps finds placements sharing interior area. The R-tree narrows the
// candidates; geom.Intersect makes the final call so touching edges pass.
func overlaps(plan model.CutPlan, items []rtreego.Spatial) []Violation {
	if len(items) < 2 {
		return nil
	}
	tree := rtreego.NewTree(2, 25, 50, items...)

	var out []Violation
	for _, s := range items {
		a := s.(*placedItem)
		for _, hit := range tree.SearchIntersect(a.box) {
			b := hit.(*placedItem)
			// Report each pair once.
			if b.index <= a.index {
				continue
			}
			common, ok := geom.Intersect(a.rect, b.rect)
			if !ok {
				continue
			}
			idA, idB := plan.Placements[a.index].ID, plan.Placements[b.index].ID
			at := common.Origin()
			out = append(out, Violation{
				Kind: ViolationOverlap,
				IDs:  []string{idA, idB},
				Msg:  fmt.Sprintf("parts %s and %s overlap in %g x %g at (%g, %g)", idA, idB, common.W, common.H, at.X, at.Y),
			})
		}
	}
	return out
}

// Verify returns an INTERNAL_ERROR describing the first violation, or nil
// when the plan is valid.
func Verify(plan model.CutPlan, parts []model.Part, allowRotation bool) error {
	v := Violations(plan, parts, allowRotation)
	if len(v) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInternal, "plan %s failed verification (%d problems): %s", plan.ID, len(v), v[0])
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= geom.Epsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
