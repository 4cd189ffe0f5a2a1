package engine

import (
	"iter"
	"slices"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/geom"
	"github.com/piwi3910/cutplan/internal/model"
)

// Candidate is one way of fitting a part into a free rectangle.
type Candidate struct {
	Index   int       // Position of Free in the tracker's free list at scan time
	Free    geom.Rect // The free rectangle that would receive the part
	Width   float64   // Part width as oriented
	Height  float64   // Part height as oriented
	Rotated bool      // Whether the part is turned 90°
}

// Leftover returns the free area that remains in Free after the placement.
func (c Candidate) Leftover() float64 {
	return geom.Area(c.Free) - c.Width*c.Height
}

// Tracker maintains the unused area of one sheet as a list of disjoint free
// rectangles. It belongs to a single packing run and must not be shared.
type Tracker struct {
	sheet geom.Rect
	free  []geom.Rect
	split model.SplitRule
	merge bool
	limit int
	peak  int
}

// NewTracker creates a tracker covering the whole sheet.
func NewTracker(sheet model.Sheet, opts model.Options) *Tracker {
	t := &Tracker{
		split: opts.Split,
		merge: opts.MergeFree,
		limit: opts.MaxFreeRects,
	}
	t.Reset(sheet)
	return t
}

// Reset discards all state and starts over with one free rectangle covering
// the sheet.
func (t *Tracker) Reset(sheet model.Sheet) {
	t.sheet = sheet.Rect()
	t.free = append(t.free[:0], t.sheet)
	t.peak = 1
}

// Free returns a copy of the current free rectangles in scan order.
func (t *Tracker) Free() []geom.Rect {
	return slices.Clone(t.free)
}

// Len returns the number of free rectangles.
func (t *Tracker) Len() int {
	return len(t.free)
}

// Peak returns the largest free list size seen since the last Reset.
func (t *Tracker) Peak() int {
	return t.peak
}

// FreeArea returns the total free area.
func (t *Tracker) FreeArea() float64 {
	var total float64
	for _, r := range t.free {
		total += geom.Area(r)
	}
	return total
}

// Candidates yields every free rectangle a w x h part fits into, in free-list
// order. For each rectangle the upright orientation comes before the rotated
// one; square parts are never reported rotated. The sequence is only valid
// until the next Commit.
func (t *Tracker) Candidates(w, h float64, allowRotation bool) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for i, r := range t.free {
			if geom.Fits(r, w, h) {
				if !yield(Candidate{Index: i, Free: r, Width: w, Height: h}) {
					return
				}
			}
			if allowRotation && w != h && geom.Fits(r, h, w) {
				if !yield(Candidate{Index: i, Free: r, Width: h, Height: w, Rotated: true}) {
					return
				}
			}
		}
	}
}

// Commit places a part at the top-left corner of the candidate's free
// rectangle, replaces that rectangle with its guillotine remainders and
// returns the occupied area. It fails when the candidate is stale or when the
// free list grows past the configured limit.
func (t *Tracker) Commit(c Candidate) (geom.Rect, error) {
	if c.Index < 0 || c.Index >= len(t.free) || t.free[c.Index] != c.Free {
		return geom.Rect{}, errors.New(errors.ErrCodeInternal, "stale placement candidate at index %d", c.Index)
	}
	if !geom.Fits(c.Free, c.Width, c.Height) {
		return geom.Rect{}, errors.New(errors.ErrCodeInternal, "%gx%g does not fit free rectangle %v", c.Width, c.Height, c.Free)
	}

	placed := geom.NewRect(c.Free.X, c.Free.Y, c.Width, c.Height)
	t.free = slices.Delete(t.free, c.Index, c.Index+1)
	t.free = append(t.free, splitFree(c.Free, placed, t.split)...)
	t.free = pruneContained(t.free)
	if t.merge {
		t.free = mergeAdjacent(t.free)
	}

	if len(t.free) > t.peak {
		t.peak = len(t.free)
	}
	if t.limit > 0 && len(t.free) > t.limit {
		return placed, errors.New(errors.ErrCodeResourceExceeded,
			"free space fragmented into %d rectangles (limit %d)", len(t.free), t.limit)
	}
	return placed, nil
}

// splitFree divides the L-shaped remainder of free around placed into two
// disjoint rectangles. Degenerate pieces are dropped.
func splitFree(free, placed geom.Rect, rule model.SplitRule) []geom.Rect {
	w := free.W - placed.W
	h := free.H - placed.H

	var horizontal bool
	switch rule {
	case model.SplitBottomFull:
		horizontal = true
	case model.SplitShorterLeftover:
		horizontal = w <= h
	case model.SplitMinimizeArea:
		horizontal = placed.W*h > w*placed.H
	default: // SplitRightFull
		horizontal = false
	}

	right := geom.NewRect(placed.Right(), free.Y, w, free.H)
	bottom := geom.NewRect(free.X, placed.Bottom(), placed.W, h)
	if horizontal {
		right.H = placed.H
		bottom.W = free.W
	}

	out := make([]geom.Rect, 0, 2)
	for _, r := range []geom.Rect{right, bottom} {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// pruneContained removes any rect that is fully contained within another.
// Of two identical rects the first one is kept.
func pruneContained(rects []geom.Rect) []geom.Rect {
	if len(rects) <= 1 {
		return rects
	}
	kept := rects[:0:0]
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j || !geom.Contains(b, a) {
				continue
			}
			if a == b && j > i {
				continue
			}
			contained = true
			break
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}

// mergeAdjacent joins pairs of free rects that share a full edge into one
// rect until no such pair is left.
func mergeAdjacent(rects []geom.Rect) []geom.Rect {
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(rects) && !merged; i++ {
			for j := i + 1; j < len(rects); j++ {
				if u, ok := union(rects[i], rects[j]); ok {
					rects[i] = u
					rects = slices.Delete(rects, j, j+1)
					merged = true
					break
				}
			}
		}
	}
	return rects
}

// union returns the rectangle covering a and b when together they form one.
func union(a, b geom.Rect) (geom.Rect, bool) {
	same := func(x, y float64) bool { return x-y <= geom.Epsilon && y-x <= geom.Epsilon }

	if same(a.X, b.X) && same(a.W, b.W) {
		if same(a.Bottom(), b.Y) {
			return geom.NewRect(a.X, a.Y, a.W, a.H+b.H), true
		}
		if same(b.Bottom(), a.Y) {
			return geom.NewRect(a.X, b.Y, a.W, a.H+b.H), true
		}
	}
	if same(a.Y, b.Y) && same(a.H, b.H) {
		if same(a.Right(), b.X) {
			return geom.NewRect(a.X, a.Y, a.W+b.W, a.H), true
		}
		if same(b.Right(), a.X) {
			return geom.NewRect(b.X, a.Y, a.W+b.W, a.H), true
		}
	}
	return geom.Rect{}, false
}
