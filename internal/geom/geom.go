// Package geom provides the axis-aligned rectangle primitives used by the
// packing engine. All values are sheet-relative millimeters with the origin
// at the top-left corner and Y growing downwards.
package geom

import "math"

// Epsilon is the tolerance used for all coordinate comparisons.
const Epsilon = 1e-9

// Point represents a 2D coordinate in mm.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// NewRect builds a rectangle from its top-left corner and size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the Y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Origin returns the top-left corner.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Empty reports whether the rectangle has no usable area.
func (r Rect) Empty() bool {
	return r.W <= Epsilon || r.H <= Epsilon
}

// Area returns the area of r.
func Area(r Rect) float64 {
	return r.W * r.H
}

// Contains reports whether inner lies fully inside outer. Shared edges count
// as inside.
func Contains(outer, inner Rect) bool {
	return outer.X <= inner.X+Epsilon &&
		outer.Y <= inner.Y+Epsilon &&
		outer.Right() >= inner.Right()-Epsilon &&
		outer.Bottom() >= inner.Bottom()-Epsilon
}

// Fits reports whether a w x h rectangle fits inside r when anchored at its
// top-left corner.
func Fits(r Rect, w, h float64) bool {
	return w <= r.W+Epsilon && h <= r.H+Epsilon
}

// Overlaps reports whether the interiors of a and b intersect. Rectangles
// that only touch along an edge or a corner do not overlap.
func Overlaps(a, b Rect) bool {
	return a.X < b.Right()-Epsilon && a.Right() > b.X+Epsilon &&
		a.Y < b.Bottom()-Epsilon && a.Bottom() > b.Y+Epsilon
}

// Intersect returns the common region of a and b, and false when their
// interiors are disjoint.
func Intersect(a, b Rect) (Rect, bool) {
	if !Overlaps(a, b) {
		return Rect{}, false
	}
	x := math.Max(a.X, b.X)
	y := math.Max(a.Y, b.Y)
	return Rect{
		X: x,
		Y: y,
		W: math.Min(a.Right(), b.Right()) - x,
		H: math.Min(a.Bottom(), b.Bottom()) - y,
	}, true
}

// Valid reports whether w and h are usable dimensions: finite and positive.
func Valid(w, h float64) bool {
	return positive(w) && positive(h)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
