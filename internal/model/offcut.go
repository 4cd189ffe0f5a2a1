package model

import (
	"sort"

	"github.com/piwi3910/cutplan/internal/geom"
)

// Offcut represents a usable rectangular remnant area left over after cutting.
type Offcut struct {
	X      float64 `json:"x"`      // Position on the sheet (mm from left)
	Y      float64 `json:"y"`      // Position on the sheet (mm from top)
	Width  float64 `json:"width"`  // Usable width (mm)
	Height float64 `json:"height"` // Usable height (mm)
}

// Area returns the area of the offcut in square mm.
func (o Offcut) Area() float64 {
	return o.Width * o.Height
}

// ToSheet converts an offcut into a sheet so it can be packed again.
func (o Offcut) ToSheet() Sheet {
	return Sheet{Width: o.Width, Height: o.Height}
}

// SelectOffcuts keeps the free rectangles whose width and height are both at
// least minDim, largest first. Equal areas are ordered top-left first so the
// result is stable. A non-positive minDim reports nothing.
func SelectOffcuts(free []geom.Rect, minDim float64) []Offcut {
	if minDim <= 0 {
		return nil
	}
	var offcuts []Offcut
	for _, r := range free {
		if r.W+geom.Epsilon >= minDim && r.H+geom.Epsilon >= minDim {
			offcuts = append(offcuts, Offcut{X: r.X, Y: r.Y, Width: r.W, Height: r.H})
		}
	}
	sort.SliceStable(offcuts, func(i, j int) bool {
		ai, aj := offcuts[i].Area(), offcuts[j].Area()
		if ai != aj {
			return ai > aj
		}
		if offcuts[i].Y != offcuts[j].Y {
			return offcuts[i].Y < offcuts[j].Y
		}
		return offcuts[i].X < offcuts[j].X
	})
	return offcuts
}
