package model

import (
	"fmt"

	"github.com/piwi3910/cutplan/internal/geom"
)

// Sheet is the stock board parts are cut from.
type Sheet struct {
	Width  float64 `json:"width"`  // mm
	Height float64 `json:"height"` // mm
}

// Rect returns the sheet as a rectangle anchored at the origin.
func (s Sheet) Rect() geom.Rect {
	return geom.NewRect(0, 0, s.Width, s.Height)
}

// Area returns the sheet area in square mm.
func (s Sheet) Area() float64 {
	return s.Width * s.Height
}

func (s Sheet) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// Part represents a required piece to be cut.
type Part struct {
	ID       string  `json:"id"`
	Label    string  `json:"label,omitempty"`
	Width    float64 `json:"width"`  // mm
	Height   float64 `json:"height"` // mm
	NoRotate bool    `json:"no_rotate,omitempty"`
}

// NewPart creates a rotatable part.
func NewPart(id string, w, h float64) Part {
	return Part{ID: id, Width: w, Height: h}
}

// Area returns the part area in square mm.
func (p Part) Area() float64 {
	return p.Width * p.Height
}

// DisplayName returns the label when set, the id otherwise.
func (p Part) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return p.ID
}

// Placement represents a single part placed on the sheet. Width and Height
// are the dimensions as placed, already swapped when Rotated is set.
type Placement struct {
	ID      string  `json:"id"`
	Label   string  `json:"label,omitempty"`
	X       float64 `json:"x"` // Position from left edge (mm)
	Y       float64 `json:"y"` // Position from top edge (mm)
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Rotated bool    `json:"rotated"` // Whether part was rotated 90°
}

// Rect returns the area occupied by the placement.
func (p Placement) Rect() geom.Rect {
	return geom.NewRect(p.X, p.Y, p.Width, p.Height)
}

// Area returns the placed area in square mm.
func (p Placement) Area() float64 {
	return p.Width * p.Height
}

// Stats records how much work a packing run did.
type Stats struct {
	Ordering      Ordering  `json:"ordering"`
	Heuristic     Heuristic `json:"heuristic"`
	PeakFreeRects int       `json:"peak_free_rects"`
}

// CutPlan is the result of one packing run.
type CutPlan struct {
	ID         string      `json:"id"`
	Sheet      Sheet       `json:"sheet"`
	Placements []Placement `json:"placements"`
	Unplaced   []string    `json:"unplaced"`
	Waste      float64     `json:"waste"` // sheet area minus placed area (mm²)
	Offcuts    []Offcut    `json:"offcuts,omitempty"`
	Stats      Stats       `json:"stats"`
}

// UsedArea returns the total area used by placed parts.
func (cp CutPlan) UsedArea() float64 {
	var total float64
	for _, p := range cp.Placements {
		total += p.Area()
	}
	return total
}

// Efficiency returns the usage percentage.
func (cp CutPlan) Efficiency() float64 {
	ta := cp.Sheet.Area()
	if ta == 0 {
		return 0
	}
	return (cp.UsedArea() / ta) * 100.0
}

// Complete reports whether every part was placed.
func (cp CutPlan) Complete() bool {
	return len(cp.Unplaced) == 0
}
