package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/cutplan/internal/model"
)

// DXF layer names.
const (
	LayerSheet   = "SHEET"
	LayerParts   = "PARTS"
	LayerLabels  = "LABELS"
	LayerOffcuts = "OFFCUTS"
)

// WriteDXF writes the layout as a DXF drawing. DXF has its Y axis pointing
// up, so plan coordinates (origin top-left) are flipped against the sheet
// height.
func WriteDXF(w io.Writer, plan model.CutPlan) error {
	d := dxf.NewDrawing()

	layers := []struct {
		name string
		col  color.ColorNumber
	}{
		{LayerSheet, color.White},
		{LayerParts, color.Green},
		{LayerLabels, color.Yellow},
		{LayerOffcuts, color.Cyan},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.col, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", l.name, err)
		}
	}

	sheetH := plan.Sheet.Height
	flip := func(y float64) float64 { return sheetH - y }

	if err := d.ChangeLayer(LayerSheet); err != nil {
		return err
	}
	if err := drawRect(d, 0, 0, plan.Sheet.Width, sheetH); err != nil {
		return err
	}

	if err := d.ChangeLayer(LayerOffcuts); err != nil {
		return err
	}
	for _, o := range plan.Offcuts {
		if err := drawRect(d, o.X, flip(o.Y+o.Height), o.Width, o.Height); err != nil {
			return err
		}
	}

	if err := d.ChangeLayer(LayerParts); err != nil {
		return err
	}
	for _, p := range plan.Placements {
		if err := drawRect(d, p.X, flip(p.Y+p.Height), p.Width, p.Height); err != nil {
			return err
		}
	}

	if err := d.ChangeLayer(LayerLabels); err != nil {
		return err
	}
	for _, p := range plan.Placements {
		size := min(p.Width, p.Height) / 8
		if size <= 0 {
			continue
		}
		if _, err := d.Text(placementName(p), p.X+size/2, flip(p.Y+p.Height)+size/2, 0, size); err != nil {
			return fmt.Errorf("failed to add label for %s: %w", p.ID, err)
		}
	}

	return saveDrawing(d, w)
}

// drawRect outlines an axis-aligned rectangle with four lines, the way CAM
// tools expect closed cut paths on a layer.
func drawRect(d *drawing.Drawing, x, y, w, h float64) error {
	corners := [][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		if _, err := d.Line(a[0], a[1], 0, b[0], b[1], 0); err != nil {
			return fmt.Errorf("failed to draw line: %w", err)
		}
	}
	return nil
}

// saveDrawing goes through a temporary file because the drawing only
// knows how to save to a path.
func saveDrawing(d *drawing.Drawing, w io.Writer) error {
	dir, err := os.MkdirTemp("", "cutplan-dxf-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "plan.dxf")
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save DXF: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy DXF: %w", err)
	}
	return nil
}
