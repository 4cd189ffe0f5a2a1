package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

const (
	cutListSheet = "Cut List"
	offcutSheet  = "Offcuts"
	summarySheet = "Summary"
)

var cutListHeader = []any{"ID", "Label", "X (mm)", "Y (mm)", "Width (mm)", "Height (mm)", "Rotated"}

// WriteXLSX writes a workbook with the cut list, the usable offcuts and a
// summary sheet.
func WriteXLSX(w io.Writer, plan model.CutPlan) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", cutListSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	rows := make([][]any, 0, len(plan.Placements))
	for _, p := range plan.Placements {
		rotated := "no"
		if p.Rotated {
			rotated = "yes"
		}
		rows = append(rows, []any{p.ID, p.Label, p.X, p.Y, p.Width, p.Height, rotated})
	}
	for _, id := range plan.Unplaced {
		rows = append(rows, []any{id, "UNPLACED"})
	}
	if err := writeTable(f, cutListSheet, cutListHeader, rows, bold); err != nil {
		return err
	}

	if _, err := f.NewSheet(offcutSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	rows = rows[:0]
	for _, o := range plan.Offcuts {
		rows = append(rows, []any{o.X, o.Y, o.Width, o.Height, o.Area()})
	}
	offcutHeader := []any{"X (mm)", "Y (mm)", "Width (mm)", "Height (mm)", "Area (mm²)"}
	if err := writeTable(f, offcutSheet, offcutHeader, rows, bold); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	summary := [][]any{
		{"Plan", plan.ID},
		{"Sheet width (mm)", plan.Sheet.Width},
		{"Sheet height (mm)", plan.Sheet.Height},
		{"Parts placed", len(plan.Placements)},
		{"Parts unplaced", len(plan.Unplaced)},
		{"Used area (mm²)", plan.UsedArea()},
		{"Waste (mm²)", plan.Waste},
		{"Efficiency (%)", plan.Efficiency()},
		{"Ordering", string(plan.Stats.Ordering)},
		{"Heuristic", string(plan.Stats.Heuristic)},
	}
	if err := writeTable(f, summarySheet, []any{"Metric", "Value"}, summary, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeTable writes a bold header row followed by rows, starting at A1.
func writeTable(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 14)
}
