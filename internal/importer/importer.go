// Package importer reads part lists from CSV, Excel and DXF files. CSV and
// Excel imports detect the delimiter and map columns by header name, matched
// case-insensitively against a list of aliases.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/model"
)

// MaxQuantity caps how many parts a single row may expand into.
const MaxQuantity = 10000

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Parts    []model.Part
	Errors   []string
	Warnings []string
}

// Err folds the collected row errors into one INVALID_INPUT error, or
// returns nil when the import was clean.
func (r ImportResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "import failed: %s", strings.Join(r.Errors, "; "))
}

// ColumnMapping maps semantic column roles to their indices in the data.
// A negative index means the column is absent.
type ColumnMapping struct {
	ID       int
	Label    int
	Width    int
	Height   int
	Quantity int
	Rotate   int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"id":       {"id", "ref", "reference", "part id", "#"},
	"label":    {"label", "name", "part", "part name", "description", "desc", "piece", "item"},
	"width":    {"width", "w", "length", "len", "x"},
	"height":   {"height", "h", "depth", "d", "y"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"rotate":   {"rotate", "rotation", "can rotate", "rotatable", "grain", "grain direction", "grain dir", "orientation"},
}

// ImportFile picks an importer by file extension.
func ImportFile(path string) ImportResult {
	switch kind(path) {
	case kindCSV:
		return ImportCSV(path)
	case kindExcel:
		return ImportExcel(path)
	case kindDXF:
		return ImportDXF(path)
	default:
		return unsupported(path)
	}
}

// ImportReader imports an uploaded file, picking the importer by the
// extension of name.
func ImportReader(name string, r io.Reader) ImportResult {
	switch kind(name) {
	case kindCSV:
		data, err := io.ReadAll(r)
		if err != nil {
			return ImportResult{Errors: []string{fmt.Sprintf("Cannot read file: %v", err)}}
		}
		return importCSVData(data)
	case kindExcel:
		return ImportExcelFromReader(r)
	case kindDXF:
		// The DXF parser only reads from disk.
		dir, err := os.MkdirTemp("", "cutplan-import-")
		if err != nil {
			return ImportResult{Errors: []string{fmt.Sprintf("Cannot buffer upload: %v", err)}}
		}
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "upload.dxf")
		if err := writeFile(path, r); err != nil {
			return ImportResult{Errors: []string{fmt.Sprintf("Cannot buffer upload: %v", err)}}
		}
		return ImportDXF(path)
	default:
		return unsupported(name)
	}
}

const (
	kindUnknown = iota
	kindCSV
	kindExcel
	kindDXF
)

func kind(name string) int {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return kindCSV
	case ".xlsx", ".xlsm":
		return kindExcel
	case ".dxf":
		return kindDXF
	default:
		return kindUnknown
	}
}

func unsupported(name string) ImportResult {
	return ImportResult{Errors: []string{fmt.Sprintf("Unsupported file type %q", filepath.Ext(name))}}
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping (Label, Width, Height, Quantity, Rotate) and false otherwise.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{ID: -1, Label: -1, Width: -1, Height: -1, Quantity: -1, Rotate: -1}
	slots := map[string]*int{
		"id":       &mapping.ID,
		"label":    &mapping.Label,
		"width":    &mapping.Width,
		"height":   &mapping.Height,
		"quantity": &mapping.Quantity,
		"rotate":   &mapping.Rotate,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				if slot := slots[role]; *slot == -1 {
					*slot = i
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{ID: -1, Label: 0, Width: 1, Height: 2, Quantity: 3, Rotate: 4}, false
	}
	return mapping, true
}

// parseNoRotate interprets a rotate or grain cell. A grain direction pins
// the part's orientation; "yes"/"none" style values leave it free.
// The second result reports whether the value was recognized.
func parseNoRotate(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yes", "y", "true", "1", "allow", "free", "none", "-":
		return false, true
	case "no", "false", "0", "fixed", "horizontal", "h", "vertical", "v":
		return true, true
	default:
		return false, false
	}
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts the parts described by one row, expanding its quantity.
// Returns the parts, any error message, and any warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, partCount int) ([]model.Part, string, string) {
	widthStr := getCell(row, mapping.Width)
	if widthStr == "" {
		return nil, fmt.Sprintf("%s: Missing width value", rowLabel), ""
	}
	width, err := strconv.ParseFloat(widthStr, 64)
	if err != nil {
		return nil, fmt.Sprintf("%s: Invalid width '%s'", rowLabel, widthStr), ""
	}

	heightStr := getCell(row, mapping.Height)
	if heightStr == "" {
		return nil, fmt.Sprintf("%s: Missing height value", rowLabel), ""
	}
	height, err := strconv.ParseFloat(heightStr, 64)
	if err != nil {
		return nil, fmt.Sprintf("%s: Invalid height '%s'", rowLabel, heightStr), ""
	}

	qty := 1
	if qtyStr := getCell(row, mapping.Quantity); qtyStr != "" {
		qty, err = strconv.Atoi(qtyStr)
		if err != nil {
			return nil, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), ""
		}
	}

	if width <= 0 || height <= 0 || qty <= 0 {
		return nil, fmt.Sprintf("%s: Width, height, and quantity must be positive", rowLabel), ""
	}
	if qty > MaxQuantity {
		return nil, fmt.Sprintf("%s: Quantity %d exceeds the limit of %d", rowLabel, qty, MaxQuantity), ""
	}

	var warning string
	rotStr := getCell(row, mapping.Rotate)
	noRotate, ok := parseNoRotate(rotStr)
	if !ok {
		warning = fmt.Sprintf("%s: Unknown rotation value '%s', allowing rotation", rowLabel, rotStr)
	}

	id := getCell(row, mapping.ID)
	label := getCell(row, mapping.Label)

	parts := make([]model.Part, 0, qty)
	for n := 1; n <= qty; n++ {
		p := model.NewPart(partID(id, n, qty, partCount+len(parts)), width, height)
		p.Label = label
		p.NoRotate = noRotate
		parts = append(parts, p)
	}
	return parts, "", warning
}

// partID names the n-th copy of a row. Rows without an id are numbered by
// their position in the imported list.
func partID(id string, n, qty, position int) string {
	switch {
	case id == "":
		return strconv.Itoa(position + 1)
	case qty == 1:
		return id
	default:
		return fmt.Sprintf("%s-%d", id, n)
	}
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports parts from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string) ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open file: %v", err)}}
	}
	return importCSVData(data)
}

func importCSVData(data []byte) ImportResult {
	if len(bytes.TrimSpace(data)) == 0 {
		return ImportResult{Errors: []string{"File is empty"}}
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	res := ImportCSVFromReader(bytes.NewReader(data), delimiter)
	res.Warnings = append(warnings, res.Warnings...)
	return res
}

// ImportCSVFromReader imports parts from a CSV reader with a specific delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line")
}

// ImportExcel imports parts from the first sheet of an Excel workbook.
func ImportExcel(path string) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

// ImportExcelFromReader imports parts from an Excel workbook stream.
func ImportExcelFromReader(r io.Reader) ImportResult {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

func importWorkbook(f *excelize.File) ImportResult {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{Errors: []string{"Excel file has no sheets"}}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read Excel data: %v", err)}}
	}

	if len(rows) == 0 {
		return ImportResult{Errors: []string{"Sheet is empty"}}
	}

	return importFromRows(rows, "Row")
}

// importFromRows is the shared import logic for both CSV and Excel data.
// It detects headers, maps columns, and parses each row into parts.
func importFromRows(rows [][]string, rowPrefix string) ImportResult {
	result := ImportResult{}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if mapping.Height == -1 {
			missing = append(missing, "Height")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		// A non-numeric width cell means an unrecognized header; skip it but
		// keep the positional mapping.
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		parts, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Parts))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Parts = append(result.Parts, parts...)
	}

	return result
}
