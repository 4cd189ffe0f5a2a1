// Package export renders cut plans to files: a PDF cut sheet, QR-coded part
// labels, an XLSX cut list, a DXF layout and plain JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/model"
)

// Format is one supported export format.
type Format struct {
	Name        string
	ContentType string
	Extension   string
	write       func(w io.Writer, plan model.CutPlan) error
}

var formats = map[string]Format{
	"pdf": {
		Name:        "pdf",
		ContentType: "application/pdf",
		Extension:   ".pdf",
		write:       WritePDF,
	},
	"labels": {
		Name:        "labels",
		ContentType: "application/pdf",
		Extension:   ".pdf",
		write:       WriteLabels,
	},
	"xlsx": {
		Name:        "xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension:   ".xlsx",
		write:       WriteXLSX,
	},
	"dxf": {
		Name:        "dxf",
		ContentType: "application/dxf",
		Extension:   ".dxf",
		write:       WriteDXF,
	},
	"json": {
		Name:        "json",
		ContentType: "application/json",
		Extension:   ".json",
		write:       WriteJSON,
	},
}

// Formats returns the names of all formats, sorted.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a format by name (case-insensitive).
func Lookup(name string) (Format, error) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Format{}, errors.New(errors.ErrCodeUnsupported,
			"unknown export format %q (valid: %s)", name, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// Write renders plan to w.
func (f Format) Write(w io.Writer, plan model.CutPlan) error {
	return f.write(w, plan)
}

// Filename suggests a download name for plan.
func (f Format) Filename(plan model.CutPlan) string {
	id := plan.ID
	if len(id) > 8 {
		id = id[:8]
	}
	base := "cutplan"
	if id != "" {
		base += "-" + id
	}
	if f.Name == "labels" {
		base += "-labels"
	}
	return base + f.Extension
}

// WriteFile renders plan in the given format to path, creating parent
// directories as needed.
func WriteFile(format, path string, plan model.CutPlan) error {
	f, err := Lookup(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := f.Write(out, plan); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteJSON writes the plan as indented JSON.
func WriteJSON(w io.Writer, plan model.CutPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return nil
}
