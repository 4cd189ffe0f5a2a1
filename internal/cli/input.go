package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/cutplan/internal/api"
	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/importer"
	"github.com/piwi3910/cutplan/internal/model"
)

// jobFlags are the input flags shared by pack and compare.
type jobFlags struct {
	sheet     string
	parts     string
	heuristic string
	ordering  string
	split     string
	noRotate  bool
	merge     bool
	minOffcut float64
}

// parseSheet parses "WIDTHxHEIGHT" (x, X or * as separator).
func parseSheet(s string) (model.Sheet, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == 'x' || r == 'X' || r == '*'
	})
	if len(fields) != 2 {
		return model.Sheet{}, errors.New(errors.ErrCodeInvalidDimensions,
			"Invalid sheet %q: expected WIDTHxHEIGHT, e.g. 2000x1000", s)
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if errW != nil || errH != nil {
		return model.Sheet{}, errors.New(errors.ErrCodeInvalidDimensions,
			"Invalid sheet %q: width and height must be numbers", s)
	}
	return model.Sheet{Width: w, Height: h}, nil
}

// loadJob reads the part list and merges the flags into the configured
// options. A .json file holds a full cut request and may carry the sheet;
// every other format needs --sheet.
func (c *CLI) loadJob(f jobFlags, rotationChanged, mergeChanged bool) (api.Job, error) {
	if f.parts == "" {
		return api.Job{}, fmt.Errorf("--parts is required")
	}

	var req api.CutRequest
	if strings.EqualFold(filepath.Ext(f.parts), ".json") {
		data, err := os.ReadFile(f.parts)
		if err != nil {
			return api.Job{}, fmt.Errorf("failed to read %s: %w", f.parts, err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return api.Job{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "Invalid request file %s", f.parts)
		}
	} else {
		res := importer.ImportFile(f.parts)
		for _, w := range res.Warnings {
			c.Logger.Debug("Import", "file", f.parts, "note", w)
		}
		if err := res.Err(); err != nil {
			return api.Job{}, err
		}
		req.Elements = api.ElementsFromParts(res.Parts)
	}

	if f.sheet != "" {
		sheet, err := parseSheet(f.sheet)
		if err != nil {
			return api.Job{}, err
		}
		req.SheetWidth, req.SheetHeight = &sheet.Width, &sheet.Height
	}

	overrides := api.RequestOptions{
		Heuristic: f.heuristic,
		Ordering:  f.ordering,
		Split:     f.split,
	}
	if rotationChanged {
		allow := !f.noRotate
		overrides.AllowRotation = &allow
	}
	if mergeChanged {
		overrides.MergeFree = &f.merge
	}
	if f.minOffcut > 0 {
		overrides.MinOffcut = &f.minOffcut
	}

	base, err := req.Options.Apply(c.cfg.Packing)
	if err != nil {
		return api.Job{}, err
	}
	req.Options = &overrides
	return req.ToDomain(base)
}
