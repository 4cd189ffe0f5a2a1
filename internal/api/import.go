package api

import (
	"encoding/json"

	"github.com/piwi3910/cutplan/internal/model"
)

// ImportResponse is the body of POST /furniture/cut/import. Elements can be
// sent back unchanged as the elements of a CutRequest.
type ImportResponse struct {
	Elements []Element `json:"elements"`
	Warnings []string  `json:"warnings,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
}

// ElementsFromParts converts imported parts to request elements.
func ElementsFromParts(parts []model.Part) []Element {
	elements := make([]Element, 0, len(parts))
	for _, p := range parts {
		id, _ := json.Marshal(p.ID)
		w, h := p.Width, p.Height
		el := Element{ID: id, Label: p.Label, Width: &w, Height: &h}
		if p.NoRotate {
			rotate := false
			el.Rotate = &rotate
		}
		elements = append(elements, el)
	}
	return elements
}
