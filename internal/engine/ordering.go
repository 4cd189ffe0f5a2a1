package engine

import (
	"context"
	"slices"
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// order returns the parts in the sequence they are handed to the heuristic.
func (p *Packer) order(ctx context.Context, sheet model.Sheet, parts []model.Part) ([]model.Part, error) {
	switch p.Options.Ordering {
	case model.OrderAreaDesc:
		return sortByAreaDesc(parts), nil
	case model.OrderGenetic:
		return p.geneticOrder(ctx, sheet, parts)
	default: // OrderInput
		return parts, nil
	}
}

// sortByAreaDesc returns a copy of parts, largest area first. Parts of equal
// area keep their input order.
func sortByAreaDesc(parts []model.Part) []model.Part {
	sorted := slices.Clone(parts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Area() > sorted[j].Area()
	})
	return sorted
}
