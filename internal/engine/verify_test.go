package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/model"
)

func validPlan() (model.CutPlan, []model.Part) {
	parts := []model.Part{
		model.NewPart("a", 50, 40),
		model.NewPart("b", 30, 20),
		model.NewPart("c", 500, 500),
	}
	plan := model.CutPlan{
		Sheet: model.Sheet{Width: 100, Height: 100},
		Placements: []model.Placement{
			{ID: "a", X: 0, Y: 0, Width: 50, Height: 40},
			{ID: "b", X: 50, Y: 0, Width: 20, Height: 30, Rotated: true},
		},
		Unplaced: []string{"c"},
	}
	plan.Waste = plan.Sheet.Area() - plan.UsedArea()
	return plan, parts
}

func kinds(vs []Violation) []ViolationKind {
	out := make([]ViolationKind, len(vs))
	for i, v := range vs {
		out[i] = v.Kind
	}
	return out
}

func TestVerify_ValidPlan(t *testing.T) {
	plan, parts := validPlan()
	assert.Empty(t, Violations(plan, parts, true))
	assert.NoError(t, Verify(plan, parts, true))
}

func TestVerify_TouchingEdgesAreNotOverlap(t *testing.T) {
	plan, parts := validPlan()
	// b sits flush against a's right edge.
	require.Equal(t, plan.Placements[0].Rect().Right(), plan.Placements[1].X)
	assert.Empty(t, Violations(plan, parts, true))
}

func TestVerify_Overlap(t *testing.T) {
	plan, parts := validPlan()
	plan.Placements[1].X = 40

	vs := Violations(plan, parts, true)
	require.Equal(t, []ViolationKind{ViolationOverlap}, kinds(vs))
	assert.Equal(t, []string{"a", "b"}, vs[0].IDs)
	assert.Equal(t, "parts a and b overlap in 10 x 30 at (40, 0)", vs[0].Msg)

	err := Verify(plan, parts, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInternal))
}

func TestVerify_OutOfBounds(t *testing.T) {
	plan, parts := validPlan()
	plan.Placements[1].Y = 90

	assert.Equal(t, []ViolationKind{ViolationOutOfBounds}, kinds(Violations(plan, parts, true)))
}

func TestVerify_SizeMismatch(t *testing.T) {
	plan, parts := validPlan()
	plan.Placements[1].Rotated = false

	assert.Equal(t, []ViolationKind{ViolationSize}, kinds(Violations(plan, parts, true)))
}

func TestVerify_RotationNotAllowed(t *testing.T) {
	plan, parts := validPlan()

	assert.Equal(t, []ViolationKind{ViolationRotation}, kinds(Violations(plan, parts, false)))

	parts[1].NoRotate = true
	assert.Equal(t, []ViolationKind{ViolationRotation}, kinds(Violations(plan, parts, true)))
}

func TestVerify_MissingAndDuplicate(t *testing.T) {
	plan, parts := validPlan()
	plan.Unplaced = []string{"a"}

	vs := Violations(plan, parts, true)
	assert.ElementsMatch(t, []ViolationKind{ViolationDuplicate, ViolationMissing}, kinds(vs))
}

func TestVerify_UnknownPart(t *testing.T) {
	plan, parts := validPlan()
	plan.Unplaced = append(plan.Unplaced, "zzz")

	assert.Equal(t, []ViolationKind{ViolationUnknown}, kinds(Violations(plan, parts, true)))
}

func TestVerify_WasteMismatch(t *testing.T) {
	plan, parts := validPlan()
	plan.Waste = 1

	assert.Equal(t, []ViolationKind{ViolationWaste}, kinds(Violations(plan, parts, true)))
}
