package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/model"
)

// badOrderParts places only one part in input order: the square takes the
// corner and the long strip no longer fits without rotation.
func badOrderParts() []model.Part {
	return []model.Part{
		model.NewPart("square", 50, 50),
		model.NewPart("strip", 100, 50),
	}
}

func geneticOptions() model.Options {
	opts := model.DefaultOptions()
	opts.AllowRotation = false
	opts.Ordering = model.OrderGenetic
	opts.Genetic.Generations = 10
	return opts
}

func TestGeneticOrder_BeatsInputOrder(t *testing.T) {
	sheet := model.Sheet{Width: 100, Height: 100}

	inputOpts := geneticOptions()
	inputOpts.Ordering = model.OrderInput
	plan, err := Pack(context.Background(), sheet, badOrderParts(), inputOpts)
	require.NoError(t, err)
	require.Len(t, plan.Placements, 1)

	plan, err = Pack(context.Background(), sheet, badOrderParts(), geneticOptions())
	require.NoError(t, err)
	assert.Len(t, plan.Placements, 2)
	assert.Empty(t, plan.Unplaced)
	assert.Equal(t, model.OrderGenetic, plan.Stats.Ordering)
}

func TestGeneticOrder_Deterministic(t *testing.T) {
	parts := []model.Part{
		model.NewPart("a", 700, 400),
		model.NewPart("b", 300, 650),
		model.NewPart("c", 900, 200),
		model.NewPart("d", 450, 450),
		model.NewPart("e", 1200, 300),
		model.NewPart("f", 250, 250),
	}
	p := New(geneticOptions())
	sheet := model.Sheet{Width: 2000, Height: 1000}

	first, err := p.geneticOrder(context.Background(), sheet, parts)
	require.NoError(t, err)
	second, err := p.geneticOrder(context.Background(), sheet, parts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.ElementsMatch(t, parts, first)
}

func TestGeneticOrder_SinglePart(t *testing.T) {
	parts := []model.Part{model.NewPart("only", 10, 10)}
	got, err := New(geneticOptions()).geneticOrder(context.Background(), model.Sheet{Width: 20, Height: 20}, parts)
	require.NoError(t, err)
	assert.Equal(t, parts, got)
}

func TestGeneticOrder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(geneticOptions()).geneticOrder(ctx, model.Sheet{Width: 100, Height: 100}, badOrderParts())
	assert.Error(t, err)
}

func TestOrderCrossover_IsPermutation(t *testing.T) {
	g := &geneticSearch{config: model.DefaultGeneticSettings()}
	g.rng = newTestRand()

	p1 := chromosome{order: []int{0, 1, 2, 3, 4, 5, 6, 7}}
	p2 := chromosome{order: []int{7, 6, 5, 4, 3, 2, 1, 0}}
	for i := 0; i < 50; i++ {
		child := g.orderCrossover(p1, p2)
		g.mutate(&child)
		assert.ElementsMatch(t, p1.order, child.order)
	}
}

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}
