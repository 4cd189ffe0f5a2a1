package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	outer := NewRect(0, 0, 100, 50)

	tests := []struct {
		name  string
		inner Rect
		want  bool
	}{
		{"identical", NewRect(0, 0, 100, 50), true},
		{"strictly inside", NewRect(10, 10, 20, 20), true},
		{"touching right edge", NewRect(80, 0, 20, 50), true},
		{"sticks out right", NewRect(90, 0, 20, 10), false},
		{"sticks out bottom", NewRect(0, 45, 10, 10), false},
		{"negative origin", NewRect(-1, 0, 10, 10), false},
		{"float noise", NewRect(0.1+0.2, 0, 99.7, 50), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(outer, tt.inner))
		})
	}
}

func TestOverlaps(t *testing.T) {
	a := NewRect(0, 0, 10, 10)

	assert.True(t, Overlaps(a, NewRect(5, 5, 10, 10)))
	assert.True(t, Overlaps(a, NewRect(2, 2, 2, 2)), "containment is overlap")
	assert.False(t, Overlaps(a, NewRect(10, 0, 10, 10)), "shared vertical edge")
	assert.False(t, Overlaps(a, NewRect(0, 10, 10, 10)), "shared horizontal edge")
	assert.False(t, Overlaps(a, NewRect(10, 10, 5, 5)), "shared corner")
	assert.False(t, Overlaps(a, NewRect(20, 20, 5, 5)))
	// Symmetry
	assert.Equal(t, Overlaps(a, NewRect(5, -5, 10, 10)), Overlaps(NewRect(5, -5, 10, 10), a))
}

func TestIntersect(t *testing.T) {
	got, ok := Intersect(NewRect(0, 0, 10, 10), NewRect(5, 6, 10, 10))
	assert.True(t, ok)
	assert.Equal(t, NewRect(5, 6, 5, 4), got)

	_, ok = Intersect(NewRect(0, 0, 10, 10), NewRect(10, 0, 10, 10))
	assert.False(t, ok)
}

func TestAreaAndEdges(t *testing.T) {
	r := NewRect(5, 7, 500, 300)
	assert.Equal(t, 150000.0, Area(r))
	assert.Equal(t, 505.0, r.Right())
	assert.Equal(t, 307.0, r.Bottom())
	assert.Equal(t, Point{X: 5, Y: 7}, r.Origin())
	assert.False(t, r.Empty())
	assert.True(t, NewRect(0, 0, 0, 10).Empty())
}

func TestFits(t *testing.T) {
	r := NewRect(100, 100, 50, 20)
	assert.True(t, Fits(r, 50, 20))
	assert.True(t, Fits(r, 10, 10))
	assert.False(t, Fits(r, 20, 50))
	assert.False(t, Fits(r, 50.1, 20))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(1, 1))
	assert.False(t, Valid(0, 1))
	assert.False(t, Valid(1, -1))
	assert.False(t, Valid(math.NaN(), 1))
	assert.False(t, Valid(1, math.Inf(1)))
}
