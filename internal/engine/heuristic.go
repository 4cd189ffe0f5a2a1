package engine

import (
	"iter"
	"math"

	"github.com/piwi3910/cutplan/internal/geom"
	"github.com/piwi3910/cutplan/internal/model"
)

// scoreFunc rates a candidate; lower is better.
type scoreFunc func(c Candidate) float64

func scoreBestArea(c Candidate) float64 {
	return c.Leftover()
}

func scoreBestShort(c Candidate) float64 {
	return math.Min(c.Free.W-c.Width, c.Free.H-c.Height)
}

func scoreBestLong(c Candidate) float64 {
	return math.Max(c.Free.W-c.Width, c.Free.H-c.Height)
}

func scorerFor(h model.Heuristic) scoreFunc {
	switch h {
	case model.HeuristicBestShortSideFit:
		return scoreBestShort
	case model.HeuristicBestLongSideFit:
		return scoreBestLong
	default: // HeuristicBestAreaFit
		return scoreBestArea
	}
}

// Select picks one candidate according to the heuristic, or reports false
// when the sequence is empty.
//
// Scored heuristics keep the lowest score. Ties go to the candidate closest to
// the top of the sheet, then closest to the left edge, then the upright
// orientation. FirstFit takes the first candidate in scan order.
func Select(h model.Heuristic, candidates iter.Seq[Candidate]) (Candidate, bool) {
	if h == model.HeuristicFirstFit {
		for c := range candidates {
			return c, true
		}
		return Candidate{}, false
	}

	score := scorerFor(h)
	var best Candidate
	bestScore := math.Inf(1)
	found := false

	for c := range candidates {
		s := score(c)
		if !found || better(c, s, best, bestScore) {
			best, bestScore, found = c, s, true
		}
	}
	return best, found
}

// better reports whether candidate c with score s beats the current best.
func better(c Candidate, s float64, best Candidate, bestScore float64) bool {
	if s < bestScore-geom.Epsilon {
		return true
	}
	if s > bestScore+geom.Epsilon {
		return false
	}
	if c.Free.Y != best.Free.Y {
		return c.Free.Y < best.Free.Y
	}
	if c.Free.X != best.Free.X {
		return c.Free.X < best.Free.X
	}
	return !c.Rotated && best.Rotated
}
