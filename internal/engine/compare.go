package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/logging"
	"github.com/piwi3910/cutplan/internal/model"
)

// Scenario is a named option set to compare.
type Scenario struct {
	Name    string        `json:"name"`
	Options model.Options `json:"options"`
}

// ComparisonResult holds the plan and summary figures for one scenario. When
// the scenario ran out of resources Err is set and Plan is empty.
type ComparisonResult struct {
	Scenario     Scenario      `json:"scenario"`
	Plan         model.CutPlan `json:"plan"`
	Placed       int           `json:"placed"`
	Unplaced     int           `json:"unplaced"`
	Efficiency   float64       `json:"efficiency"`
	WastePercent float64       `json:"waste_percent"`
	Offcuts      int           `json:"offcuts"`
	Err          string        `json:"error,omitempty"`
}

// CompareStrategies packs the same input once per scenario, concurrently, and
// returns the results in scenario order. Every run uses its own tracker.
//
// Invalid input fails the whole comparison. A scenario that exceeds its
// resource limits is reported through ComparisonResult.Err instead.
func CompareStrategies(ctx context.Context, sheet model.Sheet, parts []model.Part, scenarios []Scenario) ([]ComparisonResult, error) {
	if _, err := Validate(sheet, parts); err != nil {
		return nil, err
	}

	results := make([]ComparisonResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	for i, scenario := range scenarios {
		g.Go(func() error {
			plan, err := Pack(gctx, sheet, parts, scenario.Options)
			if err != nil {
				if errors.Is(err, errors.ErrCodeResourceExceeded) {
					results[i] = ComparisonResult{Scenario: scenario, Err: errors.UserMessage(err)}
					return nil
				}
				return fmt.Errorf("scenario %q: %w", scenario.Name, err)
			}
			results[i] = summarize(scenario, plan)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("compared strategies", "scenarios", len(scenarios), "parts", len(parts))
	return results, nil
}

func summarize(scenario Scenario, plan model.CutPlan) ComparisonResult {
	eff := plan.Efficiency()
	return ComparisonResult{
		Scenario:     scenario,
		Plan:         plan,
		Placed:       len(plan.Placements),
		Unplaced:     len(plan.Unplaced),
		Efficiency:   eff,
		WastePercent: 100.0 - eff,
		Offcuts:      len(plan.Offcuts),
	}
}

// Best returns the index of the result that places the most parts, then has
// the highest efficiency, then the most offcuts. Earlier scenarios win ties.
// It returns -1 when no scenario succeeded.
func Best(results []ComparisonResult) int {
	best := -1
	for i, r := range results {
		if r.Err != "" {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := results[best]
		switch {
		case r.Placed != b.Placed:
			if r.Placed > b.Placed {
				best = i
			}
		case r.Efficiency != b.Efficiency:
			if r.Efficiency > b.Efficiency {
				best = i
			}
		case r.Offcuts > b.Offcuts:
			best = i
		}
	}
	return best
}

// BuildDefaultScenarios generates what-if alternatives around the base
// options: the other orderings, the other scored heuristics, the other split
// rules, free-rectangle merging and rotation.
func BuildDefaultScenarios(base model.Options) []Scenario {
	scenarios := []Scenario{{Name: "Current Settings", Options: base}}

	for _, o := range model.Orderings {
		if o == orderingOrDefault(base.Ordering) {
			continue
		}
		alt := base
		alt.Ordering = o
		scenarios = append(scenarios, Scenario{Name: fmt.Sprintf("Ordering %s", o), Options: alt})
	}

	for _, h := range model.Heuristics {
		if h == heuristicOrDefault(base.Heuristic) || h == model.HeuristicFirstFit {
			continue
		}
		alt := base
		alt.Heuristic = h
		scenarios = append(scenarios, Scenario{Name: fmt.Sprintf("Heuristic %s", h), Options: alt})
	}

	for _, s := range model.SplitRules {
		if s == base.Split || (base.Split == "" && s == model.SplitRightFull) {
			continue
		}
		alt := base
		alt.Split = s
		scenarios = append(scenarios, Scenario{Name: fmt.Sprintf("Split %s", s), Options: alt})
	}

	merge := base
	merge.MergeFree = !base.MergeFree
	name := "Merge Free Rectangles"
	if base.MergeFree {
		name = "No Free Rectangle Merge"
	}
	scenarios = append(scenarios, Scenario{Name: name, Options: merge})

	if base.AllowRotation {
		noRot := base
		noRot.AllowRotation = false
		scenarios = append(scenarios, Scenario{Name: "No Rotation", Options: noRot})
	}

	return scenarios
}
