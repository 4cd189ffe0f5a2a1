package model

import (
	"fmt"
	"strings"
	"time"
)

// Heuristic selects how the engine scores candidate free rectangles.
type Heuristic string

const (
	HeuristicBestAreaFit      Heuristic = "best-area-fit"       // Smallest leftover area (default)
	HeuristicBestShortSideFit Heuristic = "best-short-side-fit" // Smallest leftover on the shorter side
	HeuristicBestLongSideFit  Heuristic = "best-long-side-fit"  // Smallest leftover on the longer side
	HeuristicFirstFit         Heuristic = "first-fit"           // First free rectangle in scan order
)

// Heuristics lists every supported heuristic.
var Heuristics = []Heuristic{
	HeuristicBestAreaFit,
	HeuristicBestShortSideFit,
	HeuristicBestLongSideFit,
	HeuristicFirstFit,
}

// Ordering selects the order in which parts are fed to the heuristic.
type Ordering string

const (
	OrderInput    Ordering = "input"     // Request order, no reordering (default)
	OrderAreaDesc Ordering = "area-desc" // Largest area first, stable
	OrderGenetic  Ordering = "genetic"   // Genetic search over part orderings
)

// Orderings lists every supported ordering.
var Orderings = []Ordering{OrderInput, OrderAreaDesc, OrderGenetic}

// SplitRule selects how a free rectangle is divided after a placement.
type SplitRule string

const (
	// SplitRightFull keeps the right remainder at full height and limits the
	// bottom remainder to the placed width.
	SplitRightFull SplitRule = "right-full"
	// SplitBottomFull keeps the bottom remainder at full width and limits the
	// right remainder to the placed height.
	SplitBottomFull SplitRule = "bottom-full"
	// SplitShorterLeftover cuts along the shorter leftover axis.
	SplitShorterLeftover SplitRule = "shorter-leftover"
	// SplitMinimizeArea makes the larger of the two remainders as big as possible.
	SplitMinimizeArea SplitRule = "minimize-area"
)

// SplitRules lists every supported split rule.
var SplitRules = []SplitRule{SplitRightFull, SplitBottomFull, SplitShorterLeftover, SplitMinimizeArea}

// GeneticSettings holds parameters for the genetic ordering search.
type GeneticSettings struct {
	PopulationSize int     `json:"population_size" toml:"population_size"`
	Generations    int     `json:"generations" toml:"generations"`
	MutationRate   float64 `json:"mutation_rate" toml:"mutation_rate"`
	TournamentSize int     `json:"tournament_size" toml:"tournament_size"`
	EliteCount     int     `json:"elite_count" toml:"elite_count"`
	Seed           int64   `json:"seed" toml:"seed"`
}

// DefaultGeneticSettings returns sensible default parameters.
func DefaultGeneticSettings() GeneticSettings {
	return GeneticSettings{
		PopulationSize: 30,
		Generations:    60,
		MutationRate:   0.15,
		TournamentSize: 3,
		EliteCount:     2,
		Seed:           42,
	}
}

// Options configures one packing run.
type Options struct {
	Heuristic     Heuristic       `json:"heuristic" toml:"heuristic"`
	Ordering      Ordering        `json:"ordering" toml:"ordering"`
	Split         SplitRule       `json:"split" toml:"split"`
	AllowRotation bool            `json:"allow_rotation" toml:"allow_rotation"`
	MergeFree     bool            `json:"merge_free" toml:"merge_free"`         // Merge adjacent free rectangles after each cut
	MaxFreeRects  int             `json:"max_free_rects" toml:"max_free_rects"` // 0 = unlimited
	Timeout       time.Duration   `json:"timeout" toml:"timeout"`               // 0 = no deadline
	MinOffcut     float64         `json:"min_offcut" toml:"min_offcut"`         // mm, 0 = report no offcuts
	Genetic       GeneticSettings `json:"genetic" toml:"genetic"`
}

// MinOffcutDimension is the default minimum width and height (in mm) for a
// remnant to be reported as a usable offcut.
const MinOffcutDimension = 50.0

// DefaultOptions returns the options used when a request does not override them.
func DefaultOptions() Options {
	return Options{
		Heuristic:     HeuristicBestAreaFit,
		Ordering:      OrderInput,
		Split:         SplitRightFull,
		AllowRotation: true,
		MergeFree:     false,
		MaxFreeRects:  10000,
		Timeout:       5 * time.Second,
		MinOffcut:     MinOffcutDimension,
		Genetic:       DefaultGeneticSettings(),
	}
}

// ParseHeuristic converts a name (case-insensitive) to a Heuristic.
func ParseHeuristic(s string) (Heuristic, error) {
	h := Heuristic(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Heuristics {
		if h == known {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown heuristic %q (valid: %s)", s, joinNames(Heuristics))
}

// ParseOrdering converts a name (case-insensitive) to an Ordering.
func ParseOrdering(s string) (Ordering, error) {
	o := Ordering(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Orderings {
		if o == known {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown ordering %q (valid: %s)", s, joinNames(Orderings))
}

// ParseSplitRule converts a name (case-insensitive) to a SplitRule.
func ParseSplitRule(s string) (SplitRule, error) {
	r := SplitRule(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SplitRules {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown split rule %q (valid: %s)", s, joinNames(SplitRules))
}

// Normalize returns o with every strategy name in canonical form. Empty
// names stay empty and select the defaults; unknown names are an error.
func (o Options) Normalize() (Options, error) {
	var err error
	if o.Heuristic != "" {
		if o.Heuristic, err = ParseHeuristic(string(o.Heuristic)); err != nil {
			return Options{}, err
		}
	}
	if o.Ordering != "" {
		if o.Ordering, err = ParseOrdering(string(o.Ordering)); err != nil {
			return Options{}, err
		}
	}
	if o.Split != "" {
		if o.Split, err = ParseSplitRule(string(o.Split)); err != nil {
			return Options{}, err
		}
	}
	return o, nil
}

func joinNames[T ~string](names []T) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
