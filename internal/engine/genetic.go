package engine

import (
	"context"
	"math/rand"
	"sort"

	"github.com/piwi3910/cutplan/internal/logging"
	"github.com/piwi3910/cutplan/internal/model"
)

// chromosome is a candidate part ordering, stored as indices into the input.
type chromosome struct {
	order   []int
	fitness float64
}

// geneticSearch looks for a part ordering that places more parts (and then
// more area) than the simple orderings. It is seeded, so the same input always
// yields the same ordering.
type geneticSearch struct {
	packer *Packer
	sheet  model.Sheet
	parts  []model.Part
	config model.GeneticSettings
	rng    *rand.Rand
	cache  map[string]float64
}

// geneticOrder runs the search and returns the parts in the best order found.
// The input order and the area-descending order are both part of the initial
// population, so the result is never worse than either of them.
func (p *Packer) geneticOrder(ctx context.Context, sheet model.Sheet, parts []model.Part) ([]model.Part, error) {
	if len(parts) < 2 {
		return parts, nil
	}

	config := p.Options.Genetic
	if config.PopulationSize < 2 {
		config.PopulationSize = model.DefaultGeneticSettings().PopulationSize
	}
	if config.TournamentSize < 1 {
		config.TournamentSize = 1
	}
	if config.EliteCount > config.PopulationSize {
		config.EliteCount = config.PopulationSize
	}

	g := &geneticSearch{
		packer: p,
		sheet:  sheet,
		parts:  parts,
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		cache:  make(map[string]float64),
	}
	best, err := g.optimize(ctx)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("genetic ordering done",
		"parts", len(parts),
		"generations", config.Generations,
		"fitness", best.fitness)
	return g.decode(best), nil
}

func (g *geneticSearch) optimize(ctx context.Context) (chromosome, error) {
	population := g.initPopulation()
	if err := g.evaluateAll(ctx, population); err != nil {
		return chromosome{}, err
	}

	for gen := 0; gen < g.config.Generations; gen++ {
		sortByFitness(population)

		next := make([]chromosome, 0, g.config.PopulationSize)
		for i := 0; i < g.config.EliteCount; i++ {
			next = append(next, copyChromosome(population[i]))
		}

		for len(next) < g.config.PopulationSize {
			parent1 := g.tournamentSelect(population)
			parent2 := g.tournamentSelect(population)

			child := g.orderCrossover(parent1, parent2)
			g.mutate(&child)
			child.fitness = -1
			next = append(next, child)
		}

		if err := g.evaluateAll(ctx, next); err != nil {
			return chromosome{}, err
		}
		population = next
	}

	sortByFitness(population)
	return population[0], nil
}

// initPopulation seeds the input order and the area-descending order and
// fills the rest with random permutations.
func (g *geneticSearch) initPopulation() []chromosome {
	n := len(g.parts)
	population := make([]chromosome, 0, g.config.PopulationSize)

	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}
	population = append(population, chromosome{order: identity, fitness: -1})

	byArea := append([]int(nil), identity...)
	sort.SliceStable(byArea, func(i, j int) bool {
		return g.parts[byArea[i]].Area() > g.parts[byArea[j]].Area()
	})
	population = append(population, chromosome{order: byArea, fitness: -1})

	for len(population) < g.config.PopulationSize {
		population = append(population, chromosome{order: g.rng.Perm(n), fitness: -1})
	}
	return population
}

func (g *geneticSearch) evaluateAll(ctx context.Context, population []chromosome) error {
	for i := range population {
		if population[i].fitness >= 0 {
			continue
		}
		f, err := g.evaluate(ctx, population[i])
		if err != nil {
			return err
		}
		population[i].fitness = f
	}
	return nil
}

// evaluate packs the parts in chromosome order. Placed count dominates; the
// placed share of the sheet area breaks ties.
func (g *geneticSearch) evaluate(ctx context.Context, c chromosome) (float64, error) {
	key := orderKey(c.order)
	if f, ok := g.cache[key]; ok {
		return f, nil
	}

	res, err := g.packer.run(ctx, g.sheet, g.decode(c))
	if err != nil {
		return 0, err
	}
	f := float64(len(res.placements)) + res.placedArea/g.sheet.Area()
	g.cache[key] = f
	return f, nil
}

func (g *geneticSearch) decode(c chromosome) []model.Part {
	ordered := make([]model.Part, len(c.order))
	for i, idx := range c.order {
		ordered[i] = g.parts[idx]
	}
	return ordered
}

// tournamentSelect picks the best individual from a random tournament.
func (g *geneticSearch) tournamentSelect(population []chromosome) chromosome {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.config.TournamentSize; i++ {
		candidate := population[g.rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return copyChromosome(best)
}

// orderCrossover implements Order Crossover (OX1): a segment of parent1 is
// kept in place and the remaining positions are filled in parent2's order.
func (g *geneticSearch) orderCrossover(parent1, parent2 chromosome) chromosome {
	n := len(parent1.order)
	if n <= 2 {
		return copyChromosome(parent1)
	}

	point1 := g.rng.Intn(n)
	point2 := g.rng.Intn(n)
	if point1 > point2 {
		point1, point2 = point2, point1
	}

	child := chromosome{order: make([]int, n)}
	inSegment := make([]bool, n)
	for i := point1; i <= point2; i++ {
		child.order[i] = parent1.order[i]
		inSegment[parent1.order[i]] = true
	}

	childIdx := (point2 + 1) % n
	for _, idx := range parent2.order {
		if !inSegment[idx] {
			child.order[childIdx] = idx
			childIdx = (childIdx + 1) % n
		}
	}
	return child
}

// mutate applies swap and inversion mutations.
func (g *geneticSearch) mutate(c *chromosome) {
	n := len(c.order)
	if n < 2 {
		return
	}

	if g.rng.Float64() < g.config.MutationRate {
		i := g.rng.Intn(n)
		j := g.rng.Intn(n)
		c.order[i], c.order[j] = c.order[j], c.order[i]
	}

	if g.rng.Float64() < g.config.MutationRate*0.5 {
		i := g.rng.Intn(n)
		j := g.rng.Intn(n)
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.order[i], c.order[j] = c.order[j], c.order[i]
			i++
			j--
		}
	}
}

func copyChromosome(c chromosome) chromosome {
	return chromosome{order: append([]int(nil), c.order...), fitness: c.fitness}
}

// sortByFitness orders the population best first. Stable, so equal
// individuals keep their relative order across runs.
func sortByFitness(population []chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
}

func orderKey(order []int) string {
	b := make([]byte, 0, len(order)*3)
	for _, idx := range order {
		b = append(b, byte(idx), byte(idx>>8), byte(idx>>16))
	}
	return string(b)
}
