// Package flow implements the Flow Aggregator (spec §4.4): a post-solve
// pass that rolls production/consumption per goods up subgroup
// boundaries and sorts the result for display.
package flow

import (
	"context"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/solver"
)

// fluidStackSize is the amount of a fluid one "stack" represents for
// sort-order purposes, so a flow comparison treats fluids at the same
// visual magnitude as an equivalent item count (spec §4.4 "compare
// fluids in fluid stacks").
const fluidStackSize = 50.0

// Entry is one row of a table's aggregated flow.
type Entry struct {
	Goods  catalog.Goods
	Amount float64 // positive: net production, negative: net consumption
	Link   *solver.ProductionLink
}

// aggregator carries the shared, mutex-guarded result map across the
// concurrent subgroup walk: sibling rows' subgroups have no data
// dependency on one another, so they aggregate on an errgroup rather
// than one at a time (spec §4.4's recursion says nothing about order).
type aggregator struct {
	mu     sync.Mutex
	result map[*solver.ProductionTable][]Entry
}

func (a *aggregator) get(t *solver.ProductionTable) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result[t]
}

func (a *aggregator) set(t *solver.ProductionTable, entries []Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result[t] = entries
}

// markChildNotMatched sets ChildNotMatched on an ancestor link. Sibling
// subgroups aggregate concurrently (see aggregateTable) and can each
// reach the same enclosing link via findEnclosingMatchedLink, so this
// read-modify-write must go through the same lock guarding the result
// map rather than racing on link.Flags directly.
func (a *aggregator) markChildNotMatched(link *solver.ProductionLink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	link.Flags |= solver.ChildNotMatched
}

// Aggregate computes the sorted flow vector for every table reachable
// from root, recursing into subgroups first so a row's subgroup folds
// into its owning table before the owning table is itself aggregated
// (spec §4.4).
func Aggregate(root *solver.ProductionTable) map[*solver.ProductionTable][]Entry {
	a := &aggregator{result: make(map[*solver.ProductionTable][]Entry)}
	aggregateTable(root, a)
	return a.result
}

func aggregateTable(t *solver.ProductionTable, a *aggregator) {
	totals := make(map[catalog.Goods]float64)
	var mu sync.Mutex
	order := make([]catalog.Goods, 0)
	add := func(g catalog.Goods, amount float64) {
		mu.Lock()
		defer mu.Unlock()
		if g == nil || amount == 0 {
			return
		}
		if _, seen := totals[g]; !seen {
			order = append(order, g)
		}
		totals[g] += amount
	}

	subgroups := make([]*solver.ProductionTable, 0)
	for _, row := range t.Rows {
		if row.Enabled && row.Subgroup != nil {
			subgroups = append(subgroups, row.Subgroup)
		}
	}
	if len(subgroups) > 0 {
		g, _ := errgroup.WithContext(context.Background())
		for _, sub := range subgroups {
			sub := sub
			g.Go(func() error {
				aggregateTable(sub, a)
				return nil
			})
		}
		_ = g.Wait() // aggregateTable never returns an error
	}

	for _, row := range t.Rows {
		if !row.Enabled {
			continue
		}
		rate := row.RecipesPerSecond
		prod := row.Params.Productivity

		for _, p := range row.Recipe.Products {
			add(p.Goods, rate*(p.Catalyst+p.ProductivityAmount()*(1+prod)))
		}
		for _, ing := range row.Recipe.Ingredients {
			add(resolvedIngredientGoods(row, ing.Goods), -rate*ing.Amount)
		}
		if row.Fuel != nil && !math.IsNaN(row.Params.FuelUsagePerSecondPerRecipe) {
			fuelAmount := rate * row.Params.FuelUsagePerSecondPerRecipe
			add(row.Fuel, -fuelAmount)
			if fuelItem, ok := row.Fuel.(*catalog.Item); ok && fuelItem.FuelResult != nil {
				add(fuelItem.FuelResult, fuelAmount)
			}
		}

		if row.Subgroup != nil {
			for _, entry := range a.get(row.Subgroup) {
				add(entry.Goods, entry.Amount)
			}
		}
	}

	// Unmatched links carry an imbalance that didn't come out of a
	// satisfied local demand; propagate it to the nearest enclosing
	// matched link rather than reporting it as if it were this table's
	// own settled flow (spec §4.4). Matched links stay in the displayed
	// flow as ordinary production/consumption entries (spec §8 scenario
	// 1: a fully-matched link's goods remains in the reported flow).
	for _, link := range t.Links {
		if !link.Flags.Has(solver.LinkNotMatched) {
			continue
		}
		if outer := findEnclosingMatchedLink(t, link.Goods); outer != nil {
			a.markChildNotMatched(outer)
		}
	}

	entries := make([]Entry, 0, len(order))
	for _, g := range order {
		amount, ok := totals[g]
		if !ok {
			continue
		}
		entries = append(entries, Entry{Goods: g, Amount: amount, Link: t.LinkMap[g]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})

	a.set(t, entries)
}

// resolvedIngredientGoods mirrors the solver's own variant substitution
// (spec §3.2 "a fixed-variant choice for each ingredient with
// variants") so the aggregated flow reports the goods actually
// consumed, not the recipe's nominal fluid family representative.
func resolvedIngredientGoods(row *solver.RecipeRow, g catalog.Goods) catalog.Goods {
	if row.VariantChoice == nil {
		return g
	}
	if chosen, ok := row.VariantChoice[g]; ok {
		return chosen
	}
	return g
}

// findEnclosingMatchedLink walks the owner chain above t looking for a
// matched link on the same goods, the link an unmatched child
// propagates its imbalance into.
func findEnclosingMatchedLink(t *solver.ProductionTable, g catalog.Goods) *solver.ProductionLink {
	for cur := t.ParentTable(); cur != nil; cur = cur.ParentTable() {
		if link, ok := cur.LinkMap[g]; ok && !link.Flags.Has(solver.LinkNotMatched) {
			return link
		}
	}
	return nil
}

// sortKey normalizes a fluid's amount into item-equivalent stacks so
// item and fluid flow rows sort by the same visual magnitude
// (spec §4.4: "ascending by amount/50 for fluids and amount for
// items").
func sortKey(e Entry) float64 {
	if _, ok := e.Goods.(*catalog.Fluid); ok {
		return e.Amount / fluidStackSize
	}
	return e.Amount
}
