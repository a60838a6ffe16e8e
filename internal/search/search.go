// Package search implements the Search / Predicate Facade (spec §4.5):
// pure functions over the object graph consumed by other components —
// text matching across a production table, link resolution by owner
// chain, and the fuel/spent-fuel predicate rows are built against.
package search

import (
	"strings"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/solver"
)

// Match reports whether query (case-insensitive substring match)
// appears in the Name of any recipe, crafter, fuel, ingredient, or
// product reachable from t, walking subgroups (spec §4.5). LocalizedName
// is not searched.
func Match(t *solver.ProductionTable, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return matchTable(t, q)
}

func matchTable(t *solver.ProductionTable, q string) bool {
	for _, row := range t.Rows {
		if matchRow(row, q) {
			return true
		}
		if row.Subgroup != nil && matchTable(row.Subgroup, q) {
			return true
		}
	}
	return false
}

func matchRow(row *solver.RecipeRow, q string) bool {
	if row.Recipe != nil && containsFold(row.Recipe.Name, q) {
		return true
	}
	if row.Crafter != nil && containsFold(row.Crafter.Name, q) {
		return true
	}
	if row.Fuel != nil && containsFold(goodsName(row.Fuel), q) {
		return true
	}
	if row.Recipe != nil {
		for _, ing := range row.Recipe.Ingredients {
			if containsFold(goodsName(ing.Goods), q) {
				return true
			}
		}
		for _, p := range row.Recipe.Products {
			if containsFold(goodsName(p.Goods), q) {
				return true
			}
		}
	}
	return false
}

func containsFold(name, q string) bool {
	return strings.Contains(strings.ToLower(name), q)
}

func goodsName(g catalog.Goods) string {
	if g == nil {
		return ""
	}
	return g.GoodsName()
}

// FindLink walks t's owner chain outward until a link on goods is
// found, or returns nil at the root (spec §4.5, mirroring
// ProductionTable's own internal resolution).
func FindLink(t *solver.ProductionTable, g catalog.Goods) *solver.ProductionLink {
	for cur := t; cur != nil; cur = cur.ParentTable() {
		if link, ok := cur.LinkMap[g]; ok {
			return link
		}
	}
	return nil
}

// HasSpentFuel reports whether row's chosen fuel leaves behind a
// by-product goods (e.g. burnt result), the predicate the Production
// Table Solver's spent-fuel wiring is built against (spec §4.5, §4.3
// step 3).
func HasSpentFuel(row *solver.RecipeRow) bool {
	if row.Fuel == nil {
		return false
	}
	item, ok := row.Fuel.(*catalog.Item)
	return ok && item.FuelResult != nil
}
