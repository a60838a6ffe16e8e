// Package solver implements the Production Table Solver (spec §4.3): a
// per-page hierarchical LP that determines how many times each recipe
// row must execute per second to satisfy linked demand, detects
// infeasibility, and attributes deadlocks/overproduction to specific
// recipes and links.
package solver

import (
	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/logger"
	"github.com/ironforge-labs/factoryplan/internal/lpsolve"
	"github.com/ironforge-labs/factoryplan/internal/parammodel"
)

var log = logger.WithComponent("Solver")

// LinkAlgorithm is a ProductionLink's balance mode (spec §3.2).
type LinkAlgorithm int

const (
	Match LinkAlgorithm = iota
	AllowOverProduction
	AllowOverConsumption
)

// RowFlags are the per-row warning bits spec §6 exposes.
type RowFlags uint8

const (
	OverproductionRequired RowFlags = 1 << iota
	DeadlockCandidate
	ExceedsBuiltCount
)

func (f RowFlags) Has(flag RowFlags) bool { return f&flag != 0 }

// LinkFlags are the per-link warning bits spec §4.3/§4.4 name.
type LinkFlags uint8

const (
	LinkNotMatched LinkFlags = 1 << iota
	LinkRecursiveNotMatched
	ChildNotMatched
)

func (f LinkFlags) Has(flag LinkFlags) bool { return f&flag != 0 }

// ProductionTable is an ordered list of recipe rows and links, owning
// linkMap for O(1) link resolution within the table (spec §3.2). It may
// be nested as a row's subgroup.
type ProductionTable struct {
	ParentRow *RecipeRow // nil for the root table
	Rows      []*RecipeRow
	Links     []*ProductionLink
	LinkMap   map[catalog.Goods]*ProductionLink

	// ContainsDesiredProducts is set by Setup: true if any Match link at
	// this level declares positive (consumption) demand, i.e. this table
	// is not purely a byproduct sink.
	ContainsDesiredProducts bool
}

// NewTable allocates an empty table, owned by parent (nil for the root).
func NewTable(parent *RecipeRow) *ProductionTable {
	return &ProductionTable{ParentRow: parent, LinkMap: make(map[catalog.Goods]*ProductionLink)}
}

// AddLink creates and registers a ProductionLink at this table level.
func (t *ProductionTable) AddLink(g catalog.Goods, amount float64, algo LinkAlgorithm) *ProductionLink {
	link := &ProductionLink{Table: t, Goods: g, Amount: amount, Algorithm: algo}
	t.Links = append(t.Links, link)
	t.LinkMap[g] = link
	return link
}

// resolveLink walks linkMap from this table outward through owner
// chains until a matching link is found, or returns nil (spec §3.2,
// §4.5 FindLink).
func (t *ProductionTable) resolveLink(g catalog.Goods) *ProductionLink {
	for cur := t; cur != nil; cur = cur.parent() {
		if link, ok := cur.LinkMap[g]; ok {
			return link
		}
	}
	return nil
}

func (t *ProductionTable) parent() *ProductionTable {
	if t.ParentRow == nil {
		return nil
	}
	return t.ParentRow.Table
}

// ParentTable exposes the owner-chain walk to other packages (e.g. the
// Flow Aggregator's unmatched-link propagation, spec §4.4).
func (t *ProductionTable) ParentTable() *ProductionTable { return t.parent() }

// RecipeRow is one production-table entry: a chosen recipe, crafter,
// fuel, module/beacon configuration, and per-solve outputs (spec §3.2).
type RecipeRow struct {
	Table   *ProductionTable // the table this row belongs to
	Recipe  *catalog.Recipe
	Crafter *catalog.Entity
	Fuel    catalog.Goods
	Modules []*catalog.Module
	Beacons []parammodel.BeaconConfig
	// VariantChoice pins which fluid-temperature variant an ingredient
	// with variants resolves to; keyed by the ingredient's goods family
	// representative.
	VariantChoice map[catalog.Goods]catalog.Goods
	// Subgroup, if non-nil, is a nested ProductionTable whose own flow
	// folds into this row's effective production (spec §3.2, §4.4).
	Subgroup           *ProductionTable
	Enabled            bool
	FixedBuildings     float64 // > 0 pins recipesPerSecond to fixedBuildings/recipeTime
	BuiltBuildings     float64 // currently-built machine count, for CheckBuiltCountExceeded
	ResearchSpeedBonus float64

	// Solve outputs.
	RecipesPerSecond float64
	Params           parammodel.Parameters
	Warnings         RowFlags
	Links            RowLinks

	variable *lpsolve.Var // transient per-solve handle
}

// RowLinks holds the resolved ProductionLink pointers for a row's
// product/ingredient/fuel/spent-fuel goods, refreshed each solve
// (spec §3.2).
type RowLinks struct {
	Products    []*ProductionLink // parallel to Recipe.Products
	Ingredients []*ProductionLink // parallel to Recipe.Ingredients
	Fuel        *ProductionLink
	SpentFuel   *ProductionLink
}

// ProductionLink belongs to a ProductionTable, names a Goods, and
// carries a signed amount plus solve outputs (spec §3.2).
type ProductionLink struct {
	Table     *ProductionTable
	Goods     catalog.Goods
	Amount    float64
	Algorithm LinkAlgorithm

	HasProduction  bool
	HasConsumption bool
	Flags          LinkFlags

	LinkFlow        float64
	DualValue       float64
	NotMatchedFlow  float64
	CapturedRecipes []*RecipeRow

	constraint *lpsolve.Constraint // transient per-solve handle
}

// Setup recursively collects every enabled row and every link reachable
// from root, clearing disabled rows' outputs (spec §4.3). Calling Setup
// twice with no edits between calls yields identical allRows/allLinks
// slices and ContainsDesiredProducts values (spec §8 "Setup idempotence").
func Setup(root *ProductionTable) (allRows []*RecipeRow, allLinks []*ProductionLink) {
	setup(root, &allRows, &allLinks)
	return
}

func setup(t *ProductionTable, allRows *[]*RecipeRow, allLinks *[]*ProductionLink) {
	t.ContainsDesiredProducts = false
	for _, link := range t.Links {
		*allLinks = append(*allLinks, link)
		if link.Algorithm == Match && link.Amount > 0 {
			t.ContainsDesiredProducts = true
		}
	}

	for _, row := range t.Rows {
		if !row.Enabled {
			clearRow(row)
			continue
		}
		*allRows = append(*allRows, row)
		if row.Subgroup != nil {
			setup(row.Subgroup, allRows, allLinks)
		}
	}
}

func clearRow(row *RecipeRow) {
	row.RecipesPerSecond = 0
	row.Params = parammodel.Parameters{}
	row.Warnings = 0
	row.Links = RowLinks{}
	if row.Subgroup != nil {
		clearTable(row.Subgroup)
	}
}

func clearTable(t *ProductionTable) {
	t.ContainsDesiredProducts = false
	for _, row := range t.Rows {
		clearRow(row)
	}
}
