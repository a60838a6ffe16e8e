package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/config"
	"github.com/ironforge-labs/factoryplan/internal/costanalysis"
	"github.com/ironforge-labs/factoryplan/internal/errors"
	"github.com/ironforge-labs/factoryplan/internal/lpsolve"
	"github.com/ironforge-labs/factoryplan/internal/parammodel"
)

const inf = math.MaxFloat64 / 4

// Result is everything a caller needs after Solve returns successfully
// or with a recoverable warning (spec §6 "Production results exposed").
type Result struct {
	Status  lpsolve.Status
	Warning string // non-fatal user-visible message, e.g. ExceedsBuiltCount
}

// Solve runs one top-level solve over root (spec §4.3). cost supplies
// the objective-coefficient oracle; solverCfg controls the determinism
// seeds used both for the primary solve and any relaxed re-solve.
func Solve(root *ProductionTable, cost *costanalysis.Analysis, solverCfg config.Solver) (*Result, error) {
	rows, links := Setup(root)

	for _, row := range rows {
		row.Params = parammodel.Calculate(rowToInput(row))
	}

	s := lpsolve.New()
	s.SetMinimize()

	allocateRowVars(s, rows)
	allocateLinkConstraints(s, links)
	wireRows(rows)
	relaxUnmatchedLinks(links)
	setObjective(s, rows, cost)

	status := s.SolveWithDifferentSeeds(solverCfg.DeterminismSeeds)

	if status != lpsolve.Optimal && status != lpsolve.Feasible {
		diagResult, err := diagnoseInfeasibility(rows, links, cost, solverCfg, status)
		if err != nil {
			return nil, err
		}
		writeBackRows(rows)
		writeBackLinks(links)
		msg := checkBuiltCountExceeded(root)
		return &Result{Status: diagResult, Warning: msg}, nil
	}

	writeBackRows(rows)
	writeBackLinks(links)
	finalizeLinkFlags(links)

	msg := checkBuiltCountExceeded(root)
	return &Result{Status: status, Warning: msg}, nil
}

func rowToInput(row *RecipeRow) parammodel.Input {
	return parammodel.Input{
		Recipe:             row.Recipe,
		Crafter:            row.Crafter,
		Fuel:               row.Fuel,
		Modules:            row.Modules,
		Beacons:            row.Beacons,
		ResearchSpeedBonus: row.ResearchSpeedBonus,
	}
}

// allocateRowVars implements spec §4.3 step 1.
func allocateRowVars(s *lpsolve.Solver, rows []*RecipeRow) {
	for i, row := range rows {
		lb, ub := 0.0, inf
		if row.FixedBuildings > 0 && row.Params.RecipeTime > 0 {
			fixed := row.FixedBuildings / row.Params.RecipeTime
			lb, ub = fixed, fixed
		}
		row.variable = s.MakeVar(lb, ub, fmt.Sprintf("row:%d:%s", i, row.Recipe.Name))
	}
}

// allocateLinkConstraints implements spec §4.3 step 2.
func allocateLinkConstraints(s *lpsolve.Solver, links []*ProductionLink) {
	for i, link := range links {
		link.CapturedRecipes = nil
		link.HasProduction = false
		link.HasConsumption = false
		link.Flags = 0

		var lo, hi float64
		switch link.Algorithm {
		case Match:
			lo, hi = link.Amount, link.Amount
		case AllowOverProduction:
			lo, hi = link.Amount, inf
		case AllowOverConsumption:
			lo, hi = -inf, link.Amount
		}
		link.constraint = s.MakeConstraint(lo, hi, fmt.Sprintf("link:%d:%s", i, goodsName(link.Goods)))
		if link.Amount > 0 {
			link.HasConsumption = true
		} else if link.Amount < 0 {
			link.HasProduction = true
		}
	}
}

// wireRows implements spec §4.3 step 3: resolve each row's products,
// ingredients, fuel, and spent-fuel to a link and add coefficients.
func wireRows(rows []*RecipeRow) {
	for _, row := range rows {
		prod := row.Params.Productivity
		row.Links = RowLinks{
			Products:    make([]*ProductionLink, len(row.Recipe.Products)),
			Ingredients: make([]*ProductionLink, len(row.Recipe.Ingredients)),
		}

		for pi, p := range row.Recipe.Products {
			link := row.Table.resolveLink(p.Goods)
			row.Links.Products[pi] = link
			if link == nil {
				continue
			}
			coef := p.Catalyst + p.ProductivityAmount()*(1+prod)
			link.constraint.AddCoefficient(row.variable, coef)
			link.HasProduction = true
			link.CapturedRecipes = append(link.CapturedRecipes, row)
		}

		for ii, ing := range row.Recipe.Ingredients {
			g := resolveVariant(row, ing.Goods)
			link := row.Table.resolveLink(g)
			row.Links.Ingredients[ii] = link
			if link == nil {
				continue
			}
			link.constraint.AddCoefficient(row.variable, -ing.Amount)
			link.HasConsumption = true
			link.CapturedRecipes = append(link.CapturedRecipes, row)
		}

		if row.Fuel != nil && !math.IsNaN(row.Params.FuelUsagePerSecondPerRecipe) {
			if link := row.Table.resolveLink(row.Fuel); link != nil {
				link.constraint.AddCoefficient(row.variable, -row.Params.FuelUsagePerSecondPerRecipe)
				link.HasConsumption = true
				link.CapturedRecipes = append(link.CapturedRecipes, row)
				row.Links.Fuel = link
			}
			if fuelItem, ok := row.Fuel.(*catalog.Item); ok && fuelItem.FuelResult != nil {
				if link := row.Table.resolveLink(fuelItem.FuelResult); link != nil {
					link.constraint.AddCoefficient(row.variable, row.Params.FuelUsagePerSecondPerRecipe)
					link.HasProduction = true
					link.CapturedRecipes = append(link.CapturedRecipes, row)
					row.Links.SpentFuel = link
				}
			}
		}
	}
}

// resolveVariant applies the row's fixed fluid-temperature-variant
// choice, if any, in place of the recipe's nominal ingredient goods.
func resolveVariant(row *RecipeRow, g catalog.Goods) catalog.Goods {
	if row.VariantChoice == nil {
		return g
	}
	if chosen, ok := row.VariantChoice[g]; ok {
		return chosen
	}
	return g
}

// relaxUnmatchedLinks implements spec §4.3 step 4.
func relaxUnmatchedLinks(links []*ProductionLink) {
	for _, link := range links {
		if link.HasProduction && link.HasConsumption {
			continue
		}
		link.constraint.SetBounds(-inf, inf)
		link.Flags |= LinkNotMatched
	}
}

// setObjective implements spec §4.3 step 5.
func setObjective(s *lpsolve.Solver, rows []*RecipeRow, cost *costanalysis.Analysis) {
	for _, row := range rows {
		s.SetObjectiveCoefficient(row.variable, recipeBaseCost(row, cost))
	}
}

// recipeBaseCost sums ingredient (and fuel) cost plus any positive-cost
// product/spent-fuel terms, so a recipe with a valuable byproduct isn't
// treated as artificially cheap (spec §4.3 step 5).
func recipeBaseCost(row *RecipeRow, cost *costanalysis.Analysis) float64 {
	if cost == nil {
		return 1 // no oracle available: fall back to unit cost, uniform preference
	}
	base := 0.0
	for _, ing := range row.Recipe.Ingredients {
		c := cost.Cost(ing.Goods)
		if math.IsInf(c, 1) {
			continue
		}
		base += c * ing.Amount
	}
	if row.Fuel != nil && !math.IsNaN(row.Params.FuelUsagePerSecondPerRecipe) {
		c := cost.Cost(row.Fuel)
		if !math.IsInf(c, 1) {
			base += c * row.Params.FuelUsagePerSecondPerRecipe
		}
	}
	for _, p := range row.Recipe.Products {
		c := cost.Cost(p.Goods)
		if c > 0 && !math.IsInf(c, 1) {
			base += c * p.Amount()
		}
	}
	return base
}

func writeBackRows(rows []*RecipeRow) {
	for _, row := range rows {
		row.RecipesPerSecond = row.variable.SolutionValue()
	}
}

func writeBackLinks(links []*ProductionLink) {
	for _, link := range links {
		link.LinkFlow = link.constraint.Value()
		link.DualValue = link.constraint.DualValue()
	}
}

// finalizeLinkFlags implements spec §4.3's closing rule: "if basis
// status is BASIC/FREE and either notMatchedFlow != 0 or algorithm !=
// Match, flag LinkNotMatched."
func finalizeLinkFlags(links []*ProductionLink) {
	for _, link := range links {
		basis := link.constraint.BasisStatus()
		if (basis == lpsolve.Basic || basis == lpsolve.Free) &&
			(link.NotMatchedFlow != 0 || link.Algorithm != Match) {
			link.Flags |= LinkNotMatched
		}
	}
}

func goodsName(g catalog.Goods) string {
	if g == nil {
		return "<nil>"
	}
	return g.GoodsName()
}

// diagnoseInfeasibility implements spec §4.3's infeasibility-analysis
// pass: build a directed graph over links, find deadlock/split
// candidates via SCC, and re-solve with slack variables absorbing the
// imbalance.
func diagnoseInfeasibility(rows []*RecipeRow, links []*ProductionLink, cost *costanalysis.Analysis, solverCfg config.Solver, firstStatus lpsolve.Status) (lpsolve.Status, error) {
	log.Warn("primary solve returned %s, running infeasibility diagnosis", firstStatus)

	linkIndex := make(map[*ProductionLink]int, len(links))
	for i, link := range links {
		linkIndex[link] = i
	}

	g := simple.NewDirectedGraph()
	for i := range links {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, row := range rows {
		var inLinks, outLinks []*ProductionLink
		inLinks = append(inLinks, row.Links.Ingredients...)
		if row.Links.Fuel != nil {
			inLinks = append(inLinks, row.Links.Fuel)
		}
		outLinks = append(outLinks, row.Links.Products...)
		if row.Links.SpentFuel != nil {
			outLinks = append(outLinks, row.Links.SpentFuel)
		}
		for _, in := range inLinks {
			if in == nil {
				continue
			}
			for _, out := range outLinks {
				if out == nil || out == in {
					continue
				}
				a, b := int64(linkIndex[in]), int64(linkIndex[out])
				if !g.HasEdgeFromTo(a, b) {
					g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
				}
			}
		}
	}

	deadlocks := make(map[*ProductionLink]bool)
	components := topo.TarjanSCC(g)
	for _, comp := range components {
		if len(comp) < 2 {
			continue
		}
		// "last" node convention: the last-popped node in gonum's
		// per-component slice (Open Question resolution, SPEC_FULL §12).
		lastID := comp[len(comp)-1].ID()
		deadlocks[links[lastID]] = true

		pos := make(map[int64]int, len(comp))
		for idx, n := range comp {
			pos[n.ID()] = idx
		}
		for idx, n := range comp {
			it := g.From(n.ID())
			for it.Next() {
				succID := it.Node().ID()
				succPos, inComp := pos[succID]
				if inComp && succPos > idx+1 {
					deadlocks[links[n.ID()]] = true
				}
			}
		}
	}

	splits := make(map[*ProductionLink]bool)
	for _, row := range rows {
		outCount := len(row.Links.Products)
		if row.Links.SpentFuel != nil {
			outCount++
		}
		if outCount <= 1 {
			continue
		}
		for _, link := range row.Links.Products {
			if link != nil {
				splits[link] = true
			}
		}
		if row.Links.SpentFuel != nil {
			splits[row.Links.SpentFuel] = true
		}
	}

	status, slack, err := resolveWithSlack(rows, links, cost, solverCfg, deadlocks, splits)
	if err != nil {
		return status, err
	}

	for link := range deadlocks {
		for _, row := range link.CapturedRecipes {
			row.Warnings |= DeadlockCandidate
		}
	}
	for link := range splits {
		for _, row := range link.CapturedRecipes {
			row.Warnings |= OverproductionRequired
		}
	}

	applySlackResults(slack)

	return status, nil
}

// slackPair holds the resolved posSlack/negSlack values for one link
// from the relaxed re-solve (spec §4.3: "notMatchedFlow = posSlack -
// negSlack").
type slackPair struct {
	pos, neg float64
}

// resolveWithSlack rebuilds the LP with a penalized negative slack on
// each deadlock link and a penalized positive slack on each split link,
// per spec §4.3's relaxed re-solve.
func resolveWithSlack(rows []*RecipeRow, links []*ProductionLink, cost *costanalysis.Analysis, solverCfg config.Solver, deadlocks, splits map[*ProductionLink]bool) (lpsolve.Status, map[*ProductionLink]*slackPair, error) {
	s := lpsolve.New()
	s.SetMinimize()

	allocateRowVars(s, rows)
	allocateLinkConstraints(s, links)
	wireRows(rows)
	relaxUnmatchedLinks(links)
	setObjective(s, rows, cost)

	slackVars := make(map[*ProductionLink]*slackPair, len(deadlocks)+len(splits))
	slackVarHandle := make(map[*ProductionLink]struct{ pos, neg *lpsolve.Var }, len(deadlocks)+len(splits))

	for _, link := range links {
		absCost := 1.0
		if cost != nil {
			absCost = math.Abs(cost.Cost(link.Goods))
			if math.IsInf(absCost, 1) {
				absCost = 0
			}
		}
		handle := slackVarHandle[link]
		if deadlocks[link] {
			handle.neg = s.MakeVar(0, inf, "negslack:"+goodsName(link.Goods))
			link.constraint.AddCoefficient(handle.neg, absCost)
			s.SetObjectiveCoefficient(handle.neg, 1)
		}
		if splits[link] {
			handle.pos = s.MakeVar(0, inf, "posslack:"+goodsName(link.Goods))
			link.constraint.AddCoefficient(handle.pos, -absCost)
			s.SetObjectiveCoefficient(handle.pos, 1)
		}
		if handle.pos != nil || handle.neg != nil {
			slackVarHandle[link] = handle
		}
	}

	status := s.SolveWithDifferentSeeds(solverCfg.DeterminismSeeds)
	if status != lpsolve.Optimal && status != lpsolve.Feasible {
		return status, nil, terminalError(status)
	}

	for link, handle := range slackVarHandle {
		pair := &slackPair{}
		if handle.pos != nil {
			pair.pos = handle.pos.SolutionValue()
		}
		if handle.neg != nil {
			pair.neg = handle.neg.SolutionValue()
		}
		slackVars[link] = pair
	}

	return status, slackVars, nil
}

// applySlackResults writes notMatchedFlow from the relaxed solve's
// slack values and propagates the imbalance up the ownership chain
// (spec §4.3).
func applySlackResults(slack map[*ProductionLink]*slackPair) {
	for link, pair := range slack {
		flow := pair.pos - pair.neg
		if flow == 0 {
			continue
		}
		link.NotMatchedFlow = flow
		link.Flags |= LinkNotMatched | LinkRecursiveNotMatched
		if flow > 0 {
			markOwnerRows(link, OverproductionRequired)
		} else {
			markOwnerRows(link, DeadlockCandidate)
		}
		for cur := link.Table; cur != nil; cur = cur.parent() {
			if cur.ParentRow != nil {
				cur.ParentRow.Warnings |= ChildNotMatchedRowFlag(flow)
			}
		}
	}
}

func terminalError(status lpsolve.Status) error {
	switch status {
	case lpsolve.Infeasible:
		return errors.New(errors.KindModelInfeasible, "solver.solve", fmt.Errorf("failed to solve: deadlock loops"))
	case lpsolve.Abnormal:
		return errors.New(errors.KindModelAbnormal, "solver.solve", fmt.Errorf("numerical errors"))
	default:
		return errors.New(errors.KindModelOther, "solver.solve", fmt.Errorf("Unaccounted error: MODEL_%s", status))
	}
}

func markOwnerRows(link *ProductionLink, flag RowFlags) {
	for _, row := range link.CapturedRecipes {
		row.Warnings |= flag
	}
}

// ChildNotMatchedRowFlag maps a propagated imbalance's sign to the row
// warning it contributes upward (spec §4.3 propagation step).
func ChildNotMatchedRowFlag(flow float64) RowFlags {
	if flow > 0 {
		return OverproductionRequired
	}
	return DeadlockCandidate
}

// checkBuiltCountExceeded implements spec §4.3's post-solve pass:
// recursively set ExceedsBuiltCount where buildingCount > builtBuildings,
// propagating from any child subgroup that exceeded.
func checkBuiltCountExceeded(root *ProductionTable) string {
	exceeded := checkBuiltCountTable(root)
	if exceeded {
		return "requires more buildings than are currently built"
	}
	return ""
}

func checkBuiltCountTable(t *ProductionTable) bool {
	any := false
	for _, row := range t.Rows {
		rowExceeded := false
		if row.BuiltBuildings > 0 && row.Params.RecipeTime > 0 {
			buildingCount := row.RecipesPerSecond * row.Params.RecipeTime
			if buildingCount > row.BuiltBuildings+1e-9 {
				rowExceeded = true
			}
		}
		if row.Subgroup != nil && checkBuiltCountTable(row.Subgroup) {
			rowExceeded = true
		}
		if rowExceeded {
			row.Warnings |= ExceedsBuiltCount
			any = true
		}
	}
	return any
}
