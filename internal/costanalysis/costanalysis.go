// Package costanalysis builds the single global LP spec §4.2 calls Cost
// Analysis: a hypothetical non-negative cost for every obtainable goods,
// from which per-recipe waste, importance, and flow heuristics are
// derived. Two singleton-shaped instances exist per project — Instance
// (full accessibility) and InstanceAtMilestones (current-milestones
// view) — modeled as two explicitly constructed Analysis values rather
// than process-wide globals (spec §9, SPEC_FULL §12).
package costanalysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/config"
	"github.com/ironforge-labs/factoryplan/internal/errors"
	"github.com/ironforge-labs/factoryplan/internal/logger"
	"github.com/ironforge-labs/factoryplan/internal/lpsolve"
)

var log = logger.WithComponent("CostAnalysis")

// Analysis is one solved Cost Analysis LP. Build via Instance or
// InstanceAtMilestones; the returned value is never mutated again.
type Analysis struct {
	db            *catalog.Database
	cost          config.Cost
	solver        config.Solver
	milestoneMode bool

	Status lpsolve.Status
	Goods  map[catalog.Goods]float64 // cost[g]; +Inf for inaccessible or unsolved goods
	Entity map[*catalog.Entity]float64

	RecipeCost            map[*catalog.Recipe]float64
	RecipeProductCost     map[*catalog.Recipe]float64
	RecipeWastePercentage map[*catalog.Recipe]float64
	RecipeFlow            map[*catalog.Recipe]float64
	Flow                  map[catalog.Goods]float64

	ImportantItems []catalog.Goods

	// Warning is set when the LP failed to solve (spec §7
	// AnalysisWarning), suppressed in milestone mode per spec §4.2.
	Warning error
}

// TargetTech optionally restricts science-pack usage to the ingredient
// demand of one technology rather than the sum across every accessible
// technology (spec §4.2).
type TargetTech struct {
	Tech *catalog.Technology
}

// Instance builds the full-accessibility Cost Analysis singleton.
func Instance(db *catalog.Database, cost config.Cost, solver config.Solver, target *TargetTech) *Analysis {
	return build(db, cost, solver, target, false)
}

// InstanceAtMilestones builds the "current milestones" view, using
// IsAccessibleAtNextMilestone in place of IsAccessible and suppressing
// the AnalysisWarning on failure (spec §4.2: "surfaced... only when not
// in milestone-restricted mode").
func InstanceAtMilestones(db *catalog.Database, cost config.Cost, solver config.Solver, target *TargetTech) *Analysis {
	return build(db, cost, solver, target, true)
}

func build(db *catalog.Database, cost config.Cost, solver config.Solver, target *TargetTech, milestoneMode bool) *Analysis {
	a := &Analysis{
		db:                    db,
		cost:                  cost,
		solver:                solver,
		milestoneMode:         milestoneMode,
		Goods:                 make(map[catalog.Goods]float64),
		Entity:                make(map[*catalog.Entity]float64),
		RecipeCost:            make(map[*catalog.Recipe]float64),
		RecipeProductCost:     make(map[*catalog.Recipe]float64),
		RecipeWastePercentage: make(map[*catalog.Recipe]float64),
		RecipeFlow:            make(map[*catalog.Recipe]float64),
		Flow:                  make(map[catalog.Goods]float64),
	}
	a.solve(target)
	return a
}

func (a *Analysis) accessible(obj catalog.HasID) bool {
	if a.milestoneMode {
		return a.db.IsAccessibleAtNextMilestone(obj)
	}
	return a.db.IsAccessible(obj)
}

func (a *Analysis) allGoods() []catalog.Goods {
	var out []catalog.Goods
	for _, it := range a.db.Items {
		out = append(out, it)
	}
	for _, f := range a.db.Fluids {
		out = append(out, f)
	}
	for _, s := range a.db.Specials {
		out = append(out, s)
	}
	return out
}

func (a *Analysis) solve(target *TargetTech) {
	s := lpsolve.New()
	s.SetMaximize()

	goods := a.allGoods()
	vars := make(map[catalog.Goods]*lpsolve.Var, len(goods))

	mapGenAmount := a.mapGeneratedAmounts()
	sciencePack := a.sciencePackUsage(target)

	for _, g := range goods {
		if !a.accessible(g) {
			a.Goods[g] = math.Inf(1)
			continue
		}
		upper := math.Inf(1)
		if amt, ok := mapGenAmount[g]; ok && amt > 0 {
			upper = a.cost.CostLimitWhenGeneratesOnMap / amt
		}
		v := s.MakeVar(a.cost.CostLowerLimit, upper, "cost:"+goodsName(g))
		vars[g] = v
		s.SetObjectiveCoefficient(v, 1e-3+sciencePack[g]/1000)
	}

	eligibleRecipes := make([]*catalog.Recipe, 0, len(a.db.Recipes))
	for _, r := range a.db.Recipes {
		if !r.Enabled || !a.accessible(r) {
			continue
		}
		eligibleRecipes = append(eligibleRecipes, r)
	}

	recipeCtrs := make(map[*catalog.Recipe]*lpsolve.Constraint, len(eligibleRecipes))
	for _, r := range eligibleRecipes {
		recipeCtrs[r] = a.addRecipeConstraint(s, vars, r)
	}

	a.addTieBreakConstraints(s, vars)

	status := s.SolveWithDifferentSeeds(a.solver.DeterminismSeeds)
	a.Status = status

	if status != lpsolve.Optimal && status != lpsolve.Feasible {
		for _, g := range goods {
			a.Goods[g] = math.Inf(1)
		}
		if !a.milestoneMode {
			a.Warning = errors.New(errors.KindAnalysisWarning, "costanalysis.solve", fmt.Errorf("cost analysis LP did not solve: %s", status))
		}
		log.Warn("cost analysis LP status %s", status)
		return
	}

	for g, v := range vars {
		a.Goods[g] = v.SolutionValue()
	}

	a.derivePostSolve(eligibleRecipes, recipeCtrs)
	a.computeImportantItems(eligibleRecipes)
}

// mapGeneratedAmounts sums mapGenDensity across every map-generated
// source entity producing each goods, the denominator of upper(g).
func (a *Analysis) mapGeneratedAmounts() map[catalog.Goods]float64 {
	out := make(map[catalog.Goods]float64)
	for _, r := range a.db.Recipes {
		if r.SourceEntity == nil || !r.SourceEntity.MapGenerated {
			continue
		}
		for _, p := range r.Products {
			out[p.Goods] += r.SourceEntity.MapGenDensity
		}
	}
	return out
}

// sciencePackUsage implements spec §4.2's science-pack demand term:
// either the chosen target technology's own ingredient demand, or the
// sum across every accessible technology of ingredient.amount *
// technology.count.
func (a *Analysis) sciencePackUsage(target *TargetTech) map[catalog.Goods]float64 {
	out := make(map[catalog.Goods]float64)
	if target != nil && target.Tech != nil {
		t := target.Tech
		for _, ing := range t.Ingredients {
			out[ing.Goods] += ing.Amount * countOrOne(t.Count)
		}
		return out
	}
	for _, t := range a.db.Technologies {
		if !a.accessible(t) {
			continue
		}
		for _, ing := range t.Ingredients {
			out[ing.Goods] += ing.Amount * countOrOne(t.Count)
		}
	}
	return out
}

func countOrOne(count float64) float64 {
	if count <= 0 {
		return 1
	}
	return count
}

func goodsName(g catalog.Goods) string {
	if g == nil {
		return "<nil>"
	}
	return g.GoodsName()
}

// addRecipeConstraint adds the per-recipe logistics-cost row: spec §4.2
// "Σ p.amount·x[p.goods] − Σ i.amount·x[i.goods] − singleFuelAmount·x[fuel]
// ≤ logisticsCost(r)".
func (a *Analysis) addRecipeConstraint(s *lpsolve.Solver, vars map[catalog.Goods]*lpsolve.Var, r *catalog.Recipe) *lpsolve.Constraint {
	c := s.MakeConstraint(math.Inf(-1), a.logisticsCost(r), "recipe:"+r.Name)

	for _, p := range r.Products {
		if v, ok := vars[p.Goods]; ok {
			c.SetCoefficient(v, p.Amount())
		}
	}
	for _, ing := range r.Ingredients {
		if v, ok := vars[ing.Goods]; ok {
			c.SetCoefficient(v, -ing.Amount)
		}
	}

	if fuel, amount, ok := a.singleFuel(r); ok {
		if v, ok := vars[fuel]; ok {
			c.SetCoefficient(v, -amount)
		}
	}

	return c
}

// singleFuel implements spec §4.2's fuel-selection rule: if every
// eligible crafter consumes the same non-electric/void/heat fuel goods
// with a well-defined amount = power/fuelValue, the minimum such amount
// is the recipe's singleFuelAmount.
func (a *Analysis) singleFuel(r *catalog.Recipe) (catalog.Goods, float64, bool) {
	var fuel catalog.Goods
	var best float64
	found := false

	for _, crafter := range r.Crafters {
		if crafter.Energy == nil {
			return nil, 0, false
		}
		switch crafter.Energy.Kind {
		case catalog.EnergyVoid, catalog.EnergyElectric, catalog.EnergyHeat:
			return nil, 0, false
		}
		if len(crafter.Energy.Fuels) == 0 {
			return nil, 0, false
		}
		for _, f := range crafter.Energy.Fuels {
			fv := fuelValue(f)
			if fv <= 0 {
				continue
			}
			amount := crafter.Energy.Power / fv
			if fuel == nil {
				fuel = f
			} else if f != fuel {
				return nil, 0, false // crafters disagree on fuel goods
			}
			if !found || amount < best {
				best = amount
				found = true
			}
		}
	}
	if !found {
		return nil, 0, false
	}
	return fuel, best, true
}

func fuelValue(g catalog.Goods) float64 {
	switch v := g.(type) {
	case *catalog.Fluid:
		return v.HeatValue
	case *catalog.Item:
		return v.FuelValue
	default:
		return 0
	}
}

// logisticsCost implements spec §4.2's constant model in full, including
// the mining-rarity penalty and pollution term.
func (a *Analysis) logisticsCost(r *catalog.Recipe) float64 {
	nIngredients := len(r.Ingredients)
	nProducts := len(r.Products)

	size := float64(a.cost.MinCrafterSize)
	if half := float64(nIngredients+nProducts) / 2; half > size {
		size = math.Floor(half)
		if size < float64(a.cost.MinCrafterSize) {
			size = float64(a.cost.MinCrafterSize)
		}
	}

	sizeUsage := a.cost.CostPerSecond * r.Time * size
	minPower := a.minCrafterPower(r)
	logisticsCost := sizeUsage*(1+a.cost.CostPerIngredientPerSize*float64(nIngredients)+a.cost.CostPerProductPerSize*float64(nProducts)) +
		a.cost.CostPerMj*minPower

	for _, ing := range r.Ingredients {
		logisticsCost += a.perUnitCost(ing.Goods) * ing.Amount
	}
	for _, p := range r.Products {
		logisticsCost += a.perUnitCost(p.Goods) * p.Amount()
	}

	if r.Flags.Has(catalog.FlagMapGeneratedSource) && r.SourceEntity != nil && r.SourceEntity.MapGenerated {
		totalProduct := 0.0
		for _, p := range r.Products {
			totalProduct += p.Amount()
		}
		if totalProduct > 0 {
			density := r.SourceEntity.MapGenDensity / totalProduct
			if density > 0 {
				penalty := math.Log(a.cost.MiningMaxDensityForPenalty / density)
				if penalty < 0 {
					penalty = 0
				}
				if penalty > a.cost.MiningMaxExtraPenaltyForRarity {
					penalty = a.cost.MiningMaxExtraPenaltyForRarity
				}
				logisticsCost *= 1 + penalty
			}
		}
	}

	minEmissions := a.minCrafterEmissions(r)
	logisticsCost += minEmissions * a.cost.CostPerPollution * r.Time * a.cost.PollutionCostModifier

	return logisticsCost
}

func (a *Analysis) perUnitCost(g catalog.Goods) float64 {
	switch g.(type) {
	case *catalog.Fluid:
		return a.cost.CostPerFluid
	default:
		return a.cost.CostPerItem
	}
}

func (a *Analysis) minCrafterPower(r *catalog.Recipe) float64 {
	best := math.Inf(1)
	for _, crafter := range r.Crafters {
		if crafter.Energy == nil {
			continue
		}
		if crafter.Energy.Power < best {
			best = crafter.Energy.Power
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

func (a *Analysis) minCrafterEmissions(r *catalog.Recipe) float64 {
	best := math.Inf(1)
	for _, crafter := range r.Crafters {
		if crafter.Energy == nil {
			continue
		}
		if crafter.Energy.Emissions < best {
			best = crafter.Energy.Emissions
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// addTieBreakConstraints adds both tie-breaking families from spec
// §4.2: misc-source deriving-item bounds and fluid-temperature
// monotonicity.
func (a *Analysis) addTieBreakConstraints(s *lpsolve.Solver, vars map[catalog.Goods]*lpsolve.Var) {
	for _, it := range a.db.Items {
		if it.MiscSource == nil {
			continue
		}
		vItem, ok1 := vars[it]
		vSrc, ok2 := vars[it.MiscSource]
		if !ok1 || !ok2 {
			continue
		}
		c := s.MakeConstraint(math.Inf(-1), 0, "misc-source:"+it.Name)
		c.SetCoefficient(vItem, 1)
		c.SetCoefficient(vSrc, -1)
	}

	for name, variants := range a.db.FluidVariants {
		for i := 0; i+1 < len(variants); i++ {
			cold, hot := variants[i], variants[i+1]
			vCold, ok1 := vars[cold]
			vHot, ok2 := vars[hot]
			if !ok1 || !ok2 {
				continue
			}
			c := s.MakeConstraint(math.Inf(-1), 0, "fluid-temp:"+name)
			c.SetCoefficient(vCold, 1)
			c.SetCoefficient(vHot, -1)
		}
	}
}

// derivePostSolve fills recipeCost, recipeProductCost,
// recipeWastePercentage, entity cost propagation, and flow (spec §4.2
// "After solve").
func (a *Analysis) derivePostSolve(recipes []*catalog.Recipe, recipeCtrs map[*catalog.Recipe]*lpsolve.Constraint) {
	for _, r := range recipes {
		// recipeCost is the recipe constraint's full budget for its
		// products: logistics cost plus ingredient and single-fuel cost.
		recipeCost := a.logisticsCost(r)
		for _, ing := range r.Ingredients {
			recipeCost += a.Goods[ing.Goods] * ing.Amount
		}
		if fuel, amount, ok := a.singleFuel(r); ok {
			if c := a.Goods[fuel]; !math.IsInf(c, 1) {
				recipeCost += c * amount
			}
		}
		productCost := 0.0
		for _, p := range r.Products {
			productCost += a.Goods[p.Goods] * p.Amount()
		}
		a.RecipeCost[r] = recipeCost
		a.RecipeProductCost[r] = productCost
		if recipeCost > 0 {
			a.RecipeWastePercentage[r] = clamp01(1 - productCost/recipeCost)
		} else {
			a.RecipeWastePercentage[r] = 0
		}
	}

	for _, e := range a.db.Entities {
		if len(e.ItemsToPlace) == 0 {
			continue
		}
		best := math.Inf(1)
		for _, it := range e.ItemsToPlace {
			if c := a.Goods[it]; c < best {
				best = c
			}
		}
		a.Entity[e] = best
	}

	for _, r := range recipes {
		// flow[r] = dual(constraint_r), clamped to >= 0 (spec §4.2).
		flow := recipeCtrs[r].DualValue()
		if flow < 0 {
			flow = 0
		}
		a.RecipeFlow[r] = flow
		for _, p := range r.Products {
			a.Flow[p.Goods] += flow * p.Amount()
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// computeImportantItems implements spec §4.2: goods with usages >= 2,
// sorted descending by flow[g]*cost[g]*count(accessible,
// zero-waste usages).
func (a *Analysis) computeImportantItems(recipes []*catalog.Recipe) {
	usageCount := make(map[catalog.Goods]int)
	zeroWasteAccessibleCount := make(map[catalog.Goods]int)

	for _, r := range recipes {
		seen := make(map[catalog.Goods]bool)
		for _, ing := range r.Ingredients {
			if seen[ing.Goods] {
				continue
			}
			seen[ing.Goods] = true
			usageCount[ing.Goods]++
			if a.accessible(r) && a.RecipeWastePercentage[r] == 0 {
				zeroWasteAccessibleCount[ing.Goods]++
			}
		}
	}

	var candidates []catalog.Goods
	for g, n := range usageCount {
		if n >= 2 {
			candidates = append(candidates, g)
		}
	}

	score := func(g catalog.Goods) float64 {
		return a.Flow[g] * a.Goods[g] * float64(zeroWasteAccessibleCount[g])
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := score(candidates[i]), score(candidates[j])
		if si != sj {
			return si > sj
		}
		return goodsName(candidates[i]) < goodsName(candidates[j])
	})
	a.ImportantItems = candidates
}

// Cost is the cost oracle spec §6 exposes: cost(goods) -> double, +Inf
// if inaccessible or unsolved.
func (a *Analysis) Cost(g catalog.Goods) float64 {
	if v, ok := a.Goods[g]; ok {
		return v
	}
	return math.Inf(1)
}

// DisplayCost formats a cost for presentation, the displayCost(obj)
// helper spec §6 names: magnitude-adaptive unit scaling (matching the
// teacher's FormatCredits/formatNumber style for large numbers), "∞"
// for an inaccessible goods.
func (a *Analysis) DisplayCost(g catalog.Goods) string {
	c := a.Cost(g)
	if math.IsInf(c, 1) {
		return "∞"
	}
	return formatMagnitude(c)
}

// formatMagnitude scales large costs into k/M suffixed strings, the
// same readability goal FormatCredits serves for in-game credits.
func formatMagnitude(c float64) string {
	abs := math.Abs(c)
	switch {
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", c/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fk", c/1e3)
	default:
		return fmt.Sprintf("%.2f", c)
	}
}
