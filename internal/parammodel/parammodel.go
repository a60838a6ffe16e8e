// Package parammodel computes the per-row derived quantities spec §4.1
// calls the Parameter Model: effective crafting time, productivity,
// fuel consumption, and pollution for a chosen (recipe, crafter, fuel,
// modules, beacons) tuple. It is a pure function — calculate() has no
// side effects and is called once per row before each solve.
package parammodel

import (
	"math"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/logger"
)

var log = logger.WithComponent("ParameterModel")

// BeaconConfig describes beacons aimed at a row: how many, what module
// layout they carry.
type BeaconConfig struct {
	Beacon  *catalog.Entity
	Count   int
	Modules []*catalog.Module // modules placed inside each beacon
}

// Input is everything Parameters needs to compute a row's derived
// quantities (spec §4.1's "(recipe, crafter, fuel, modules, beacons)
// tuple").
type Input struct {
	Recipe              *catalog.Recipe
	Crafter             *catalog.Entity
	Fuel                catalog.Goods
	Modules             []*catalog.Module // modules placed in the crafter itself
	Beacons             []BeaconConfig
	ResearchSpeedBonus  float64 // project-wide bonus applied only to labs (spec §4.1)
}

// Parameters are the outputs of the model for one row.
type Parameters struct {
	RecipeTime                   float64 // seconds per execution after speed bonuses
	Productivity                 float64 // fraction, e.g. 0.25 == +25%
	FuelUsagePerSecondPerBuilding float64
	FuelUsagePerSecondPerRecipe   float64 // NaN if no fuel is resolvable
	Pollution                    float64 // pollution per second per building
}

// Calculate is the pure function spec §4.1 names calculate(row) →
// Parameters.
func Calculate(in Input) Parameters {
	speedBonus := 0.0
	prod := 0.0

	if in.Crafter != nil && in.Crafter.Crafter != nil {
		prod += in.Crafter.Crafter.Productivity
	}

	for _, m := range in.Modules {
		if !catalog.ModuleAllowed(m, in.Crafter, in.Recipe) {
			log.Warn("module %s not allowed on recipe %s, skipping", m.Item.Name, in.Recipe.Name)
			continue
		}
		speedBonus += m.Speed
		prod += m.Productivity
	}

	for _, bc := range in.Beacons {
		if bc.Beacon == nil || bc.Beacon.Beacon == nil || bc.Count <= 0 {
			continue
		}
		beaconModuleSpeed := 0.0
		for _, m := range bc.Modules {
			if !catalog.ModuleAllowed(m, in.Crafter, in.Recipe) {
				continue
			}
			beaconModuleSpeed += m.Speed
		}
		speedBonus += float64(bc.Count) * bc.Beacon.Beacon.Efficiency * beaconModuleSpeed
	}

	if in.Crafter != nil && in.Crafter.Crafter != nil && in.Crafter.Crafter.ResearchSpeed {
		speedBonus += in.ResearchSpeedBonus
	}

	craftingSpeed := 1.0
	if in.Crafter != nil && in.Crafter.Crafter != nil {
		craftingSpeed = in.Crafter.Crafter.CraftingSpeed
	}

	recipeTime := in.Recipe.Time
	denom := craftingSpeed * (1 + speedBonus)
	if denom > 0 {
		recipeTime = in.Recipe.Time / denom
	}

	fuelPerBuilding, fuelPerRecipe := fuelUsage(in, recipeTime)

	pollution := 0.0
	if in.Crafter != nil && in.Crafter.Energy != nil {
		pollution = in.Crafter.Energy.Emissions * fuelPerBuilding
	}

	return Parameters{
		RecipeTime:                    recipeTime,
		Productivity:                  prod,
		FuelUsagePerSecondPerBuilding: fuelPerBuilding,
		FuelUsagePerSecondPerRecipe:   fuelPerRecipe,
		Pollution:                     pollution,
	}
}

// fuelUsage returns (perBuilding, perRecipe); perRecipe is NaN when no
// fuel is resolvable (spec §4.1: "solver must skip fuel terms in that
// case").
func fuelUsage(in Input, recipeTime float64) (float64, float64) {
	if in.Crafter == nil || in.Crafter.Energy == nil {
		return 0, math.NaN()
	}
	energy := in.Crafter.Energy
	switch energy.Kind {
	case catalog.EnergyVoid, catalog.EnergyElectric, catalog.EnergyHeat:
		// Power is free of a discrete "fuel goods" term; callers track it
		// separately as electricity/heat demand, not a link flow here.
		return 0, math.NaN()
	}

	if energy.Effectivity <= 0 || in.Fuel == nil {
		return 0, math.NaN()
	}

	power := energy.Power
	if power > energy.FuelConsumptionLimit && energy.FuelConsumptionLimit > 0 {
		power = energy.FuelConsumptionLimit
	}

	fuelValue := fuelValueOf(in.Fuel)
	if fuelValue <= 0 {
		return 0, math.NaN()
	}

	perBuilding := power / energy.Effectivity / fuelValue
	perRecipe := perBuilding * recipeTime
	return perBuilding, perRecipe
}

// fuelValueOf extracts the energy density of a fuel Goods.
func fuelValueOf(g catalog.Goods) float64 {
	switch v := g.(type) {
	case *catalog.Fluid:
		return v.HeatValue
	case *catalog.Item:
		return v.FuelValue
	default:
		return 0
	}
}
