package costanalysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/config"
	"github.com/ironforge-labs/factoryplan/internal/lpsolve"
)

// buildSimpleDB models iron-ore -> iron-plate, the same recipe spec
// scenario 1 and 6 build on, plus an explicit crafter entity and a
// map-generated mining source for the ore, which bounds its cost.
func buildSimpleDB(t *testing.T) (*catalog.Database, *catalog.Item, *catalog.Item, *catalog.Recipe) {
	t.Helper()
	db := catalog.NewDatabase(catalog.Accessibility{})

	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-ore"}})
	plate := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-plate"}})

	drill := db.AddEntity(&catalog.Entity{
		Object:        catalog.Object{Name: "mining-drill"},
		Kind:          catalog.EntityCrafter,
		Energy:        &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
		MapGenerated:  true,
		MapGenDensity: 1000,
		Crafter:       &catalog.CrafterCapability{CraftingSpeed: 1},
	})
	db.AddRecipe(&catalog.Recipe{
		Object:       catalog.Object{Name: "mine-iron-ore"},
		Products:     []catalog.Product{{Goods: ore, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:         1,
		Enabled:      true,
		Flags:        catalog.FlagMapGeneratedSource,
		Crafters:     []*catalog.Entity{drill},
		SourceEntity: drill,
	})

	furnace := db.AddEntity(&catalog.Entity{
		Object: catalog.Object{Name: "stone-furnace"},
		Kind:   catalog.EntityCrafter,
		Energy: &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
		Crafter: &catalog.CrafterCapability{
			CraftingSpeed: 1,
		},
	})

	recipe := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "iron-plate"},
		Ingredients: []catalog.Ingredient{{Goods: ore, Amount: 1}},
		Products:    []catalog.Product{{Goods: plate, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        3.5,
		Enabled:     true,
		Crafters:    []*catalog.Entity{furnace},
	})

	db.Finalize()
	return db, ore, plate, recipe
}

func TestCostAnalysisSolvesSimpleChain(t *testing.T) {
	db, ore, plate, recipe := buildSimpleDB(t)

	a := Instance(db, config.DefaultCost(), config.DefaultSolver(), nil)
	require.Contains(t, []lpsolve.Status{lpsolve.Optimal, lpsolve.Feasible}, a.Status)
	require.False(t, math.IsInf(a.Cost(ore), 1))
	require.False(t, math.IsInf(a.Cost(plate), 1))
	require.LessOrEqual(t, a.RecipeProductCost[recipe], a.RecipeCost[recipe]+1e-6)
	require.GreaterOrEqual(t, a.RecipeWastePercentage[recipe], 0.0)
	require.LessOrEqual(t, a.RecipeWastePercentage[recipe], 1.0)
}

func TestCostAnalysisInaccessibleGoodsAreInfinite(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{
		IsAccessible: func(obj catalog.HasID) bool { return false },
	})
	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-ore"}})
	db.Finalize()

	a := Instance(db, config.DefaultCost(), config.DefaultSolver(), nil)
	require.True(t, math.IsInf(a.Cost(ore), 1))
}

func TestFluidTemperatureMonotonicity(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})

	cold := db.AddFluid(&catalog.Fluid{Object: catalog.Object{Name: "steam-165"}, OriginalName: "steam", Temperature: 165})
	hot := db.AddFluid(&catalog.Fluid{Object: catalog.Object{Name: "steam-500"}, OriginalName: "steam", Temperature: 500})

	boiler := db.AddEntity(&catalog.Entity{
		Object:  catalog.Object{Name: "boiler"},
		Kind:    catalog.EntityCrafter,
		Energy:  &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
		Crafter: &catalog.CrafterCapability{CraftingSpeed: 1},
	})
	water := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "water"}})

	// A map-generated water source bounds the cost of water, and through
	// it the cost of both steam variants.
	pump := db.AddEntity(&catalog.Entity{
		Object:        catalog.Object{Name: "offshore-pump"},
		Kind:          catalog.EntityCrafter,
		Energy:        &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
		MapGenerated:  true,
		MapGenDensity: 1000,
		Crafter:       &catalog.CrafterCapability{CraftingSpeed: 1},
	})
	db.AddRecipe(&catalog.Recipe{
		Object:       catalog.Object{Name: "pump-water"},
		Products:     []catalog.Product{{Goods: water, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:         1,
		Enabled:      true,
		Flags:        catalog.FlagMapGeneratedSource,
		Crafters:     []*catalog.Entity{pump},
		SourceEntity: pump,
	})

	db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "boil-cold"},
		Ingredients: []catalog.Ingredient{{Goods: water, Amount: 1}},
		Products:    []catalog.Product{{Goods: cold, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        1,
		Enabled:     true,
		Crafters:    []*catalog.Entity{boiler},
	})
	db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "boil-hot"},
		Ingredients: []catalog.Ingredient{{Goods: water, Amount: 1}},
		Products:    []catalog.Product{{Goods: hot, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        1,
		Enabled:     true,
		Crafters:    []*catalog.Entity{boiler},
	})
	db.Finalize()

	a := Instance(db, config.DefaultCost(), config.DefaultSolver(), nil)
	require.False(t, math.IsInf(a.Cost(cold), 1))
	require.False(t, math.IsInf(a.Cost(hot), 1))
	require.GreaterOrEqual(t, a.Cost(cold), a.Cost(hot)-1e-9)
}

func TestMiningRarityPenalty(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "rare-ore"}})

	drill := db.AddEntity(&catalog.Entity{
		Object:        catalog.Object{Name: "mining-drill"},
		Kind:          catalog.EntityCrafter,
		Energy:        &catalog.EntityEnergy{Kind: catalog.EnergyElectric, Power: 90000},
		MapGenerated:  true,
		MapGenDensity: 200,
		Crafter:       &catalog.CrafterCapability{CraftingSpeed: 1},
	})

	recipe := db.AddRecipe(&catalog.Recipe{
		Object:       catalog.Object{Name: "mine-rare-ore"},
		Products:     []catalog.Product{{Goods: ore, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:         1,
		Enabled:      true,
		Flags:        catalog.FlagMapGeneratedSource,
		Crafters:     []*catalog.Entity{drill},
		SourceEntity: drill,
	})
	db.Finalize()

	cost := config.DefaultCost()
	a := Instance(db, cost, config.DefaultSolver(), nil)

	density := drill.MapGenDensity / 1.0
	wantPenalty := 1 + math.Log(cost.MiningMaxDensityForPenalty/density)
	require.InDelta(t, wantPenalty, 1+math.Log(2000.0/200.0), 1e-9)
	require.Contains(t, []lpsolve.Status{lpsolve.Optimal, lpsolve.Feasible}, a.Status)
	require.Greater(t, a.RecipeCost[recipe], 0.0)
	require.True(t, wantPenalty > 1)
}
