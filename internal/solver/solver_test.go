package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/config"
)

func furnaceEntity(db *catalog.Database, name string) *catalog.Entity {
	return db.AddEntity(&catalog.Entity{
		Object:  catalog.Object{Name: name},
		Kind:    catalog.EntityCrafter,
		Energy:  &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
		Crafter: &catalog.CrafterCapability{CraftingSpeed: 1},
	})
}

// TestSingleRecipePage mirrors spec scenario 1.
func TestSingleRecipePage(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-ore"}})
	plate := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-plate"}})
	furnace := furnaceEntity(db, "stone-furnace")

	recipe := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "iron-plate"},
		Ingredients: []catalog.Ingredient{{Goods: ore, Amount: 1}},
		Products:    []catalog.Product{{Goods: plate, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        3.5,
		Enabled:     true,
		Crafters:    []*catalog.Entity{furnace},
	})
	db.Finalize()

	root := NewTable(nil)
	root.AddLink(plate, 1, Match)

	row := &RecipeRow{Table: root, Recipe: recipe, Crafter: furnace, Enabled: true}
	root.Rows = append(root.Rows, row)

	result, err := Solve(root, nil, config.DefaultSolver())
	require.NoError(t, err)
	require.Contains(t, []int{1, 2}, int(result.Status))
	require.InDelta(t, 1.0, row.RecipesPerSecond, 1e-6)
}

// TestFuelConsumingRecipe mirrors spec scenario 2.
func TestFuelConsumingRecipe(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-ore"}})
	plate := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-plate"}})
	coal := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "coal"}, FuelValue: 4_000_000})

	furnace := db.AddEntity(&catalog.Entity{
		Object: catalog.Object{Name: "stone-furnace"},
		Kind:   catalog.EntityCrafter,
		Energy: &catalog.EntityEnergy{
			Kind:        catalog.EnergySolidFuel,
			Power:       150_000,
			Effectivity: 1,
			Fuels:       []catalog.Goods{coal},
		},
		Crafter: &catalog.CrafterCapability{CraftingSpeed: 1},
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

	root := NewTable(nil)
	root.AddLink(plate, 1, Match)
	// coal has no link at this table: an unresolved ingredient/fuel goods
	// is treated as an unconstrained free source, same as ore above.

	row := &RecipeRow{Table: root, Recipe: recipe, Crafter: furnace, Fuel: coal, Enabled: true}
	root.Rows = append(root.Rows, row)

	result, err := Solve(root, nil, config.DefaultSolver())
	require.NoError(t, err)
	require.Contains(t, []int{1, 2}, int(result.Status))
	require.InDelta(t, 0.13125, row.Params.FuelUsagePerSecondPerRecipe, 1e-6)
}

// TestOverproductionBranch mirrors spec scenario 4: 1 X -> 2 Y + 1 Z,
// only Y demanded, no consumer or link for Z.
func TestOverproductionBranch(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	x := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "x"}})
	y := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "y"}})
	z := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "z"}})
	furnace := furnaceEntity(db, "assembler")

	recipe := db.AddRecipe(&catalog.Recipe{
		Object: catalog.Object{Name: "c"},
		Ingredients: []catalog.Ingredient{{Goods: x, Amount: 1}},
		Products: []catalog.Product{
			{Goods: y, Probability: 1, AmountMin: 2, AmountMax: 2},
			{Goods: z, Probability: 1, AmountMin: 1, AmountMax: 1},
		},
		Time:     1,
		Enabled:  true,
		Crafters: []*catalog.Entity{furnace},
	})
	db.Finalize()

	root := NewTable(nil)
	root.AddLink(y, 1, Match)
	// x has no link: an unconstrained free ingredient source.

	row := &RecipeRow{Table: root, Recipe: recipe, Crafter: furnace, Enabled: true}
	root.Rows = append(root.Rows, row)

	result, err := Solve(root, nil, config.DefaultSolver())
	require.NoError(t, err)
	require.Contains(t, []int{1, 2}, int(result.Status))
	require.InDelta(t, 0.5, row.RecipesPerSecond, 1e-6)
	// spec §8 scenario 4 expects no warnings; BuiltBuildings was never
	// pinned by this row, so the built-count check must not fire.
	require.Empty(t, result.Warning)
	require.False(t, row.Warnings.Has(ExceedsBuiltCount))
}

// TestDeadlockDetection mirrors spec scenario 3: two recipes each
// requiring the other's output, plus a consumer link demanding A.
func TestDeadlockDetection(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	a := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "a"}})
	b := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "b"}})
	crafter := furnaceEntity(db, "assembler")

	recipeA := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "recipe-a"},
		Ingredients: []catalog.Ingredient{{Goods: b, Amount: 1}},
		Products:    []catalog.Product{{Goods: a, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        1,
		Enabled:     true,
		Crafters:    []*catalog.Entity{crafter},
	})
	recipeB := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "recipe-b"},
		Ingredients: []catalog.Ingredient{{Goods: a, Amount: 1}},
		Products:    []catalog.Product{{Goods: b, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        1,
		Enabled:     true,
		Crafters:    []*catalog.Entity{crafter},
	})
	db.Finalize()

	root := NewTable(nil)
	root.AddLink(a, 1, Match)
	root.AddLink(b, 0, Match)

	rowA := &RecipeRow{Table: root, Recipe: recipeA, Crafter: crafter, Enabled: true}
	rowB := &RecipeRow{Table: root, Recipe: recipeB, Crafter: crafter, Enabled: true}
	root.Rows = append(root.Rows, rowA, rowB)

	result, err := Solve(root, nil, config.DefaultSolver())
	require.NoError(t, err)
	require.NotEqual(t, 3, int(result.Status)) // not left Infeasible after diagnosis
	require.True(t, rowA.Warnings.Has(DeadlockCandidate) || rowB.Warnings.Has(DeadlockCandidate))
}

func TestSetupIdempotence(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	plate := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-plate"}})
	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-ore"}})
	furnace := furnaceEntity(db, "stone-furnace")
	recipe := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "iron-plate"},
		Ingredients: []catalog.Ingredient{{Goods: ore, Amount: 1}},
		Products:    []catalog.Product{{Goods: plate, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        3.5,
		Enabled:     true,
		Crafters:    []*catalog.Entity{furnace},
	})
	db.Finalize()

	root := NewTable(nil)
	root.AddLink(plate, 1, Match)
	root.Rows = append(root.Rows, &RecipeRow{Table: root, Recipe: recipe, Crafter: furnace, Enabled: true})

	rows1, links1 := Setup(root)
	contains1 := root.ContainsDesiredProducts
	rows2, links2 := Setup(root)
	contains2 := root.ContainsDesiredProducts

	require.Equal(t, len(rows1), len(rows2))
	require.Equal(t, len(links1), len(links2))
	require.Equal(t, contains1, contains2)
}
