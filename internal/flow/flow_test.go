package flow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/config"
	"github.com/ironforge-labs/factoryplan/internal/flow"
	"github.com/ironforge-labs/factoryplan/internal/solver"
)

// TestSingleRecipeFlow mirrors spec scenario 1: flow includes both the
// matched product link and the unlinked ingredient, ordered ascending.
func TestSingleRecipeFlow(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-ore"}})
	plate := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-plate"}})
	furnace := db.AddEntity(&catalog.Entity{
		Object:  catalog.Object{Name: "stone-furnace"},
		Kind:    catalog.EntityCrafter,
		Energy:  &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
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

	root := solver.NewTable(nil)
	root.AddLink(plate, 1, solver.Match)
	row := &solver.RecipeRow{Table: root, Recipe: recipe, Crafter: furnace, Enabled: true}
	root.Rows = append(root.Rows, row)

	_, err := solver.Solve(root, nil, config.DefaultSolver())
	require.NoError(t, err)

	flows := flow.Aggregate(root)
	entries := flows[root]
	require.Len(t, entries, 2)
	require.Equal(t, ore, entries[0].Goods)
	require.InDelta(t, -1.0, entries[0].Amount, 1e-6)
	require.Equal(t, plate, entries[1].Goods)
	require.InDelta(t, 1.0, entries[1].Amount, 1e-6)
}

// TestOverproductionFlowIncludesByproduct mirrors spec scenario 4.
func TestOverproductionFlowIncludesByproduct(t *testing.T) {
	db := catalog.NewDatabase(catalog.Accessibility{})
	x := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "x"}})
	y := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "y"}})
	z := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "z"}})
	furnace := db.AddEntity(&catalog.Entity{
		Object:  catalog.Object{Name: "assembler"},
		Kind:    catalog.EntityCrafter,
		Energy:  &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
		Crafter: &catalog.CrafterCapability{CraftingSpeed: 1},
	})
	recipe := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "c"},
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

	root := solver.NewTable(nil)
	root.AddLink(y, 1, solver.Match)
	row := &solver.RecipeRow{Table: root, Recipe: recipe, Crafter: furnace, Enabled: true}
	root.Rows = append(root.Rows, row)

	_, err := solver.Solve(root, nil, config.DefaultSolver())
	require.NoError(t, err)

	flows := flow.Aggregate(root)
	entries := flows[root]

	var zAmount float64
	var found bool
	for _, e := range entries {
		if e.Goods == z {
			zAmount = e.Amount
			found = true
		}
	}
	require.True(t, found)
	require.InDelta(t, 0.5, zAmount, 1e-6)
}
