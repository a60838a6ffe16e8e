package search_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironforge-labs/factoryplan/internal/catalog"
	"github.com/ironforge-labs/factoryplan/internal/search"
	"github.com/ironforge-labs/factoryplan/internal/solver"
)

func buildSubgroupFixture(t *testing.T) (*solver.ProductionTable, *solver.RecipeRow, catalog.Goods) {
	t.Helper()
	db := catalog.NewDatabase(catalog.Accessibility{})
	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "copper-ore"}})
	plate := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "copper-plate"}})
	furnace := db.AddEntity(&catalog.Entity{
		Object:  catalog.Object{Name: "stone-furnace"},
		Kind:    catalog.EntityCrafter,
		Energy:  &catalog.EntityEnergy{Kind: catalog.EnergyVoid},
		Crafter: &catalog.CrafterCapability{CraftingSpeed: 1},
	})
	recipe := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "copper-plate"},
		Ingredients: []catalog.Ingredient{{Goods: ore, Amount: 1}},
		Products:    []catalog.Product{{Goods: plate, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        3.2,
		Enabled:     true,
		Crafters:    []*catalog.Entity{furnace},
	})
	db.Finalize()

	root := solver.NewTable(nil)
	parentRow := &solver.RecipeRow{Table: root}
	sub := solver.NewTable(parentRow)
	parentRow.Subgroup = sub
	root.Rows = append(root.Rows, parentRow)

	row := &solver.RecipeRow{Table: sub, Recipe: recipe, Crafter: furnace, Enabled: true}
	sub.Rows = append(sub.Rows, row)

	return root, row, ore
}

func TestMatchWalksSubgroups(t *testing.T) {
	root, _, _ := buildSubgroupFixture(t)
	require.True(t, search.Match(root, "copper-plate"))
	require.True(t, search.Match(root, "STONE-FURNACE"))
	require.False(t, search.Match(root, "iron"))
}

func TestMatchEmptyQueryAlwaysTrue(t *testing.T) {
	root, _, _ := buildSubgroupFixture(t)
	require.True(t, search.Match(root, ""))
}

func TestFindLinkWalksOwnerChain(t *testing.T) {
	root, row, ore := buildSubgroupFixture(t)
	link := root.AddLink(ore, -1, solver.AllowOverConsumption)

	found := search.FindLink(row.Table, ore)
	require.Same(t, link, found)

	require.Nil(t, search.FindLink(row.Table, nil))
}

func TestHasSpentFuel(t *testing.T) {
	coal := &catalog.Item{Object: catalog.Object{Name: "coal"}}
	ash := &catalog.Item{Object: catalog.Object{Name: "ash"}}
	row := &solver.RecipeRow{Fuel: coal}
	require.False(t, search.HasSpentFuel(row))

	coal.FuelResult = ash
	require.True(t, search.HasSpentFuel(row))
}
