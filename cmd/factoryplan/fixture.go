package main

import "github.com/ironforge-labs/factoryplan/internal/catalog"

// fixture is a small hand-built mod pack: iron ore mined on the map,
// smelted into plate by a coal-fired furnace. Large enough to exercise
// both engines end to end without a real data loader, which spec.md
// treats as an external collaborator.
type fixture struct {
	DB      *catalog.Database
	Ore     *catalog.Item
	Plate   *catalog.Item
	Coal    *catalog.Item
	Furnace *catalog.Entity
	Drill   *catalog.Entity
	Mine    *catalog.Recipe
	Smelt   *catalog.Recipe
}

func buildFixture() *fixture {
	db := catalog.NewDatabase(catalog.Accessibility{})

	ore := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-ore"}})
	plate := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "iron-plate"}})
	coal := db.AddItem(&catalog.Item{Object: catalog.Object{Name: "coal"}, FuelValue: 4_000_000})

	drill := db.AddEntity(&catalog.Entity{
		Object:        catalog.Object{Name: "electric-mining-drill"},
		Kind:          catalog.EntityCrafter,
		Energy:        &catalog.EntityEnergy{Kind: catalog.EnergyElectric, Power: 90_000, Effectivity: 1},
		MapGenerated:  true,
		MapGenDensity: 1_000,
		Crafter:       &catalog.CrafterCapability{CraftingSpeed: 1},
	})
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

	mine := db.AddRecipe(&catalog.Recipe{
		Object:       catalog.Object{Name: "mine-iron-ore"},
		Products:     []catalog.Product{{Goods: ore, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:         2,
		Enabled:      true,
		Flags:        catalog.FlagMapGeneratedSource,
		Crafters:     []*catalog.Entity{drill},
		SourceEntity: drill,
	})
	smelt := db.AddRecipe(&catalog.Recipe{
		Object:      catalog.Object{Name: "iron-plate"},
		Ingredients: []catalog.Ingredient{{Goods: ore, Amount: 1}},
		Products:    []catalog.Product{{Goods: plate, Probability: 1, AmountMin: 1, AmountMax: 1}},
		Time:        3.5,
		Enabled:     true,
		Crafters:    []*catalog.Entity{furnace},
	})

	db.Finalize()

	return &fixture{
		DB: db, Ore: ore, Plate: plate, Coal: coal,
		Furnace: furnace, Drill: drill, Mine: mine, Smelt: smelt,
	}
}
