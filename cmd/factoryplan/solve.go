package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironforge-labs/factoryplan/internal/costanalysis"
	"github.com/ironforge-labs/factoryplan/internal/flow"
	"github.com/ironforge-labs/factoryplan/internal/solver"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a demo production page over the fixture pack",
	RunE: func(cmd *cobra.Command, args []string) error {
		fx := buildFixture()
		analysis := costanalysis.Instance(fx.DB, cost, solverCfg, nil)

		root := solver.NewTable(nil)
		root.AddLink(fx.Plate, 1, solver.Match)

		root.Rows = append(root.Rows,
			&solver.RecipeRow{Table: root, Recipe: fx.Mine, Crafter: fx.Drill, Enabled: true},
			&solver.RecipeRow{Table: root, Recipe: fx.Smelt, Crafter: fx.Furnace, Fuel: fx.Coal, Enabled: true},
		)

		result, err := solver.Solve(root, analysis, solverCfg)
		if err != nil {
			return err
		}

		fmt.Printf("status: %s\n", result.Status)
		if result.Warning != "" {
			fmt.Println("warning:", result.Warning)
		}
		for _, row := range root.Rows {
			fmt.Printf("  %-16s %.4f/s\n", row.Recipe.Name, row.RecipesPerSecond)
		}

		for _, entry := range flow.Aggregate(root)[root] {
			fmt.Printf("  flow %-16s %+.4f\n", entry.Goods.GoodsName(), entry.Amount)
		}
		return nil
	},
}
