package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironforge-labs/factoryplan/internal/costanalysis"
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Run Cost Analysis over the fixture pack and print costs",
	RunE: func(cmd *cobra.Command, args []string) error {
		fx := buildFixture()
		analysis := costanalysis.Instance(fx.DB, cost, solverCfg, nil)

		fmt.Printf("status: %s\n", analysis.Status)
		fmt.Printf("iron-ore:   %s\n", analysis.DisplayCost(fx.Ore))
		fmt.Printf("iron-plate: %s\n", analysis.DisplayCost(fx.Plate))
		fmt.Printf("coal:       %s\n", analysis.DisplayCost(fx.Coal))
		fmt.Printf("recipe waste (iron-plate): %.4f\n", analysis.RecipeWastePercentage[fx.Smelt])

		if len(analysis.ImportantItems) > 0 {
			fmt.Println("important items:")
			for _, g := range analysis.ImportantItems {
				fmt.Printf("  %s\n", g.GoodsName())
			}
		}
		return nil
	},
}
