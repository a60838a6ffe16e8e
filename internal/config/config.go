// Package config loads the cost-model and solver tolerances that the
// rest of the core treats as pure constants, the way the teacher's
// ManufacturingConfig is a plain struct with a Default constructor — with
// Load applying viper overrides to a subset of them (see Load) without a
// rebuild; the remaining fields always keep their defaults.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Cost holds the Cost Analysis constants from spec §4.2.
type Cost struct {
	CostLowerLimit               float64 // lower bound for every cost variable
	CostLimitWhenGeneratesOnMap  float64 // numerator of upper(g) for map-generated goods
	CostPerSecond                float64 // base logistics rate
	CostPerIngredientPerSize     float64
	CostPerProductPerSize        float64
	CostPerMj                    float64
	CostPerItem                  float64
	CostPerFluid                 float64
	CostPerPollution             float64
	PollutionCostModifier        float64
	MiningMaxDensityForPenalty   float64
	MiningMaxExtraPenaltyForRarity float64
	MinCrafterSize               int
}

// Solver holds Production Table Solver tolerances.
type Solver struct {
	Epsilon          float64 // numerical tolerance for property checks and zero-comparisons
	DeterminismSeeds []int64 // seeds tried by solveWithDifferentSeeds, in order
}

// DefaultCost returns the values the original calculator ships with.
func DefaultCost() Cost {
	return Cost{
		CostLowerLimit:                  -10,
		CostLimitWhenGeneratesOnMap:     1e6,
		CostPerSecond:                   0.1,
		CostPerIngredientPerSize:        0.05,
		CostPerProductPerSize:           0.05,
		CostPerMj:                       0.1,
		CostPerItem:                     0.01,
		CostPerFluid:                    0.001,
		CostPerPollution:                0.01,
		PollutionCostModifier:           1.0,
		MiningMaxDensityForPenalty:      2000,
		MiningMaxExtraPenaltyForRarity:  10,
		MinCrafterSize:                  1,
	}
}

func DefaultSolver() Solver {
	return Solver{
		Epsilon:          1e-6,
		DeterminismSeeds: []int64{1, 7, 13, 101, 9973},
	}
}

// Load reads Cost and Solver overrides from the named config file (if it
// exists) and from FACTORYPLAN_-prefixed environment variables, falling
// back to DefaultCost/DefaultSolver for anything unset. Only the six keys
// applied below are read; every other field keeps its default.
func Load(path string) (Cost, Solver, error) {
	v := viper.New()
	v.SetEnvPrefix("FACTORYPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cost := DefaultCost()
	slv := DefaultSolver()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return cost, slv, err
			}
		}
	}

	applyOverride(v, "cost.lowerlimit", &cost.CostLowerLimit)
	applyOverride(v, "cost.limitwhengenerates", &cost.CostLimitWhenGeneratesOnMap)
	applyOverride(v, "cost.persecond", &cost.CostPerSecond)
	applyOverride(v, "cost.peritem", &cost.CostPerItem)
	applyOverride(v, "cost.perfluid", &cost.CostPerFluid)
	applyOverride(v, "solver.epsilon", &slv.Epsilon)

	return cost, slv, nil
}

func applyOverride(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}
