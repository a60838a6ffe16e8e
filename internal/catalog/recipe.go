package catalog

// RecipeFlags are boolean markers on a Recipe that change how the rest of
// the core treats it, rather than changing its ingredient/product shape.
type RecipeFlags uint32

const (
	// FlagTimeOverridden marks a special marker recipe (e.g. a
	// technology's "research" pseudo-recipe) whose Time is meaningful
	// despite not representing real crafting throughput; the invariant
	// "r.time > 0" is waived for these (spec §3.1).
	FlagTimeOverridden RecipeFlags = 1 << iota
	// FlagMapGeneratedSource marks a recipe whose SourceEntity produces
	// goods by consuming a map-generated resource patch (mining), which
	// feeds the Cost Analysis mining-rarity penalty (spec §4.2).
	FlagMapGeneratedSource
)

func (f RecipeFlags) Has(flag RecipeFlags) bool { return f&flag != 0 }

// Ingredient is a (Goods, amount) pair consumed once per recipe execution.
type Ingredient struct {
	Goods  Goods
	Amount float64
}

// Product is a (Goods, yield) tuple produced once per recipe execution.
// The portion of Amount that is Catalyst re-enters the same recipe as an
// ingredient and is therefore excluded from the productivity bonus
// (spec §3.1, GLOSSARY).
type Product struct {
	Goods       Goods
	Probability float64
	AmountMin   float64
	AmountMax   float64
	Catalyst    float64
}

// Amount is the expected yield per execution:
// probability * (amountMin + amountMax) / 2 (spec §3.1 invariant).
func (p Product) Amount() float64 {
	return p.Probability * (p.AmountMin + p.AmountMax) / 2
}

// ProductivityAmount is the portion of Amount subject to the productivity
// bonus: the yield minus the catalyst portion, floored at zero.
func (p Product) ProductivityAmount() float64 {
	a := p.Amount() - p.Catalyst
	if a < 0 {
		return 0
	}
	return a
}

// Recipe is a transformation with ingredients, products, a crafting time,
// and the set of Entities able to execute it (spec §3.1, GLOSSARY).
type Recipe struct {
	Object
	Ingredients []Ingredient
	Products    []Product
	Time        float64 // seconds per execution at speed=1, productivity=0
	Flags       RecipeFlags
	Enabled     bool
	Crafters    []*Entity // entities whose Kind == EntityCrafter capable of running this recipe
	// AllowedModules restricts which modules this specific recipe
	// accepts, in addition to whatever the chosen crafter allows (spec
	// §4.1: "some recipes only admit a subset"). Nil means "no
	// recipe-specific restriction" — defer entirely to the crafter.
	AllowedModules []*Item
	SourceEntity   *Entity // e.g. the mining drill/pumpjack that "produces" this recipe's output
	MainProduct    Goods   // optional; nil if the recipe has no single designated main product
	UnlockedBy     []*Technology
}

// Technology is a Recipe-shaped research unlock: it has the same
// ingredient/time/crafter shape (a lab "crafts" it using science packs as
// ingredients) plus a prerequisite DAG and the recipes it unlocks
// (spec §3.1).
type Technology struct {
	Recipe
	Prerequisites []*Technology
	UnlockRecipes []*Recipe
	Count         float64 // number of repetitions required, for infinite/repeatable techs
}
