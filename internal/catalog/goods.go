package catalog

// Item is a discrete, stack-based Goods (spec §3.1 table row 1).
type Item struct {
	Object
	StackSize   int
	FuelValue   float64 // energy density when burned as fuel; 0 if not a fuel
	FuelResult  *Item   // what burning one of these in a furnace/boiler leaves behind, if anything
	PlaceResult *Entity // the Entity this item places in the world, if any
	// MiscSource is a non-recipe goods this item derives its value from
	// (e.g. a reward redeemed from a science pack rather than crafted).
	// Nil if the item has no such fallback source; feeds the Cost
	// Analysis tie-break x[item] - x[source] <= 0 (spec §4.2).
	MiscSource Goods
}

func (i *Item) GoodsName() string { return i.Name }

// Fluid is a temperature-variant Goods. Fluids sharing OriginalName form a
// temperature-variant list, sorted ascending by Temperature; cost across
// that list must be monotone non-increasing with temperature (enforced as
// an LP constraint in Cost Analysis, not here).
type Fluid struct {
	Object
	OriginalName     string
	Temperature      float64
	TemperatureMin   float64
	TemperatureMax   float64
	HeatCapacity     float64
	HeatValue        float64
	Variants         []*Fluid // the full sorted-ascending list this fluid belongs to, including itself
}

func (f *Fluid) GoodsName() string { return f.Name }

// Special is a non-physical Goods: electrical power or research (science
// pack progress units that aren't consumed like an item).
type Special struct {
	Object
	IsPower    bool
	IsResearch bool
}

func (s *Special) GoodsName() string { return s.Name }
