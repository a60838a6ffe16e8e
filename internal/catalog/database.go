package catalog

import "sort"

// Accessibility is the milestone/tech-unlock predicate facade this module
// consumes but never computes (spec §1, §6).
type Accessibility struct {
	IsAccessible                func(obj HasID) bool
	IsAccessibleAtNextMilestone func(obj HasID) bool
}

func (a Accessibility) accessible(obj HasID) bool {
	if a.IsAccessible == nil {
		return true
	}
	return a.IsAccessible(obj)
}

// AccessibleAtNextMilestone is the "current milestones" view Cost
// Analysis's second singleton instance solves against (spec §4.2, §9
// "CostAnalysis.Instance and InstanceAtMilestones").
func (a Accessibility) AccessibleAtNextMilestone(obj HasID) bool {
	if a.IsAccessibleAtNextMilestone == nil {
		return true
	}
	return a.IsAccessibleAtNextMilestone(obj)
}

// Database is the immutable, fully-resolved object catalog (spec §3.1,
// §4.5). Every field is populated once by the Add* methods and Finalize
// and never mutated again; the two engines only read from it.
type Database struct {
	Items        []*Item
	Fluids       []*Fluid
	Specials     []*Special
	Recipes      []*Recipe
	Technologies []*Technology
	Entities     []*Entity
	Modules      []*Module

	ItemByID       map[ID]*Item
	FluidByID      map[ID]*Fluid
	SpecialByID    map[ID]*Special
	RecipeByID     map[ID]*Recipe
	TechnologyByID map[ID]*Technology
	EntityByID     map[ID]*Entity

	// FluidVariants maps a fluid family's OriginalName to its members
	// sorted ascending by Temperature (spec §3.1 invariant).
	FluidVariants map[string][]*Fluid

	Access Accessibility

	nextID ID
}

// NewDatabase returns an empty, writable-once Database. Callers append via
// AddItem/AddFluid/.../AddEntity, then call Finalize once.
func NewDatabase(access Accessibility) *Database {
	return &Database{
		ItemByID:       make(map[ID]*Item),
		FluidByID:      make(map[ID]*Fluid),
		SpecialByID:    make(map[ID]*Special),
		RecipeByID:     make(map[ID]*Recipe),
		TechnologyByID: make(map[ID]*Technology),
		EntityByID:     make(map[ID]*Entity),
		FluidVariants:  make(map[string][]*Fluid),
		Access:         access,
	}
}

func (d *Database) allocID() ID {
	id := d.nextID
	d.nextID++
	return id
}

func (d *Database) AddItem(it *Item) *Item {
	it.ID = d.allocID()
	d.Items = append(d.Items, it)
	d.ItemByID[it.ID] = it
	return it
}

func (d *Database) AddFluid(f *Fluid) *Fluid {
	f.ID = d.allocID()
	d.Fluids = append(d.Fluids, f)
	d.FluidByID[f.ID] = f
	d.FluidVariants[f.OriginalName] = append(d.FluidVariants[f.OriginalName], f)
	return f
}

func (d *Database) AddSpecial(s *Special) *Special {
	s.ID = d.allocID()
	d.Specials = append(d.Specials, s)
	d.SpecialByID[s.ID] = s
	return s
}

func (d *Database) AddRecipe(r *Recipe) *Recipe {
	r.ID = d.allocID()
	d.Recipes = append(d.Recipes, r)
	d.RecipeByID[r.ID] = r
	return r
}

func (d *Database) AddTechnology(t *Technology) *Technology {
	t.ID = d.allocID()
	d.Technologies = append(d.Technologies, t)
	d.TechnologyByID[t.ID] = t
	return t
}

func (d *Database) AddEntity(e *Entity) *Entity {
	e.ID = d.allocID()
	d.Entities = append(d.Entities, e)
	d.EntityByID[e.ID] = e
	return e
}

func (d *Database) AddModule(m *Module) *Module {
	d.Modules = append(d.Modules, m)
	return m
}

// Finalize sorts each fluid-variant family ascending by temperature,
// locking in the ordering Cost Analysis's monotonicity constraint relies
// on (spec §3.1).
func (d *Database) Finalize() {
	for name, variants := range d.FluidVariants {
		sorted := append([]*Fluid(nil), variants...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Temperature < sorted[j].Temperature })
		for _, f := range sorted {
			f.Variants = sorted
		}
		d.FluidVariants[name] = sorted
	}
}

// IsAccessible delegates to the consumed milestone predicate.
func (d *Database) IsAccessible(obj HasID) bool { return d.Access.accessible(obj) }

// IsAccessibleAtNextMilestone delegates to the consumed "next milestone"
// predicate, the eligibility test InstanceAtMilestones solves against.
func (d *Database) IsAccessibleAtNextMilestone(obj HasID) bool {
	return d.Access.AccessibleAtNextMilestone(obj)
}

// Mapping is a dense array indexed by ID, the shape CreateMapping returns
// (spec §4.5). Entries for ids not present in the source collection are
// the zero value of V.
type Mapping[V any] []V

// NewMapping allocates a Mapping sized to the collection's id range.
// CreateMapping<T> in spec §4.5: returns a dense array indexed by the
// collection's id range.
func NewMapping[T HasID, V any](items []T) Mapping[V] {
	max := ID(-1)
	for _, it := range items {
		if it.GetID() > max {
			max = it.GetID()
		}
	}
	return make(Mapping[V], max+1)
}

func (m Mapping[V]) Get(id ID) V { return m[id] }

func (m Mapping[V]) Set(id ID, v V) { m[id] = v }
