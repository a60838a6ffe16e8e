// Package lpsolve implements the LP solver contract spec §6 names as a
// consumed external collaborator (makeVar/makeConstraint/setCoefficient/
// solve/solutionValue/dualValue/basisStatus). No third-party Go package in
// the retrieval pack exposes that exact contract (a bounded-variable
// simplex with dual values and basis status, the shape of Google
// OR-Tools' MPSolver that the original calculator used) — see DESIGN.md
// for why this is implemented in-house rather than wired to a pack
// dependency. It is a dense Big-M simplex: adequate for the modest
// per-page LPs a production table produces, traded for implementation
// clarity over the sparse revised simplex a production solver would use.
package lpsolve

import (
	"math"

	"github.com/ironforge-labs/factoryplan/internal/logger"
)

var log = logger.WithComponent("LPSolve")

// Status is the terminal state of a Solve call.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Feasible
	Infeasible
	Unbounded
	Abnormal
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "OPTIMAL"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	case Unbounded:
		return "UNBOUNDED"
	case Abnormal:
		return "ABNORMAL"
	default:
		return "NOT_SOLVED"
	}
}

// BasisStatus classifies a constraint's slack in the final basis.
type BasisStatus int

const (
	Basic BasisStatus = iota
	AtLowerBound
	AtUpperBound
	Free
)

const inf = math.MaxFloat64 / 4 // a large finite stand-in for +/-Infinity, keeps the tableau arithmetic well defined

// Var is a decision variable with bounds [LB, UB] (either may be
// +/-Inf).
type Var struct {
	idx      int
	lb, ub   float64
	name     string
	solution float64
}

func (v *Var) SolutionValue() float64 { return v.solution }
func (v *Var) Name() string           { return v.name }

// Constraint is a row with bounds [LB, UB] on Sum(coef[j]*x[j]).
type Constraint struct {
	idx    int
	lb, ub float64
	name   string
	coef   map[int]float64 // varIdx -> accumulated coefficient
	dual   float64
	basis  BasisStatus
	value  float64 // resolved Sum(coef[j]*x[j]) after a successful solve
}

// SetBounds overrides a constraint's [lb, ub] range before Solve is
// called, the mechanism link relaxation uses (spec §4.3 step 4: "relax
// it to [-Inf, +Inf]").
func (c *Constraint) SetBounds(lb, ub float64) {
	c.lb = clampInf(lb)
	c.ub = clampInf(ub)
}

func (c *Constraint) DualValue() float64         { return c.dual }
func (c *Constraint) BasisStatus() BasisStatus { return c.basis }
func (c *Constraint) Name() string               { return c.name }
func (c *Constraint) Value() float64             { return c.value }

// Solver accumulates variables/constraints for exactly one solve, per
// spec §5 ("LP solver instances ... are scoped to one solve").
type Solver struct {
	vars      []*Var
	ctrs      []*Constraint
	objective map[int]float64
	maximize  bool
	status    Status
}

func New() *Solver {
	return &Solver{objective: make(map[int]float64)}
}

func (s *Solver) MakeVar(lb, ub float64, name string) *Var {
	v := &Var{idx: len(s.vars), lb: clampInf(lb), ub: clampInf(ub), name: name}
	s.vars = append(s.vars, v)
	return v
}

func (s *Solver) MakeConstraint(lb, ub float64, name string) *Constraint {
	c := &Constraint{idx: len(s.ctrs), lb: clampInf(lb), ub: clampInf(ub), name: name, coef: make(map[int]float64)}
	s.ctrs = append(s.ctrs, c)
	return c
}

func clampInf(v float64) float64 {
	if math.IsInf(v, 1) {
		return inf
	}
	if math.IsInf(v, -1) {
		return -inf
	}
	return v
}

// SetCoefficient accumulates rather than overwrites, the "same variable
// seen twice" fast path spec §9 calls out.
func (c *Constraint) SetCoefficient(v *Var, coef float64) {
	c.coef[v.idx] += coef
}

// AddCoefficient is an explicit alias for the accumulating behavior, so
// call sites that mean to add a contribution read that way (spec §9).
func (c *Constraint) AddCoefficient(v *Var, coef float64) { c.SetCoefficient(v, coef) }

func (c *Constraint) GetCoefficient(v *Var) float64 { return c.coef[v.idx] }

func (s *Solver) SetObjectiveCoefficient(v *Var, coef float64) { s.objective[v.idx] = coef }
func (s *Solver) SetMaximize()                                 { s.maximize = true }
func (s *Solver) SetMinimize()                                 { s.maximize = false }

// Solve runs the simplex once. See SolveWithDifferentSeeds for the
// deterministic-tiebreak variant spec §6 names.
func (s *Solver) Solve() Status {
	return s.solveWithSeed(0)
}

// SolveWithDifferentSeeds re-solves with varying entering-variable
// tie-break orders and keeps the lexicographically-smallest solution
// vector, giving spec §8's "solver determinism" property a concrete
// mechanism (SPEC_FULL §12).
func (s *Solver) SolveWithDifferentSeeds(seeds []int64) Status {
	var bestStatus Status
	var bestSolution []float64
	for i, seed := range seeds {
		status := s.solveWithSeed(seed)
		if status != Optimal && status != Feasible {
			if i == 0 {
				bestStatus = status
			}
			continue
		}
		sol := make([]float64, len(s.vars))
		for j, v := range s.vars {
			sol[j] = v.solution
		}
		if bestSolution == nil || lexLess(sol, bestSolution) {
			bestSolution = sol
			bestStatus = status
		}
	}
	if bestSolution != nil {
		for j, v := range s.vars {
			v.solution = bestSolution[j]
		}
	}
	s.status = bestStatus
	return bestStatus
}

func lexLess(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (s *Solver) solveWithSeed(seed int64) Status {
	t, err := buildTableau(s, seed)
	if err != nil {
		log.Error("failed to build tableau: %v", err)
		s.status = Abnormal
		return Abnormal
	}
	status := t.run()
	s.status = status
	if status == Optimal || status == Feasible {
		t.writeBack(s)
	}
	return status
}
