package lpsolve

// bigM dominates any realistic cost coefficient in this domain (costs are
// bounded by config.Cost.CostLimitWhenGeneratesOnMap, documented around
// 1e6) so an artificial variable left basic at a positive value always
// looks worse than any real solution.
const bigM = 1e12

const maxIterations = 20000

// substitution describes how a bounded cell (an original Var or
// Constraint-slack) maps onto one or two non-negative simplex columns.
type substitution struct {
	lb, ub float64
	// single-column case: cell = offset + sign*y[col]
	col    int
	sign   float64
	offset float64
	// free-variable case: cell = y[colPos] - y[colNeg]
	split   bool
	colPos  int
	colNeg  int
	hasUB   bool
	ubSlack int // column of the slack closing the explicit upper-bound row, if hasUB
}

func (sub substitution) valueFrom(y []float64) float64 {
	if sub.split {
		return y[sub.colPos] - y[sub.colNeg]
	}
	return sub.offset + sub.sign*y[sub.col]
}

type tableau struct {
	nCols int
	nRows int
	a     [][]float64 // nRows x (nCols+1), last column is RHS
	cost  []float64   // nCols, Big-M objective (minimize)
	basis []int       // nRows -> basic column index

	subs []substitution // per-cell substitutions, indexed [0,n) struct vars then [n,n+m) slacks

	nStruct int
	nCtrs   int
	seed    int64
}

func buildTableau(s *Solver, seed int64) (*tableau, error) {
	n := len(s.vars)
	m := len(s.ctrs)

	sign := 1.0
	if s.maximize {
		sign = -1.0
	}

	t := &tableau{nStruct: n, nCtrs: m, seed: seed}
	t.subs = make([]substitution, n+m)

	nextCol := 0
	alloc := func() int { c := nextCol; nextCol++; return c }

	makeSub := func(lb, ub float64) substitution {
		sub := substitution{lb: lb, ub: ub}
		switch {
		case lb <= -inf && ub >= inf:
			sub.split = true
			sub.colPos = alloc()
			sub.colNeg = alloc()
		case lb > -inf && ub >= inf:
			sub.col = alloc()
			sub.sign = 1
			sub.offset = lb
		case lb <= -inf && ub < inf:
			sub.col = alloc()
			sub.sign = -1
			sub.offset = ub
		default:
			sub.col = alloc()
			sub.sign = 1
			sub.offset = lb
			sub.hasUB = true
			sub.ubSlack = alloc()
		}
		return sub
	}

	for j, v := range s.vars {
		t.subs[j] = makeSub(v.lb, v.ub)
	}
	for k, c := range s.ctrs {
		t.subs[n+k] = makeSub(c.lb, c.ub)
	}

	// Count rows: one equality per original constraint, one <= row per
	// cell that needed an explicit upper-bound closure, plus one
	// artificial per equality row.
	ubRows := 0
	for _, sub := range t.subs {
		if sub.hasUB {
			ubRows++
		}
	}
	t.nRows = m + ubRows

	// Reserve artificial columns for the m equality rows up front so we
	// know the final column count before allocating the dense matrix.
	artificialBase := nextCol
	nextCol += m
	t.nCols = nextCol

	t.a = make([][]float64, t.nRows)
	for i := range t.a {
		t.a[i] = make([]float64, t.nCols+1)
	}
	t.cost = make([]float64, t.nCols)
	t.basis = make([]int, t.nRows)

	addTerm := func(row int, sub substitution, coef float64) {
		if coef == 0 {
			return
		}
		if sub.split {
			t.a[row][sub.colPos] += coef
			t.a[row][sub.colNeg] -= coef
			return
		}
		t.a[row][sub.col] += coef * sub.sign
		t.a[row][t.nCols] -= coef * sub.offset // move the constant to the RHS
	}

	// Equality rows: sum_j A[k][j] x_j - slack_k = 0
	for k, c := range s.ctrs {
		row := k
		for j, v := range s.vars {
			coef := c.coef[v.idx]
			addTerm(row, t.subs[j], coef)
		}
		addTerm(row, t.subs[n+k], -1)

		if t.a[row][t.nCols] < 0 {
			for col := 0; col < t.nCols; col++ {
				t.a[row][col] = -t.a[row][col]
			}
			t.a[row][t.nCols] = -t.a[row][t.nCols]
		}

		artCol := artificialBase + k
		t.a[row][artCol] = 1
		t.basis[row] = artCol
		t.cost[artCol] = bigM
	}

	// Upper-bound closure rows: y_i + ubSlack_i = ub_i - lb_i
	row := m
	for _, sub := range t.subs {
		if !sub.hasUB {
			continue
		}
		width := sub.ub - sub.lb
		t.a[row][sub.col] = 1
		t.a[row][sub.ubSlack] = 1
		t.a[row][t.nCols] = width
		t.basis[row] = sub.ubSlack
		row++
	}

	// Objective, expressed over y columns (minimize).
	for j, v := range s.vars {
		c := sign * s.objective[v.idx]
		applyCost(t, t.subs[j], c)
	}
	// Constraint slacks never carry an objective coefficient of their own.

	return t, nil
}

func applyCost(t *tableau, sub substitution, c float64) {
	if c == 0 {
		return
	}
	if sub.split {
		t.cost[sub.colPos] += c
		t.cost[sub.colNeg] -= c
		return
	}
	t.cost[sub.col] += c * sub.sign
}

// run executes a dense Big-M primal simplex to optimality, falling back
// to Bland's rule once Dantzig's rule has iterated past a generous
// threshold (anti-cycling, spec §9 cares about determinism more than
// raw speed here).
func (t *tableau) run() Status {
	zRow := make([]float64, t.nCols+1)
	recomputeZRow(t, zRow)

	for iter := 0; iter < maxIterations; iter++ {
		useBland := iter > maxIterations/2
		enter := chooseEntering(t, zRow, useBland)
		if enter < 0 {
			return t.classifyOptimal(zRow)
		}

		leaveRow := chooseLeaving(t, enter)
		if leaveRow < 0 {
			return Unbounded
		}

		pivot(t, zRow, leaveRow, enter)
	}
	return Abnormal
}

func recomputeZRow(t *tableau, zRow []float64) {
	for col := 0; col <= t.nCols; col++ {
		sum := 0.0
		for row := 0; row < t.nRows; row++ {
			sum += t.cost[t.basis[row]] * t.a[row][col]
		}
		if col < t.nCols {
			zRow[col] = sum - t.cost[col]
		} else {
			zRow[col] = sum
		}
	}
}

// chooseEntering returns the column with the most negative (cost - z)
// i.e. most positive zRow[col] under our sign convention, or -1 if
// optimal. Under Dantzig's rule the scan starts at column seed mod nCols,
// so equally good columns are tie-broken in a seed-dependent order.
// Bland's rule picks the first improving column in index order instead.
func chooseEntering(t *tableau, zRow []float64, useBland bool) int {
	const eps = 1e-9
	start := 0
	if !useBland && t.nCols > 0 {
		start = int(uint64(t.seed) % uint64(t.nCols))
	}
	best := -1
	bestVal := eps
	for i := 0; i < t.nCols; i++ {
		col := (start + i) % t.nCols
		if zRow[col] > bestVal {
			if useBland {
				return col
			}
			bestVal = zRow[col]
			best = col
		}
	}
	return best
}

func chooseLeaving(t *tableau, enter int) int {
	const eps = 1e-9
	best := -1
	bestRatio := 0.0
	for row := 0; row < t.nRows; row++ {
		coef := t.a[row][enter]
		if coef <= eps {
			continue
		}
		ratio := t.a[row][t.nCols] / coef
		if ratio < -eps {
			ratio = 0
		}
		if best < 0 || ratio < bestRatio-1e-12 ||
			(ratio < bestRatio+1e-12 && t.basis[row] < t.basis[best]) {
			best = row
			bestRatio = ratio
		}
	}
	return best
}

func pivot(t *tableau, zRow []float64, row, col int) {
	piv := t.a[row][col]
	for c := 0; c <= t.nCols; c++ {
		t.a[row][c] /= piv
	}
	for r := 0; r < t.nRows; r++ {
		if r == row {
			continue
		}
		factor := t.a[r][col]
		if factor == 0 {
			continue
		}
		for c := 0; c <= t.nCols; c++ {
			t.a[r][c] -= factor * t.a[row][c]
		}
	}
	t.basis[row] = col
	recomputeZRow(t, zRow)
}

func (t *tableau) classifyOptimal(zRow []float64) Status {
	artificialBase := t.nCols - t.nCtrs
	const eps = 1e-7
	for row := 0; row < t.nRows; row++ {
		if t.basis[row] >= artificialBase && t.a[row][t.nCols] > eps {
			return Infeasible
		}
	}
	return Optimal
}

func (t *tableau) y() []float64 {
	y := make([]float64, t.nCols)
	for row := 0; row < t.nRows; row++ {
		y[t.basis[row]] = t.a[row][t.nCols]
	}
	return y
}

func (t *tableau) writeBack(s *Solver) {
	y := t.y()

	for j, v := range s.vars {
		v.solution = t.subs[j].valueFrom(y)
	}

	zRow := make([]float64, t.nCols+1)
	recomputeZRow(t, zRow)
	artificialBase := t.nCols - t.nCtrs

	for k, c := range s.ctrs {
		sub := t.subs[t.nStruct+k]
		value := sub.valueFrom(y)
		// zRow holds z - cost, so the artificial column's entry plus its
		// bigM cost is the row's simplex multiplier. Flip it back for a row
		// buildTableau negated (negative right-hand side) and for a
		// maximization, whose objective was negated.
		dual := zRow[artificialBase+k] + bigM
		rhs := 0.0
		for j, v := range s.vars {
			if !t.subs[j].split {
				rhs -= c.coef[v.idx] * t.subs[j].offset
			}
		}
		if !sub.split {
			rhs += sub.offset
		}
		if rhs < 0 {
			dual = -dual
		}
		if s.maximize {
			dual = -dual
		}
		c.dual = dual
		c.basis = basisStatusOf(sub, y)
		// Clamp numerically tiny overshoots back inside the declared
		// bounds so downstream flow-conservation checks see exact matches.
		if c.lb > -inf && value < c.lb && value > c.lb-1e-6 {
			value = c.lb
		}
		if c.ub < inf && value > c.ub && value < c.ub+1e-6 {
			value = c.ub
		}
		c.value = value
	}
}

func basisStatusOf(sub substitution, y []float64) BasisStatus {
	if sub.lb <= -inf && sub.ub >= inf {
		return Free
	}
	if sub.split {
		return Free
	}
	if sub.hasUB {
		if y[sub.col] <= 1e-9 {
			return AtLowerBound
		}
		if y[sub.ubSlack] <= 1e-9 {
			return AtUpperBound
		}
		return Basic
	}
	if y[sub.col] <= 1e-9 {
		if sub.sign > 0 {
			return AtLowerBound
		}
		return AtUpperBound
	}
	return Basic
}
