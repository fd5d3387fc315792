package milp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// node is one branch and bound subproblem: the variable bounds it adds.
type node struct {
	lower []float64
	upper []float64
}

func (n node) clone() node {
	return node{
		lower: append([]float64(nil), n.lower...),
		upper: append([]float64(nil), n.upper...),
	}
}

// Solve finds an optimal assignment. Integer variables are branched on in
// index order, the down branch first. It returns ErrInfeasible,
// ErrUnbounded, ErrNodeLimit, ctx.Err() or a wrapped LP failure.
func (p *Problem) Solve(ctx context.Context, opts Options) (*Solution, error) {
	opts = opts.withDefaults()

	root := node{lower: make([]float64, len(p.vars)), upper: make([]float64, len(p.vars))}
	for j, v := range p.vars {
		root.lower[j] = v.lower
		root.upper[j] = v.upper
		if v.kind == Integer {
			root.lower[j] = math.Ceil(v.lower - opts.IntegerTol)
			if !math.IsInf(v.upper, 1) {
				root.upper[j] = math.Floor(v.upper + opts.IntegerTol)
			}
		}
	}

	var best *Solution
	stack := []node{root}
	nodes := 0
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if nodes >= opts.MaxNodes {
			return nil, fmt.Errorf("%w (%d)", ErrNodeLimit, opts.MaxNodes)
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, err := p.relax(nd, opts.SimplexTol)
		switch {
		case errors.Is(err, ErrInfeasible):
			continue
		case errors.Is(err, ErrUnbounded):
			// A subproblem only adds bounds, so the root is unbounded too.
			return nil, err
		case err != nil:
			return nil, err
		}
		if best != nil && obj >= best.Objective-opts.IntegerTol {
			continue
		}

		j := p.fractional(x, opts.IntegerTol)
		if j < 0 {
			best = p.incumbent(x)
			continue
		}

		f := math.Floor(x[j])
		down := nd.clone()
		down.upper[j] = f
		up := nd.clone()
		up.lower[j] = f + 1
		stack = append(stack, up, down)
	}

	if best == nil {
		return nil, ErrInfeasible
	}
	best.Nodes = nodes
	return best, nil
}

// fractional returns the first integer variable whose value is not
// integral, or -1.
func (p *Problem) fractional(x []float64, tol float64) int {
	for j, v := range p.vars {
		if v.kind != Integer {
			continue
		}
		if math.Abs(x[j]-math.Round(x[j])) > tol {
			return j
		}
	}
	return -1
}

// incumbent snaps integer variables and re-evaluates the objective.
func (p *Problem) incumbent(x []float64) *Solution {
	values := append([]float64(nil), x...)
	for j, v := range p.vars {
		if v.kind == Integer {
			values[j] = math.Round(values[j])
		}
	}
	var obj float64
	for v, c := range p.objective {
		obj += c * values[v]
	}
	return &Solution{Objective: obj, Values: values}
}

// relax solves the LP relaxation of a node. Variables are shifted by their
// lower bounds (y = x - lower) so every column is non-negative, finite
// upper bounds become rows, and each inequality row gets its own slack
// column. Rows are sign-normalized so the right-hand side is non-negative.
func (p *Problem) relax(nd node, tol float64) (float64, []float64, error) {
	n := len(p.vars)
	for j := 0; j < n; j++ {
		if nd.lower[j] > nd.upper[j]+tol {
			return 0, nil, ErrInfeasible
		}
	}

	type row struct {
		coeffs []float64
		sense  Sense
		rhs    float64
	}
	var rows []row

	for _, c := range p.constraints {
		coeffs := make([]float64, n)
		rhs := c.RHS
		nonzero := false
		for v, a := range c.Expr {
			coeffs[v] += a
		}
		for j, a := range coeffs {
			if a != 0 {
				nonzero = true
				rhs -= a * nd.lower[j]
			}
		}
		if !nonzero {
			if !trivially(c.Sense, rhs, tol) {
				return 0, nil, ErrInfeasible
			}
			continue
		}
		rows = append(rows, row{coeffs: coeffs, sense: c.Sense, rhs: rhs})
	}
	for j := 0; j < n; j++ {
		if math.IsInf(nd.upper[j], 1) {
			continue
		}
		coeffs := make([]float64, n)
		coeffs[j] = 1
		rows = append(rows, row{coeffs: coeffs, sense: LessEqual, rhs: nd.upper[j] - nd.lower[j]})
	}

	// Columns that appear in no row are unconstrained above: they sit at
	// their lower bound unless the objective rewards increasing them.
	active := make([]int, n)
	nActive := 0
	for j := 0; j < n; j++ {
		active[j] = -1
		for _, r := range rows {
			if r.coeffs[j] != 0 {
				active[j] = nActive
				nActive++
				break
			}
		}
		if active[j] < 0 && p.objective[Var(j)] < 0 {
			return 0, nil, ErrUnbounded
		}
	}

	constant := 0.0
	for v, c := range p.objective {
		constant += c * nd.lower[v]
	}

	x := append([]float64(nil), nd.lower...)
	if len(rows) == 0 {
		return constant, x, nil
	}

	nSlack := 0
	for _, r := range rows {
		if r.sense != Equal {
			nSlack++
		}
	}
	m := len(rows)
	cols := nActive + nSlack
	if m > cols {
		return 0, nil, fmt.Errorf("milp: %d rows exceed %d columns", m, cols)
	}

	A := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	slack := nActive
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for j, a := range r.coeffs {
			if a != 0 {
				A.Set(i, active[j], sign*a)
			}
		}
		switch r.sense {
		case LessEqual:
			A.Set(i, slack, sign)
			slack++
		case GreaterEqual:
			A.Set(i, slack, -sign)
			slack++
		}
		b[i] = sign * r.rhs
	}

	c := make([]float64, cols)
	for v, coef := range p.objective {
		if k := active[v]; k >= 0 {
			c[k] = coef
		}
	}

	optF, optX, err := lp.Simplex(c, A, b, tol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return 0, nil, ErrInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return 0, nil, ErrUnbounded
		default:
			return 0, nil, fmt.Errorf("milp: relaxation of %q: %w", p.Name, err)
		}
	}

	for j := 0; j < n; j++ {
		if k := active[j]; k >= 0 {
			x[j] += optX[k]
		}
	}
	return constant + optF, x, nil
}

// trivially reports whether 0 (sense) rhs holds.
func trivially(sense Sense, rhs, tol float64) bool {
	switch sense {
	case LessEqual:
		return rhs >= -tol
	case GreaterEqual:
		return rhs <= tol
	default:
		return math.Abs(rhs) <= tol
	}
}
