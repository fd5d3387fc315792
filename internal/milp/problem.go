// Package milp solves small mixed-integer linear programs. Relaxations are
// solved with gonum's simplex implementation and integrality is enforced by
// depth-first branch and bound.
//
// All variables are non-negative. Problems are minimized.
package milp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInfeasible is returned when no assignment satisfies the constraints.
	ErrInfeasible = errors.New("milp: problem is infeasible")
	// ErrUnbounded is returned when the objective can decrease without limit.
	ErrUnbounded = errors.New("milp: problem is unbounded")
	// ErrNodeLimit is returned when branch and bound exceeds Options.MaxNodes.
	ErrNodeLimit = errors.New("milp: node limit reached")
)

// VarKind selects whether a variable must take integer values.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
)

// Var identifies a decision variable within its Problem.
type Var int

// Expr is a linear expression: a coefficient per variable.
type Expr map[Var]float64

// Sense is the comparison of a constraint's expression with its right-hand side.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

// Constraint is a named linear constraint.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

type variable struct {
	name  string
	kind  VarKind
	lower float64
	upper float64
}

// Problem is a minimization problem under construction. It is not safe for
// concurrent use; build one per solve.
type Problem struct {
	Name        string
	vars        []variable
	objective   Expr
	constraints []Constraint
}

// NewProblem returns an empty problem.
func NewProblem(name string) *Problem {
	return &Problem{Name: name, objective: Expr{}}
}

// AddVar adds a variable with bounds [0, +Inf).
func (p *Problem) AddVar(name string, kind VarKind) Var {
	p.vars = append(p.vars, variable{name: name, kind: kind, lower: 0, upper: math.Inf(1)})
	return Var(len(p.vars) - 1)
}

// SetBounds restricts a variable to [lower, upper]. Negative lower bounds
// are clamped to zero.
func (p *Problem) SetBounds(v Var, lower, upper float64) {
	p.mustHave(v)
	p.vars[v].lower = math.Max(0, lower)
	p.vars[v].upper = upper
}

// Minimize replaces the objective.
func (p *Problem) Minimize(obj Expr) {
	for v := range obj {
		p.mustHave(v)
	}
	p.objective = obj
}

// AddConstraint appends a constraint.
func (p *Problem) AddConstraint(name string, e Expr, sense Sense, rhs float64) {
	for v := range e {
		p.mustHave(v)
	}
	p.constraints = append(p.constraints, Constraint{Name: name, Expr: e, Sense: sense, RHS: rhs})
}

// NumVars returns the number of variables.
func (p *Problem) NumVars() int { return len(p.vars) }

// NumConstraints returns the number of constraints, bounds excluded.
func (p *Problem) NumConstraints() int { return len(p.constraints) }

// VarName returns the name a variable was added with.
func (p *Problem) VarName(v Var) string {
	p.mustHave(v)
	return p.vars[v].name
}

func (p *Problem) mustHave(v Var) {
	if int(v) < 0 || int(v) >= len(p.vars) {
		panic(fmt.Sprintf("milp: variable %d not in problem %q", v, p.Name))
	}
}

// Options tunes the solve.
type Options struct {
	// MaxNodes bounds the number of relaxations solved.
	MaxNodes int
	// IntegerTol is how far from an integer a value may be and still count as integral.
	IntegerTol float64
	// SimplexTol is passed to the LP solver.
	SimplexTol float64
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{MaxNodes: 10000, IntegerTol: 1e-6, SimplexTol: 1e-10}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxNodes <= 0 {
		o.MaxNodes = d.MaxNodes
	}
	if o.IntegerTol <= 0 {
		o.IntegerTol = d.IntegerTol
	}
	if o.SimplexTol <= 0 {
		o.SimplexTol = d.SimplexTol
	}
	return o
}

// Solution is an optimal assignment.
type Solution struct {
	Objective float64
	Values    []float64
	Nodes     int // relaxations solved
}

// Value returns the value of v.
func (s *Solution) Value(v Var) float64 {
	return s.Values[v]
}

// Int returns the value of v rounded to the nearest integer.
func (s *Solution) Int(v Var) int {
	return int(math.Round(s.Values[v]))
}
