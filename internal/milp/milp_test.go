package milp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolve_RoundsUpSingleInteger(t *testing.T) {
	p := NewProblem("ceil")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: 1})
	p.AddConstraint("cover", Expr{x: 3}, GreaterEqual, 7)

	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, sol.Int(x))
	assert.InDelta(t, 3.0, sol.Objective, 1e-9)
	assert.GreaterOrEqual(t, sol.Nodes, 2, "LP optimum 7/3 must be branched")
}

func TestSolve_Knapsack(t *testing.T) {
	// max 5a + 4b  s.t. 6a + 4b <= 24, a + 2b <= 6
	// LP optimum (3, 1.5) = 21, integer optimum (4, 0) = 20.
	p := NewProblem("knapsack")
	a := p.AddVar("a", Integer)
	b := p.AddVar("b", Integer)
	p.Minimize(Expr{a: -5, b: -4})
	p.AddConstraint("wood", Expr{a: 6, b: 4}, LessEqual, 24)
	p.AddConstraint("labor", Expr{a: 1, b: 2}, LessEqual, 6)

	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.InDelta(t, -20.0, sol.Objective, 1e-9)
	assert.Equal(t, 4, sol.Int(a))
	assert.Equal(t, 0, sol.Int(b))
}

func TestSolve_ContinuousIsNotBranched(t *testing.T) {
	p := NewProblem("lp")
	x := p.AddVar("x", Continuous)
	p.Minimize(Expr{x: 1})
	p.AddConstraint("cover", Expr{x: 3}, GreaterEqual, 7)

	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, sol.Value(x), 1e-9)
	assert.Equal(t, 1, sol.Nodes)
}

func TestSolve_EqualityAndBounds(t *testing.T) {
	p := NewProblem("eq")
	x := p.AddVar("x", Integer)
	y := p.AddVar("y", Integer)
	p.Minimize(Expr{x: 1, y: -1})
	p.AddConstraint("sum", Expr{x: 1, y: 1}, Equal, 5)

	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sol.Int(x))
	assert.Equal(t, 5, sol.Int(y))

	p.SetBounds(y, 0, 3)
	sol, err = p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sol.Int(x))
	assert.Equal(t, 3, sol.Int(y))
	assert.InDelta(t, -1.0, sol.Objective, 1e-9)
}

func TestSolve_LowerBoundShiftsVariable(t *testing.T) {
	p := NewProblem("lower")
	x := p.AddVar("x", Integer)
	y := p.AddVar("y", Integer)
	p.SetBounds(x, 4, 4)
	p.Minimize(Expr{y: 1})
	p.AddConstraint("area", Expr{x: 0.25, y: -1}, LessEqual, 0)

	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, sol.Int(x))
	assert.Equal(t, 1, sol.Int(y))
}

func TestSolve_Infeasible(t *testing.T) {
	p := NewProblem("conflict")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: 1})
	p.AddConstraint("low", Expr{x: 1}, LessEqual, 1)
	p.AddConstraint("high", Expr{x: 1}, GreaterEqual, 2)

	_, err := p.Solve(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_IntegerInfeasibleButRelaxationFeasible(t *testing.T) {
	p := NewProblem("parity")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: 1})
	p.AddConstraint("half", Expr{x: 2}, Equal, 3)

	_, err := p.Solve(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_Unbounded(t *testing.T) {
	p := NewProblem("unbounded")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: -1})
	p.AddConstraint("floor", Expr{x: 1}, GreaterEqual, 1)

	_, err := p.Solve(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestSolve_UnconstrainedVariable(t *testing.T) {
	p := NewProblem("free")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: 1})

	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sol.Int(x))
	assert.Equal(t, 0.0, sol.Objective)

	p.Minimize(Expr{x: -1})
	_, err = p.Solve(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestSolve_ZeroRowConstraint(t *testing.T) {
	p := NewProblem("zero")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: 1})
	p.AddConstraint("noop", Expr{x: 0}, LessEqual, 5)

	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sol.Int(x))

	p.AddConstraint("impossible", Expr{x: 0}, GreaterEqual, 1)
	_, err = p.Solve(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_NodeLimit(t *testing.T) {
	p := NewProblem("limit")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: 1})
	p.AddConstraint("cover", Expr{x: 3}, GreaterEqual, 7)

	_, err := p.Solve(context.Background(), Options{MaxNodes: 1})
	assert.ErrorIs(t, err, ErrNodeLimit)
}

func TestSolve_CancelledContext(t *testing.T) {
	p := NewProblem("cancel")
	x := p.AddVar("x", Integer)
	p.Minimize(Expr{x: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Solve(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProblemAccessors(t *testing.T) {
	p := NewProblem("names")
	s := p.AddVar("NumSheets", Integer)
	p.AddConstraint("c", Expr{s: 1}, GreaterEqual, 0)

	assert.Equal(t, 1, p.NumVars())
	assert.Equal(t, 1, p.NumConstraints())
	assert.Equal(t, "NumSheets", p.VarName(s))
	assert.Equal(t, ">=", GreaterEqual.String())
	assert.Panics(t, func() { p.VarName(Var(7)) })
}
