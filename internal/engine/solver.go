package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/piwi3910/SlabCount/internal/milp"
	"github.com/piwi3910/SlabCount/internal/model"
)

// GroupSolver computes the cutting plan for one material group.
type GroupSolver interface {
	SolveGroup(ctx context.Context, group model.MaterialGroup) (model.CuttingPlan, error)
}

// MILPSolver formulates each material group as an integer program:
//
//	minimize   S
//	subject to sum_i c_i * a_i <= S * L * W
//	           c_i >= q_i            (c_i = q_i in exact mode)
//	           S, c_i >= 0 integer
//
// where a_i is the part area (with kerf allowance) and L x W the sheet.
// Feasibility is by area only; see model.AreaOnlyFeasibility.
type MILPSolver struct {
	Settings model.SolverSettings
}

func NewMILPSolver(settings model.SolverSettings) *MILPSolver {
	return &MILPSolver{Settings: settings}
}

// errAreaExceeded marks a plan whose produced area does not fit on its
// sheet count. SolveGroup retries such a plan with one more sheet.
var errAreaExceeded = errors.New("produced area exceeds the sheets")

// cuttingModel is the integer program for one group. Its variables live
// only as long as the solve.
type cuttingModel struct {
	problem *milp.Problem
	sheets  milp.Var
	counts  []milp.Var
	usage   milp.Expr // produced area in sheets
}

func (s *MILPSolver) buildModel(group model.MaterialGroup) cuttingModel {
	sheetArea := group.SheetArea()
	p := milp.NewProblem("OptimalCutting_" + group.MaterialID)
	sheets := p.AddVar("NumSheets", milp.Integer)
	// No assignment needs fewer sheets than the requested parts cover.
	floor := model.EstimateArea(group.Parts, nil, group.SheetLength, group.SheetWidth, s.Settings.KerfWidth)
	p.SetBounds(sheets, float64(floor.SheetsNeededMin), math.Inf(1))

	usage := milp.Expr{}
	area := milp.Expr{sheets: -1}
	counts := make([]milp.Var, len(group.Parts))
	for i, part := range group.Parts {
		c := p.AddVar(fmt.Sprintf("Part_%d_%s", i, part.Size()), milp.Integer)
		counts[i] = c
		// The area row is divided through by the sheet area so its
		// coefficients are fractions of a sheet.
		share := model.KerfArea(part.Length, part.Width, s.Settings.KerfWidth) / sheetArea
		area[c] = share
		usage[c] = share

		sense := milp.GreaterEqual
		if s.Settings.DemandMode == model.DemandExact {
			sense = milp.Equal
		}
		p.AddConstraint(fmt.Sprintf("demand_%d", i), milp.Expr{c: 1}, sense, float64(part.Quantity))
	}
	p.AddConstraint("area", area, milp.LessEqual, 0)
	p.Minimize(milp.Expr{sheets: 1})

	return cuttingModel{problem: p, sheets: sheets, counts: counts, usage: usage}
}

func (s *MILPSolver) options() milp.Options {
	return milp.Options{
		MaxNodes:   s.Settings.MaxNodes,
		IntegerTol: s.Settings.IntegerTol,
		SimplexTol: s.Settings.SimplexTol,
	}
}

// SolveGroup returns the minimal sheet count and the per-part production
// counts for a group. An empty group yields zero sheets without invoking
// the engine. Failures are returned as *model.SolveError.
func (s *MILPSolver) SolveGroup(ctx context.Context, group model.MaterialGroup) (model.CuttingPlan, error) {
	plan := model.CuttingPlan{MaterialID: group.MaterialID, Produced: []model.ProducedPart{}}
	if len(group.Parts) == 0 {
		return plan, nil
	}
	if !positive(group.SheetArea()) {
		return plan, &model.SolveError{
			MaterialID: group.MaterialID,
			Err:        fmt.Errorf("%w: sheet %s has no area", model.ErrInfeasible, model.FormatSize(group.SheetLength, group.SheetWidth)),
		}
	}

	cm := s.buildModel(group)
	sol, err := cm.problem.Solve(ctx, s.options())
	if err != nil {
		return plan, solveError(group.MaterialID, err)
	}
	// The sheet count is the ceiling of the engine's value: a value within
	// the integer tolerance above k still needs k+1 sheets.
	sheets := model.WholeSheets(sol.Value(cm.sheets))

	var counts []int
	for attempt := 0; ; attempt++ {
		counts, err = s.assign(ctx, cm, sol, sheets)
		if err == nil {
			err = s.verify(group, sheets, counts)
		}
		if err == nil {
			break
		}
		if attempt > 0 || !errors.Is(err, errAreaExceeded) {
			return plan, solveError(group.MaterialID, err)
		}
		sheets++
	}

	plan.SheetsRequired = sheets
	for i, part := range group.Parts {
		plan.Produced = append(plan.Produced, model.ProducedPart{Size: part.Size(), Count: counts[i]})
	}
	return plan, nil
}

// assign returns the production counts for a fixed sheet count. In
// prefer_exact mode a second pass holds the sheet count and produces as
// little area as possible; otherwise the first solve's counts are kept.
func (s *MILPSolver) assign(ctx context.Context, cm cuttingModel, first *milp.Solution, sheets int) ([]int, error) {
	sol := first
	if s.Settings.DemandMode == model.DemandPreferExact {
		cm.problem.SetBounds(cm.sheets, float64(sheets), float64(sheets))
		cm.problem.Minimize(cm.usage)
		var err error
		sol, err = cm.problem.Solve(ctx, s.options())
		if errors.Is(err, milp.ErrInfeasible) {
			return nil, fmt.Errorf("%w: %w: requested parts do not fit %d sheets", model.ErrSolverFailure, errAreaExceeded, sheets)
		}
		if err != nil {
			return nil, err
		}
	}

	counts := make([]int, len(cm.counts))
	for i, v := range cm.counts {
		counts[i] = sol.Int(v)
	}
	return counts, nil
}

// verify rechecks the integer solution against the model's constraints
// using the unscaled areas.
func (s *MILPSolver) verify(group model.MaterialGroup, sheets int, counts []int) error {
	if sheets < 0 {
		return fmt.Errorf("%w: negative sheet count %d", model.ErrSolverFailure, sheets)
	}
	for i, part := range group.Parts {
		if counts[i] < part.Quantity {
			return fmt.Errorf("%w: part %d (%s) produced %d of %d", model.ErrSolverFailure, i, part.Size(), counts[i], part.Quantity)
		}
		if s.Settings.DemandMode == model.DemandExact && counts[i] != part.Quantity {
			return fmt.Errorf("%w: part %d (%s) produced %d, exactly %d required", model.ErrSolverFailure, i, part.Size(), counts[i], part.Quantity)
		}
	}
	est := model.EstimateArea(group.Parts, counts, group.SheetLength, group.SheetWidth, s.Settings.KerfWidth)
	if !est.Fits(sheets) {
		return fmt.Errorf("%w: %w: %.3f sq mm on %d sheets of %.3f", model.ErrSolverFailure, errAreaExceeded, est.TotalPartArea, sheets, est.SheetArea)
	}
	return nil
}

// solveError classifies an engine error for the report.
func solveError(materialID string, err error) error {
	var classified error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		classified = fmt.Errorf("%w: %w", model.ErrSolveTimeout, err)
	case errors.Is(err, milp.ErrInfeasible), errors.Is(err, milp.ErrUnbounded):
		classified = fmt.Errorf("%w: %w", model.ErrInfeasible, err)
	case errors.Is(err, model.ErrSolverFailure), errors.Is(err, context.Canceled):
		classified = err
	default:
		classified = fmt.Errorf("%w: %w", model.ErrSolverFailure, err)
	}
	return &model.SolveError{MaterialID: materialID, Err: classified}
}
