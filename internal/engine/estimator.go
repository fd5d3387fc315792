// Package engine turns the parts and materials tables into a per-material
// sheet count report: it validates and groups the input, solves one
// integer program per material and aggregates the results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/SlabCount/internal/logger"
	"github.com/piwi3910/SlabCount/internal/model"
)

// Estimator runs a full estimate.
type Estimator struct {
	Settings model.SolverSettings
	Solver   GroupSolver
	log      *logger.Logger
}

// New returns an Estimator backed by the MILP solver. A nil logger discards output.
func New(settings model.SolverSettings, log *logger.Logger) *Estimator {
	if log == nil {
		log = logger.Nop()
	}
	return &Estimator{
		Settings: settings,
		Solver:   NewMILPSolver(settings),
		log:      log.With("component", "estimator"),
	}
}

// Estimate validates the tables, solves every material and returns the
// ordered report. The only errors are *model.InputError (before any solve)
// and the context's error when ctx ends during the estimate; per-material
// solve failures are reported inside the report.
func (e *Estimator) Estimate(ctx context.Context, parts []model.PartRequirement, materials []model.MaterialSheet) (model.Report, error) {
	if err := ValidateInput(parts, materials, e.Settings.DuplicatePolicy); err != nil {
		e.log.Warn("input rejected", "error", err)
		return model.Report{}, err
	}

	groups := GroupByMaterial(parts, materials)
	outcomes := make([]Outcome, len(groups))

	workers := e.Settings.Workers
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			outcomes[i] = e.solveOne(ctx, group)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}

	report := Aggregate(outcomes, e.Settings.KerfWidth)
	e.log.Info("estimate complete",
		"materials", len(report.Materials),
		"failed", report.Failed,
		"total_sheets", report.TotalSheets(),
	)
	return report, nil
}

// solveOne runs one group under its own timeout and converts panics and
// unclassified errors into *model.SolveError.
func (e *Estimator) solveOne(ctx context.Context, group model.MaterialGroup) (out Outcome) {
	out.Group = group
	if e.Settings.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Settings.SolveTimeout)
		defer cancel()
	}

	log := e.log.With("material_id", group.MaterialID, "parts", len(group.Parts))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.Plan = model.CuttingPlan{}
			out.Err = &model.SolveError{
				MaterialID: group.MaterialID,
				Err:        fmt.Errorf("%w: panic: %v", model.ErrSolverFailure, r),
			}
			log.Error("solver panicked", "panic", r)
		}
	}()

	plan, err := e.Solver.SolveGroup(ctx, group)
	if err != nil {
		var se *model.SolveError
		if !errors.As(err, &se) {
			err = &model.SolveError{MaterialID: group.MaterialID, Err: err}
		}
		log.Warn("material failed", "error", err, "kind", model.KindOf(err), "elapsed", time.Since(start))
		out.Err = err
		return out
	}

	log.Debug("material solved", "sheets", plan.SheetsRequired, "elapsed", time.Since(start))
	out.Plan = plan
	return out
}
