package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/SlabCount/internal/logger"
	"github.com/piwi3910/SlabCount/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.SolverSettings
}

// ComparisonResult holds the report and summary figures for one scenario.
type ComparisonResult struct {
	Scenario     ComparisonScenario
	Report       model.Report
	TotalSheets  int
	OverProduced int // units produced beyond the requested quantities
	FailedCount  int
	Err          error
}

// CompareScenarios runs an estimate per scenario over the same tables and
// returns the results in scenario order. Input errors are recorded per
// scenario since the duplicate policy can differ between scenarios.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, parts []model.PartRequirement, materials []model.MaterialSheet, log *logger.Logger) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		est := New(scenario.Settings, log)
		report, err := est.Estimate(ctx, parts, materials)
		if err != nil {
			results = append(results, ComparisonResult{Scenario: scenario, Err: err})
			continue
		}

		results = append(results, ComparisonResult{
			Scenario:     scenario,
			Report:       report,
			TotalSheets:  report.TotalSheets(),
			OverProduced: overProduced(report, parts),
			FailedCount:  report.Failed,
		})
	}

	return results
}

// overProduced counts units produced beyond the request across the report.
func overProduced(report model.Report, parts []model.PartRequirement) int {
	groups := GroupByMaterial(parts, sheetsOf(report))
	extra := 0
	for i, r := range report.Materials {
		if r.Failed() || len(r.Produced) != len(groups[i].Parts) {
			continue
		}
		for j, p := range r.Produced {
			extra += p.Count - groups[i].Parts[j].Quantity
		}
	}
	return extra
}

func sheetsOf(report model.Report) []model.MaterialSheet {
	sheets := make([]model.MaterialSheet, len(report.Materials))
	for i, r := range report.Materials {
		sheets[i] = model.MaterialSheet{MaterialID: r.MaterialID, SheetLength: r.SheetLength, SheetWidth: r.SheetWidth}
	}
	return sheets
}

// BuildDefaultScenarios generates what-if variants of the base settings.
func BuildDefaultScenarios(base model.SolverSettings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Settings: base,
		},
	}

	// Scenario: the other demand interpretations
	for _, mode := range []model.DemandMode{model.DemandPreferExact, model.DemandAtLeast, model.DemandExact} {
		if mode == base.DemandMode {
			continue
		}
		alt := base
		alt.DemandMode = mode
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Demand %s", mode),
			Settings: alt,
		})
	}

	// Scenario: raw part area, no kerf allowance
	if base.KerfWidth > 0 {
		noKerf := base
		noKerf.KerfWidth = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "No Kerf",
			Settings: noKerf,
		})
	}

	return scenarios
}
