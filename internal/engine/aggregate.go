package engine

import "github.com/piwi3910/SlabCount/internal/model"

// Outcome is the result of solving one material group.
type Outcome struct {
	Group model.MaterialGroup
	Plan  model.CuttingPlan
	Err   error
}

// Aggregate assembles outcomes into a report in the order given. Failed
// materials are kept in place and marked, so one failure never hides the
// others.
func Aggregate(outcomes []Outcome, kerfWidth float64) model.Report {
	report := model.Report{
		Materials: make([]model.MaterialResult, 0, len(outcomes)),
		AreaOnly:  model.AreaOnlyFeasibility,
	}

	for _, o := range outcomes {
		g := o.Group
		r := model.MaterialResult{
			SheetLength: g.SheetLength,
			SheetWidth:  g.SheetWidth,
			SheetArea:   g.SheetArea(),
		}

		if o.Err != nil {
			r.CuttingPlan = model.CuttingPlan{MaterialID: g.MaterialID, Produced: []model.ProducedPart{}}
			r.Status = model.StatusFailed
			r.ErrorKind = model.KindOf(o.Err)
			r.Error = o.Err.Error()

			est := model.EstimateArea(g.Parts, nil, g.SheetLength, g.SheetWidth, kerfWidth)
			r.PartArea = est.TotalPartArea
			r.AreaLowerBound = est.SheetsNeededExact
			report.Materials = append(report.Materials, r)
			report.Failed++
			continue
		}

		r.CuttingPlan = o.Plan
		if r.Produced == nil {
			r.Produced = []model.ProducedPart{}
		}
		r.Status = model.StatusOK

		est := model.EstimateArea(g.Parts, producedCounts(g, o.Plan), g.SheetLength, g.SheetWidth, kerfWidth)
		r.PartArea = est.TotalPartArea
		r.AreaLowerBound = est.SheetsNeededExact
		r.Utilization = est.Utilization(o.Plan.SheetsRequired)
		report.Materials = append(report.Materials, r)
	}
	return report
}

// producedCounts lines up the plan's counts with the group's parts, or
// returns nil (requested quantities) when they do not correspond.
func producedCounts(g model.MaterialGroup, plan model.CuttingPlan) []int {
	if len(plan.Produced) != len(g.Parts) {
		return nil
	}
	counts := make([]int, len(plan.Produced))
	for i, p := range plan.Produced {
		counts[i] = p.Count
	}
	return counts
}
