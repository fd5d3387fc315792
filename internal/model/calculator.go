package model

import "math"

// AreaEstimate holds the closed-form area figures for one material group.
type AreaEstimate struct {
	TotalPartArea     float64 `json:"total_part_area"`     // Total area of all parts (sq mm)
	SheetArea         float64 `json:"sheet_area"`          // Area of one sheet (sq mm)
	SheetsNeededExact float64 `json:"sheets_needed_exact"` // Exact fractional number of sheets
	SheetsNeededMin   int     `json:"sheets_needed_min"`   // Minimum sheets (ceiling of exact)
	KerfWidth         float64 `json:"kerf_width"`          // Kerf width used in calculation
}

// AreaTolerance is how far, in sheets, the part area may exceed the
// purchased sheet area and still count as fitting. It only absorbs
// floating point noise from multiplying dimensions.
const AreaTolerance = 1e-9

// WholeSheets returns the smallest sheet count whose area covers the given
// fractional number of sheets, within AreaTolerance.
func WholeSheets(exact float64) int {
	if exact <= AreaTolerance {
		return 0
	}
	return int(math.Ceil(exact - AreaTolerance))
}

// KerfArea returns the area one unit of a part consumes when each
// dimension is widened by the kerf allowance.
func KerfArea(length, width, kerfWidth float64) float64 {
	return (length + kerfWidth) * (width + kerfWidth)
}

// EstimateArea computes the area lower bound for producing counts[i] units
// of each part on sheets of the given size. A nil counts slice uses the
// requested quantities.
func EstimateArea(parts []PartRequirement, counts []int, sheetLength, sheetWidth, kerfWidth float64) AreaEstimate {
	var totalPartArea float64
	for i, p := range parts {
		qty := p.Quantity
		if counts != nil {
			qty = counts[i]
		}
		totalPartArea += KerfArea(p.Length, p.Width, kerfWidth) * float64(qty)
	}

	sheetArea := sheetLength * sheetWidth
	if sheetArea <= 0 {
		return AreaEstimate{
			TotalPartArea: totalPartArea,
			KerfWidth:     kerfWidth,
		}
	}

	exactSheets := totalPartArea / sheetArea
	return AreaEstimate{
		TotalPartArea:     totalPartArea,
		SheetArea:         sheetArea,
		SheetsNeededExact: exactSheets,
		SheetsNeededMin:   WholeSheets(exactSheets),
		KerfWidth:         kerfWidth,
	}
}

// Fits reports whether the part area fits on the given number of sheets.
func (e AreaEstimate) Fits(sheets int) bool {
	if e.SheetArea <= 0 {
		return e.TotalPartArea <= 0
	}
	return e.SheetsNeededExact <= float64(sheets)+AreaTolerance
}

// Utilization returns the share of purchased sheet area covered by parts,
// in percent.
func (e AreaEstimate) Utilization(sheets int) float64 {
	if sheets <= 0 || e.SheetArea <= 0 {
		return 0
	}
	return e.TotalPartArea / (float64(sheets) * e.SheetArea) * 100.0
}
