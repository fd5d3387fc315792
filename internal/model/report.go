package model

// ResultStatus marks whether a material solved.
type ResultStatus string

const (
	StatusOK     ResultStatus = "ok"
	StatusFailed ResultStatus = "failed"
)

// MaterialResult is one entry of the report. Successful entries carry the
// cutting plan; failed entries carry the material id and the error.
type MaterialResult struct {
	CuttingPlan
	Status    ResultStatus `json:"status"`
	ErrorKind ErrorKind    `json:"error_kind,omitempty"`
	Error     string       `json:"error,omitempty"`

	SheetLength    float64 `json:"sheet_length"`
	SheetWidth     float64 `json:"sheet_width"`
	SheetArea      float64 `json:"sheet_area"`       // sq mm of one sheet
	PartArea       float64 `json:"part_area"`        // sq mm of produced parts
	AreaLowerBound float64 `json:"area_lower_bound"` // fractional sheets
	Utilization    float64 `json:"utilization"`      // percent of purchased sheet area
}

// Failed reports whether the material could not be solved.
func (r MaterialResult) Failed() bool {
	return r.Status == StatusFailed
}

// Report is the ordered per-material result of one estimate.
type Report struct {
	Materials []MaterialResult `json:"materials"`
	Failed    int              `json:"failed"`
	AreaOnly  string           `json:"note"`
}

// OK reports whether every material solved.
func (r Report) OK() bool {
	return r.Failed == 0
}

// TotalSheets returns the sheet count summed over solved materials.
func (r Report) TotalSheets() int {
	total := 0
	for _, m := range r.Materials {
		if !m.Failed() {
			total += m.SheetsRequired
		}
	}
	return total
}

// Find returns the entry for a material id.
func (r Report) Find(materialID string) (MaterialResult, bool) {
	for _, m := range r.Materials {
		if m.MaterialID == materialID {
			return m, true
		}
	}
	return MaterialResult{}, false
}
