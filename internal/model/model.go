package model

import (
	"strconv"
)

// AreaOnlyFeasibility documents how sheet counts are derived. A material's
// sheet count is the smallest integer S for which the total area of the
// produced parts fits within S sheets. No placement is computed, so the
// count is a lower-bound estimate: a valid cutting layout may need more.
const AreaOnlyFeasibility = "sheets_required is an area lower bound; no 2D layout is computed"

// PartRequirement is one row of the parts table: a rectangular piece that
// must be produced from a material at least Quantity times.
type PartRequirement struct {
	MaterialID string  `json:"material_id"`
	Label      string  `json:"label,omitempty"`
	Length     float64 `json:"length"` // mm
	Width      float64 `json:"width"`  // mm
	Quantity   int     `json:"quantity"`
}

// Area returns the area of a single unit in sq mm.
func (p PartRequirement) Area() float64 {
	return p.Length * p.Width
}

// Size returns the canonical "LxW" label of the part.
func (p PartRequirement) Size() string {
	return FormatSize(p.Length, p.Width)
}

// MaterialSheet is one row of the materials table: the dimensions of a
// single raw stock sheet of a material.
type MaterialSheet struct {
	MaterialID  string  `json:"material_id"`
	SheetLength float64 `json:"sheet_length"` // mm
	SheetWidth  float64 `json:"sheet_width"`  // mm
}

// Area returns the area of one sheet in sq mm.
func (m MaterialSheet) Area() float64 {
	return m.SheetLength * m.SheetWidth
}

// MaterialGroup pairs a material's sheet dimensions with the part
// requirements cut from it. Groups are built per estimate and owned by
// the solve that consumes them.
type MaterialGroup struct {
	MaterialID  string
	SheetLength float64
	SheetWidth  float64
	Parts       []PartRequirement
}

// SheetArea returns the area of one sheet of the group's material.
func (g MaterialGroup) SheetArea() float64 {
	return g.SheetLength * g.SheetWidth
}

// PartArea returns the total area of all required parts at their
// requested quantities.
func (g MaterialGroup) PartArea() float64 {
	var total float64
	for _, p := range g.Parts {
		total += p.Area() * float64(p.Quantity)
	}
	return total
}

// ProducedPart is the scheduled production count for one part requirement.
type ProducedPart struct {
	Size  string `json:"size"`
	Count int    `json:"count"`
}

// CuttingPlan is the solved outcome for one material.
type CuttingPlan struct {
	MaterialID     string         `json:"material_id"`
	SheetsRequired int            `json:"sheets_required"`
	Produced       []ProducedPart `json:"produced"`
}

// FormatSize renders a part size as "LxW" using the shortest decimal form
// of each dimension, so 100 and 100.0 both print as "100".
func FormatSize(length, width float64) string {
	return formatDim(length) + "x" + formatDim(width)
}

func formatDim(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
