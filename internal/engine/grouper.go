package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/SlabCount/internal/model"
)

// ValidateInput checks both tables in one pass and returns an
// *model.InputError listing every problem, or nil. It runs before any
// solve so a bad batch never produces a partial report.
func ValidateInput(parts []model.PartRequirement, materials []model.MaterialSheet, policy model.DuplicatePolicy) error {
	var issues []model.InputIssue
	add := func(table string, row int, field, format string, args ...any) {
		issues = append(issues, model.InputIssue{
			Table:   table,
			Row:     row,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	firstRow := make(map[string]int, len(materials))
	for i, m := range materials {
		row := i + 1
		if m.MaterialID == "" {
			add("materials", row, "material_id", "material id is empty")
			continue
		}
		if !positive(m.SheetLength) {
			add("materials", row, "sheet_length", "sheet length must be positive, got %v", m.SheetLength)
		}
		if !positive(m.SheetWidth) {
			add("materials", row, "sheet_width", "sheet width must be positive, got %v", m.SheetWidth)
		}
		first, seen := firstRow[m.MaterialID]
		if !seen {
			firstRow[m.MaterialID] = row
			continue
		}
		prev := materials[first-1]
		if policy != model.DuplicateFirst && (prev.SheetLength != m.SheetLength || prev.SheetWidth != m.SheetWidth) {
			add("materials", row, "material_id", "material %q repeats row %d with different sheet dimensions (%s vs %s)",
				m.MaterialID, first, model.FormatSize(m.SheetLength, m.SheetWidth), model.FormatSize(prev.SheetLength, prev.SheetWidth))
		}
	}

	for i, p := range parts {
		row := i + 1
		if p.MaterialID == "" {
			add("parts", row, "material_id", "material id is empty")
		} else if _, ok := firstRow[p.MaterialID]; !ok {
			add("parts", row, "material_id", "unknown material %q", p.MaterialID)
		}
		if !positive(p.Length) {
			add("parts", row, "length", "length must be positive, got %v", p.Length)
		}
		if !positive(p.Width) {
			add("parts", row, "width", "width must be positive, got %v", p.Width)
		}
		if p.Quantity < 1 {
			add("parts", row, "quantity", "quantity must be at least 1, got %d", p.Quantity)
		}
	}

	if len(issues) > 0 {
		return &model.InputError{Issues: issues}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// GroupByMaterial builds one group per distinct material id, in the order
// materials first appear in the materials table. Each group takes the
// sheet dimensions of the material's first row and the parts that
// reference it, in table order. Materials without parts yield empty groups;
// parts referencing unknown materials are left out (ValidateInput rejects
// them beforehand).
func GroupByMaterial(parts []model.PartRequirement, materials []model.MaterialSheet) []model.MaterialGroup {
	index := make(map[string]int, len(materials))
	groups := make([]model.MaterialGroup, 0, len(materials))
	for _, m := range materials {
		if _, ok := index[m.MaterialID]; ok {
			continue
		}
		index[m.MaterialID] = len(groups)
		groups = append(groups, model.MaterialGroup{
			MaterialID:  m.MaterialID,
			SheetLength: m.SheetLength,
			SheetWidth:  m.SheetWidth,
			Parts:       []model.PartRequirement{},
		})
	}

	for _, p := range parts {
		if i, ok := index[p.MaterialID]; ok {
			groups[i].Parts = append(groups[i].Parts, p)
		}
	}
	return groups
}
