package export

import (
	"fmt"
	"io"

	"github.com/piwi3910/SlabCount/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	producedSheet = "Produced"
)

// ExportExcel writes the report workbook to path.
func ExportExcel(path string, report model.Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// WriteExcel writes the report workbook to w: a summary sheet with one row
// per material and a sheet listing the produced parts.
func WriteExcel(w io.Writer, report model.Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func buildWorkbook(report model.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(producedSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to add produced sheet: %w", err)
	}

	summary := [][]interface{}{{
		"Material", "Sheet Length (mm)", "Sheet Width (mm)", "Sheets Required",
		"Area Lower Bound", "Utilization (%)", "Status", "Error",
	}}
	produced := [][]interface{}{{"Material", "Size", "Count"}}

	for _, m := range report.Materials {
		sheets := interface{}(m.SheetsRequired)
		if m.Failed() {
			sheets = ""
		}
		summary = append(summary, []interface{}{
			m.MaterialID, m.SheetLength, m.SheetWidth, sheets,
			m.AreaLowerBound, m.Utilization, string(m.Status), m.Error,
		})
		for _, p := range m.Produced {
			produced = append(produced, []interface{}{m.MaterialID, p.Size, p.Count})
		}
	}
	summary = append(summary, []interface{}{"Total", "", "", report.TotalSheets()})

	if err := writeRows(f, summarySheet, summary); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRows(f, producedSheet, produced); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
