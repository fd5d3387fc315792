// Package export writes estimate reports to JSON, plain text, PDF and Excel,
// and renders QR-coded material tags.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/SlabCount/internal/model"
)

// sheetColor represents an RGB fill color.
type sheetColor struct {
	R, G, B int
}

var (
	usedColor   = sheetColor{R: 76, G: 175, B: 80}
	sheetFill   = sheetColor{R: 210, G: 180, B: 140}
	failedColor = sheetColor{R: 200, G: 0, B: 0}
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// maxDrawnSheets caps the sheet blocks drawn on a material page.
const maxDrawnSheets = 24

// ExportPDF writes the PDF summary of a report to path.
func ExportPDF(path string, report model.Report, settings model.SolverSettings) error {
	pdf, err := buildPDF(report, settings)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// WritePDF writes the PDF summary of a report to w.
func WritePDF(w io.Writer, report model.Report, settings model.SolverSettings) error {
	pdf, err := buildPDF(report, settings)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// buildPDF renders a summary page followed by one page per material.
func buildPDF(report model.Report, settings model.SolverSettings) (*fpdf.Fpdf, error) {
	if len(report.Materials) == 0 {
		return nil, fmt.Errorf("no materials to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	renderSummaryPage(pdf, tr, report, settings)

	for i, m := range report.Materials {
		pdf.AddPage()
		renderMaterialPage(pdf, tr, m, i+1)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return pdf, nil
}

// renderSummaryPage draws overall figures and the per-material table.
func renderSummaryPage(pdf *fpdf.Fpdf, tr func(string) string, report model.Report, settings model.SolverSettings) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(contentWidth, 10, "Sheet Estimate Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Total Sheets Required", fmt.Sprintf("%d", report.TotalSheets())},
		{"Materials", fmt.Sprintf("%d", len(report.Materials))},
		{"Failed Materials", fmt.Sprintf("%d", report.Failed)},
		{"Demand Mode", string(settings.DemandMode)},
		{"Kerf Width", fmt.Sprintf("%.1f mm", settings.KerfWidth)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Material Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{15, 70, 45, 30, 35, 30, 42}
	headers := []string{"#", "Material", "Sheet Size", "Sheets", "Lower Bound", "Utilization", "Status"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, m := range report.Materials {
		if y > pageHeight-marginBottom-20 {
			pdf.AddPage()
			y = marginTop
		}

		sheets := fmt.Sprintf("%d", m.SheetsRequired)
		utilization := fmt.Sprintf("%.1f%%", m.Utilization)
		status := "OK"
		if m.Failed() {
			sheets = "-"
			utilization = "-"
			status = "FAILED (" + string(m.ErrorKind) + ")"
		}
		rowData := []string{
			fmt.Sprintf("%d", i+1),
			tr(m.MaterialID),
			model.FormatSize(m.SheetLength, m.SheetWidth) + " mm",
			sheets,
			fmt.Sprintf("%.3f", m.AreaLowerBound),
			utilization,
			status,
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	renderFooter(pdf)
}

// renderMaterialPage draws one material: its figures, the sheets as
// blocks filled to the covered area, and the produced parts.
func renderMaterialPage(pdf *fpdf.Fpdf, tr func(string) string, m model.MaterialResult, num int) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Material %d: %s (%s mm)", num, tr(m.MaterialID), model.FormatSize(m.SheetLength, m.SheetWidth))
	pdf.CellFormat(contentWidth, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	if m.Failed() {
		pdf.SetTextColor(failedColor.R, failedColor.G, failedColor.B)
		pdf.CellFormat(contentWidth, 5, tr("Not solved: "+m.Error), "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	} else {
		stats := fmt.Sprintf("Sheets: %d | Part area: %.0f mm2 | Lower bound: %.3f sheets | Utilization: %.1f%%",
			m.SheetsRequired, m.PartArea, m.AreaLowerBound, m.Utilization)
		pdf.CellFormat(contentWidth, 5, stats, "", 0, "L", false, 0, "")
	}

	y := marginTop + headerHeight + 10
	if !m.Failed() && m.SheetsRequired > 0 {
		y = drawSheetBlocks(pdf, m, y)
	}

	renderProducedTable(pdf, tr, m, y+5)
	renderFooter(pdf)
}

// drawSheetBlocks draws each sheet scaled to a fixed height, filling the
// share of the part area it would carry if sheets were filled in order.
func drawSheetBlocks(pdf *fpdf.Fpdf, m model.MaterialResult, y float64) float64 {
	const blockH = 30.0
	blockW := blockH * m.SheetLength / m.SheetWidth
	blockW = math.Min(blockW, 60)

	drawn := m.SheetsRequired
	if drawn > maxDrawnSheets {
		drawn = maxDrawnSheets
	}

	remaining := m.PartArea / m.SheetArea
	x := marginLeft
	for i := 0; i < drawn; i++ {
		if x+blockW > pageWidth-marginRight {
			x = marginLeft
			y += blockH + 4
		}

		pdf.SetFillColor(sheetFill.R, sheetFill.G, sheetFill.B)
		pdf.SetDrawColor(100, 100, 100)
		pdf.SetLineWidth(0.3)
		pdf.Rect(x, y, blockW, blockH, "FD")

		share := math.Max(0, math.Min(1, remaining))
		if share > 0 {
			pdf.SetFillColor(usedColor.R, usedColor.G, usedColor.B)
			pdf.Rect(x, y+blockH*(1-share), blockW, blockH*share, "F")
		}
		remaining -= 1

		pdf.SetFont("Helvetica", "", 7)
		pdf.SetXY(x, y+blockH+0.5)
		pdf.CellFormat(blockW, 3, fmt.Sprintf("#%d", i+1), "", 0, "C", false, 0, "")
		x += blockW + 4
	}

	if m.SheetsRequired > drawn {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetXY(marginLeft, y+blockH+4)
		pdf.CellFormat(contentWidth, 4, fmt.Sprintf("... and %d more sheets", m.SheetsRequired-drawn), "", 0, "L", false, 0, "")
		y += 5
	}
	return y + blockH + 5
}

func renderProducedTable(pdf *fpdf.Fpdf, tr func(string) string, m model.MaterialResult, y float64) {
	if len(m.Produced) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(contentWidth, 5, "No parts", "", 0, "L", false, 0, "")
		return
	}

	colWidths := []float64{15, 60, 30}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range []string{"#", "Size (mm)", "Count"} {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, p := range m.Produced {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		for j, cell := range []string{fmt.Sprintf("%d", i+1), tr(p.Size), fmt.Sprintf("%d", p.Count)} {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", false, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}
}

func renderFooter(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(contentWidth, 4, "Generated by SlabCount. "+model.AreaOnlyFeasibility, "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
