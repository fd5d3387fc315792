// Package importer reads the parts and materials tables from CSV and Excel
// files. It supports automatic delimiter detection, flexible column mapping,
// and case-insensitive header recognition in English and Russian.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/SlabCount/internal/model"
	"github.com/xuri/excelize/v2"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Parts     []model.PartRequirement
	Materials []model.MaterialSheet
	Errors    []string
	Warnings  []string
}

// OK reports whether the import produced no errors.
func (r ImportResult) OK() bool {
	return len(r.Errors) == 0
}

// Table identifies which of the two input tables a sheet holds.
type Table int

const (
	PartsTable Table = iota
	MaterialsTable
)

func (t Table) String() string {
	if t == MaterialsTable {
		return "materials"
	}
	return "parts"
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Material int
	Label    int
	Length   int
	Width    int
	Quantity int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"material": {"material", "material id", "material_id", "materialid", "material name", "наименование материала", "материал"},
	"label":    {"label", "name", "part", "part name", "description", "desc", "наименование детали", "деталь"},
	"length":   {"length", "len", "l", "sheet length", "sheet_length", "длина, мм", "длина", "длина мм"},
	"width":    {"width", "w", "sheet width", "sheet_width", "ширина, мм", "ширина", "ширина мм"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces", "количество, шт.", "количество", "кол-во"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		records, err := readRecords(bytes.NewReader(data), delim)
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping for the table and false if no header was found.
func DetectColumns(row []string, table Table) (ColumnMapping, bool) {
	mapping := ColumnMapping{Material: -1, Label: -1, Length: -1, Width: -1, Quantity: -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.Join(strings.Fields(cell), " "))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				slot := mapping.slot(role)
				if *slot == -1 {
					*slot = i
				}
			}
		}
	}

	if !isHeader {
		return positionalMapping(table), false
	}
	return mapping, true
}

func (m *ColumnMapping) slot(role string) *int {
	switch role {
	case "material":
		return &m.Material
	case "label":
		return &m.Label
	case "length":
		return &m.Length
	case "width":
		return &m.Width
	default:
		return &m.Quantity
	}
}

// positionalMapping is used for headerless data: material, length, width
// and, for parts, quantity.
func positionalMapping(table Table) ColumnMapping {
	if table == MaterialsTable {
		return ColumnMapping{Material: 0, Label: -1, Length: 1, Width: 2, Quantity: -1}
	}
	return ColumnMapping{Material: 0, Label: -1, Length: 1, Width: 2, Quantity: 3}
}

// missingColumns lists required roles absent from a header mapping.
func (m ColumnMapping) missingColumns(table Table) []string {
	var missing []string
	if m.Material == -1 {
		missing = append(missing, "Material")
	}
	if m.Length == -1 {
		missing = append(missing, "Length")
	}
	if m.Width == -1 {
		missing = append(missing, "Width")
	}
	if table == PartsTable && m.Quantity == -1 {
		missing = append(missing, "Quantity")
	}
	return missing
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber accepts both decimal point and a lone decimal comma.
func parseNumber(s string) (float64, error) {
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

// parseQuantity accepts whole numbers, including spreadsheet renderings like "4.0".
func parseQuantity(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := parseNumber(s)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("not a whole number")
	}
	return int(f), nil
}

// parseDimensions reads the material id, length and width shared by both tables.
func parseDimensions(row []string, mapping ColumnMapping, rowLabel string) (string, float64, float64, string) {
	material := getCell(row, mapping.Material)
	if material == "" {
		return "", 0, 0, fmt.Sprintf("%s: Missing material", rowLabel)
	}

	lengthStr := getCell(row, mapping.Length)
	if lengthStr == "" {
		return "", 0, 0, fmt.Sprintf("%s: Missing length value", rowLabel)
	}
	length, err := parseNumber(lengthStr)
	if err != nil {
		return "", 0, 0, fmt.Sprintf("%s: Invalid length '%s'", rowLabel, lengthStr)
	}

	widthStr := getCell(row, mapping.Width)
	if widthStr == "" {
		return "", 0, 0, fmt.Sprintf("%s: Missing width value", rowLabel)
	}
	width, err := parseNumber(widthStr)
	if err != nil {
		return "", 0, 0, fmt.Sprintf("%s: Invalid width '%s'", rowLabel, widthStr)
	}

	if length <= 0 || width <= 0 {
		return "", 0, 0, fmt.Sprintf("%s: Length and width must be positive", rowLabel)
	}
	return material, length, width, ""
}

// parsePartRow extracts a part requirement from a row.
// Returns the part and any error message.
func parsePartRow(row []string, mapping ColumnMapping, rowLabel string) (model.PartRequirement, string) {
	material, length, width, errMsg := parseDimensions(row, mapping, rowLabel)
	if errMsg != "" {
		return model.PartRequirement{}, errMsg
	}

	qtyStr := getCell(row, mapping.Quantity)
	if qtyStr == "" {
		return model.PartRequirement{}, fmt.Sprintf("%s: Missing quantity value", rowLabel)
	}
	qty, err := parseQuantity(qtyStr)
	if err != nil {
		return model.PartRequirement{}, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr)
	}
	if qty <= 0 {
		return model.PartRequirement{}, fmt.Sprintf("%s: Quantity must be positive", rowLabel)
	}

	return model.PartRequirement{
		MaterialID: material,
		Label:      getCell(row, mapping.Label),
		Length:     length,
		Width:      width,
		Quantity:   qty,
	}, ""
}

// parseMaterialRow extracts a material sheet from a row.
func parseMaterialRow(row []string, mapping ColumnMapping, rowLabel string) (model.MaterialSheet, string) {
	material, length, width, errMsg := parseDimensions(row, mapping, rowLabel)
	if errMsg != "" {
		return model.MaterialSheet{}, errMsg
	}
	return model.MaterialSheet{MaterialID: material, SheetLength: length, SheetWidth: width}, ""
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readRecords(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// ImportCSV imports one table from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string, table Table) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readRecords(bytes.NewReader(data), delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, table, "Line", result.Warnings)
}

// ImportCSVFromReader imports one table from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune, table Table) ImportResult {
	records, err := readRecords(reader, delimiter)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	if len(records) == 0 {
		return ImportResult{Errors: []string{"File is empty"}}
	}
	return importFromRows(records, table, "Line", nil)
}

// ImportExcel imports one table from the first sheet of an Excel file.
func ImportExcel(path string, table Table) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{Errors: []string{"Excel file has no sheets"}}
	}
	return importSheet(f, sheets[0], table)
}

// ImportParts imports the parts table, choosing the reader by file extension.
func ImportParts(path string) ImportResult {
	return importByExtension(path, PartsTable)
}

// ImportMaterials imports the materials table, choosing the reader by file extension.
func ImportMaterials(path string) ImportResult {
	return importByExtension(path, MaterialsTable)
}

func importByExtension(path string, table Table) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path, table)
	default:
		return ImportCSV(path, table)
	}
}

// sheetNames lists the accepted sheet names per table (lowercase).
var sheetNames = map[Table][]string{
	PartsTable:     {"details", "parts", "детали"},
	MaterialsTable: {"materials", "материалы"},
}

// ImportWorkbook imports both tables from one workbook. Sheets are found by
// name; without matching names the first sheet holds the parts and the
// second the materials.
func ImportWorkbook(path string) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	partsSheet := findSheet(sheets, PartsTable)
	materialsSheet := findSheet(sheets, MaterialsTable)

	var warnings []string
	if partsSheet == "" || materialsSheet == "" {
		if len(sheets) < 2 {
			return ImportResult{Errors: []string{"Workbook needs a parts sheet and a materials sheet"}}
		}
		partsSheet, materialsSheet = sheets[0], sheets[1]
		warnings = append(warnings, fmt.Sprintf("Using sheet '%s' for parts and '%s' for materials", partsSheet, materialsSheet))
	}

	parts := importSheet(f, partsSheet, PartsTable)
	materials := importSheet(f, materialsSheet, MaterialsTable)

	return ImportResult{
		Parts:     parts.Parts,
		Materials: materials.Materials,
		Errors:    append(prefixed(partsSheet, parts.Errors), prefixed(materialsSheet, materials.Errors)...),
		Warnings:  append(warnings, append(prefixed(partsSheet, parts.Warnings), prefixed(materialsSheet, materials.Warnings)...)...),
	}
}

func findSheet(sheets []string, table Table) string {
	for _, name := range sheets {
		normalized := strings.ToLower(strings.TrimSpace(name))
		for _, want := range sheetNames[table] {
			if normalized == want {
				return name
			}
		}
	}
	return ""
}

func prefixed(sheet string, msgs []string) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = fmt.Sprintf("%s: %s", sheet, m)
	}
	return out
}

func importSheet(f *excelize.File, sheet string, table Table) ImportResult {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read Excel data: %v", err)}}
	}
	if len(rows) == 0 {
		return ImportResult{Errors: []string{"Sheet is empty"}}
	}
	return importFromRows(rows, table, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
// It detects headers, maps columns, and parses each row into the table.
func importFromRows(rows [][]string, table Table, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0], table)
	startRow := 0
	if hasHeader {
		startRow = 1
		if missing := mapping.missingColumns(table); len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if _, err := parseNumber(getCell(rows[0], mapping.Length)); err != nil {
		// Unrecognized header over positional data
		startRow = 1
		result.Warnings = append(result.Warnings, "Unrecognized header row, using column order")
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		switch table {
		case MaterialsTable:
			sheet, errMsg := parseMaterialRow(row, mapping, rowLabel)
			if errMsg != "" {
				result.Errors = append(result.Errors, errMsg)
				continue
			}
			result.Materials = append(result.Materials, sheet)
		default:
			part, errMsg := parsePartRow(row, mapping, rowLabel)
			if errMsg != "" {
				result.Errors = append(result.Errors, errMsg)
				continue
			}
			result.Parts = append(result.Parts, part)
		}
	}

	return result
}
