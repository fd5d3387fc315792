package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteJSON_FieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, buildTestReport()); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	var decoded struct {
		Materials []map[string]interface{} `json:"materials"`
		Failed    int                      `json:"failed"`
		Note      string                   `json:"note"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Materials) != 4 || decoded.Failed != 1 {
		t.Fatalf("unexpected report shape: %d materials, %d failed", len(decoded.Materials), decoded.Failed)
	}
	first := decoded.Materials[0]
	if first["material_id"] != "Plywood" || first["sheets_required"] != float64(1) {
		t.Errorf("unexpected first entry %v", first)
	}
	produced, ok := first["produced"].([]interface{})
	if !ok || len(produced) != 1 {
		t.Fatalf("expected produced list, got %v", first["produced"])
	}
	part := produced[0].(map[string]interface{})
	if part["size"] != "100x200" || part["count"] != float64(30) {
		t.Errorf("unexpected produced entry %v", part)
	}
	if empty, ok := decoded.Materials[1]["produced"].([]interface{}); !ok || len(empty) != 0 {
		t.Errorf("material without parts must encode produced as [], got %v", decoded.Materials[1]["produced"])
	}
	if decoded.Note == "" {
		t.Error("expected the area-only note")
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, buildTestReport()); err != nil {
		t.Fatalf("WriteText returned error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Material: Plywood\nSheets required: 1\nParts:\n  Size: 100x200, Count: 30\n",
		"Material: Acrylic\nSheets required: 0\nParts:\n\n",
		"  Size: 1200x800, Count: 3\n",
		"Material: Oak\nStatus: failed (timeout)",
		"Total sheets: 3 (1 material(s) failed)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errors.New("disk full")
}

func TestWriteText_StopsAtFirstError(t *testing.T) {
	w := &failingWriter{}
	if err := WriteText(w, buildTestReport()); err == nil {
		t.Fatal("expected write error")
	}
	if w.n != 1 {
		t.Errorf("expected a single write attempt, got %d", w.n)
	}
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExcel(&buf, buildTestReport()); err != nil {
		t.Fatalf("WriteExcel returned error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("cannot reopen workbook: %v", err)
	}
	defer f.Close()

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatal(err)
	}
	// header + 4 materials + total
	if len(summary) != 6 {
		t.Fatalf("expected 6 summary rows, got %d", len(summary))
	}
	if summary[1][0] != "Plywood" || summary[1][3] != "1" {
		t.Errorf("unexpected summary row %v", summary[1])
	}
	if summary[4][6] != "failed" {
		t.Errorf("expected failed status, got %v", summary[4])
	}
	if summary[5][0] != "Total" || summary[5][3] != "3" {
		t.Errorf("unexpected total row %v", summary[5])
	}

	produced, err := f.GetRows(producedSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(produced) != 4 {
		t.Fatalf("expected header + 3 produced rows, got %d", len(produced))
	}
	if produced[2][0] != "ЛДСП 16" || produced[2][1] != "800x300" || produced[2][2] != "6" {
		t.Errorf("unexpected produced row %v", produced[2])
	}
}
