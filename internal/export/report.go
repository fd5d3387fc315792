package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/piwi3910/SlabCount/internal/model"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteText writes the console listing: one block per material with the
// sheet count and the produced parts.
func WriteText(w io.Writer, report model.Report) error {
	ew := &errWriter{w: w}
	for _, m := range report.Materials {
		ew.printf("Material: %s\n", m.MaterialID)
		if m.Failed() {
			ew.printf("Status: failed (%s): %s\n\n", m.ErrorKind, m.Error)
			continue
		}
		ew.printf("Sheets required: %d\n", m.SheetsRequired)
		ew.printf("Parts:\n")
		for _, p := range m.Produced {
			ew.printf("  Size: %s, Count: %d\n", p.Size, p.Count)
		}
		ew.printf("\n")
	}
	ew.printf("Total sheets: %d", report.TotalSheets())
	if report.Failed > 0 {
		ew.printf(" (%d material(s) failed)", report.Failed)
	}
	ew.printf("\nNote: %s\n", report.AreaOnly)
	return ew.err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
