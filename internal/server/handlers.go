package server

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piwi3910/SlabCount/internal/engine"
	"github.com/piwi3910/SlabCount/internal/export"
	"github.com/piwi3910/SlabCount/internal/importer"
	"github.com/piwi3910/SlabCount/internal/logger"
	"github.com/piwi3910/SlabCount/internal/model"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// EstimateHandler serves estimates for uploaded or posted tables.
type EstimateHandler struct {
	settings       model.SolverSettings
	uploadDir      string
	maxUploadBytes int64
	catalog        []model.MaterialSheet
	log            *logger.Logger
}

// NewEstimateHandler returns a handler that stores uploads under uploadDir.
// catalog stands in for the materials table when a request omits it and may
// be nil.
func NewEstimateHandler(cfg model.AppConfig, catalog []model.MaterialSheet, log *logger.Logger) *EstimateHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &EstimateHandler{
		settings:       cfg.Solver,
		uploadDir:      cfg.UploadDir,
		maxUploadBytes: cfg.MaxUploadBytes,
		catalog:        catalog,
		log:            log.With("component", "http"),
	}
}

// EstimateRequest is the JSON body of POST /estimate.
type EstimateRequest struct {
	Parts     []model.PartRequirement `json:"parts"`
	Materials []model.MaterialSheet   `json:"materials"`
}

// Output formats for estimate responses.
const (
	formatJSON = "json"
	formatPDF  = "pdf"
	formatXLSX = "xlsx"
)

var errNoTables = errors.New("upload a workbook as 'file' or the tables as 'parts' and 'materials'")

// Optimize handles POST /optimize. It accepts either one workbook in the
// "file" field or separate "parts" and "materials" files. Uploads are
// stored under a generated name and removed before the handler returns.
func (h *EstimateHandler) Optimize(c *gin.Context) {
	format, settings, ok := h.requestOptions(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, CodeTooLarge, err)
			return
		}
		RespondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	var result importer.ImportResult
	switch {
	case len(form.File["file"]) > 0:
		result, err = h.withUpload(c, form.File["file"][0], func(path string) importer.ImportResult {
			if !isExcel(path) {
				return importer.ImportResult{Errors: []string{"'file' must be an Excel workbook"}}
			}
			return importer.ImportWorkbook(path)
		})
	case len(form.File["parts"]) > 0:
		result, err = h.importTables(c, form.File["parts"][0], form.File["materials"])
	default:
		RespondError(c, http.StatusBadRequest, CodeBadRequest, errNoTables)
		return
	}
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	if !result.OK() {
		RespondParseErrors(c, result.Errors)
		return
	}

	h.estimateAndRender(c, settings, format, result.Parts, result.Materials)
}

// Estimate handles POST /estimate with a JSON body.
func (h *EstimateHandler) Estimate(c *gin.Context) {
	format, settings, ok := h.requestOptions(c)
	if !ok {
		return
	}

	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	h.estimateAndRender(c, settings, format, req.Parts, req.Materials)
}

// requestOptions reads the output format and per-request solver overrides.
func (h *EstimateHandler) requestOptions(c *gin.Context) (string, model.SolverSettings, bool) {
	format := strings.ToLower(c.DefaultQuery("format", formatJSON))
	switch format {
	case formatJSON, formatPDF, formatXLSX:
	default:
		RespondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("unknown format %q", format))
		return "", model.SolverSettings{}, false
	}

	settings := h.settings
	if v := c.Query("demand_mode"); v != "" {
		mode := model.DemandMode(strings.ToLower(v))
		if !mode.Valid() {
			RespondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("unknown demand_mode %q", v))
			return "", model.SolverSettings{}, false
		}
		settings.DemandMode = mode
	}
	return format, settings, true
}

// importTables reads a parts upload plus a materials upload, or the
// catalog when no materials file was sent.
func (h *EstimateHandler) importTables(c *gin.Context, partsFile *multipart.FileHeader, materialsFiles []*multipart.FileHeader) (importer.ImportResult, error) {
	parts, err := h.withUpload(c, partsFile, importer.ImportParts)
	if err != nil {
		return importer.ImportResult{}, err
	}

	var materials importer.ImportResult
	switch {
	case len(materialsFiles) > 0:
		materials, err = h.withUpload(c, materialsFiles[0], importer.ImportMaterials)
		if err != nil {
			return importer.ImportResult{}, err
		}
	case len(h.catalog) > 0:
		materials.Materials = h.catalog
	default:
		return importer.ImportResult{}, errors.New("missing 'materials' upload and no material catalog configured")
	}

	return importer.ImportResult{
		Parts:     parts.Parts,
		Materials: materials.Materials,
		Errors:    append(prefixAll("parts", parts.Errors), prefixAll("materials", materials.Errors)...),
		Warnings:  append(parts.Warnings, materials.Warnings...),
	}, nil
}

// withUpload stores one uploaded file under a generated name, runs read on
// it and removes it again.
func (h *EstimateHandler) withUpload(c *gin.Context, fh *multipart.FileHeader, read func(path string) importer.ImportResult) (importer.ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	switch ext {
	case ".xlsx", ".xlsm", ".csv":
	default:
		return importer.ImportResult{}, fmt.Errorf("unsupported file type %q for %s", ext, fh.Filename)
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return importer.ImportResult{}, fmt.Errorf("cannot prepare upload dir: %w", err)
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return importer.ImportResult{}, fmt.Errorf("cannot store upload: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.log.Warn("failed to remove upload", "path", path, "error", err)
		}
	}()

	return read(path), nil
}

// estimateAndRender runs the estimate and writes the report in full, or an
// error response; the body is rendered before anything is sent.
func (h *EstimateHandler) estimateAndRender(c *gin.Context, settings model.SolverSettings, format string, parts []model.PartRequirement, materials []model.MaterialSheet) {
	if len(materials) == 0 && len(h.catalog) > 0 {
		materials = h.catalog
	}

	est := engine.New(settings, h.log)
	report, err := est.Estimate(c.Request.Context(), parts, materials)
	if err != nil {
		var inputErr *model.InputError
		if errors.As(err, &inputErr) {
			RespondInputError(c, inputErr)
			return
		}
		h.log.Error("estimate failed", "error", err)
		RespondError(c, http.StatusInternalServerError, CodeInternal, err)
		return
	}

	switch format {
	case formatPDF:
		var buf bytes.Buffer
		if err := export.WritePDF(&buf, report, settings); err != nil {
			RespondError(c, http.StatusInternalServerError, CodeInternal, err)
			return
		}
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	case formatXLSX:
		var buf bytes.Buffer
		if err := export.WriteExcel(&buf, report); err != nil {
			RespondError(c, http.StatusInternalServerError, CodeInternal, err)
			return
		}
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		RespondOK(c, report)
	}
}

func isExcel(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func prefixAll(prefix string, msgs []string) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = prefix + ": " + m
	}
	return out
}
