// SlabCount estimates how many raw sheets of each material a parts list needs.
//
// Build:
//   go build -o slabcount ./cmd/slabcount
//
// Usage:
//   slabcount estimate -workbook order.xlsx
//   slabcount estimate -parts parts.csv -materials materials.csv -format json
//   slabcount serve -addr :5000
//   slabcount backup -out backup.json
//   slabcount restore -in backup.json

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gin-gonic/gin"

	"github.com/piwi3910/SlabCount/internal/engine"
	"github.com/piwi3910/SlabCount/internal/export"
	"github.com/piwi3910/SlabCount/internal/importer"
	"github.com/piwi3910/SlabCount/internal/logger"
	"github.com/piwi3910/SlabCount/internal/model"
	"github.com/piwi3910/SlabCount/internal/project"
	"github.com/piwi3910/SlabCount/internal/server"
)

// Exit codes.
const (
	exitOK       = 0
	exitInput    = 1
	exitPartial  = 2
	exitInternal = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitInput
	}

	switch args[0] {
	case "estimate":
		return runEstimate(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "backup":
		return runBackup(args[1:], stderr)
	case "restore":
		return runRestore(args[1:], stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return exitInput
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: slabcount <estimate|serve|backup|restore> [flags]")
	fmt.Fprintln(w, "run 'slabcount <command> -h' for the flags of a command")
}

// setup loads the config, applies env overrides and builds the logger.
func setup(configPath string) (model.AppConfig, *logger.Logger, error) {
	cfg, err := project.LoadAppConfig(configPath)
	if err != nil {
		return model.AppConfig{}, nil, err
	}
	project.ApplyEnv(&cfg, nil)
	cfg.Normalize()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return model.AppConfig{}, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, log, nil
}

func catalogPath(cfg model.AppConfig) string {
	if cfg.CatalogPath != "" {
		return cfg.CatalogPath
	}
	return project.DefaultCatalogPath()
}

func runEstimate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	workbook := fs.String("workbook", "", "workbook with a parts sheet and a materials sheet")
	partsPath := fs.String("parts", "", "parts table (.xlsx or .csv)")
	materialsPath := fs.String("materials", "", "materials table (.xlsx or .csv); the catalog is used when empty")
	format := fs.String("format", "text", "output format: text, json, pdf or xlsx")
	out := fs.String("out", "", "output file (stdout for text and json when empty)")
	tags := fs.String("tags", "", "also write QR material tags to this PDF")
	configPath := fs.String("config", project.DefaultConfigPath(), "config file (.json or .yaml)")
	demand := fs.String("demand", "", "demand mode: prefer_exact, at_least or exact")
	kerf := fs.Float64("kerf", -1, "kerf allowance in mm added to each part dimension")
	compare := fs.Bool("compare", false, "compare the configured settings against the default what-if scenarios")
	if err := fs.Parse(args); err != nil {
		return exitInput
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInput
	}
	defer log.Sync()

	settings := cfg.Solver
	if *demand != "" {
		settings.DemandMode = model.DemandMode(strings.ToLower(*demand))
		if !settings.DemandMode.Valid() {
			fmt.Fprintf(stderr, "unknown demand mode %q\n", *demand)
			return exitInput
		}
	}
	if *kerf >= 0 {
		settings.KerfWidth = *kerf
	}

	switch *format {
	case "text", "json":
	case "pdf", "xlsx":
		if *out == "" {
			fmt.Fprintf(stderr, "-out is required for %s output\n", *format)
			return exitInput
		}
	default:
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return exitInput
	}

	tables, err := loadTables(*workbook, *partsPath, *materialsPath, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInput
	}
	for _, w := range tables.Warnings {
		log.Warn("import warning", "detail", w)
	}
	if !tables.OK() {
		for _, e := range tables.Errors {
			fmt.Fprintln(stderr, e)
		}
		return exitInput
	}

	if *compare {
		results := engine.CompareScenarios(ctx, engine.BuildDefaultScenarios(settings), tables.Parts, tables.Materials, log)
		writeComparison(stdout, results)
		return exitOK
	}

	report, err := engine.New(settings, log).Estimate(ctx, tables.Parts, tables.Materials)
	if err != nil {
		var inputErr *model.InputError
		if errors.As(err, &inputErr) {
			for _, issue := range inputErr.Issues {
				fmt.Fprintln(stderr, issue.String())
			}
			return exitInput
		}
		fmt.Fprintln(stderr, err)
		return exitInternal
	}

	if err := writeReport(stdout, *format, *out, report, settings); err != nil {
		fmt.Fprintln(stderr, err)
		return exitInternal
	}
	if *tags != "" {
		if err := export.ExportTags(*tags, report); err != nil {
			fmt.Fprintln(stderr, err)
			return exitInternal
		}
	}

	if !report.OK() {
		return exitPartial
	}
	return exitOK
}

// loadTables reads the input either from one workbook or from the parts
// file plus the materials file or catalog.
func loadTables(workbook, partsPath, materialsPath string, cfg model.AppConfig) (importer.ImportResult, error) {
	if workbook != "" {
		return importer.ImportWorkbook(workbook), nil
	}
	if partsPath == "" {
		return importer.ImportResult{}, errors.New("either -workbook or -parts is required")
	}

	parts := importer.ImportParts(partsPath)
	var materials importer.ImportResult
	if materialsPath != "" {
		materials = importer.ImportMaterials(materialsPath)
	} else {
		catalog, err := project.LoadCatalog(catalogPath(cfg))
		if err != nil {
			return importer.ImportResult{}, fmt.Errorf("cannot load material catalog: %w", err)
		}
		materials.Materials = catalog.Sheets()
	}

	return importer.ImportResult{
		Parts:     parts.Parts,
		Materials: materials.Materials,
		Errors:    append(parts.Errors, materials.Errors...),
		Warnings:  append(parts.Warnings, materials.Warnings...),
	}, nil
}

func writeReport(stdout io.Writer, format, out string, report model.Report, settings model.SolverSettings) error {
	switch format {
	case "pdf":
		return export.ExportPDF(out, report, settings)
	case "xlsx":
		return export.ExportExcel(out, report)
	}

	w := stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if format == "json" {
		return export.WriteJSON(w, report)
	}
	return export.WriteText(w, report)
}

func writeComparison(w io.Writer, results []engine.ComparisonResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSHEETS\tOVER-PRODUCED\tFAILED")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t%v\n", r.Scenario.Name, r.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", r.Scenario.Name, r.TotalSheets, r.OverProduced, r.FailedCount)
	}
	tw.Flush()
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "listen address (overrides the config)")
	configPath := fs.String("config", project.DefaultConfigPath(), "config file (.json or .yaml)")
	if err := fs.Parse(args); err != nil {
		return exitInput
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInput
	}
	defer log.Sync()

	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	var sheets []model.MaterialSheet
	if cfg.CatalogPath != "" {
		catalog, err := project.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			log.Error("cannot load material catalog", "path", cfg.CatalogPath, "error", err)
			return exitInput
		}
		sheets = catalog.Sheets()
	}

	gin.SetMode(server.GinMode(cfg.LogMode))
	srv := server.NewServer(server.RouterConfig{
		EstimateHandler: server.NewEstimateHandler(cfg, sheets, log),
		HealthHandler:   server.NewHealthHandler(),
		Log:             log,
	})

	log.Info("starting server", "addr", cfg.ListenAddr, "upload_dir", cfg.UploadDir, "workers", cfg.Solver.Workers)
	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		log.Error("server stopped", "error", err)
		return exitInternal
	}
	log.Info("server stopped")
	return exitOK
}

func runBackup(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "slabcount-backup.json", "backup file to write")
	configPath := fs.String("config", project.DefaultConfigPath(), "config file (.json or .yaml)")
	if err := fs.Parse(args); err != nil {
		return exitInput
	}

	cfg, err := project.LoadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInput
	}
	catalog, err := project.LoadCatalog(catalogPath(cfg))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInput
	}
	if err := project.ExportAllData(*out, cfg, catalog); err != nil {
		fmt.Fprintln(stderr, err)
		return exitInternal
	}
	return exitOK
}

func runRestore(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "backup file to read")
	configPath := fs.String("config", project.DefaultConfigPath(), "config file to write (.json or .yaml)")
	if err := fs.Parse(args); err != nil {
		return exitInput
	}
	if *in == "" {
		fmt.Fprintln(stderr, "-in is required")
		return exitInput
	}

	backup, err := project.ImportAllData(*in)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInput
	}
	if err := project.SaveAppConfig(*configPath, backup.Config); err != nil {
		fmt.Fprintln(stderr, err)
		return exitInternal
	}
	if err := project.SaveCatalog(catalogPath(backup.Config), backup.Catalog); err != nil {
		fmt.Fprintln(stderr, err)
		return exitInternal
	}
	return exitOK
}
