package model

import (
	"testing"
	"time"
)

func TestDefaultAppConfig(t *testing.T) {
	cfg := DefaultAppConfig()

	if cfg.Solver.DemandMode != DemandPreferExact {
		t.Errorf("expected default demand mode prefer_exact, got %s", cfg.Solver.DemandMode)
	}
	if cfg.Solver.DuplicatePolicy != DuplicateReject {
		t.Errorf("expected default duplicate policy reject, got %s", cfg.Solver.DuplicatePolicy)
	}
	if cfg.Solver.KerfWidth != 0 {
		t.Errorf("expected zero kerf by default, got %f", cfg.Solver.KerfWidth)
	}
	if cfg.ListenAddr != ":5000" {
		t.Errorf("expected listen addr :5000, got %s", cfg.ListenAddr)
	}
	if cfg.UploadDir != "uploads" {
		t.Errorf("expected upload dir uploads, got %s", cfg.UploadDir)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := AppConfig{
		Solver: SolverSettings{
			DemandMode:   "whatever",
			KerfWidth:    -2,
			Workers:      8,
			SolveTimeout: 5 * time.Second,
		},
	}
	cfg.Normalize()

	defaults := DefaultAppConfig()
	if cfg.Solver.DemandMode != DemandPreferExact {
		t.Errorf("unknown demand mode should fall back, got %s", cfg.Solver.DemandMode)
	}
	if cfg.Solver.DuplicatePolicy != DuplicateReject {
		t.Errorf("empty duplicate policy should fall back to reject, got %s", cfg.Solver.DuplicatePolicy)
	}
	if cfg.Solver.KerfWidth != 0 {
		t.Errorf("negative kerf should be clamped, got %f", cfg.Solver.KerfWidth)
	}
	if cfg.Solver.Workers != 8 {
		t.Errorf("workers should be kept, got %d", cfg.Solver.Workers)
	}
	if cfg.Solver.SolveTimeout != 5*time.Second {
		t.Errorf("timeout should be kept, got %s", cfg.Solver.SolveTimeout)
	}
	if cfg.Solver.MaxNodes != defaults.Solver.MaxNodes {
		t.Errorf("expected max nodes %d, got %d", defaults.Solver.MaxNodes, cfg.Solver.MaxNodes)
	}
	if cfg.ListenAddr != defaults.ListenAddr || cfg.UploadDir != defaults.UploadDir || cfg.LogMode != defaults.LogMode {
		t.Errorf("expected server defaults, got %+v", cfg)
	}
}

func TestDemandModeValid(t *testing.T) {
	for _, m := range []DemandMode{DemandPreferExact, DemandAtLeast, DemandExact} {
		if !m.Valid() {
			t.Errorf("expected %s to be valid", m)
		}
	}
	if DemandMode("exactly").Valid() {
		t.Error("unexpected valid demand mode")
	}
}
