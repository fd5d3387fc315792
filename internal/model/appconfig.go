package model

import "time"

// DemandMode selects how per-part production counts are constrained.
type DemandMode string

const (
	// DemandPreferExact requires count >= quantity and, among the optimal
	// sheet counts, picks the assignment with the least produced area, which
	// yields count == quantity.
	DemandPreferExact DemandMode = "prefer_exact"
	// DemandAtLeast only requires count >= quantity; counts are whatever the
	// engine returns once the sheet count is minimal.
	DemandAtLeast DemandMode = "at_least"
	// DemandExact fixes count == quantity.
	DemandExact DemandMode = "exact"
)

// Valid reports whether the mode is one of the known values.
func (m DemandMode) Valid() bool {
	switch m {
	case DemandPreferExact, DemandAtLeast, DemandExact:
		return true
	}
	return false
}

// DuplicatePolicy decides how repeated material rows are treated.
type DuplicatePolicy string

const (
	// DuplicateReject collapses identical rows and rejects rows that repeat
	// a material id with different dimensions.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateFirst keeps the first row of each material id.
	DuplicateFirst DuplicatePolicy = "first"
)

// SolverSettings configures the cutting plan solver and the estimator.
type SolverSettings struct {
	DemandMode      DemandMode      `json:"demand_mode" yaml:"demand_mode"`
	DuplicatePolicy DuplicatePolicy `json:"duplicate_policy" yaml:"duplicate_policy"`
	KerfWidth       float64         `json:"kerf_width" yaml:"kerf_width"`       // mm added to each part dimension, 0 = raw area
	Workers         int             `json:"workers" yaml:"workers"`             // concurrent material solves, <= 1 = sequential
	SolveTimeout    time.Duration   `json:"solve_timeout" yaml:"solve_timeout"` // per material, 0 = none
	MaxNodes        int             `json:"max_nodes" yaml:"max_nodes"`         // branch and bound node limit
	IntegerTol      float64         `json:"integer_tol" yaml:"integer_tol"`     // distance from an integer still treated as integral
	SimplexTol      float64         `json:"simplex_tol" yaml:"simplex_tol"`     // tolerance passed to the LP solver
}

// DefaultSolverSettings returns the settings used when nothing is configured.
func DefaultSolverSettings() SolverSettings {
	return SolverSettings{
		DemandMode:      DemandPreferExact,
		DuplicatePolicy: DuplicateReject,
		KerfWidth:       0,
		Workers:         4,
		SolveTimeout:    30 * time.Second,
		MaxNodes:        10000,
		IntegerTol:      1e-6,
		SimplexTol:      1e-10,
	}
}

// AppConfig holds application-wide preferences.
type AppConfig struct {
	Solver SolverSettings `json:"solver" yaml:"solver"`

	// HTTP collaborator
	ListenAddr     string `json:"listen_addr" yaml:"listen_addr"`
	UploadDir      string `json:"upload_dir" yaml:"upload_dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// Application preferences
	LogMode     string `json:"log_mode" yaml:"log_mode"` // "development" or "production"
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Solver:         DefaultSolverSettings(),
		ListenAddr:     ":5000",
		UploadDir:      "uploads",
		MaxUploadBytes: 32 << 20,
		LogMode:        "development",
		CatalogPath:    "",
	}
}

// Normalize fills zero or unknown values with defaults so a partially
// written config file still yields a usable configuration.
func (c *AppConfig) Normalize() {
	d := DefaultAppConfig()
	if !c.Solver.DemandMode.Valid() {
		c.Solver.DemandMode = d.Solver.DemandMode
	}
	if c.Solver.DuplicatePolicy != DuplicateFirst {
		c.Solver.DuplicatePolicy = DuplicateReject
	}
	if c.Solver.KerfWidth < 0 {
		c.Solver.KerfWidth = 0
	}
	if c.Solver.MaxNodes <= 0 {
		c.Solver.MaxNodes = d.Solver.MaxNodes
	}
	if c.Solver.IntegerTol <= 0 {
		c.Solver.IntegerTol = d.Solver.IntegerTol
	}
	if c.Solver.SimplexTol <= 0 {
		c.Solver.SimplexTol = d.Solver.SimplexTol
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.UploadDir == "" {
		c.UploadDir = d.UploadDir
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.LogMode == "" {
		c.LogMode = d.LogMode
	}
}
