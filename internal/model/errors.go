package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is the sentinel behind every InputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInfeasible means the integer program has no feasible or no bounded solution.
	ErrInfeasible = errors.New("integer program infeasible")
	// ErrSolverFailure covers numeric failures, node limits and rejected solutions.
	ErrSolverFailure = errors.New("solver failure")
	// ErrSolveTimeout means a material's solve exceeded its time budget.
	ErrSolveTimeout = errors.New("solve timed out")
)

// InputIssue is one problem found while validating the input tables.
type InputIssue struct {
	Table   string `json:"table"` // "parts" or "materials"
	Row     int    `json:"row"`   // 1-based position in the table
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i InputIssue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s row %d: %s", i.Table, i.Row, i.Message)
	}
	return fmt.Sprintf("%s row %d (%s): %s", i.Table, i.Row, i.Field, i.Message)
}

// InputError reports malformed or inconsistent input tables. It is raised
// before any solve begins and aborts the whole batch.
type InputError struct {
	Issues []InputIssue
}

func (e *InputError) Error() string {
	if len(e.Issues) == 0 {
		return ErrInvalidInput.Error()
	}
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.String())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// SolveError wraps a per-material solve failure.
type SolveError struct {
	MaterialID string
	Err        error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("material %q: %v", e.MaterialID, e.Err)
}

func (e *SolveError) Unwrap() error { return e.Err }

// ErrorKind classifies a solve failure for reports.
type ErrorKind string

const (
	ErrorKindInfeasible ErrorKind = "infeasible"
	ErrorKindSolver     ErrorKind = "solver_error"
	ErrorKindTimeout    ErrorKind = "timeout"
)

// KindOf maps an error returned by a solve to its report classification.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrSolveTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, ErrInfeasible):
		return ErrorKindInfeasible
	default:
		return ErrorKindSolver
	}
}
