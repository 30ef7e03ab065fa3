// Package template models the tabular gating specification: one row per
// derived population, loaded from CSV or HCL and normalized by Validate
// before the graph builder consumes it.
package template

import "fmt"

// PathSep is the population path delimiter. Aliases must not contain it.
const PathSep = "/"

// Wildcard is the pop-pattern sentinel marking a multi-output row.
const Wildcard = "*"

// RootAlias is the literal name of the synthetic root population.
const RootAlias = "root"

// Row is one raw line of a gating template. Field names follow the
// template's column names.
type Row struct {
	Alias      string // alias (comma-separated list when multi-output)
	Pattern    string // pop
	Parent     string // parent
	Dims       string // dims
	Method     string // gating_method
	Args       string // gating_args
	Collapse   string // collapseDataForGating
	GroupBy    string // groupBy
	PrepMethod string // preprocessing_method
	PrepArgs   string // preprocessing_args
}

// ValidatedRow is a Row with its alias set, multi-output flag and collapse
// flag normalized.
type ValidatedRow struct {
	Row
	Aliases     []string
	MultiOutput bool
	CollapseVal bool
}

// ValidationError reports a malformed row or an inconsistency across rows.
// Row is the 1-based row number, or 0 when the error is not tied to a
// single row.
type ValidationError struct {
	Row   int
	Field string
	Msg   string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("template row %d, %s: %s", e.Row, e.Field, e.Msg)
	}
	return fmt.Sprintf("template %s: %s", e.Field, e.Msg)
}
