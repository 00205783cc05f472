package tabular

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult is returned when a query produced no rows.
	ErrEmptyResult = errors.New("no rows")

	// ErrColumnMismatch classifies rows whose width differs from the declared columns.
	ErrColumnMismatch = errors.New("column mismatch")
)

// ColumnMismatchError reports the first row whose width differs from the
// number of declared columns. It carries enough detail for the model to
// revise its query.
type ColumnMismatchError struct {
	Row       int      // zero-based index of the offending row
	Sample    []any    // the offending row
	Declared  []string // declared column names
	GotWidth  int
	WantWidth int
}

// Error implements error.
func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("column mismatch: row %d has %d values but %d columns were declared %v (row sample: %v)",
		e.Row, e.GotWidth, e.WantWidth, e.Declared, e.Sample)
}

// Is reports whether target is ErrColumnMismatch.
func (e *ColumnMismatchError) Is(target error) bool { return target == ErrColumnMismatch }
