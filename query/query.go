// Package query defines the relational query-execution collaborator.
//
// Implementations run a query string and return its rows positionally; the
// column names the model declared are attached later by tabular.Build.
package query

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrQuery is returned when the database rejected or failed the query.
	ErrQuery = errors.New("query failed")

	// ErrTransport is returned when the database could not be reached.
	ErrTransport = errors.New("database unreachable")

	// ErrRowLimit is returned when a result has more rows than the executor keeps.
	ErrRowLimit = errors.New("row limit exceeded")
)

// RowLimitError reports a result that exceeded the configured row cap. The
// rows are discarded rather than returned partially.
type RowLimitError struct {
	Limit int
}

// Error implements error.
func (e *RowLimitError) Error() string {
	return fmt.Sprintf("query returned more than %d rows", e.Limit)
}

// Is reports whether target is ErrRowLimit or ErrQuery.
func (e *RowLimitError) Is(target error) bool { return target == ErrRowLimit || target == ErrQuery }

// Executor runs a query and returns every row as a slice of column values.
type Executor interface {
	Run(ctx context.Context, query string) ([][]any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, query string) ([][]any, error)

// Run implements Executor.
func (f ExecutorFunc) Run(ctx context.Context, query string) ([][]any, error) { return f(ctx, query) }
