// Package tabular turns raw query rows into named, column-labeled datasets.
//
// Build is a pure transformation: it validates that every row has exactly
// one value per declared column and otherwise reports ErrEmptyResult or a
// *ColumnMismatchError. The caller-declared column names are authoritative
// over any names the query result itself carries.
//
// Datasets encode to CSV (WriteCSV / EncodeCSV) so they can be staged into a
// remote execution environment.
package tabular
