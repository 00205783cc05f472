package tabular

import (
	"database/sql/driver"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dataset is a named, column-labeled, row-oriented in-memory table. It is
// immutable after Build; accessors return copies.
type Dataset struct {
	name    string
	columns []string
	rows    [][]any
}

// Build converts query rows and declared column names into a Dataset.
//
// Errors:
//
//	ErrEmptyResult        -> rows is empty
//	*ColumnMismatchError  -> some row width != len(columns)
func Build(rows [][]any, columns []string, name string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, &ColumnMismatchError{
				Row:       i,
				Sample:    append([]any(nil), row...),
				Declared:  append([]string(nil), columns...),
				GotWidth:  len(row),
				WantWidth: len(columns),
			}
		}
	}

	cp := make([][]any, len(rows))
	for i, row := range rows {
		cp[i] = append([]any(nil), row...)
	}

	return &Dataset{
		name:    name,
		columns: append([]string(nil), columns...),
		rows:    cp,
	}, nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Columns returns a copy of the declared column names.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// Rows returns a copy of the rows.
func (d *Dataset) Rows() [][]any {
	out := make([][]any, len(d.rows))
	for i, row := range d.rows {
		out[i] = append([]any(nil), row...)
	}
	return out
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Summary is the model-facing description of the dataset: its name, its
// columns and its shape, never the data itself.
func (d *Dataset) Summary() string {
	return fmt.Sprintf("Query succeeded. Stored dataset %q with %d row(s) and %d column(s). Columns: %s.",
		d.name, d.NumRows(), d.NumColumns(), strings.Join(d.columns, ", "))
}

// WriteCSV writes a header line followed by one record per row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.columns); err != nil {
		return err
	}
	record := make([]string, len(d.columns))
	for _, row := range d.rows {
		for i, v := range row {
			s, err := formatValue(v)
			if err != nil {
				return fmt.Errorf("encode %s column %q: %w", d.name, d.columns[i], err)
			}
			record[i] = s
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV returns the CSV encoding of the dataset.
func (d *Dataset) EncodeCSV() ([]byte, error) {
	var sb strings.Builder
	if err := d.WriteCSV(&sb); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// formatValue renders a single database value as a CSV field. NULL becomes
// the empty field; structured values (JSON columns) are JSON encoded.
// Driver types such as numeric, interval and date are rendered through
// their driver.Value; raw 16-byte values are uuid columns.
func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case [16]byte:
		return uuid.UUID(val).String(), nil
	case driver.Valuer:
		dv, err := val.Value()
		if err != nil {
			return "", err
		}
		if _, nested := dv.(driver.Valuer); nested {
			return fmt.Sprintf("%v", dv), nil
		}
		return formatValue(dv)
	case fmt.Stringer:
		return val.String(), nil
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprintf("%v", val), nil
	}
}
