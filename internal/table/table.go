package table

import (
	"fmt"
	"strings"

	"videotable/internal/services"
	"videotable/internal/tensor"
)

// Column is one named, typed column of values.
type Column struct {
	Name   string
	Kind   tensor.Kind
	Values []float64
}

// Table is an ordered set of equal-length columns.
type Table struct {
	Columns []Column
}

// New builds a table and checks that all columns share a length and have
// unique non-empty names.
func New(columns ...Column) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		name := strings.TrimSpace(col.Name)
		if name == "" {
			return nil, services.Wrap(services.ErrValidation, "table", "new", fmt.Sprintf("column %d has no name", i), nil)
		}
		if _, dup := seen[name]; dup {
			return nil, services.Wrap(services.ErrValidation, "table", "new", fmt.Sprintf("duplicate column %q", name), nil)
		}
		seen[name] = struct{}{}
		if len(col.Values) != len(columns[0].Values) {
			return nil, services.Wrap(services.ErrValidation, "table", "new",
				fmt.Sprintf("column %q has %d rows, want %d", name, len(col.Values), len(columns[0].Values)), nil)
		}
	}
	return &Table{Columns: columns}, nil
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Names lists column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Select returns the named columns as row-major data (rows × len(names)) and
// the combined kind: Int only when every selected column is Int.
func (t *Table) Select(names []string) ([]float64, tensor.Kind, error) {
	if len(names) == 0 {
		return nil, tensor.Float, services.Wrap(services.ErrValidation, "table", "select", "no columns requested", nil)
	}
	cols := make([]Column, len(names))
	kind := tensor.Int
	for i, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, tensor.Float, services.Wrap(services.ErrNotFound, "table", "select", fmt.Sprintf("column %q", name), nil)
		}
		if col.Kind != tensor.Int {
			kind = tensor.Float
		}
		cols[i] = col
	}
	rows := t.Rows()
	width := len(cols)
	data := make([]float64, rows*width)
	for r := 0; r < rows; r++ {
		for c, col := range cols {
			data[r*width+c] = col.Values[r]
		}
	}
	return data, kind, nil
}

// FromRows builds a table from row-major data with the given column names,
// assigning kind to every column.
func FromRows(names []string, data []float64, kind tensor.Kind) (*Table, error) {
	width := len(names)
	if width == 0 || len(data)%width != 0 {
		return nil, services.Wrap(services.ErrValidation, "table", "from rows",
			fmt.Sprintf("%d values do not fill %d columns", len(data), width), nil)
	}
	rows := len(data) / width
	columns := make([]Column, width)
	for c, name := range names {
		values := make([]float64, rows)
		for r := 0; r < rows; r++ {
			values[r] = data[r*width+c]
		}
		columns[c] = Column{Name: name, Kind: kind, Values: values}
	}
	return New(columns...)
}
