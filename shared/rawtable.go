package shared

import (
	"slices"
)

// RawTable represents a provider shaped tabular payload. Column names vary by
// provider and requested frequency.
type RawTable struct {
	Columns []string
	Rows    []map[string]string
}

// NewRawTable initializes a raw table with the provided columns.
func NewRawTable(columns ...string) *RawTable {
	return &RawTable{
		Columns: columns,
		Rows:    make([]map[string]string, 0),
	}
}

// Append adds a row to the table, values are matched to columns positionally.
func (t *RawTable) Append(values ...string) {
	row := make(map[string]string, len(t.Columns))
	for idx := range t.Columns {
		if idx < len(values) {
			row[t.Columns[idx]] = values[idx]
		}
	}

	t.Rows = append(t.Rows, row)
}

// HasColumn checks whether the table schema contains the provided column.
func (t *RawTable) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Len returns the number of rows in the table.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Rows)
}
