package types

type ConversionRequest struct {
	SourcePath      string
	DestinationPath string
}

type ConversionResult struct {
	InputFile   string
	OutputFile  string
	Columns     []string
	RowsWritten int
}

type ColumnKind int

const (
	Numeric ColumnKind = iota
	String
	Date
)

// Column holds one variable of a dataset. A nil entry in Values is a missing value.
type Column struct {
	Name   string
	Label  string
	Kind   ColumnKind
	Values []any
}

// Table is a column-oriented dataset. All columns have the same length.
type Table struct {
	Name    string
	Columns []Column
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Row returns the values of record i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		if i < len(c.Values) {
			row[j] = c.Values[i]
		}
	}
	return row
}
