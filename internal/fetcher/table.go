package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable builds a table whose first row is the header. Header names are
// matched case-insensitively with surrounding space ignored.
func NewTable(rows [][]string) *Table {
	t := &Table{index: map[string]int{}}
	if len(rows) == 0 {
		return t
	}
	t.Header = rows[0]
	for i, h := range t.Header {
		key := headerKey(h)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	for _, r := range rows[1:] {
		if !blank(r) {
			t.Rows = append(t.Rows, r)
		}
	}
	return t
}

// Has reports whether the header has a column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[headerKey(column)]
	return ok
}

// Get returns a row's value for column, or "" when either is missing.
func (t *Table) Get(row []string, column string) string {
	i, ok := t.index[headerKey(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Require fails when any column is absent from the header.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("fetcher: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadTable reads a .csv or .xlsx file into a Table.
func ReadTable(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		return NewTable(rows), nil
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err := ReadCSV(ctx, f, CSVOptions{LazyQuotes: true, TrimSpace: true})
		if err != nil {
			return nil, err
		}
		return NewTable(rows), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported table format %s", path)
	}
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
