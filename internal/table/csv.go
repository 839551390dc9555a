package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV parses a CSV stream with a header row into a table. A leading
// unnamed index column, as written by pandas, is dropped.
func ReadCSV(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: empty csv", name)
		}
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return FromRecords(name, header, records)
}

// FromRecords builds a table from string cells, inferring each column's
// kind: all bool literals give Bool, all numeric-or-empty give Float (empty
// is NaN), anything else is String.
func FromRecords(name string, header []string, records [][]string) (*Table, error) {
	skip := 0
	if len(header) > 0 && isIndexHeader(header[0]) {
		skip = 1
	}
	t := New(name)
	seen := make(map[string]bool, len(header))
	for j := skip; j < len(header); j++ {
		col := strings.TrimSpace(header[j])
		if col == "" {
			return nil, fmt.Errorf("read %s: column %d has no name", name, j)
		}
		if seen[col] {
			return nil, fmt.Errorf("read %s: duplicate column %q", name, col)
		}
		seen[col] = true

		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = strings.TrimSpace(rec[j])
			}
		}
		if err := addInferred(t, col, cells); err != nil {
			return nil, err
		}
	}
	if len(t.order) == 0 {
		t.rows = len(records)
	}
	return t, nil
}

func isIndexHeader(h string) bool {
	h = strings.TrimSpace(h)
	return h == "" || strings.HasPrefix(h, "Unnamed: 0")
}

func addInferred(t *Table, col string, cells []string) error {
	if bools, ok := parseBools(cells); ok {
		return t.AddBool(col, bools)
	}
	if floats, ok := parseFloats(cells); ok {
		return t.AddFloat(col, floats)
	}
	return t.AddString(col, cells)
}

func parseBools(cells []string) ([]bool, bool) {
	if len(cells) == 0 {
		return nil, false
	}
	out := make([]bool, len(cells))
	for i, c := range cells {
		switch c {
		case "True", "true", "TRUE":
			out[i] = true
		case "False", "false", "FALSE":
		default:
			return nil, false
		}
	}
	return out, true
}

func parseFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		if c == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// WriteCSV writes the header and every row of v. NaN renders as an empty cell.
func WriteCSV(w io.Writer, v View) error {
	cw := csv.NewWriter(w)
	cols := v.Columns()
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write %s header: %w", v.Name(), err)
	}
	row := make([]string, len(cols))
	for i := 0; i < v.Len(); i++ {
		for j, c := range cols {
			row[j] = v.Cell(c, i)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s row %d: %w", v.Name(), i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
