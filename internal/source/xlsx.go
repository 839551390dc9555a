package source

import (
	"context"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// XLSXSource reads one worksheet per dataset from a workbook. A sheet is
// matched by the dataset's name or short name.
type XLSXSource struct {
	f *excelize.File
}

// OpenXLSX opens the workbook at path.
func OpenXLSX(path string) (*XLSXSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &XLSXSource{f: f}, nil
}

// Close releases the workbook.
func (s *XLSXSource) Close() error { return s.f.Close() }

func (s *XLSXSource) sheet(d dataset.Dataset) (string, bool) {
	for _, name := range s.f.GetSheetList() {
		if name == d.Name() || name == d.ShortName() {
			return name, true
		}
	}
	return "", false
}

// LoadTable parses the dataset's sheet. The first row is the header.
func (s *XLSXSource) LoadTable(ctx context.Context, d dataset.Dataset) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheet, ok := s.sheet(d)
	if !ok {
		return nil, fmt.Errorf("sheet %s: %w", d.Name(), dataset.ErrDatasetNotFound)
	}
	rows, err := s.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read sheet %s: no header row", sheet)
	}
	return table.FromRecords(d.Name(), rows[0], rows[1:])
}

// WriteXLSX writes each view to its own sheet of a new workbook at path.
func WriteXLSX(path string, views []table.View) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, v := range views {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), v.Name()); err != nil {
				return fmt.Errorf("name sheet %s: %w", v.Name(), err)
			}
		} else if _, err := f.NewSheet(v.Name()); err != nil {
			return fmt.Errorf("add sheet %s: %w", v.Name(), err)
		}
		if err := writeSheet(f, v); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, v table.View) error {
	cols := v.Columns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(v.Name(), "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", v.Name(), err)
	}

	floats := make(map[string][]float64)
	for _, c := range cols {
		if kind, _ := v.KindOf(c); kind == table.Float {
			vals, err := v.Float(c)
			if err != nil {
				return err
			}
			floats[c] = vals
		}
	}

	row := make([]any, len(cols))
	for r := 0; r < v.Len(); r++ {
		for i, c := range cols {
			if vals, ok := floats[c]; ok {
				if math.IsNaN(vals[r]) {
					row[i] = nil
				} else {
					row[i] = vals[r]
				}
				continue
			}
			row[i] = v.Cell(c, r)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(v.Name(), cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", v.Name(), r, err)
		}
	}
	return nil
}
