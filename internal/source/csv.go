package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/fsutil"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// FileName returns the conventional csv file name for d,
// e.g. kah_singletrial_singlechannel.csv.
func FileName(d dataset.Dataset) string {
	return "kah_" + d.Name() + ".csv"
}

// CSVSource reads one csv file per dataset from Dir.
type CSVSource struct {
	FS  fsutil.FileSystem
	Dir string
	// Files overrides FileName for individual datasets.
	Files map[dataset.Dataset]string
}

// NewCSVSource returns a source reading dir through fsys.
func NewCSVSource(fsys fsutil.FileSystem, dir string) *CSVSource {
	return &CSVSource{FS: fsys, Dir: dir, Files: make(map[dataset.Dataset]string)}
}

// Path returns the file read for d.
func (s *CSVSource) Path(d dataset.Dataset) string {
	name, ok := s.Files[d]
	if !ok {
		name = FileName(d)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// LoadTable reads and parses the dataset's file. A missing file reports
// dataset.ErrDatasetNotFound.
func (s *CSVSource) LoadTable(ctx context.Context, d dataset.Dataset) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(d)
	if !s.FS.Exists(path) {
		return nil, fmt.Errorf("%s: %w", path, dataset.ErrDatasetNotFound)
	}
	f, err := s.FS.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return table.ReadCSV(f, d.Name())
}

// Close is a no-op.
func (s *CSVSource) Close() error { return nil }

// WriteCSVDir writes each view to dir as FileName of its dataset, creating
// dir if needed.
func WriteCSVDir(fsys fsutil.FileSystem, dir string, views []table.View) error {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, v := range views {
		d, err := dataset.Parse(v.Name())
		if err != nil {
			return err
		}
		path := filepath.Join(dir, FileName(d))
		w, err := fsys.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := table.WriteCSV(w, v); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
	}
	return nil
}
