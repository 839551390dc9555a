// Package source loads the feature tables from disk and writes session
// tables back out. Every loader implements dataset.TableSource.
package source

import (
	"fmt"

	"github.com/kahfeatures/kahfeatures/internal/config"
	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/fsutil"
	"github.com/kahfeatures/kahfeatures/internal/monitoring"
)

// Source is a TableSource holding resources that must be released.
type Source interface {
	dataset.TableSource
	Close() error
}

// Open builds the source selected by cfg. Files in the csv source are
// read through fsys; the other sources open their path directly.
func Open(cfg *config.PipelineConfig, fsys fsutil.FileSystem) (Source, error) {
	switch cfg.GetSource() {
	case config.SourceCSV:
		src := NewCSVSource(fsys, cfg.GetDataDir())
		for name, file := range cfg.Files {
			d, err := dataset.Parse(name)
			if err != nil {
				return nil, err
			}
			src.Files[d] = file
		}
		monitoring.Logf("reading csv tables from %s", cfg.GetDataDir())
		return src, nil
	case config.SourceSQLite:
		src, err := OpenSQLite(cfg.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		monitoring.Logf("reading sqlite tables from %s", cfg.GetSQLitePath())
		return src, nil
	case config.SourceXLSX:
		src, err := OpenXLSX(cfg.GetXLSXPath())
		if err != nil {
			return nil, err
		}
		monitoring.Logf("reading xlsx sheets from %s", cfg.GetXLSXPath())
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.GetSource())
	}
}
