// Command kahfeatures loads the feature tables, runs one feature session
// and prints summaries of the derived deltas. It can also export the
// session tables to csv, sqlite or xlsx and plot delta histograms.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/kahfeatures/kahfeatures/internal/config"
	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/features"
	"github.com/kahfeatures/kahfeatures/internal/fsutil"
	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/report"
	"github.com/kahfeatures/kahfeatures/internal/source"
	"github.com/kahfeatures/kahfeatures/internal/table"
	"github.com/kahfeatures/kahfeatures/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, fsutil.OSFileSystem{}, nil)
	if code := exitCode(err); code != 0 {
		log.Printf("kahfeatures: %v", err)
		os.Exit(code)
	}
}

// exitCode maps run errors to process exit codes: 2 for invalid options,
// 1 for anything else.
func exitCode(err error) int {
	var cfgErr *features.ConfigurationError
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.As(err, &cfgErr):
		return 2
	default:
		return 1
	}
}

type flags struct {
	configPath string
	version    bool
	verbose    bool

	source     string
	dataDir    string
	sqlitePath string
	xlsxPath   string

	subject         string
	regions         string
	enforceTheta    bool
	excludeTheta    bool
	thetaType       string
	thetaLevel      string
	markPhasePairs  bool
	enforcePhase    bool
	missingBaseline string

	outDir    string
	sqliteOut string
	xlsxOut   string
	plotDir   string
	chartPath string
	bins      int
}

func parseFlags(args []string, stderr io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("kahfeatures", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "Path to a pipeline JSON config (defaults apply when empty)")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	fs.BoolVar(&f.verbose, "v", false, "Log pipeline progress")

	fs.StringVar(&f.source, "source", "", "Table source: csv, sqlite or xlsx")
	fs.StringVar(&f.dataDir, "data-dir", "", "Directory holding kah_<dataset>.csv files")
	fs.StringVar(&f.sqlitePath, "sqlite", "", "SQLite database to read tables from")
	fs.StringVar(&f.xlsxPath, "xlsx", "", "Workbook to read tables from")

	fs.StringVar(&f.subject, "subject", "", "Subject to keep, or 'all'")
	fs.StringVar(&f.regions, "regions", "", "Comma-separated regions to keep (e.g. hippocampus,PFC)")
	fs.BoolVar(&f.enforceTheta, "enforce-theta", false, "Keep only theta channels and all-theta pairs")
	fs.BoolVar(&f.excludeTheta, "exclude-theta", false, "Keep only non-theta channels and pairs")
	fs.StringVar(&f.thetaType, "theta-type", "", "Theta threshold type: bump, pvalue or percent")
	fs.StringVar(&f.thetaLevel, "theta-level", "", "Theta threshold level for pvalue and percent")
	fs.BoolVar(&f.markPhasePairs, "mark-phase-pairs", false, "Flag pairs with encoding episodes")
	fs.BoolVar(&f.enforcePhase, "enforce-phase", false, "Keep only phase-encoding pairs")
	fs.StringVar(&f.missingBaseline, "missing-baseline", "", "Missing baseline policy: error or propagate")

	fs.StringVar(&f.outDir, "out", "", "Write session tables as csv into this directory")
	fs.StringVar(&f.sqliteOut, "sqlite-out", "", "Write session tables into this SQLite database")
	fs.StringVar(&f.xlsxOut, "xlsx-out", "", "Write session tables into this workbook")
	fs.StringVar(&f.plotDir, "plots", "", "Write delta histograms into this directory")
	fs.StringVar(&f.chartPath, "chart", "", "Write an HTML chart of per-subject delta means to this file")
	fs.IntVar(&f.bins, "bins", report.DefaultBins, "Histogram bin count")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// buildConfig loads the config file, if any, and applies the flags that
// were set on the command line over it.
func buildConfig(f *flags, fs *flag.FlagSet) (*config.PipelineConfig, error) {
	cfg := config.EmptyPipelineConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadPipelineConfig(f.configPath); err != nil {
			return nil, err
		}
	}

	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "source":
			cfg.Source = &f.source
		case "data-dir":
			cfg.DataDir = &f.dataDir
		case "sqlite":
			cfg.SQLitePath = &f.sqlitePath
		case "xlsx":
			cfg.XLSXPath = &f.xlsxPath
		case "subject":
			cfg.Subject = &f.subject
		case "regions":
			cfg.IncludeRegions = splitList(f.regions)
		case "enforce-theta":
			cfg.EnforceTheta = &f.enforceTheta
		case "exclude-theta":
			cfg.ExcludeTheta = &f.excludeTheta
		case "theta-type":
			cfg.ThetaThresholdType = &f.thetaType
		case "theta-level":
			level, perr := strconv.ParseFloat(f.thetaLevel, 64)
			if perr != nil {
				err = fmt.Errorf("invalid -theta-level %q: %w", f.thetaLevel, perr)
				return
			}
			cfg.ThetaThresholdLevel = &level
		case "mark-phase-pairs":
			cfg.MarkPhasePairs = &f.markPhasePairs
		case "enforce-phase":
			cfg.EnforcePhase = &f.enforcePhase
		case "missing-baseline":
			cfg.MissingBaseline = &f.missingBaseline
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// run executes one invocation. A nil reg loads the process-wide registry.
func run(ctx context.Context, args []string, stdout io.Writer, fsys fsutil.FileSystem, reg *dataset.Registry) error {
	f, fs, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintln(stdout, version.String("kahfeatures"))
		return nil
	}
	if !f.verbose {
		monitoring.SetLogger(nil)
	}

	cfg, err := buildConfig(f, fs)
	if err != nil {
		return err
	}

	src, err := source.Open(cfg, fsys)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := loadRegistry(ctx, reg, src); err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	if reg == nil {
		reg = dataset.Default()
	}

	session, err := features.NewSession(reg, cfg.ToOptions())
	if err != nil {
		return err
	}

	var views []table.View
	for _, d := range dataset.All {
		if v, ok := session.Table(d); ok {
			views = append(views, v)
		}
	}

	fmt.Fprintf(stdout, "session %s\n", session.ID())
	fmt.Fprintf(stdout, "theta channels: %d\n", len(session.ThetaChannels()))
	for _, v := range views {
		fmt.Fprintf(stdout, "%s: %d rows\n", v.Name(), v.Len())
	}

	for _, v := range views {
		d, err := dataset.Parse(v.Name())
		if err != nil {
			return err
		}
		cols := report.DeltaColumns(d)
		if len(cols) == 0 {
			continue
		}
		summaries, err := report.Summarize(v, cols)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout)
		if err := report.WriteSummary(stdout, v.Name(), summaries); err != nil {
			return err
		}
		if f.plotDir != "" {
			paths, err := report.PlotHistograms(fsys, v, cols, f.plotDir, f.bins)
			if err != nil {
				return fmt.Errorf("plot %s: %w", v.Name(), err)
			}
			monitoring.Logf("wrote %d histograms for %s", len(paths), v.Name())
		}
	}

	if f.chartPath != "" {
		if err := writeChart(fsys, f.chartPath, views); err != nil {
			return fmt.Errorf("chart: %w", err)
		}
	}
	return export(ctx, f, fsys, session, views)
}

// loadRegistry fills reg, or the process-wide registry when reg is nil.
func loadRegistry(ctx context.Context, reg *dataset.Registry, src dataset.TableSource) error {
	if reg == nil {
		return dataset.InitDefault(ctx, src)
	}
	return reg.Load(ctx, src)
}

// writeChart renders the single-trial single-channel deltas, the table
// with the most delta columns.
func writeChart(fsys fsutil.FileSystem, path string, views []table.View) error {
	for _, v := range views {
		if v.Name() != dataset.SingleTrialSingleChannel.Name() {
			continue
		}
		w, err := fsys.Create(path)
		if err != nil {
			return err
		}
		if err := report.WriteDeltaChart(w, v, report.DeltaColumns(dataset.SingleTrialSingleChannel)); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}
	return nil
}

func export(ctx context.Context, f *flags, fsys fsutil.FileSystem, session *features.Session, views []table.View) error {
	if f.outDir != "" {
		if err := source.WriteCSVDir(fsys, f.outDir, views); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		monitoring.Logf("wrote %d csv tables to %s", len(views), f.outDir)
	}
	if f.sqliteOut != "" {
		db, err := source.OpenSQLite(f.sqliteOut)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := source.WriteSQLite(ctx, db.DB(), views); err != nil {
			return fmt.Errorf("export sqlite: %w", err)
		}
		opts, err := json.Marshal(session.Options())
		if err != nil {
			return err
		}
		names := make([]string, len(views))
		for i, v := range views {
			names[i] = v.Name()
		}
		rec := source.SessionRecord{ID: session.ID(), Options: opts, Tables: names, Created: monitoring.Clock.Now()}
		if err := source.RecordSession(ctx, db.DB(), rec); err != nil {
			return fmt.Errorf("export sqlite: %w", err)
		}
		monitoring.Logf("wrote %d tables to %s", len(views), f.sqliteOut)
	}
	if f.xlsxOut != "" {
		if err := source.WriteXLSX(f.xlsxOut, views); err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		monitoring.Logf("wrote %d sheets to %s", len(views), f.xlsxOut)
	}
	return nil
}
