package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/features"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// Source kinds understood by the loader.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
	SourceXLSX   = "xlsx"
)

// PipelineConfig is the JSON configuration for loading the feature tables
// and building one session. Unset fields fall back to the Get* defaults.
type PipelineConfig struct {
	// Table source
	Source     *string           `json:"source,omitempty"` // csv, sqlite or xlsx
	DataDir    *string           `json:"data_dir,omitempty"`
	Files      map[string]string `json:"files,omitempty"` // dataset name -> file name, csv only
	SQLitePath *string           `json:"sqlite_path,omitempty"`
	XLSXPath   *string           `json:"xlsx_path,omitempty"`

	// Session
	Subject             *string  `json:"subject,omitempty"`
	IncludeRegions      []string `json:"include_regions,omitempty"`
	EnforceTheta        *bool    `json:"enforce_theta,omitempty"`
	ExcludeTheta        *bool    `json:"exclude_theta,omitempty"`
	ThetaThresholdType  *string  `json:"theta_threshold_type,omitempty"`
	ThetaThresholdLevel *float64 `json:"theta_threshold_level,omitempty"`
	MarkPhasePairs      *bool    `json:"mark_phase_pairs,omitempty"`
	EnforcePhase        *bool    `json:"enforce_phase,omitempty"`
	MissingBaseline     *string  `json:"missing_baseline,omitempty"`
}

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/<tool>/ nested one deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks field values and combinations that can be checked
// without loading data. Session option errors are *features.ConfigurationError.
func (c *PipelineConfig) Validate() error {
	switch c.GetSource() {
	case SourceCSV, SourceSQLite, SourceXLSX:
	default:
		return fmt.Errorf("source must be one of csv, sqlite, xlsx, got %q", c.GetSource())
	}
	if c.GetSource() == SourceSQLite && c.GetSQLitePath() == "" {
		return fmt.Errorf("sqlite_path is required for the sqlite source")
	}
	if c.GetSource() == SourceXLSX && c.GetXLSXPath() == "" {
		return fmt.Errorf("xlsx_path is required for the xlsx source")
	}
	for name := range c.Files {
		if _, err := dataset.Parse(name); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}

	if err := c.ToOptions().Validate(); err != nil {
		return err
	}
	if c.ThetaThresholdLevel != nil && (*c.ThetaThresholdLevel < 0 || *c.ThetaThresholdLevel > 1) {
		return &features.ConfigurationError{
			Field:  "theta_threshold_level",
			Reason: fmt.Sprintf("must be between 0 and 1, got %f", *c.ThetaThresholdLevel),
		}
	}
	return nil
}

// ToOptions converts the session fields into features.Options.
func (c *PipelineConfig) ToOptions() features.Options {
	return features.Options{
		Subject:             c.GetSubject(),
		IncludeRegions:      append([]string(nil), c.IncludeRegions...),
		EnforceTheta:        c.GetEnforceTheta(),
		ExcludeTheta:        c.GetExcludeTheta(),
		ThetaThresholdType:  c.GetThetaThresholdType(),
		ThetaThresholdLevel: c.ThetaThresholdLevel,
		MarkPhasePairs:      c.GetMarkPhasePairs(),
		EnforcePhase:        c.GetEnforcePhase(),
		MissingBaseline:     features.MissingBaseline(c.GetMissingBaseline()),
	}
}

// GetSource returns the source value or the default.
func (c *PipelineConfig) GetSource() string {
	if c.Source == nil || *c.Source == "" {
		return SourceCSV
	}
	return *c.Source
}

// GetDataDir returns the data_dir value or the default.
func (c *PipelineConfig) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "csv"
	}
	return *c.DataDir
}

// GetSQLitePath returns the sqlite_path value or "".
func (c *PipelineConfig) GetSQLitePath() string {
	if c.SQLitePath == nil {
		return ""
	}
	return *c.SQLitePath
}

// GetXLSXPath returns the xlsx_path value or "".
func (c *PipelineConfig) GetXLSXPath() string {
	if c.XLSXPath == nil {
		return ""
	}
	return *c.XLSXPath
}

// GetSubject returns the subject value or the default.
func (c *PipelineConfig) GetSubject() string {
	if c.Subject == nil || *c.Subject == "" {
		return features.AllSubjects
	}
	return *c.Subject
}

// GetEnforceTheta returns the enforce_theta value or the default.
func (c *PipelineConfig) GetEnforceTheta() bool {
	if c.EnforceTheta == nil {
		return false
	}
	return *c.EnforceTheta
}

// GetExcludeTheta returns the exclude_theta value or the default.
func (c *PipelineConfig) GetExcludeTheta() bool {
	if c.ExcludeTheta == nil {
		return false
	}
	return *c.ExcludeTheta
}

// GetThetaThresholdType returns the theta_threshold_type value or the default.
func (c *PipelineConfig) GetThetaThresholdType() string {
	if c.ThetaThresholdType == nil || *c.ThetaThresholdType == "" {
		return string(features.ThresholdBump)
	}
	return *c.ThetaThresholdType
}

// GetMarkPhasePairs returns the mark_phase_pairs value or the default.
func (c *PipelineConfig) GetMarkPhasePairs() bool {
	if c.MarkPhasePairs == nil {
		return false
	}
	return *c.MarkPhasePairs
}

// GetEnforcePhase returns the enforce_phase value or the default.
func (c *PipelineConfig) GetEnforcePhase() bool {
	if c.EnforcePhase == nil {
		return false
	}
	return *c.EnforcePhase
}

// GetMissingBaseline returns the missing_baseline value or the default.
func (c *PipelineConfig) GetMissingBaseline() string {
	if c.MissingBaseline == nil || *c.MissingBaseline == "" {
		return string(features.MissingBaselineError)
	}
	return *c.MissingBaseline
}
