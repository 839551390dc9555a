package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

var (
	// ErrRegistryLoaded is returned when Load is called on a loaded registry.
	ErrRegistryLoaded = errors.New("dataset registry already loaded")
	// ErrRegistryNotLoaded is returned when a snapshot is taken before Load.
	ErrRegistryNotLoaded = errors.New("dataset registry not loaded")
	// ErrDatasetNotFound is returned by a TableSource without the dataset.
	ErrDatasetNotFound = errors.New("dataset not found")
)

// TableSource loads one table per dataset.
type TableSource interface {
	LoadTable(ctx context.Context, d Dataset) (*table.Table, error)
}

// StaticSource serves tables already held in memory.
type StaticSource map[Dataset]*table.Table

// LoadTable returns a copy of the stored table.
func (s StaticSource) LoadTable(_ context.Context, d Dataset) (*table.Table, error) {
	t, ok := s[d]
	if !ok {
		return nil, fmt.Errorf("%s: %w", d, ErrDatasetNotFound)
	}
	return t.Clone(), nil
}

// Registry holds the loaded tables. It is written once by Load and is
// read-only afterwards.
type Registry struct {
	mu     sync.RWMutex
	loaded bool
	tables map[Dataset]*table.Table
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Load reads every dataset from src. Required datasets must be present;
// optional ones are skipped when the source reports ErrDatasetNotFound.
func (r *Registry) Load(ctx context.Context, src TableSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return ErrRegistryLoaded
	}

	tables := make(map[Dataset]*table.Table, len(All))
	for _, d := range All {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := src.LoadTable(ctx, d)
		if err != nil {
			if !d.Required() && errors.Is(err, ErrDatasetNotFound) {
				monitoring.Logf("dataset %s not provided, skipping", d)
				continue
			}
			return fmt.Errorf("load %s: %w", d, err)
		}
		if err := validate(d, t); err != nil {
			return err
		}
		monitoring.Logf("loaded %s: %d rows, %d columns", d, t.Len(), len(t.Columns()))
		tables[d] = t
	}

	r.tables = tables
	r.loaded = true
	return nil
}

// validate checks that the identifying columns exist and that no row
// leaves one of them blank.
func validate(d Dataset, t *table.Table) error {
	cols := []string{"subject"}
	cols = append(cols, d.ChannelColumns()...)
	cols = append(cols, d.RegionColumns()...)
	for _, c := range cols {
		if !t.Has(c) {
			return &table.DataConsistencyError{Table: d.Name(), Column: c, Row: -1, Reason: "required column missing"}
		}
		keys, err := t.Keys(c)
		if err != nil {
			return err
		}
		for i, k := range keys {
			if strings.TrimSpace(k) == "" {
				return &table.DataConsistencyError{Table: d.Name(), Column: c, Row: i, Reason: "value missing"}
			}
		}
	}
	return nil
}

// Loaded reports whether Load has completed successfully.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Has reports whether the dataset was loaded.
func (r *Registry) Has(d Dataset) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[d]
	return ok
}

// Snapshot returns deep copies of every loaded table. The caller owns the
// copies exclusively.
func (r *Registry) Snapshot() (map[Dataset]*table.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return nil, ErrRegistryNotLoaded
	}
	out := make(map[Dataset]*table.Table, len(r.tables))
	for d, t := range r.tables {
		out[d] = t.Clone()
	}
	return out, nil
}

var defaultRegistry = NewRegistry()

// InitDefault loads the process-wide registry. It may succeed only once.
func InitDefault(ctx context.Context, src TableSource) error {
	return defaultRegistry.Load(ctx, src)
}

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
