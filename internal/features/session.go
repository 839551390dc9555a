// Package features derives per-trial oscillation, high-frequency activity
// and coupling features from the registry tables.
//
// A Session copies the registry tables and runs a fixed sequence of stages
// over the copy:
//
//	subject filter -> region filter -> theta classification (+ exclusion)
//	  -> phase pairs (optional) -> directional coupling -> deltas
//
// Every stage reads and writes the same working set, so a channel dropped
// from one table is dropped from the others by the same rule. Once
// NewSession returns, the tables are never modified again.
package features

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// ChannelKey identifies a recording channel. Channel labels are only unique
// within a subject.
type ChannelKey struct {
	Subject string
	Channel string
}

// Session is the feature working set for one configuration.
type Session struct {
	id     string
	opts   resolved
	tables map[dataset.Dataset]*table.Table
	theta  map[ChannelKey]bool
}

type stage struct {
	name string
	run  func(*Session) error
}

var stages = []stage{
	{"subject filter", filterSubject},
	{"region filter", filterRegions},
	{"theta classification", classifyTheta},
	{"phase pairs", markPhasePairs},
	{"directional coupling", resolveCoupling},
	{"deltas", computeDeltas},
}

// NewSession validates opts, copies the registry tables and runs every stage.
// It fails with *ConfigurationError for invalid options and with
// *table.DataConsistencyError when a required column or baseline is missing.
func NewSession(reg *dataset.Registry, opts Options) (*Session, error) {
	r, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if r.MarkPhasePairs && !reg.Has(dataset.MultiChannel) {
		return nil, &ConfigurationError{Field: "mark_phase_pairs", Reason: "multichannel dataset not loaded"}
	}
	if r.Subject != AllSubjects && !dataset.IsKnownSubject(r.Subject) {
		monitoring.Logf("subject %q is not in the study subject list", r.Subject)
	}

	tables, err := reg.Snapshot()
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:     uuid.NewString(),
		opts:   r,
		tables: tables,
	}
	for _, st := range stages {
		done := monitoring.Timed(fmt.Sprintf("session %s: %s", s.id, st.name))
		err := st.run(s)
		done()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
	}
	monitoring.Logf("session %s ready: %s", s.id, s.rowCounts())
	return s, nil
}

// ID returns a unique identifier for log correlation.
func (s *Session) ID() string { return s.id }

// Options returns the validated options, with defaults filled in.
func (s *Session) Options() Options {
	o := s.opts.Options
	o.IncludeRegions = append([]string(nil), o.IncludeRegions...)
	return o
}

// Table returns a read-only view of a post-pipeline table.
func (s *Session) Table(d dataset.Dataset) (table.View, bool) {
	t, ok := s.tables[d]
	if !ok {
		return nil, false
	}
	return table.ReadOnly(t), true
}

// ThetaChannels returns the oscillation-positive channels, sorted.
func (s *Session) ThetaChannels() []ChannelKey {
	out := make([]ChannelKey, 0, len(s.theta))
	for k := range s.theta {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// each applies fn to every loaded table in dataset order and stores the result.
func (s *Session) each(fn func(d dataset.Dataset, t *table.Table) (*table.Table, error)) error {
	for _, d := range dataset.All {
		t, ok := s.tables[d]
		if !ok {
			continue
		}
		out, err := fn(d, t)
		if err != nil {
			return err
		}
		s.tables[d] = out
	}
	return nil
}

func (s *Session) rowCounts() string {
	var out string
	for _, d := range dataset.All {
		if t, ok := s.tables[d]; ok {
			if out != "" {
				out += " "
			}
			out += fmt.Sprintf("%s=%d", d.ShortName(), t.Len())
		}
	}
	return out
}
