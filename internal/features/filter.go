package features

import (
	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// filterSubject keeps only the configured subject's rows. Zero matches
// leave empty tables.
func filterSubject(s *Session) error {
	if s.opts.Subject == AllSubjects {
		return nil
	}
	return s.each(func(_ dataset.Dataset, t *table.Table) (*table.Table, error) {
		subjects, err := t.Keys("subject")
		if err != nil {
			return nil, err
		}
		keep := make([]bool, len(subjects))
		for i, subj := range subjects {
			keep[i] = subj == s.opts.Subject
		}
		return t.Where(keep)
	})
}

// filterRegions keeps rows whose every region column is in the allow-list.
// Pair tables therefore need both regions allowed.
func filterRegions(s *Session) error {
	if len(s.opts.regions) == 0 {
		return nil
	}
	return s.each(func(d dataset.Dataset, t *table.Table) (*table.Table, error) {
		keep := make([]bool, t.Len())
		for i := range keep {
			keep[i] = true
		}
		for _, col := range d.RegionColumns() {
			regions, err := t.Keys(col)
			if err != nil {
				return nil, err
			}
			for i, reg := range regions {
				keep[i] = keep[i] && s.opts.regions[reg]
			}
		}
		return t.Where(keep)
	})
}
