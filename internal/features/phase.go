package features

import (
	"github.com/kahfeatures/kahfeatures/internal/dataset"
)

type pairKey struct {
	subject string
	pair    string
}

// markPhasePairs flags single-trial pairs whose channel pair showed theta
// phase encoding (encodingepisodes > 0 in the multichannel table) and, with
// EnforcePhase, drops the rest.
func markPhasePairs(s *Session) error {
	if !s.opts.MarkPhasePairs {
		return nil
	}
	mc := s.tables[dataset.MultiChannel]
	subjects, err := mc.Keys("subject")
	if err != nil {
		return err
	}
	pairs, err := mc.Keys("pair")
	if err != nil {
		return err
	}
	episodes, err := mc.Float("encodingepisodes")
	if err != nil {
		return err
	}
	encoding := make(map[pairKey]bool)
	for i := range pairs {
		if episodes[i] > 0 {
			encoding[pairKey{subjects[i], pairs[i]}] = true
		}
	}

	stmc := s.tables[dataset.SingleTrialMultiChannel]
	subjects, err = stmc.Keys("subject")
	if err != nil {
		return err
	}
	pairs, err = stmc.Keys("pair")
	if err != nil {
		return err
	}
	flags := make([]float64, len(pairs))
	keep := make([]bool, len(pairs))
	for i := range pairs {
		if encoding[pairKey{subjects[i], pairs[i]}] {
			flags[i] = 1
			keep[i] = true
		}
	}
	if err := stmc.AddFloat("phasepair", flags); err != nil {
		return err
	}
	if !s.opts.EnforcePhase {
		return nil
	}
	out, err := stmc.Where(keep)
	if err != nil {
		return err
	}
	s.tables[dataset.SingleTrialMultiChannel] = out
	return nil
}
