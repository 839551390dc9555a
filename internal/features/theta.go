package features

import (
	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// classifyTheta decides which single-channel rows carry theta, broadcasts
// that one set into every table's flag columns, then applies the optional
// enforce/exclude filter.
func classifyTheta(s *Session) error {
	set, err := s.thetaChannelSet()
	if err != nil {
		return err
	}
	s.theta = set
	monitoring.Logf("session %s: %d theta channels (%s)", s.id, len(set), s.opts.threshold)

	if err := s.each(func(d dataset.Dataset, t *table.Table) (*table.Table, error) {
		return broadcastTheta(d, t, set)
	}); err != nil {
		return err
	}

	if !s.opts.EnforceTheta && !s.opts.ExcludeTheta {
		return nil
	}
	single, pair := 0.0, 0.0
	if s.opts.EnforceTheta {
		single, pair = 1, 2
	}
	return s.each(func(d dataset.Dataset, t *table.Table) (*table.Table, error) {
		target := single
		if d.IsPair() {
			target = pair
		}
		keep := make([]bool, t.Len())
		sum := make([]float64, t.Len())
		for _, col := range d.ThetaColumns() {
			flags, err := t.Float(col)
			if err != nil {
				return nil, err
			}
			for i, f := range flags {
				sum[i] += f
			}
		}
		for i := range keep {
			keep[i] = sum[i] == target
		}
		return t.Where(keep)
	})
}

func (s *Session) thetaChannelSet() (map[ChannelKey]bool, error) {
	sc := s.tables[dataset.SingleChannel]
	keys, err := channelKeys(sc, "channel")
	if err != nil {
		return nil, err
	}

	var qualifies []bool
	switch s.opts.threshold {
	case ThresholdPValue:
		pvals, err := sc.Float("pvalposttheta")
		if err != nil {
			return nil, err
		}
		qualifies = make([]bool, len(pvals))
		for i, p := range pvals {
			qualifies[i] = p < s.opts.level
		}
	case ThresholdPercent:
		qualifies, err = s.percentQualifies(keys)
		if err != nil {
			return nil, err
		}
	case ThresholdBump:
		bumps, err := sc.Float("thetabump")
		if err != nil {
			return nil, err
		}
		qualifies = make([]bool, len(bumps))
		for i, b := range bumps {
			qualifies[i] = b == 1
		}
	default:
		return nil, &ConfigurationError{Field: "theta_threshold_type", Reason: "threshold type not recognized"}
	}

	set := make(map[ChannelKey]bool)
	for i, k := range keys {
		if qualifies[i] {
			set[k] = true
		}
	}
	return set, nil
}

// percentQualifies computes, per single-channel row, the share of trials
// with positive post-stimulus theta. The denominator is the number of
// distinct trials in the whole single-trial table, not per channel.
func (s *Session) percentQualifies(scKeys []ChannelKey) ([]bool, error) {
	stsc := s.tables[dataset.SingleTrialSingleChannel]
	keys, err := channelKeys(stsc, "channel")
	if err != nil {
		return nil, err
	}
	post, err := stsc.Float("posttheta")
	if err != nil {
		return nil, err
	}
	trials, err := stsc.Keys("trial")
	if err != nil {
		return nil, err
	}

	distinct := make(map[string]struct{}, len(trials))
	for _, tr := range trials {
		distinct[tr] = struct{}{}
	}
	positive := make(map[ChannelKey]int)
	for i, k := range keys {
		if post[i] > 0 {
			positive[k]++
		}
	}

	out := make([]bool, len(scKeys))
	if len(distinct) == 0 {
		return out, nil
	}
	n := float64(len(distinct))
	for i, k := range scKeys {
		out[i] = float64(positive[k])/n > s.opts.level
	}
	return out, nil
}

func broadcastTheta(d dataset.Dataset, t *table.Table, set map[ChannelKey]bool) (*table.Table, error) {
	flagCols := d.ThetaColumns()
	for j, chCol := range d.ChannelColumns() {
		keys, err := channelKeys(t, chCol)
		if err != nil {
			return nil, err
		}
		flags := make([]float64, len(keys))
		for i, k := range keys {
			if set[k] {
				flags[i] = 1
			}
		}
		if err := t.AddFloat(flagCols[j], flags); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func channelKeys(t *table.Table, col string) ([]ChannelKey, error) {
	subjects, err := t.Keys("subject")
	if err != nil {
		return nil, err
	}
	channels, err := t.Keys(col)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelKey, len(channels))
	for i := range channels {
		out[i] = ChannelKey{Subject: subjects[i], Channel: channels[i]}
	}
	return out, nil
}
