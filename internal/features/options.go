package features

import (
	"fmt"
	"math"
	"strings"
)

// ThresholdType selects how oscillation-positive channels are detected.
type ThresholdType string

const (
	// ThresholdPValue qualifies channels whose post-stimulus theta p-value
	// is below the threshold level.
	ThresholdPValue ThresholdType = "pvalue"
	// ThresholdPercent qualifies channels whose fraction of trials with
	// positive post-stimulus theta exceeds the threshold level.
	ThresholdPercent ThresholdType = "percent"
	// ThresholdBump qualifies channels flagged with a spectral bump.
	ThresholdBump ThresholdType = "bump"
)

// ParseThresholdType accepts the canonical names plus "pval". Empty means bump.
func ParseThresholdType(s string) (ThresholdType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bump":
		return ThresholdBump, nil
	case "pvalue", "pval":
		return ThresholdPValue, nil
	case "percent":
		return ThresholdPercent, nil
	default:
		return "", &ConfigurationError{Field: "theta_threshold_type", Reason: fmt.Sprintf("threshold type %q not recognized", s)}
	}
}

// MissingBaseline decides what a delta does with a NaN baseline.
type MissingBaseline string

const (
	// MissingBaselineError fails session construction.
	MissingBaselineError MissingBaseline = "error"
	// MissingBaselinePropagate yields a NaN delta for the row.
	MissingBaselinePropagate MissingBaseline = "propagate"
)

// AllSubjects is the subject sentinel that disables subject filtering.
const AllSubjects = "all"

// Options configures one Session.
type Options struct {
	Subject             string
	IncludeRegions      []string
	EnforceTheta        bool
	ExcludeTheta        bool
	ThetaThresholdType  string
	ThetaThresholdLevel *float64

	// MarkPhasePairs adds a phasepair flag to the single-trial pair table
	// using the multichannel table's encoding episodes. EnforcePhase implies it.
	MarkPhasePairs bool
	EnforcePhase   bool

	MissingBaseline MissingBaseline
}

// resolved is Options after validation.
type resolved struct {
	Options
	threshold ThresholdType
	level     float64
	regions   map[string]bool
}

// Validate reports the first invalid field as a *ConfigurationError.
// NewSession runs the same checks.
func (o Options) Validate() error {
	_, err := o.resolve()
	return err
}

func (o Options) resolve() (resolved, error) {
	r := resolved{Options: o}

	if o.EnforceTheta && o.ExcludeTheta {
		return r, &ConfigurationError{Field: "enforce_theta", Reason: "enforce_theta and exclude_theta are mutually exclusive"}
	}

	tt, err := ParseThresholdType(o.ThetaThresholdType)
	if err != nil {
		return r, err
	}
	r.threshold = tt
	r.ThetaThresholdType = string(tt)
	if tt != ThresholdBump {
		if o.ThetaThresholdLevel == nil {
			return r, &ConfigurationError{Field: "theta_threshold_level", Reason: fmt.Sprintf("required for threshold type %q", tt)}
		}
		if math.IsNaN(*o.ThetaThresholdLevel) {
			return r, &ConfigurationError{Field: "theta_threshold_level", Reason: "must be a number"}
		}
		r.level = *o.ThetaThresholdLevel
	}

	switch o.MissingBaseline {
	case "":
		r.MissingBaseline = MissingBaselineError
	case MissingBaselineError, MissingBaselinePropagate:
	default:
		return r, &ConfigurationError{Field: "missing_baseline", Reason: fmt.Sprintf("unknown policy %q", o.MissingBaseline)}
	}

	if o.EnforcePhase {
		r.MarkPhasePairs = true
	}
	if o.Subject == "" {
		r.Subject = AllSubjects
	}
	if len(o.IncludeRegions) > 0 {
		r.regions = make(map[string]bool, len(o.IncludeRegions))
		for _, reg := range o.IncludeRegions {
			r.regions[reg] = true
		}
	}
	return r, nil
}

// ConfigurationError reports an invalid Options combination.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}
