// Package dataset names the feature tables of the study and holds the
// process-wide registry they are loaded into.
package dataset

import "fmt"

// Dataset identifies one of the feature tables.
type Dataset int

const (
	SingleTrialSingleChannel Dataset = iota
	SingleTrialMultiChannel
	SingleChannel
	MultiChannel
)

// All lists every dataset in pipeline order.
var All = []Dataset{SingleTrialSingleChannel, SingleTrialMultiChannel, SingleChannel, MultiChannel}

type meta struct {
	name     string
	short    string
	pair     bool
	required bool
}

var metas = map[Dataset]meta{
	SingleTrialSingleChannel: {name: "singletrial_singlechannel", short: "stsc", required: true},
	SingleTrialMultiChannel:  {name: "singletrial_multichannel", short: "stmc", pair: true, required: true},
	SingleChannel:            {name: "singlechannel", short: "sc", required: true},
	MultiChannel:             {name: "multichannel", short: "mc", pair: true},
}

// Name returns the canonical dataset name, e.g. "singletrial_singlechannel".
func (d Dataset) Name() string {
	if s, ok := metas[d]; ok {
		return s.name
	}
	return fmt.Sprintf("dataset(%d)", int(d))
}

func (d Dataset) String() string { return d.Name() }

// ShortName returns the abbreviated name, e.g. "stsc".
func (d Dataset) ShortName() string { return metas[d].short }

// IsPair reports whether rows describe a channel pair.
func (d Dataset) IsPair() bool { return metas[d].pair }

// Required reports whether a registry load must provide the dataset.
func (d Dataset) Required() bool { return metas[d].required }

// ChannelColumns returns the channel identifier columns.
func (d Dataset) ChannelColumns() []string {
	if d.IsPair() {
		return []string{"channelA", "channelB"}
	}
	return []string{"channel"}
}

// RegionColumns returns the region label columns, aligned with ChannelColumns.
func (d Dataset) RegionColumns() []string {
	if d.IsPair() {
		return []string{"regionA", "regionB"}
	}
	return []string{"region"}
}

// ThetaColumns returns the oscillation flag columns, aligned with ChannelColumns.
func (d Dataset) ThetaColumns() []string {
	if d.IsPair() {
		return []string{"thetachanA", "thetachanB"}
	}
	return []string{"thetachan"}
}

// Parse resolves a canonical or short dataset name.
func Parse(name string) (Dataset, error) {
	for _, d := range All {
		if s := metas[d]; s.name == name || s.short == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dataset %q", name)
}

// Subjects is the closed set of subject identifiers in the study.
var Subjects = []string{
	"R1020J", "R1034D", "R1045E", "R1059J", "R1075J", "R1080E", "R1142N",
	"R1149N", "R1154D", "R1162N", "R1166D", "R1167M", "R1175N", "R1001P",
	"R1003P", "R1006P", "R1018P", "R1036M", "R1039M", "R1060M", "R1066P",
	"R1067P", "R1069M", "R1086M", "R1089P", "R1112M", "R1136N", "R1177M",
}

// IsKnownSubject reports whether id is one of Subjects.
func IsKnownSubject(id string) bool {
	for _, s := range Subjects {
		if s == id {
			return true
		}
	}
	return false
}
