package features

import (
	"math"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
)

// Windows are the trial segments coupling is measured over, baseline first.
var Windows = []string{"pre", "early", "late"}

// resolveCoupling collapses each window's AB/BA coupling into the stronger
// direction. Per window it writes:
//
//	<w>rawpac       max(AB, BA)
//	<w>rawpacABorBA AB > BA
//	<w>rawpacdir    "regionA-regionB" when AB wins, "regionB-regionA" otherwise
//
// Direction is decided per row and per window, so one pair can point AB in
// one trial or window and BA in another.
func resolveCoupling(s *Session) error {
	stmc := s.tables[dataset.SingleTrialMultiChannel]
	regA, err := stmc.Keys("regionA")
	if err != nil {
		return err
	}
	regB, err := stmc.Keys("regionB")
	if err != nil {
		return err
	}

	for _, w := range Windows {
		col := w + "rawpac"
		ab, err := stmc.Float(col + "AB")
		if err != nil {
			return err
		}
		ba, err := stmc.Float(col + "BA")
		if err != nil {
			return err
		}

		value := make([]float64, len(ab))
		orient := make([]bool, len(ab))
		label := make([]string, len(ab))
		for i := range ab {
			value[i] = math.Max(ab[i], ba[i])
			orient[i] = ab[i] > ba[i]
			if orient[i] {
				label[i] = regA[i] + "-" + regB[i]
			} else {
				label[i] = regB[i] + "-" + regA[i]
			}
		}

		if err := stmc.AddFloat(col, value); err != nil {
			return err
		}
		if err := stmc.AddBool(col+"ABorBA", orient); err != nil {
			return err
		}
		if err := stmc.AddString(col+"dir", label); err != nil {
			return err
		}
	}
	return nil
}
