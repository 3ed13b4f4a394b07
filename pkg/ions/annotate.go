package ions

import (
	"fmt"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
)

// Annotator matches the theoretical ions of a peptide against a spectrum.
type Annotator struct {
	Factory *Factory
	Matcher Matcher
	// Charges are the fragment charges to consider. Charges above the
	// precursor charge are skipped. Empty means charge 1 only.
	Charges []int
	// Select filters theoretical ions before matching. Nil keeps all.
	Select func(Ion) bool
	// IntensityLimit ignores peaks below this fraction of the base peak.
	IntensityLimit float64
}

// Annotate returns one IonMatch per theoretical ion and charge, including
// ions that matched no peak. Fragments are tried at each allowed charge,
// the precursor at the spectrum charge, immonium ions at 1. A reporter ion
// yields one match per peak in its window, or a single unmatched entry.
func (a *Annotator) Annotate(p peptide.Peptide, s *core.Spectrum) ([]IonMatch, error) {
	if a.Factory == nil {
		return nil, fmt.Errorf("annotator has no fragment factory")
	}
	if s == nil {
		return nil, fmt.Errorf("annotator needs a spectrum")
	}
	theoretical, err := a.Factory.FragmentIons(p)
	if err != nil {
		return nil, err
	}

	peaks := s.Peaks
	if !s.ArePeaksSorted() {
		sorted := *s
		sorted.Peaks = append([]core.Peak(nil), s.Peaks...)
		sorted.SortPeaks()
		peaks = sorted.Peaks
	}
	peaks = ApplyIntensityLimit(peaks, a.IntensityLimit)

	charges := a.fragmentCharges(s.Charge)
	precursorCharge := s.Charge
	if precursorCharge <= 0 {
		precursorCharge = 1
	}

	out := make([]IonMatch, 0, len(theoretical)*len(charges))
	for _, ion := range theoretical {
		if a.Select != nil && !a.Select(ion) {
			continue
		}
		switch ion.Kind {
		case KindFragment:
			for _, z := range charges {
				out = append(out, a.Matcher.Match(ion, peaks, z))
			}
		case KindPrecursor:
			out = append(out, a.Matcher.Match(ion, peaks, precursorCharge))
		case KindReporter:
			if found := a.Matcher.MatchReporterIons(ion, peaks); len(found) > 0 {
				out = append(out, found...)
			} else {
				out = append(out, a.Matcher.Match(ion, peaks, 1))
			}
		default:
			out = append(out, a.Matcher.Match(ion, peaks, 1))
		}
	}
	return out, nil
}

func (a *Annotator) fragmentCharges(precursorCharge int) []int {
	var out []int
	for _, z := range a.Charges {
		if z < 1 {
			continue
		}
		if precursorCharge > 0 && z > precursorCharge {
			continue
		}
		out = append(out, z)
	}
	if len(out) == 0 {
		out = []int{1}
	}
	return out
}

// Found returns the matches that carry a peak.
func Found(matches []IonMatch) []IonMatch {
	var out []IonMatch
	for _, m := range matches {
		if m.Found() {
			out = append(out, m)
		}
	}
	return out
}
