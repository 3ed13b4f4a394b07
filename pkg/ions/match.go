package ions

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/FragKey/pkg/core"
)

// Tolerance is a matching window, absolute in Da or relative in ppm.
type Tolerance struct {
	Value float64
	PPM   bool
}

// Window returns the absolute half-width of the window around mz.
// Relative tolerances are anchored at the theoretical m/z.
func (t Tolerance) Window(mz float64) float64 {
	if t.PPM {
		return t.Value * mz / 1e6
	}
	return t.Value
}

func (t Tolerance) String() string {
	if t.PPM {
		return fmt.Sprintf("%g ppm", t.Value)
	}
	return fmt.Sprintf("%g Da", t.Value)
}

// IonMatch pairs a theoretical ion at a charge with the observed peak that
// matched it. Peak is nil when nothing lies within tolerance.
type IonMatch struct {
	Ion           Ion
	Charge        int
	TheoreticalMZ float64
	Peak          *core.Peak
}

// Found reports whether a peak was matched.
func (m IonMatch) Found() bool { return m.Peak != nil }

// ErrorDa is observed minus theoretical m/z, zero when absent.
func (m IonMatch) ErrorDa() float64 {
	if m.Peak == nil {
		return 0
	}
	return m.Peak.MZ - m.TheoreticalMZ
}

// ErrorPPM is ErrorDa relative to the theoretical m/z.
func (m IonMatch) ErrorPPM() float64 {
	if m.Peak == nil {
		return 0
	}
	return core.PPM(m.Peak.MZ, m.TheoreticalMZ)
}

// Annotation formats the matched ion and charge.
func (m IonMatch) Annotation() string {
	return m.Ion.Annotation(m.Charge)
}

// TiesResolution picks between several peaks within tolerance.
type TiesResolution int

const (
	// MostAccurate keeps the peak closest to the theoretical m/z.
	MostAccurate TiesResolution = iota
	// MostIntense keeps the most intense peak, then the closest.
	MostIntense
)

func (t TiesResolution) String() string {
	switch t {
	case MostAccurate:
		return "most-accurate"
	case MostIntense:
		return "most-intense"
	}
	return fmt.Sprintf("TiesResolution(%d)", int(t))
}

// ParseTiesResolution is the inverse of String.
func ParseTiesResolution(s string) (TiesResolution, error) {
	switch s {
	case "most-accurate", "":
		return MostAccurate, nil
	case "most-intense":
		return MostIntense, nil
	}
	return 0, fmt.Errorf("unknown ties resolution %q", s)
}

// Matcher selects peaks for theoretical ions.
type Matcher struct {
	Tolerance Tolerance
	Ties      TiesResolution
}

// MatchIon finds the peak closest to the ion m/z at charge. Peaks must be
// sorted by ascending m/z; equidistant peaks resolve to the first.
func MatchIon(ion Ion, peaks []core.Peak, charge int, tol Tolerance) IonMatch {
	return Matcher{Tolerance: tol}.Match(ion, peaks, charge)
}

// MatchIonInMap matches against an m/z to intensity map.
func MatchIonInMap(ion Ion, peaks map[float64]float64, charge int, tol Tolerance) IonMatch {
	return MatchIon(ion, core.PeaksFromMap(peaks), charge, tol)
}

// window returns the index range of peaks within tolerance of mz.
func (m Matcher) window(peaks []core.Peak, mz float64) (int, int) {
	w := m.Tolerance.Window(mz)
	lo := sort.Search(len(peaks), func(i int) bool { return peaks[i].MZ >= mz-w })
	hi := lo
	for hi < len(peaks) && peaks[hi].MZ <= mz+w {
		hi++
	}
	return lo, hi
}

// Match finds the best peak for ion at charge. Peaks must be sorted by
// ascending m/z.
func (m Matcher) Match(ion Ion, peaks []core.Peak, charge int) IonMatch {
	mz := ion.MZ(charge)
	match := IonMatch{Ion: ion, Charge: charge, TheoreticalMZ: mz}

	lo, hi := m.window(peaks, mz)
	best := -1
	bestErr := math.Inf(1)
	for i := lo; i < hi; i++ {
		e := math.Abs(peaks[i].MZ - mz)
		switch {
		case best < 0:
		case m.Ties == MostIntense && peaks[i].Intensity > peaks[best].Intensity:
		case m.Ties == MostIntense && peaks[i].Intensity < peaks[best].Intensity:
			continue
		case e >= bestErr:
			continue
		}
		best, bestErr = i, e
	}

	if best >= 0 {
		p := peaks[best]
		match.Peak = &p
	}
	return match
}

// MatchReporterIons returns a match for every peak within tolerance of the
// singly charged reporter ion, in ascending m/z.
func (m Matcher) MatchReporterIons(ion Ion, peaks []core.Peak) []IonMatch {
	mz := ion.MZ(1)
	lo, hi := m.window(peaks, mz)
	out := make([]IonMatch, 0, hi-lo)
	for i := lo; i < hi; i++ {
		p := peaks[i]
		out = append(out, IonMatch{Ion: ion, Charge: 1, TheoreticalMZ: mz, Peak: &p})
	}
	return out
}

// ApplyIntensityLimit drops peaks below limit times the base peak
// intensity. A limit of zero keeps every peak.
func ApplyIntensityLimit(peaks []core.Peak, limit float64) []core.Peak {
	if limit <= 0 || len(peaks) == 0 {
		return peaks
	}
	var base float64
	for _, p := range peaks {
		base = math.Max(base, p.Intensity)
	}
	threshold := limit * base
	out := make([]core.Peak, 0, len(peaks))
	for _, p := range peaks {
		if p.Intensity >= threshold {
			out = append(out, p)
		}
	}
	return out
}
