package core

import "sort"

// ReporterIon is a low-mass diagnostic ion released by a labelling reagent
// or a modified residue. Mass is neutral; the singly charged m/z is
// Mass + ProtonMass.
type ReporterIon struct {
	Name string
	Mass float64
}

// MZ returns the reporter m/z at the given charge.
func (r ReporterIon) MZ(charge int) float64 {
	return MZ(r.Mass, charge)
}

func reporterFromMZ(name string, mz float64) ReporterIon {
	return ReporterIon{Name: name, Mass: mz - ProtonMass}
}

func reporterFromComposition(name string, comp Composition) ReporterIon {
	return ReporterIon{Name: name, Mass: comp.Mass()}
}

var reporterIons = map[string]ReporterIon{}

func init() {
	for _, r := range []ReporterIon{
		reporterFromMZ("iTRAQ4plex_114", 114.1112),
		reporterFromMZ("iTRAQ4plex_115", 115.1083),
		reporterFromMZ("iTRAQ4plex_116", 116.1116),
		reporterFromMZ("iTRAQ4plex_117", 117.1150),
		reporterFromMZ("iTRAQ8plex_113", 113.1079),
		reporterFromMZ("iTRAQ8plex_114", 114.1112),
		reporterFromMZ("iTRAQ8plex_115", 115.1083),
		reporterFromMZ("iTRAQ8plex_116", 116.1116),
		reporterFromMZ("iTRAQ8plex_117", 117.1150),
		reporterFromMZ("iTRAQ8plex_118", 118.1120),
		reporterFromMZ("iTRAQ8plex_119", 119.1153),
		reporterFromMZ("iTRAQ8plex_121", 121.1220),
		reporterFromMZ("TMT_126", 126.127726),
		reporterFromMZ("TMT_127N", 127.124761),
		reporterFromMZ("TMT_127C", 127.131081),
		reporterFromMZ("TMT_128N", 128.128116),
		reporterFromMZ("TMT_128C", 128.134436),
		reporterFromMZ("TMT_129N", 129.131471),
		reporterFromMZ("TMT_129C", 129.137790),
		reporterFromMZ("TMT_130N", 130.134825),
		reporterFromMZ("TMT_130C", 130.141145),
		reporterFromMZ("TMT_131N", 131.138180),
		reporterFromMZ("TMT_131C", 131.144499),
		reporterFromComposition("aceK126", Composition{C: 7, H: 11, N: 1, O: 1}),
		reporterFromComposition("aceK143", Composition{C: 7, H: 14, N: 2, O: 1}),
		reporterFromComposition("pY", Composition{C: 8, H: 10, N: 1, O: 4, P: 1}),
	} {
		reporterIons[r.Name] = r
	}
}

// GetReporterIon looks up a known reporter ion by name.
func GetReporterIon(name string) (ReporterIon, bool) {
	r, ok := reporterIons[name]
	return r, ok
}

// ReporterIons lists the known reporter ions ordered by mass.
func ReporterIons() []ReporterIon {
	out := make([]ReporterIon, 0, len(reporterIons))
	for _, r := range reporterIons {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mass != out[j].Mass {
			return out[i].Mass < out[j].Mass
		}
		return out[i].Name < out[j].Name
	})
	return out
}
