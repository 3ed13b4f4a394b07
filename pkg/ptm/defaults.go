package ptm

import (
	"fmt"

	"github.com/ChrisMcGann/FragKey/pkg/core"
)

func reporters(names ...string) []core.ReporterIon {
	out := make([]core.ReporterIon, 0, len(names))
	for _, name := range names {
		r, ok := core.GetReporterIon(name)
		if !ok {
			panic(fmt.Sprintf("ptm: reporter ion %q is not defined", name))
		}
		out = append(out, r)
	}
	return out
}

var (
	tmt6Reporters = []string{
		"TMT_126", "TMT_127N", "TMT_128C", "TMT_129N", "TMT_130C", "TMT_131N",
	}
	tmt11Reporters = []string{
		"TMT_126", "TMT_127N", "TMT_127C", "TMT_128N", "TMT_128C", "TMT_129N",
		"TMT_129C", "TMT_130N", "TMT_130C", "TMT_131N", "TMT_131C",
	}
	itraq4Reporters = []string{
		"iTRAQ4plex_114", "iTRAQ4plex_115", "iTRAQ4plex_116", "iTRAQ4plex_117",
	}
	itraq8Reporters = []string{
		"iTRAQ8plex_113", "iTRAQ8plex_114", "iTRAQ8plex_115", "iTRAQ8plex_116",
		"iTRAQ8plex_117", "iTRAQ8plex_118", "iTRAQ8plex_119", "iTRAQ8plex_121",
	}
)

// Common modifications from unimod
func defaultModifications() []Modification {
	return []Modification{
		{Name: "Acetyl", Mass: 42.010565, Composition: core.Composition{C: 2, H: 2, O: 1}},
		{Name: "Acetyl:K", ShortName: "ac", Mass: 42.010565, Composition: core.Composition{C: 2, H: 2, O: 1},
			Residues: "K", ReporterIons: reporters("aceK126", "aceK143")},
		{Name: "Amidated", Type: ModCP, Mass: -0.984016, Composition: core.Composition{H: 1, N: 1, O: -1}},
		{Name: "Biotin", Mass: 226.077598, Residues: "K"},
		{Name: "Carbamidomethyl", ShortName: "cmm", Mass: 57.021464, Composition: core.Composition{C: 2, H: 3, N: 1, O: 1}, Residues: "C"},
		{Name: "Carbamyl", Mass: 43.005814},
		{Name: "Carboxymethyl", Mass: 58.005479, Residues: "C"},
		{Name: "Deamidated", ShortName: "deam", Mass: 0.984016, Residues: "NQ"},
		{Name: "Met->Hse", Type: ModCPAA, Mass: -29.992806, Residues: "M"},
		{Name: "Met->Hsl", Type: ModCPAA, Mass: -48.003371, Residues: "M"},
		{Name: "NIPCAM", Mass: 99.068414, Residues: "C"},
		{Name: "Phospho", ShortName: "p", Mass: 79.966331, Composition: core.Composition{H: 1, P: 1, O: 3},
			Residues: "STY", NeutralLosses: []core.NeutralLoss{core.LossH3PO4}},
		{Name: "Phospho:Y", ShortName: "pY", Mass: 79.966331, Composition: core.Composition{H: 1, P: 1, O: 3},
			Residues: "Y", NeutralLosses: []core.NeutralLoss{core.LossHPO3}, ReporterIons: reporters("pY")},
		{Name: "Dehydrated", Mass: -18.010565, Residues: "ST"},
		{Name: "Propionamide", Mass: 71.037114, Residues: "C"},
		{Name: "Pyro-carbamidomethyl", Type: ModNPAA, Mass: 39.994915, Residues: "C"},
		{Name: "Glu->pyro-Glu", Type: ModNPAA, Mass: -18.010565, Residues: "E"},
		{Name: "Gln->pyro-Glu", Type: ModNPAA, Mass: -17.026549, Residues: "Q"},
		{Name: "Cation:Na", Mass: 21.981943, Residues: "DE"},
		{Name: "Methyl", Mass: 14.01565},
		{Name: "Oxidation", ShortName: "ox", Mass: 15.994915, Composition: core.Composition{O: 1},
			Residues: "M", NeutralLosses: []core.NeutralLoss{core.LossCH4OS}},
		{Name: "Dimethyl", Mass: 28.0313},
		{Name: "Trimethyl", Mass: 42.04695, Residues: "K",
			NeutralLosses: []core.NeutralLoss{core.LossC3H9N}},
		{Name: "Methylthio", Mass: 45.987721, Residues: "C"},
		{Name: "Sulfo", Mass: 79.956815, Residues: "STY"},
		{Name: "Hex", Mass: 162.052824},
		{Name: "Lipoyl", Mass: 188.032956, Residues: "K"},
		{Name: "HexNAc", Mass: 203.079373, Residues: "NST"},
		{Name: "Farnesyl", Mass: 204.187801, Residues: "C"},
		{Name: "Myristoyl", Mass: 210.198366},
		{Name: "PyridoxalPhosphate", Mass: 229.014009, Residues: "K"},
		{Name: "Palmitoyl", Mass: 238.229666},
		{Name: "GeranylGeranyl", Mass: 272.250401, Residues: "C"},
		{Name: "Phosphopantetheine", Mass: 340.085794, Residues: "S"},
		{Name: "FAD", Mass: 783.141486},
		{Name: "Guanidinyl", Mass: 42.021798, Residues: "K"},
		{Name: "HNE", Mass: 156.11503},
		{Name: "Glucuronyl", Mass: 176.032088},
		{Name: "Glutathione", Mass: 305.068156, Residues: "C"},
		{Name: "Propionyl", Mass: 56.026215},
		{Name: "TMT", Mass: 229.162932, ReporterIons: reporters(tmt6Reporters...)},
		{Name: "TMTPro", Mass: 304.207146},
		{Name: "TMT_Pro", Mass: 304.207146},
		{Name: "TMT6plex", Mass: 229.162932, ReporterIons: reporters(tmt6Reporters...)},
		{Name: "TMT10plex", Mass: 229.162932, ReporterIons: reporters(tmt11Reporters[:10]...)},
		{Name: "TMT11plex", Mass: 229.162932, ReporterIons: reporters(tmt11Reporters...)},
		{Name: "TMT16plex", Mass: 304.207146},
		{Name: "iTRAQ4plex", Mass: 144.102063, ReporterIons: reporters(itraq4Reporters...)},
		{Name: "iTRAQ8plex", Mass: 304.205360, ReporterIons: reporters(itraq8Reporters...)},
	}
}

// DefaultNeutralLosses are the losses registered by DefaultRegistry.
var DefaultNeutralLosses = []core.NeutralLoss{
	core.LossH2O,
	core.LossNH3,
	core.LossH3PO4,
	core.LossHPO3,
	core.LossCH4OS,
	core.LossC3H9N,
}

// DefaultRegistry returns a Registry pre-loaded with common modifications
// and the well-known neutral losses.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range defaultModifications() {
		if err := r.Add(m); err != nil {
			panic(err)
		}
	}
	for _, l := range DefaultNeutralLosses {
		if err := r.AddNeutralLoss(l); err != nil {
			panic(err)
		}
	}
	return r
}
