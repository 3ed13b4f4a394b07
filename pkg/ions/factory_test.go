package ions

import (
	"errors"
	"math"
	"testing"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func mustPeptide(t *testing.T, seq string, mods ...peptide.ModificationMatch) peptide.Peptide {
	t.Helper()
	p, err := peptide.New(seq, mods...)
	if err != nil {
		t.Fatalf("peptide.New(%q) error = %v", seq, err)
	}
	return p
}

func mustFragment(t *testing.T, f *Factory, p peptide.Peptide) []Ion {
	t.Helper()
	out, err := f.FragmentIons(p)
	if err != nil {
		t.Fatalf("FragmentIons(%s) error = %v", p.Sequence(), err)
	}
	return out
}

// find returns the first ion with the given kind, type, number and loss count.
func find(ions []Ion, kind Kind, typ FragmentType, number, losses int) (Ion, bool) {
	for _, ion := range ions {
		if ion.Kind == kind && ion.Type == typ && ion.Number == number && len(ion.Losses) == losses {
			return ion, true
		}
	}
	return Ion{}, false
}

func residueSum(t *testing.T, seq string) float64 {
	t.Helper()
	var sum float64
	for i := 0; i < len(seq); i++ {
		aa, err := core.GetAminoAcid(seq[i])
		if err != nil {
			t.Fatal(err)
		}
		sum += aa.MonoisotopicMass
	}
	return sum
}

func TestFragmentIonsCount(t *testing.T) {
	f := NewFactory(ptm.DefaultRegistry())
	got := mustFragment(t, f, mustPeptide(t, "PEPTIDE"))

	// 4 loss combinations: none, H2O, H2O+NH3, NH3
	// 6 cleavages x 6 series x 4 + 5 immonium (P, E, T, I, D) + 4 precursors
	if len(got) != 6*6*4+5+4 {
		t.Errorf("got %d ions, want %d", len(got), 6*6*4+5+4)
	}

	var immonium []byte
	for _, ion := range got {
		if ion.Kind == KindImmonium {
			immonium = append(immonium, ion.Residue)
		}
	}
	if string(immonium) != "PETID" {
		t.Errorf("immonium residues = %s, want PETID", immonium)
	}

	if got[0].Kind != KindFragment || got[0].Type != TypeA || got[0].Number != 1 || len(got[0].Losses) != 0 {
		t.Errorf("first ion = %+v, want a1", got[0])
	}
	if last := got[len(got)-1]; last.Kind != KindPrecursor {
		t.Errorf("last ion = %+v, want precursor", last)
	}
}

func TestFragmentIonsMassAdditivity(t *testing.T) {
	f := NewFactory(ptm.NewRegistry())
	for _, seq := range []string{"PEPTIDE", "AC", "K", "GASPVTCLINDQKEMHFRYW"} {
		t.Run(seq, func(t *testing.T) {
			got := mustFragment(t, f, mustPeptide(t, seq))
			precursor, ok := find(got, KindPrecursor, 0, 0, 0)
			if !ok {
				t.Fatal("no precursor")
			}
			want := residueSum(t, seq) + core.MassH2O
			if math.Abs(precursor.Mass-want) > 1e-9 {
				t.Errorf("precursor mass = %.10f, want %.10f", precursor.Mass, want)
			}
		})
	}
}

func TestFragmentIonsComplementarity(t *testing.T) {
	f := NewFactory(ptm.DefaultRegistry())
	p := mustPeptide(t, "PEPTMIDEK", peptide.ModificationMatch{Name: "Oxidation", Site: 5})
	got := mustFragment(t, f, p)

	total, err := p.Mass(ptm.DefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	n := p.Len()
	for k := 1; k < n; k++ {
		b, okB := find(got, KindFragment, TypeB, k, 0)
		y, okY := find(got, KindFragment, TypeY, n-k, 0)
		if !okB || !okY {
			t.Fatalf("missing b%d or y%d", k, n-k)
		}
		if math.Abs(b.Mass+y.Mass-total) > 1e-9 {
			t.Errorf("b%d + y%d = %.9f, want %.9f", k, n-k, b.Mass+y.Mass, total)
		}
	}
}

func TestFragmentIonsSeriesOffsets(t *testing.T) {
	f := NewFactory(ptm.NewRegistry())
	got := mustFragment(t, f, mustPeptide(t, "PEPTIDE"))

	p, _ := core.GetAminoAcid('P')
	e, _ := core.GetAminoAcid('E')
	d, _ := core.GetAminoAcid('D')

	tests := []struct {
		typ    FragmentType
		number int
		want   float64
	}{
		{TypeB, 1, p.MonoisotopicMass},
		{TypeB, 2, p.MonoisotopicMass + e.MonoisotopicMass},
		{TypeA, 2, p.MonoisotopicMass + e.MonoisotopicMass - core.MassCO},
		{TypeC, 2, p.MonoisotopicMass + e.MonoisotopicMass + core.MassNH3},
		{TypeY, 1, e.MonoisotopicMass + core.MassH2O},
		{TypeY, 2, d.MonoisotopicMass + e.MonoisotopicMass + core.MassH2O},
		{TypeX, 1, e.MonoisotopicMass + core.MassH2O + core.MassCO - core.MassH2},
		{TypeZ, 1, e.MonoisotopicMass + core.MassH2O - core.MassNH3},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			ion, ok := find(got, KindFragment, tt.typ, tt.number, 0)
			if !ok {
				t.Fatalf("%s%d not generated", tt.typ, tt.number)
			}
			if math.Abs(ion.Mass-tt.want) > 1e-9 {
				t.Errorf("%s%d mass = %.9f, want %.9f", tt.typ, tt.number, ion.Mass, tt.want)
			}
		})
	}

	// b2 m/z for the well known PEPTIDE fragment
	b2, _ := find(got, KindFragment, TypeB, 2, 0)
	if math.Abs(b2.MZ(1)-227.102633) > 1e-5 {
		t.Errorf("b2 m/z = %.6f", b2.MZ(1))
	}
}

func TestFragmentIonsNeutralLossMass(t *testing.T) {
	f := NewFactory(ptm.NewRegistry())
	got := mustFragment(t, f, mustPeptide(t, "PEPTIDE"))

	plain, _ := find(got, KindFragment, TypeY, 3, 0)
	for _, ion := range got {
		if ion.Kind != KindFragment || ion.Type != TypeY || ion.Number != 3 {
			continue
		}
		want := plain.Mass - core.LossesMass(ion.Losses)
		if math.Abs(ion.Mass-want) > 1e-9 {
			t.Errorf("%s mass = %.9f, want %.9f", ion.Annotation(1), ion.Mass, want)
		}
	}
}

func TestFragmentIonsUniqueKeys(t *testing.T) {
	f := NewFactory(ptm.DefaultRegistry())
	p := mustPeptide(t, "STYKMR",
		peptide.ModificationMatch{Name: "Phospho", Site: 1},
		peptide.ModificationMatch{Name: "Phospho", Site: 2},
		peptide.ModificationMatch{Name: "Oxidation", Site: 5},
		peptide.ModificationMatch{Name: "TMT6plex", Site: 4},
	)
	seen := make(map[string]bool)
	for _, ion := range mustFragment(t, f, p) {
		if seen[ion.Key()] {
			t.Errorf("duplicate ion %s", ion.Key())
		}
		seen[ion.Key()] = true
	}
}

func TestFragmentIonsIdempotent(t *testing.T) {
	f := NewFactory(ptm.DefaultRegistry())
	p := mustPeptide(t, "PEPSTIDEK",
		peptide.ModificationMatch{Name: "Phospho", Site: 4},
		peptide.ModificationMatch{Name: "TMT6plex", Site: 9},
	)
	first := mustFragment(t, f, p)
	second := mustFragment(t, f, p)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second call differs (-first +second):\n%s", diff)
	}
}

func TestFragmentIonsModifications(t *testing.T) {
	reg := ptm.DefaultRegistry()
	f := NewFactory(reg)
	plainIons := mustFragment(t, f, mustPeptide(t, "PEPSIDE"))
	modIons := mustFragment(t, f, mustPeptide(t, "PEPSIDE", peptide.ModificationMatch{Name: "Phospho", Site: 4}))

	phospho := reg.Get("Phospho").Mass
	tests := []struct {
		typ    FragmentType
		number int
		shift  float64
	}{
		{TypeB, 3, 0},
		{TypeB, 4, phospho},
		{TypeY, 3, 0},
		{TypeY, 4, phospho},
	}
	for _, tt := range tests {
		plain, _ := find(plainIons, KindFragment, tt.typ, tt.number, 0)
		mod, _ := find(modIons, KindFragment, tt.typ, tt.number, 0)
		if math.Abs(mod.Mass-plain.Mass-tt.shift) > 1e-9 {
			t.Errorf("%s%d shift = %.6f, want %.6f", tt.typ, tt.number, mod.Mass-plain.Mass, tt.shift)
		}
	}

	var sawH3PO4 bool
	for _, ion := range modIons {
		for _, l := range ion.Losses {
			if l.IsSameAs(core.LossH3PO4) {
				sawH3PO4 = true
			}
		}
	}
	if !sawH3PO4 {
		t.Error("no ion carries the phospho neutral loss")
	}
	for _, ion := range plainIons {
		for _, l := range ion.Losses {
			if l.IsSameAs(core.LossH3PO4) {
				t.Fatal("unmodified peptide carries H3PO4 loss")
			}
		}
	}
}

func TestFragmentIonsTerminalModification(t *testing.T) {
	reg := ptm.NewRegistry()
	if err := reg.Add(ptm.Modification{Name: "Nterm", Type: ptm.ModNP, Mass: 10}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(ptm.Modification{Name: "Cterm", Type: ptm.ModCP, Mass: 20}); err != nil {
		t.Fatal(err)
	}
	f := NewFactory(reg)
	plain := mustFragment(t, f, mustPeptide(t, "PEPTIDE"))
	// Sites given away from the termini are pinned to them.
	mod := mustFragment(t, f, mustPeptide(t, "PEPTIDE",
		peptide.ModificationMatch{Name: "Nterm", Site: 3},
		peptide.ModificationMatch{Name: "Cterm", Site: 3},
	))

	b1p, _ := find(plain, KindFragment, TypeB, 1, 0)
	b1m, _ := find(mod, KindFragment, TypeB, 1, 0)
	y1p, _ := find(plain, KindFragment, TypeY, 1, 0)
	y1m, _ := find(mod, KindFragment, TypeY, 1, 0)
	if math.Abs(b1m.Mass-b1p.Mass-10) > 1e-9 {
		t.Errorf("b1 shift = %v, want 10", b1m.Mass-b1p.Mass)
	}
	if math.Abs(y1m.Mass-y1p.Mass-20) > 1e-9 {
		t.Errorf("y1 shift = %v, want 20", y1m.Mass-y1p.Mass)
	}
}

func TestFragmentIonsReporters(t *testing.T) {
	f := NewFactory(ptm.DefaultRegistry())
	got := mustFragment(t, f, mustPeptide(t, "PEPTIDEK",
		peptide.ModificationMatch{Name: "TMT6plex", Site: 1},
		peptide.ModificationMatch{Name: "TMT6plex", Site: 8},
	))

	var names []string
	for _, ion := range got {
		if ion.Kind == KindReporter {
			names = append(names, ion.Name)
		}
	}
	want := []string{"TMT_126", "TMT_127N", "TMT_128C", "TMT_129N", "TMT_130C", "TMT_131N"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("reporter ions mismatch (-want +got):\n%s", diff)
	}
	if got[0].Kind != KindReporter {
		t.Errorf("first ion = %v, want a reporter ion", got[0].Kind)
	}
	if math.Abs(got[0].MZ(1)-126.127726) > 1e-6 {
		t.Errorf("TMT_126 m/z = %.6f", got[0].MZ(1))
	}
}

func TestFragmentIonsUnknownModification(t *testing.T) {
	reg := ptm.NewRegistry()
	f := NewFactory(reg)
	plain := mustFragment(t, f, mustPeptide(t, "PEPTIDE"))
	withUnknown := mustFragment(t, f, mustPeptide(t, "PEPTIDE", peptide.ModificationMatch{Name: "Mystery", Site: 2}))

	if diff := cmp.Diff(plain, withUnknown, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("unknown modification changed ions (-plain +unknown):\n%s", diff)
	}
	if reg.Misses()["modification:Mystery"] == 0 {
		t.Error("unknown modification not counted")
	}
}

func TestFragmentIonsAmbiguousResidue(t *testing.T) {
	f := NewFactory(ptm.NewRegistry())
	_, err := f.FragmentIons(mustPeptide(t, "PEPXIDE"))

	var fe *FragmentationError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FragmentationError", err)
	}
	if fe.Sequence != "PEPXIDE" {
		t.Errorf("Sequence = %s", fe.Sequence)
	}
	if !errors.Is(err, core.ErrUnknownAminoAcid) {
		t.Errorf("error %v does not wrap ErrUnknownAminoAcid", err)
	}
}

func TestFragmentIonsDefaultLossesOption(t *testing.T) {
	f := NewFactory(ptm.NewRegistry(), WithDefaultLosses())
	got := mustFragment(t, f, mustPeptide(t, "PEPTIDE"))
	if len(got) != 6*6+5+1 {
		t.Errorf("got %d ions without losses, want %d", len(got), 6*6+5+1)
	}
}
