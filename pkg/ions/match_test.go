package ions

import (
	"math"
	"testing"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
)

func peptideB2(t *testing.T) Ion {
	t.Helper()
	f := NewFactory(ptm.NewRegistry())
	b2, ok := find(mustFragment(t, f, mustPeptide(t, "PEPTIDE")), KindFragment, TypeB, 2, 0)
	if !ok {
		t.Fatal("b2 not generated")
	}
	return b2
}

func TestMatchIonPeptideB2(t *testing.T) {
	b2 := peptideB2(t)
	mz := b2.MZ(1)
	tol := Tolerance{Value: 0.5}

	for _, offset := range []float64{-0.01, 0.01} {
		peaks := []core.Peak{{MZ: mz + offset, Intensity: 100}}
		m := MatchIon(b2, peaks, 1, tol)
		if !m.Found() || m.Peak.MZ != mz+offset {
			t.Errorf("offset %v: match = %+v, want peak at %v", offset, m.Peak, mz+offset)
		}
		if math.Abs(m.ErrorDa()-offset) > 1e-9 {
			t.Errorf("ErrorDa() = %v, want %v", m.ErrorDa(), offset)
		}
	}

	far := []core.Peak{{MZ: mz + 10, Intensity: 100}}
	if m := MatchIon(b2, far, 1, tol); m.Found() {
		t.Errorf("peak 10 Da away matched: %+v", m.Peak)
	}
}

func TestMatchIonAbsent(t *testing.T) {
	b2 := peptideB2(t)
	m := MatchIon(b2, nil, 1, Tolerance{Value: 0.5})
	if m.Found() || m.Peak != nil {
		t.Errorf("empty peaks matched: %+v", m)
	}
	if m.Ion.Label() != "b2" || m.Charge != 1 {
		t.Errorf("absent match lost its ion: %+v", m)
	}
	if m.ErrorDa() != 0 || m.ErrorPPM() != 0 {
		t.Errorf("absent match errors = %v, %v", m.ErrorDa(), m.ErrorPPM())
	}
}

func TestMatchIonClosestAndTies(t *testing.T) {
	ion := Ion{Kind: KindPrecursor, Mass: 500}
	mz := ion.MZ(1)

	type offsetPeak struct {
		offset    float64
		intensity float64
	}
	// Offsets are exact binary fractions so equal distances compare equal.
	tests := []struct {
		name  string
		peaks []offsetPeak
		ties  TiesResolution
		want  float64
	}{
		{
			name:  "closest wins",
			peaks: []offsetPeak{{-0.25, 10}, {0.0625, 1}, {0.375, 99}},
			want:  0.0625,
		},
		{
			name:  "equidistant keeps first",
			peaks: []offsetPeak{{-0.125, 1}, {0.125, 2}},
			want:  -0.125,
		},
		{
			name:  "most intense",
			peaks: []offsetPeak{{-0.25, 10}, {0.0625, 1}, {0.375, 99}},
			ties:  MostIntense,
			want:  0.375,
		},
		{
			name:  "most intense falls back to closest",
			peaks: []offsetPeak{{-0.25, 50}, {0.0625, 50}},
			ties:  MostIntense,
			want:  0.0625,
		},
		{
			name:  "window edges are inclusive",
			peaks: []offsetPeak{{-1, 1}, {0.5, 1}},
			want:  0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var peaks []core.Peak
			for _, p := range tt.peaks {
				peaks = append(peaks, core.Peak{MZ: mz + p.offset, Intensity: p.intensity})
			}
			m := Matcher{Tolerance: Tolerance{Value: 0.5}, Ties: tt.ties}
			for i := 0; i < 3; i++ {
				got := m.Match(ion, peaks, 1)
				if !got.Found() || got.Peak.MZ != mz+tt.want {
					t.Fatalf("Match() = %+v, want peak at offset %v", got.Peak, tt.want)
				}
			}
		})
	}
}

func TestMatchIonPPM(t *testing.T) {
	ion := Ion{Kind: KindPrecursor, Mass: 1000 - core.ProtonMass}
	peaks := []core.Peak{{MZ: 1000.008, Intensity: 1}}

	if m := MatchIon(ion, peaks, 1, Tolerance{Value: 10, PPM: true}); !m.Found() {
		t.Error("8 ppm peak not matched at 10 ppm")
	} else if math.Abs(m.ErrorPPM()-8) > 1e-6 {
		t.Errorf("ErrorPPM() = %v, want 8", m.ErrorPPM())
	}
	if m := MatchIon(ion, peaks, 1, Tolerance{Value: 5, PPM: true}); m.Found() {
		t.Error("8 ppm peak matched at 5 ppm")
	}
}

func TestMatchIonCharge(t *testing.T) {
	b2 := peptideB2(t)
	peaks := []core.Peak{{MZ: b2.MZ(2), Intensity: 1}}
	m := MatchIon(b2, peaks, 2, Tolerance{Value: 0.02})
	if !m.Found() || m.Annotation() != "b2^2" {
		t.Errorf("doubly charged match = %+v (%s)", m.Peak, m.Annotation())
	}
	if m := MatchIon(b2, peaks, 1, Tolerance{Value: 0.02}); m.Found() {
		t.Error("charge 1 matched the charge 2 peak")
	}
}

func TestMatchIonInMap(t *testing.T) {
	b2 := peptideB2(t)
	mz := b2.MZ(1)
	peaks := map[float64]float64{
		mz - 0.2: 5,
		mz + 0.2: 7,
		mz + 0.1: 1,
		100:      9,
	}
	m := MatchIonInMap(b2, peaks, 1, Tolerance{Value: 0.5})
	if !m.Found() || math.Abs(m.Peak.MZ-(mz+0.1)) > 1e-9 {
		t.Errorf("MatchIonInMap() = %+v", m.Peak)
	}
}

func TestMatchDoesNotAliasPeaks(t *testing.T) {
	b2 := peptideB2(t)
	peaks := []core.Peak{{MZ: b2.MZ(1), Intensity: 1}}
	m := MatchIon(b2, peaks, 1, Tolerance{Value: 0.1})
	peaks[0].Intensity = 42
	if m.Peak.Intensity != 1 {
		t.Error("match shares memory with the input peaks")
	}
}

func TestMatchReporterIons(t *testing.T) {
	tmt, _ := core.GetReporterIon("TMT_126")
	ion := Ion{Kind: KindReporter, Name: tmt.Name, Mass: tmt.Mass}
	peaks := []core.Peak{
		{MZ: 126.120, Intensity: 1},
		{MZ: 126.126, Intensity: 2},
		{MZ: 126.129, Intensity: 3},
		{MZ: 127.125, Intensity: 4},
	}
	got := Matcher{Tolerance: Tolerance{Value: 0.005}}.MatchReporterIons(ion, peaks)
	if len(got) != 2 {
		t.Fatalf("MatchReporterIons() returned %d matches, want 2", len(got))
	}
	if got[0].Peak.Intensity != 2 || got[1].Peak.Intensity != 3 {
		t.Errorf("matches = %+v, %+v", got[0].Peak, got[1].Peak)
	}
	if got[0].Annotation() != "TMT_126" {
		t.Errorf("Annotation() = %s", got[0].Annotation())
	}
}

func TestApplyIntensityLimit(t *testing.T) {
	peaks := []core.Peak{{MZ: 1, Intensity: 5}, {MZ: 2, Intensity: 100}, {MZ: 3, Intensity: 10}}
	got := ApplyIntensityLimit(peaks, 0.1)
	if len(got) != 2 || got[0].MZ != 2 || got[1].MZ != 3 {
		t.Errorf("ApplyIntensityLimit() = %+v", got)
	}
	if got := ApplyIntensityLimit(peaks, 0); len(got) != 3 {
		t.Errorf("zero limit dropped peaks: %+v", got)
	}
}

func TestTiesResolutionRoundTrip(t *testing.T) {
	for _, tr := range []TiesResolution{MostAccurate, MostIntense} {
		got, err := ParseTiesResolution(tr.String())
		if err != nil || got != tr {
			t.Errorf("ParseTiesResolution(%s) = %v, %v", tr, got, err)
		}
	}
	if _, err := ParseTiesResolution("random"); err == nil {
		t.Error("ParseTiesResolution(random) succeeded")
	}
}
