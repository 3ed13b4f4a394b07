package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ions"
	"github.com/ChrisMcGann/FragKey/pkg/library"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	"github.com/google/go-cmp/cmp"
)

func testEntry(t *testing.T, rt float64) *library.Entry {
	t.Helper()
	p, err := peptide.New("PEPTIDE")
	if err != nil {
		t.Fatal(err)
	}
	return &library.Entry{
		Spectrum: &core.Spectrum{
			Title:         "PEPTIDE/2",
			Charge:        2,
			PrecursorMZ:   400.687258,
			RetentionTime: &rt,
			SourceFormat:  "msp",
			Peaks: []core.Peak{
				{MZ: 263.087, Intensity: 50},
				{MZ: 227.103, Intensity: 100},
			},
		},
		Peptide: p,
	}
}

func testMatches() []ions.IonMatch {
	b2 := ions.Ion{Kind: ions.KindFragment, Type: ions.TypeB, Number: 2, Mass: 226.095357}
	p := ions.Ion{Kind: ions.KindPrecursor, Mass: 799.359964}
	return []ions.IonMatch{
		{Ion: b2, Charge: 1, TheoreticalMZ: b2.MZ(1), Peak: &core.Peak{MZ: 227.103, Intensity: 100}},
		{Ion: p, Charge: 2, TheoreticalMZ: p.MZ(2)},
	}
}

func TestWriteAnnotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.db")
	reg := ptm.DefaultRegistry()

	w, err := NewWriter(path, reg)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	w.SetDescription("test run")
	for _, rt := range []float64{10, 20} {
		if err := w.WriteAnnotation(testEntry(t, rt), testMatches()); err != nil {
			t.Fatalf("WriteAnnotation() error = %v", err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.WriteAnnotation(testEntry(t, 30), nil); err == nil {
		t.Error("WriteAnnotation after Finalize succeeded")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	counts := map[string]int{}
	for _, table := range []string{"PeptideTable", "SpectrumTable", "IonMatchTable", "HeaderTable"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		counts[table] = n
	}
	want := map[string]int{"PeptideTable": 1, "SpectrumTable": 2, "IonMatchTable": 2, "HeaderTable": 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("row counts mismatch (-want +got):\n%s", diff)
	}

	var key string
	var mass float64
	if err := db.QueryRow("SELECT PeptideKey, NeutralMass FROM PeptideTable").Scan(&key, &mass); err != nil {
		t.Fatal(err)
	}
	if key != "PEPTIDE" {
		t.Errorf("PeptideKey = %q", key)
	}
	if d := mass - 799.359964; d > 1e-5 || d < -1e-5 {
		t.Errorf("NeutralMass = %f", mass)
	}

	var ann, ionType string
	var matched int
	var blob []byte
	row := db.QueryRow(`SELECT m.Annotation, m.IonType, s.MatchedCount, s.blobMass
		FROM IonMatchTable m JOIN SpectrumTable s ON s.SpectrumId = m.SpectrumId
		WHERE s.SpectrumId = 1`)
	if err := row.Scan(&ann, &ionType, &matched, &blob); err != nil {
		t.Fatal(err)
	}
	if ann != "b2" || ionType != "b" || matched != 1 {
		t.Errorf("match row = %s %s %d", ann, ionType, matched)
	}
	mzs, err := DecodePeaksFloat64(blob)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{227.103, 263.087}, mzs); diff != "" {
		t.Errorf("blobMass not sorted (-want +got):\n%s", diff)
	}

	var desc string
	var spectra int
	if err := db.QueryRow("SELECT Description, SpectrumCount FROM HeaderTable").Scan(&desc, &spectra); err != nil {
		t.Fatal(err)
	}
	if desc != "test run" || spectra != 2 {
		t.Errorf("header = %q %d", desc, spectra)
	}
}

func TestDecodePeaksFloat64(t *testing.T) {
	peaks := []core.Peak{{MZ: 1.5, Intensity: 10}, {MZ: 2.25, Intensity: 20}}
	got, err := DecodePeaksFloat64(encodePeaksFloat64(peaks, false))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{10, 20}, got); diff != "" {
		t.Errorf("intensities mismatch (-want +got):\n%s", diff)
	}
	if _, err := DecodePeaksFloat64(make([]byte, 7)); err == nil {
		t.Error("expected error for truncated blob")
	}
}
