package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ions"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	"github.com/google/go-cmp/cmp"
)

const sampleYAML = `
tolerance: 10
ppm: true
charges: [1, 2, 3]
ion_types: [b, y]
losses: [H2O, NH3, SO3]
ties: most-intense
intensity_limit: 5
workers: 4
neutral_losses:
  - name: SO3
    formula: SO3
  - name: Glycan
    mass: 203.079373
modifications:
  - name: Sulfo
    formula: SO3
    residues: sty
    neutral_losses: [SO3]
  - name: Label:13C(6)
    type: aa
    mass: 6.020129
    residues: KR
  - name: TMTpro-custom
    type: n-term-protein
    mass: 304.207146
    reporter_ions: [TMT_126, TMT_127N]
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !c.PPM || c.Tolerance != 10 || c.Workers != 4 {
		t.Errorf("matching settings = %+v", c)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, c.Charges); diff != "" {
		t.Errorf("charges mismatch (-want +got):\n%s", diff)
	}
	m := c.Matcher()
	want := ions.Matcher{Tolerance: ions.Tolerance{Value: 10, PPM: true}, Ties: ions.MostIntense}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Matcher() mismatch (-want +got):\n%s", diff)
	}
	if got := c.Filter().IonTypes; len(got) != 2 {
		t.Errorf("Filter().IonTypes = %v", got)
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "tolerence: 0.1\n", "tolerence"},
		{"zero tolerance", "tolerance: 0\n", "tolerance must be positive"},
		{"bad charge", "charges: [0]\n", "fragment charge"},
		{"bad ties", "ties: loudest\n", "ties resolution"},
		{"bad limit", "intensity_limit: 100\n", "intensity limit"},
		{"bad ion type", "ion_types: [q]\n", "unknown ion type"},
		{"negative workers", "workers: -1\n", "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fragkey.yaml")
	if err := os.WriteFile(path, []byte("tolerance: 0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Tolerance != 0.5 || c.Ties != "most-accurate" {
		t.Errorf("Load() = %+v", c)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestApply(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	reg := ptm.DefaultRegistry()
	if err := c.Apply(reg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	so3, ok := reg.LookupNeutralLoss("SO3")
	if !ok || so3.Composition != (core.Composition{S: 1, O: 3}) {
		t.Errorf("SO3 loss = %+v, %v", so3, ok)
	}
	if g, _ := reg.LookupNeutralLoss("Glycan"); g.Mass() != 203.079373 {
		t.Errorf("Glycan loss mass = %v", g.Mass())
	}

	sulfo := reg.Get("Sulfo")
	if sulfo.Residues != "STY" || len(sulfo.NeutralLosses) != 1 {
		t.Errorf("Sulfo = %+v", sulfo)
	}
	if d := sulfo.Mass - 79.956815; d > 1e-5 || d < -1e-5 {
		t.Errorf("Sulfo mass = %f, want from formula", sulfo.Mass)
	}
	if got := reg.Get("TMTpro-custom"); got.Type != ptm.ModN || len(got.ReporterIons) != 2 {
		t.Errorf("TMTpro-custom = %+v", got)
	}

	losses, err := c.DefaultLosses(reg)
	if err != nil {
		t.Fatalf("DefaultLosses() error = %v", err)
	}
	if len(losses) != 3 || losses[2].Name != "SO3" {
		t.Errorf("DefaultLosses() = %v", losses)
	}

	a, err := c.Annotator(reg)
	if err != nil {
		t.Fatalf("Annotator() error = %v", err)
	}
	if a.IntensityLimit != 0.05 {
		t.Errorf("IntensityLimit = %v, want fraction of base peak", a.IntensityLimit)
	}
	p, err := peptide.New("PEPSK", peptide.ModificationMatch{Name: "Sulfo", Site: 4})
	if err != nil {
		t.Fatal(err)
	}
	ionsOut, err := a.Factory.FragmentIons(p)
	if err != nil {
		t.Fatal(err)
	}
	var sawSulfoLoss bool
	for _, ion := range ionsOut {
		for _, l := range ion.Losses {
			if l.Name == "SO3" && ion.Kind == ions.KindFragment && ion.Type == ions.TypeY {
				sawSulfoLoss = true
			}
		}
	}
	if !sawSulfoLoss {
		t.Error("no y ion carries the SO3 loss")
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"duplicate loss", "neutral_losses:\n  - name: H2O\n    formula: H2O\n", "duplicate neutral loss"},
		{"loss without mass", "neutral_losses:\n  - name: Empty\n", "needs a formula or a mass"},
		{"bad formula", "modifications:\n  - name: Bad\n    formula: Xx2\n", "Bad"},
		{"mod without mass", "modifications:\n  - name: Bare\n", "needs a mass or a formula"},
		{"unknown loss", "modifications:\n  - name: M1\n    mass: 1\n    neutral_losses: [Nope]\n", "unknown neutral loss"},
		{"unknown reporter", "modifications:\n  - name: M2\n    mass: 1\n    reporter_ions: [TMT_999]\n", "unknown reporter ion"},
		{"bad type", "modifications:\n  - name: M3\n    mass: 1\n    type: middle\n", "M3"},
		{"reserved name", "modifications:\n  - name: unknown\n    mass: 1\n", "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(strings.NewReader(tt.yaml))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			err = c.Apply(ptm.DefaultRegistry())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Apply() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
