package ions

import (
	"fmt"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
)

// FragmentationError reports a peptide that could not be fragmented.
type FragmentationError struct {
	Sequence string
	Err      error
}

func (e *FragmentationError) Error() string {
	return fmt.Sprintf("fragmenting %s: %v", e.Sequence, e.Err)
}

func (e *FragmentationError) Unwrap() error { return e.Err }

// DefaultLosses are the losses considered for every peptide.
var DefaultLosses = []core.NeutralLoss{core.LossH2O, core.LossNH3}

// Factory produces theoretical ions for peptides. It holds no per-call
// state and is safe for concurrent use while its lookup is not mutated.
type Factory struct {
	lookup        ptm.Lookup
	defaultLosses []core.NeutralLoss
}

// Option configures a Factory.
type Option func(*Factory)

// WithDefaultLosses replaces the losses considered for every peptide.
func WithDefaultLosses(losses ...core.NeutralLoss) Option {
	return func(f *Factory) {
		f.defaultLosses = append([]core.NeutralLoss(nil), losses...)
	}
}

// NewFactory creates a Factory resolving modification names with lookup.
func NewFactory(lookup ptm.Lookup, opts ...Option) *Factory {
	f := &Factory{
		lookup:        lookup,
		defaultLosses: DefaultLosses,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Lookup returns the modification lookup used by the factory.
func (f *Factory) Lookup() ptm.Lookup { return f.lookup }

// FragmentIons returns the reporter ions of the modifications present, then
// per cleavage position the a/b/c ions, the immonium ion of a newly seen
// residue and the x/y/z ions, then the precursor. Every fragment and the
// precursor are emitted once per neutral loss combination.
//
// A residue without a concrete mass fails the whole peptide.
func (f *Factory) FragmentIons(p peptide.Peptide) ([]Ion, error) {
	seq := p.Sequence()
	n := len(seq)
	if n == 0 {
		return nil, &FragmentationError{Sequence: seq, Err: peptide.ErrInvalidSequence}
	}

	residueMass := make([]float64, n)
	for i := 0; i < n; i++ {
		aa, err := core.GetAminoAcid(seq[i])
		if err != nil {
			return nil, &FragmentationError{
				Sequence: seq,
				Err:      fmt.Errorf("position %d: %w", i+1, err),
			}
		}
		residueMass[i] = aa.MonoisotopicMass
	}

	// Mass deltas by 1-based site; index 0 is unused.
	siteMass := make([]float64, n+1)
	var present []ptm.Modification
	seen := make(map[string]bool)
	for _, m := range p.Modifications() {
		mod := f.lookup.Get(m.Name)
		siteMass[mod.EffectiveSite(m.Site, n)] += mod.Mass
		if !seen[mod.Name] {
			seen[mod.Name] = true
			present = append(present, mod)
		}
	}

	combos := NeutralLossCombinations(PossibleLosses(f.defaultLosses, present))
	out := make([]Ion, 0, 6*(n-1)*len(combos)+len(combos)+n)

	reporterSeen := make(map[string]bool)
	for _, mod := range present {
		for _, r := range mod.ReporterIons {
			if reporterSeen[r.Name] {
				continue
			}
			reporterSeen[r.Name] = true
			out = append(out, Ion{Kind: KindReporter, Name: r.Name, Mass: r.Mass})
		}
	}

	immoniumSeen := make(map[byte]bool)
	forward := 0.0
	rewind := core.MassH2O

	for aa := 0; aa < n-1; aa++ {
		number := aa + 1

		forward += residueMass[aa] + siteMass[core.Offset(aa).Site()]
		for _, losses := range combos {
			lossMass := core.LossesMass(losses)
			b := forward - lossMass
			out = append(out,
				Ion{Kind: KindFragment, Type: TypeA, Number: number, Mass: b - core.MassCO, Losses: losses},
				Ion{Kind: KindFragment, Type: TypeB, Number: number, Mass: b, Losses: losses},
				Ion{Kind: KindFragment, Type: TypeC, Number: number, Mass: b + core.MassNH3, Losses: losses},
			)
		}

		if residue := seq[aa]; !immoniumSeen[residue] {
			immoniumSeen[residue] = true
			out = append(out, Ion{Kind: KindImmonium, Residue: residue, Mass: residueMass[aa] - core.MassCO})
		}

		raa := n - 1 - aa
		rewind += residueMass[raa] + siteMass[core.Offset(raa).Site()]
		for _, losses := range combos {
			y := rewind - core.LossesMass(losses)
			out = append(out,
				Ion{Kind: KindFragment, Type: TypeX, Number: number, Mass: y + core.MassCO - core.MassH2, Losses: losses},
				Ion{Kind: KindFragment, Type: TypeY, Number: number, Mass: y, Losses: losses},
				Ion{Kind: KindFragment, Type: TypeZ, Number: number, Mass: y - core.MassNH3, Losses: losses},
			)
		}
	}

	forward += residueMass[n-1] + siteMass[n]
	for _, losses := range combos {
		out = append(out, Ion{
			Kind:   KindPrecursor,
			Mass:   forward + core.MassH2O - core.LossesMass(losses),
			Losses: losses,
		})
	}

	return out, nil
}
