// Package peptide provides an immutable peptide model: a residue sequence and
// the modifications localized on it.
package peptide

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
)

var (
	// ErrInvalidSequence is returned for sequences with non-residue characters.
	ErrInvalidSequence = errors.New("invalid peptide sequence")
	// ErrSiteOutOfRange is returned for modification sites outside the sequence.
	ErrSiteOutOfRange = errors.New("modification site out of range")
)

// ModificationMatch places a registered modification on a residue site.
type ModificationMatch struct {
	Name      string
	Variable  bool
	Site      core.ResidueSite
	Confident bool
}

func (m ModificationMatch) String() string {
	return fmt.Sprintf("%s@%d", m.Name, m.Site)
}

// Peptide is a sequence with an ordered list of modification matches.
// Values are never modified in place; the With* methods return copies.
type Peptide struct {
	sequence string
	mods     []ModificationMatch
}

// New validates and upper-cases sequence and attaches mods in order.
func New(sequence string, mods ...ModificationMatch) (Peptide, error) {
	seq := strings.ToUpper(strings.TrimSpace(sequence))
	if seq == "" {
		return Peptide{}, fmt.Errorf("%w: empty sequence", ErrInvalidSequence)
	}
	for i := 0; i < len(seq); i++ {
		if seq[i] < 'A' || seq[i] > 'Z' {
			return Peptide{}, fmt.Errorf("%w: %q at position %d in %s", ErrInvalidSequence, seq[i], i+1, seq)
		}
	}

	p := Peptide{sequence: seq}
	for _, m := range mods {
		if err := p.checkSite(m); err != nil {
			return Peptide{}, err
		}
	}
	p.mods = append([]ModificationMatch(nil), mods...)
	return p, nil
}

func (p Peptide) checkSite(m ModificationMatch) error {
	if !m.Site.Valid(len(p.sequence)) {
		return fmt.Errorf("%w: %s on %s (length %d)", ErrSiteOutOfRange, m, p.sequence, len(p.sequence))
	}
	return nil
}

// Sequence returns the upper-case residue sequence.
func (p Peptide) Sequence() string { return p.sequence }

// Len returns the number of residues.
func (p Peptide) Len() int { return len(p.sequence) }

// Modifications returns a copy of the modification matches in order.
func (p Peptide) Modifications() []ModificationMatch {
	return append([]ModificationMatch(nil), p.mods...)
}

// IsModified reports whether any modification is attached.
func (p Peptide) IsModified() bool { return len(p.mods) > 0 }

// Residue returns the letter at a 1-based site.
func (p Peptide) Residue(site core.ResidueSite) byte {
	return p.sequence[site.Offset()]
}

// WithModification returns a copy of p with m appended.
func (p Peptide) WithModification(m ModificationMatch) (Peptide, error) {
	if err := p.checkSite(m); err != nil {
		return Peptide{}, err
	}
	mods := make([]ModificationMatch, 0, len(p.mods)+1)
	mods = append(mods, p.mods...)
	mods = append(mods, m)
	return Peptide{sequence: p.sequence, mods: mods}, nil
}

// WithoutModification returns a copy of p without matches of name at site.
func (p Peptide) WithoutModification(name string, site core.ResidueSite) Peptide {
	mods := make([]ModificationMatch, 0, len(p.mods))
	for _, m := range p.mods {
		if m.Name == name && m.Site == site {
			continue
		}
		mods = append(mods, m)
	}
	return Peptide{sequence: p.sequence, mods: mods}
}

// ModificationsAt returns the matches acting on site once terminal types
// are pinned to their terminus.
func (p Peptide) ModificationsAt(lookup ptm.Lookup, site core.ResidueSite) []ptm.Modification {
	var out []ptm.Modification
	for _, m := range p.mods {
		mod := lookup.Get(m.Name)
		if mod.EffectiveSite(m.Site, len(p.sequence)) == site {
			out = append(out, mod)
		}
	}
	return out
}

// modMasses returns the mass delta of each attached modification.
func (p Peptide) modMasses(lookup ptm.Lookup) []float64 {
	out := make([]float64, len(p.mods))
	for i, m := range p.mods {
		out[i] = lookup.Get(m.Name).Mass
	}
	return out
}

// ModificationMass sums the mass deltas of all attached modifications.
// Unknown names contribute zero.
func (p Peptide) ModificationMass(lookup ptm.Lookup) float64 {
	var total float64
	for _, m := range p.modMasses(lookup) {
		total += m
	}
	return total
}

// Mass returns the neutral monoisotopic mass: residues plus water plus
// modification deltas.
func (p Peptide) Mass(lookup ptm.Lookup) (float64, error) {
	mass, err := core.CalculateNeutralMass(p.sequence, p.modMasses(lookup))
	if err != nil {
		return 0, fmt.Errorf("peptide %s: %w", p.sequence, err)
	}
	return mass, nil
}

// MZ returns the precursor m/z at charge.
func (p Peptide) MZ(lookup ptm.Lookup, charge int) (float64, error) {
	mz, err := core.CalculatePeptideMass(p.sequence, charge, p.modMasses(lookup))
	if err != nil {
		return 0, fmt.Errorf("peptide %s: %w", p.sequence, err)
	}
	return mz, nil
}

func (p Peptide) sortedMods() []ModificationMatch {
	mods := p.Modifications()
	sort.SliceStable(mods, func(i, j int) bool {
		if mods[i].Site != mods[j].Site {
			return mods[i].Site < mods[j].Site
		}
		return mods[i].Name < mods[j].Name
	})
	return mods
}

// Key identifies the peptide independent of modification order, e.g.
// "PEPTIDE_Phospho@4".
func (p Peptide) Key() string {
	if len(p.mods) == 0 {
		return p.sequence
	}
	parts := make([]string, 0, len(p.mods))
	for _, m := range p.sortedMods() {
		parts = append(parts, m.String())
	}
	return p.sequence + "_" + strings.Join(parts, "_")
}

// ModifiedSequence renders modification names after their residue, e.g.
// "PEPT[Phospho]IDE".
func (p Peptide) ModifiedSequence() string {
	mods := p.sortedMods()
	var sb strings.Builder
	k := 0
	for i := 0; i < len(p.sequence); i++ {
		sb.WriteByte(p.sequence[i])
		site := core.Offset(i).Site()
		for k < len(mods) && mods[k].Site == site {
			fmt.Fprintf(&sb, "[%s]", mods[k].Name)
			k++
		}
	}
	return sb.String()
}

// ModString returns modifications in format "mass@site;mass@site;..."
func (p Peptide) ModString(lookup ptm.Lookup) string {
	if len(p.mods) == 0 {
		return ""
	}

	parts := make([]string, 0, len(p.mods))
	for _, m := range p.mods {
		parts = append(parts, fmt.Sprintf("%.6f@%d", lookup.Get(m.Name).Mass, m.Site))
	}
	return strings.Join(parts, ";")
}

func (p Peptide) String() string {
	return p.ModifiedSequence()
}
