// Package ptm provides the post-translational modification model and the
// registry that peptides and the fragment factory resolve names against.
package ptm

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
)

// ModificationType locates a modification on a peptide or protein.
type ModificationType int

const (
	ModAA   ModificationType = iota // at a residue
	ModN                            // protein N-terminus
	ModNAA                          // protein N-terminus, specific residue
	ModC                            // protein C-terminus
	ModCAA                          // protein C-terminus, specific residue
	ModNP                           // peptide N-terminus
	ModNPAA                         // peptide N-terminus, specific residue
	ModCP                           // peptide C-terminus
	ModCPAA                         // peptide C-terminus, specific residue
)

var typeNames = []string{
	"aa",
	"n-term-protein",
	"n-term-protein-aa",
	"c-term-protein",
	"c-term-protein-aa",
	"n-term",
	"n-term-aa",
	"c-term",
	"c-term-aa",
}

func (t ModificationType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("ModificationType(%d)", int(t))
	}
	return typeNames[t]
}

// ParseModificationType is the inverse of String.
func ParseModificationType(s string) (ModificationType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return ModificationType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown modification type %q", s)
}

// IsNTerm reports whether the type sits on an N-terminus.
func (t ModificationType) IsNTerm() bool {
	switch t {
	case ModN, ModNAA, ModNP, ModNPAA:
		return true
	}
	return false
}

// IsCTerm reports whether the type sits on a C-terminus.
func (t ModificationType) IsCTerm() bool {
	switch t {
	case ModC, ModCAA, ModCP, ModCPAA:
		return true
	}
	return false
}

// Modification is a named mass delta with its target pattern and the
// neutral losses and reporter ions it gives rise to.
type Modification struct {
	Name      string
	ShortName string
	Type      ModificationType
	Mass      float64
	// Composition is informational; Mass is authoritative.
	Composition core.Composition
	// Residues lists target letters. Empty means any residue.
	Residues      string
	NeutralLosses []core.NeutralLoss
	ReporterIons  []core.ReporterIon
}

// UnknownName is the name of the sentinel returned for lookup misses.
const UnknownName = "unknown"

// Unknown is the zero-mass sentinel returned when a name is not registered.
var Unknown = Modification{Name: UnknownName, ShortName: "unk"}

// IsUnknown reports whether m is the lookup-miss sentinel.
func (m Modification) IsUnknown() bool {
	return m.Name == UnknownName
}

// AppliesTo reports whether the modification may sit on the given residue.
func (m Modification) AppliesTo(residue byte) bool {
	return m.Residues == "" || strings.IndexByte(m.Residues, residue) >= 0
}

// EffectiveSite returns the 1-based site a modification acts on in a peptide
// of the given length. Terminal types are pinned to the first or last residue.
func (m Modification) EffectiveSite(site core.ResidueSite, length int) core.ResidueSite {
	switch {
	case m.Type.IsNTerm():
		return 1
	case m.Type.IsCTerm():
		return core.ResidueSite(length)
	}
	return site
}
