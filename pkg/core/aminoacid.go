package core

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownAminoAcid is returned for letters that name no residue.
	ErrUnknownAminoAcid = errors.New("unknown amino acid")
	// ErrAmbiguousAminoAcid is returned where a concrete residue is required
	// but the letter stands for several (B, J, Z, X). It wraps
	// ErrUnknownAminoAcid.
	ErrAmbiguousAminoAcid = fmt.Errorf("%w: ambiguous code", ErrUnknownAminoAcid)
)

// AminoAcid describes a single residue as it appears in a peptide chain,
// i.e. with one water removed relative to the free amino acid.
type AminoAcid struct {
	Letter           byte
	Code             string
	Name             string
	Composition      Composition
	MonoisotopicMass float64
	AverageMass      float64
}

type residueDef struct {
	code string
	name string
	comp Composition
}

// Residue compositions
var residues = map[byte]residueDef{
	'A': {"Ala", "Alanine", Composition{C: 3, H: 5, N: 1, O: 1}},
	'R': {"Arg", "Arginine", Composition{C: 6, H: 12, N: 4, O: 1}},
	'N': {"Asn", "Asparagine", Composition{C: 4, H: 6, N: 2, O: 2}},
	'D': {"Asp", "Aspartic acid", Composition{C: 4, H: 5, N: 1, O: 3}},
	'C': {"Cys", "Cysteine", Composition{C: 3, H: 5, N: 1, O: 1, S: 1}},
	'E': {"Glu", "Glutamic acid", Composition{C: 5, H: 7, N: 1, O: 3}},
	'Q': {"Gln", "Glutamine", Composition{C: 5, H: 8, N: 2, O: 2}},
	'G': {"Gly", "Glycine", Composition{C: 2, H: 3, N: 1, O: 1}},
	'H': {"His", "Histidine", Composition{C: 6, H: 7, N: 3, O: 1}},
	'I': {"Ile", "Isoleucine", Composition{C: 6, H: 11, N: 1, O: 1}},
	'L': {"Leu", "Leucine", Composition{C: 6, H: 11, N: 1, O: 1}},
	'K': {"Lys", "Lysine", Composition{C: 6, H: 12, N: 2, O: 1}},
	'M': {"Met", "Methionine", Composition{C: 5, H: 9, N: 1, O: 1, S: 1}},
	'F': {"Phe", "Phenylalanine", Composition{C: 9, H: 9, N: 1, O: 1}},
	'P': {"Pro", "Proline", Composition{C: 5, H: 7, N: 1, O: 1}},
	'S': {"Ser", "Serine", Composition{C: 3, H: 5, N: 1, O: 2}},
	'T': {"Thr", "Threonine", Composition{C: 4, H: 7, N: 1, O: 2}},
	'W': {"Trp", "Tryptophan", Composition{C: 11, H: 10, N: 2, O: 1}},
	'Y': {"Tyr", "Tyrosine", Composition{C: 9, H: 9, N: 1, O: 2}},
	'V': {"Val", "Valine", Composition{C: 5, H: 9, N: 1, O: 1}},
	'U': {"Sec", "Selenocysteine", Composition{C: 3, H: 5, N: 1, O: 1, Se: 1}},
	'O': {"Pyl", "Pyrrolysine", Composition{C: 12, H: 19, N: 3, O: 2}},
}

// Ambiguity codes and the residues they may stand for
var ambiguous = map[byte]string{
	'B': "ND",
	'Z': "QE",
	'J': "IL",
	'X': "ACDEFGHIKLMNPQRSTVWY",
}

// GetAminoAcid returns the residue for a one-letter code. Lowercase letters
// are not accepted.
func GetAminoAcid(letter byte) (AminoAcid, error) {
	def, ok := residues[letter]
	if !ok {
		if _, amb := ambiguous[letter]; amb {
			return AminoAcid{}, fmt.Errorf("%w: %q", ErrAmbiguousAminoAcid, letter)
		}
		return AminoAcid{}, fmt.Errorf("%w: %q", ErrUnknownAminoAcid, letter)
	}
	return AminoAcid{
		Letter:           letter,
		Code:             def.code,
		Name:             def.name,
		Composition:      def.comp,
		MonoisotopicMass: def.comp.Mass(),
		AverageMass:      def.comp.AverageMass(),
	}, nil
}

// IsAmbiguous reports whether letter is an ambiguity code.
func IsAmbiguous(letter byte) bool {
	_, ok := ambiguous[letter]
	return ok
}

// Candidates resolves a letter to the concrete residues it may stand for.
// A concrete letter resolves to itself.
func Candidates(letter byte) ([]AminoAcid, error) {
	if letters, ok := ambiguous[letter]; ok {
		out := make([]AminoAcid, 0, len(letters))
		for i := 0; i < len(letters); i++ {
			aa, err := GetAminoAcid(letters[i])
			if err != nil {
				return nil, err
			}
			out = append(out, aa)
		}
		return out, nil
	}
	aa, err := GetAminoAcid(letter)
	if err != nil {
		return nil, err
	}
	return []AminoAcid{aa}, nil
}

// AminoAcids lists all concrete residues ordered by letter.
func AminoAcids() []AminoAcid {
	out := make([]AminoAcid, 0, len(residues))
	for letter := range residues {
		aa, _ := GetAminoAcid(letter)
		out = append(out, aa)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Letter < out[j].Letter })
	return out
}
