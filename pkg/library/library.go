// Package library defines spectral library entries: an observed spectrum
// together with the peptide it was identified as.
package library

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
)

// Entry is one library spectrum and its peptide.
type Entry struct {
	Spectrum *core.Spectrum
	Peptide  peptide.Peptide
}

// Name returns the entry name in format "ModifiedSequence/Charge".
func (e *Entry) Name() string {
	return fmt.Sprintf("%s/%d", e.Peptide.ModifiedSequence(), e.Spectrum.Charge)
}

// Reader streams library entries.
type Reader interface {
	// Next advances to the next entry. It returns false at the end of
	// input or on error.
	Next() bool
	Entry() *Entry
	Err() error
}

// ParseModsField parses the NIST/SpectraST "Mods" comment value, e.g.
// "2/-1,A,iTRAQ8plex/17,C,Carbamidomethyl". Positions are 0-based and -1
// marks the N-terminus; both map to 1-based sites.
func ParseModsField(value, sequence string) ([]peptide.ModificationMatch, error) {
	parts := strings.Split(value, "/")
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid modification count in %q: %w", value, err)
	}
	if count != len(parts)-1 {
		return nil, fmt.Errorf("modification count %d does not match %d entries in %q", count, len(parts)-1, value)
	}

	mods := make([]peptide.ModificationMatch, 0, count)
	for _, part := range parts[1:] {
		fields := strings.Split(part, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid modification %q, expected 'position,residue,name'", part)
		}
		pos, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("invalid modification position %q: %w", fields[0], err)
		}

		var site core.ResidueSite
		switch {
		case pos == -1:
			site = 1
		case pos == -2:
			site = core.ResidueSite(len(sequence))
		default:
			site = core.Offset(pos).Site()
		}
		if !site.Valid(len(sequence)) {
			return nil, fmt.Errorf("%w: %s at %d in %s", peptide.ErrSiteOutOfRange, fields[2], pos, sequence)
		}
		if pos >= 0 && fields[1] != "" && fields[1][0] != sequence[pos] {
			return nil, fmt.Errorf("modification %s expects %s at %d, found %c", fields[2], fields[1], pos, sequence[pos])
		}

		mods = append(mods, peptide.ModificationMatch{
			Name:      fields[2],
			Site:      site,
			Confident: true,
		})
	}
	return mods, nil
}
