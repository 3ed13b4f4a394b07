package peptide

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
)

// MassMatchTolerance is the Da window used to resolve bare mass shifts to
// registered modifications.
const MassMatchTolerance = 0.005

// ParseModifications parses a modification string like "Phospho@S4;Oxidation@M8"
// or "57.021464@2;15.994915@8". Bare masses are resolved against reg with
// FindByMass, and registered with AddMass when nothing matches. Names are
// not checked here; unknown names resolve to zero mass at lookup.
func ParseModifications(modStr string, sequence string, reg *ptm.Registry) ([]ModificationMatch, error) {
	if modStr == "" {
		return nil, nil
	}
	sequence = strings.ToUpper(sequence)

	var mods []ModificationMatch
	parts := strings.Split(modStr, ";")

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Split by @
		atParts := strings.Split(part, "@")
		if len(atParts) != 2 {
			return nil, fmt.Errorf("invalid modification format '%s', expected 'name@position' or 'mass@position'", part)
		}

		nameOrMass := strings.TrimSpace(atParts[0])
		posStr := strings.TrimSpace(atParts[1])

		site, err := parseSite(posStr, sequence)
		if err != nil {
			return nil, fmt.Errorf("invalid position '%s': %w", posStr, err)
		}

		name := nameOrMass
		// Try to parse as a number first (direct mass)
		if mass, err := strconv.ParseFloat(nameOrMass, 64); err == nil {
			residue := sequence[site.Offset()]
			mod, ok := reg.FindByMass(mass, residue, MassMatchTolerance)
			if !ok {
				mod = reg.AddMass(mass, residue)
			}
			name = mod.Name
		}

		mods = append(mods, ModificationMatch{
			Name:      name,
			Site:      site,
			Confident: true,
		})
	}

	return mods, nil
}

// parseSite parses a 1-based position that may carry a single residue
// letter. Examples: "2", "C2", "n" or "-1" (N-terminus), "c" (C-terminus).
// Position 0 and multi-letter prefixes such as "Ala1" are rejected.
func parseSite(posStr string, sequence string) (core.ResidueSite, error) {
	posStr = strings.TrimSpace(posStr)

	switch {
	case posStr == "n" || posStr == "-1" || strings.HasSuffix(posStr, "-1"):
		return 1, nil
	case posStr == "c":
		return core.ResidueSite(len(sequence)), nil
	}

	// Remove leading amino acid letter if present
	letters := strings.TrimRight(posStr, "0123456789")
	if len(letters) > 1 {
		return 0, fmt.Errorf("residue prefix %q must be a single letter", letters)
	}
	pos, err := strconv.Atoi(posStr[len(letters):])
	if err != nil {
		return 0, fmt.Errorf("invalid position number: %w", err)
	}

	site := core.ResidueSite(pos)
	if !site.Valid(len(sequence)) {
		return 0, fmt.Errorf("%w: %d for length %d", ErrSiteOutOfRange, pos, len(sequence))
	}
	if len(letters) == 1 && strings.ToUpper(letters)[0] != sequence[site.Offset()] {
		return 0, fmt.Errorf("residue %s does not match %c at %d", letters, sequence[site.Offset()], pos)
	}
	return site, nil
}
