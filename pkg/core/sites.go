package core

// ResidueSite is a 1-based position along a peptide. Site 1 is the first
// residue and site len(sequence) the last. Modifications are keyed by site.
type ResidueSite int

// Offset is a 0-based position, as used for string indexing and for
// library formats that count from zero.
type Offset int

// Offset converts a site to its 0-based offset.
func (s ResidueSite) Offset() Offset {
	return Offset(s - 1)
}

// Valid reports whether the site lies within a sequence of the given length.
func (s ResidueSite) Valid(length int) bool {
	return s >= 1 && int(s) <= length
}

// Site converts a 0-based offset to its 1-based site.
func (o Offset) Site() ResidueSite {
	return ResidueSite(o + 1)
}
