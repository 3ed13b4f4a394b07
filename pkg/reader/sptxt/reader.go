// Package sptxt provides streaming readers for SPTXT (SpectraST) format spectral libraries
package sptxt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/library"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
)

// inlineMod matches a residue (or n/c terminus) followed by a bracketed mass.
var inlineMod = regexp.MustCompile(`([a-zA-Z]?)\[(\d+(?:\.\d+)?)\]`)

// Reader provides streaming access to SPTXT format files
type Reader struct {
	scanner *bufio.Scanner
	reg     *ptm.Registry
	lineNum int
	current *library.Entry
	err     error
}

// NewReader creates a new SPTXT reader. Inline masses are resolved against
// reg, which defaults to ptm.DefaultRegistry.
func NewReader(r io.Reader, reg *ptm.Registry) *Reader {
	if reg == nil {
		reg = ptm.DefaultRegistry()
	}

	return &Reader{
		scanner: bufio.NewScanner(r),
		reg:     reg,
	}
}

// Next advances to the next entry. Returns false when no more entries or error.
func (r *Reader) Next() bool {
	r.current = nil

	entry, err := r.readEntry()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = entry
	return true
}

// Entry returns the current entry
func (r *Reader) Entry() *library.Entry {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// inlineMass is a bracketed mass from the Name line. Terminus is 'n', 'c'
// or 0 for a residue.
type inlineMass struct {
	terminus byte
	site     core.ResidueSite
	mass     float64
	decimals int
}

type header struct {
	sequence string
	inline   []inlineMass
	mods     []peptide.ModificationMatch
	hasMods  bool
}

// readEntry reads a single entry from the SPTXT file
func (r *Reader) readEntry() (*library.Entry, error) {
	spec := &core.Spectrum{
		SourceFormat: "sptxt",
		Peaks:        []core.Peak{},
	}
	var h header

	var numPeaks int
	inPeaks := false
	peaksRead := 0
	startLine := r.lineNum + 1

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "###") {
			if h.sequence == "" {
				startLine = r.lineNum + 1
			}
			continue
		}

		if !inPeaks {
			switch {
			case strings.HasPrefix(line, "Name: "):
				if err := parseName(spec, &h, strings.TrimPrefix(line, "Name: ")); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case strings.HasPrefix(line, "LibID: "), strings.HasPrefix(line, "MW: "):
			case strings.HasPrefix(line, "PrecursorMZ: "):
				if mz, err := strconv.ParseFloat(strings.TrimPrefix(line, "PrecursorMZ: "), 64); err == nil {
					spec.PrecursorMZ = mz
				}
			case strings.HasPrefix(line, "Comment: "):
				if err := parseComment(spec, &h, strings.TrimPrefix(line, "Comment: ")); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case strings.HasPrefix(line, "NumPeaks: "):
				n, err := strconv.Atoi(strings.TrimPrefix(line, "NumPeaks: "))
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
				}
				numPeaks = n
				inPeaks = true
				if numPeaks == 0 {
					return r.finish(spec, h, startLine)
				}
			}
			continue
		}

		peak, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		peaksRead++

		if peaksRead >= numPeaks {
			return r.finish(spec, h, startLine)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if h.sequence != "" {
		return r.finish(spec, h, startLine)
	}

	return nil, io.EOF
}

// finish resolves modifications and builds the entry. A Mods comment wins
// over inline masses.
func (r *Reader) finish(spec *core.Spectrum, h header, startLine int) (*library.Entry, error) {
	if h.sequence == "" {
		return nil, fmt.Errorf("line %d: entry has no Name", startLine)
	}

	mods := h.mods
	if !h.hasMods {
		mods = make([]peptide.ModificationMatch, 0, len(h.inline))
		for _, im := range h.inline {
			m, err := r.resolve(h.sequence, im)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", startLine, err)
			}
			mods = append(mods, m)
		}
	}

	pep, err := peptide.New(h.sequence, mods...)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", startLine, err)
	}
	if spec.PrecursorMZ == 0 && spec.Charge > 0 {
		if mz, err := pep.MZ(r.reg, spec.Charge); err == nil {
			spec.PrecursorMZ = mz
		}
	}
	spec.SortPeaks()
	spec.Title = fmt.Sprintf("%s/%d", h.sequence, spec.Charge)
	return &library.Entry{Spectrum: spec, Peptide: pep}, nil
}

// resolve turns a SpectraST total mass into a registered modification. The
// bracket holds the residue mass plus the shift; n[..] holds H plus the
// shift and c[..] holds OH plus the shift.
func (r *Reader) resolve(sequence string, im inlineMass) (peptide.ModificationMatch, error) {
	var delta float64
	var residue byte
	switch im.terminus {
	case 'n':
		delta = im.mass - core.MassH
	case 'c':
		delta = im.mass - core.MassO - core.MassH
		residue = sequence[im.site.Offset()]
	default:
		residue = sequence[im.site.Offset()]
		aa, err := core.GetAminoAcid(residue)
		if err != nil {
			return peptide.ModificationMatch{}, fmt.Errorf("modified residue %c: %w", residue, err)
		}
		delta = im.mass - aa.MonoisotopicMass
	}

	tol := massTolerance(im.decimals)
	mod, ok := r.reg.FindByMass(delta, residue, tol)
	if !ok {
		mod = r.reg.AddMass(delta, residue)
	}
	return peptide.ModificationMatch{Name: mod.Name, Site: im.site, Confident: true}, nil
}

// massTolerance is half the last printed digit, never tighter than
// peptide.MassMatchTolerance.
func massTolerance(decimals int) float64 {
	return math.Max(0.5*math.Pow(10, -float64(decimals)), peptide.MassMatchTolerance)
}

// parseName extracts sequence, charge, and inline modifications from the
// Name field. Format: "n[305]AAAAQDEITGDGTTTVVC[160]LVGELLR/3"
func parseName(spec *core.Spectrum, h *header, name string) error {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	charge, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}
	spec.Charge = charge

	sequence, inline, err := parseInlineModifications(name[:idx])
	if err != nil {
		return fmt.Errorf("failed to parse modifications from sequence: %w", err)
	}
	h.sequence = sequence
	h.inline = inline
	return nil
}

// parseInlineModifications strips bracketed masses from rawSeq and records
// where they sit.
func parseInlineModifications(rawSeq string) (string, []inlineMass, error) {
	var sequence strings.Builder
	var mods []inlineMass
	var cterm []int

	lastIdx := 0
	for _, match := range inlineMod.FindAllStringSubmatchIndex(rawSeq, -1) {
		sequence.WriteString(rawSeq[lastIdx:match[0]])

		aa := rawSeq[match[2]:match[3]]
		massStr := rawSeq[match[4]:match[5]]
		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid modification mass '%s': %w", massStr, err)
		}
		im := inlineMass{mass: mass}
		if dot := strings.IndexByte(massStr, '.'); dot >= 0 {
			im.decimals = len(massStr) - dot - 1
		}

		switch aa {
		case "n":
			im.terminus = 'n'
			im.site = 1
		case "c":
			im.terminus = 'c'
			cterm = append(cterm, len(mods))
		case "":
			return "", nil, fmt.Errorf("modification mass [%s] has no residue", massStr)
		default:
			sequence.WriteString(aa)
			im.site = core.ResidueSite(sequence.Len())
		}
		mods = append(mods, im)

		lastIdx = match[1]
	}
	sequence.WriteString(rawSeq[lastIdx:])

	seq := strings.ToUpper(sequence.String())
	if seq == "" {
		return "", nil, fmt.Errorf("empty sequence in '%s'", rawSeq)
	}
	for _, i := range cterm {
		mods[i].site = core.ResidueSite(len(seq))
	}
	return seq, mods, nil
}

// parseComment extracts metadata from Comment field
func parseComment(spec *core.Spectrum, h *header, comment string) error {
	for _, field := range strings.Fields(comment) {
		parts := strings.SplitN(field, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := parts[0]
		value := parts[1]

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil && spec.PrecursorMZ == 0 {
				spec.PrecursorMZ = mz
			}

		case "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				spec.CollisionEnergy = &ce
			}

		case "RetentionTime":
			// May be comma-separated list, take first value
			if rt, err := strconv.ParseFloat(strings.Split(value, ",")[0], 64); err == nil {
				spec.RetentionTime = &rt
			}

		case "FragmentationMode", "Fragmentation":
			spec.FragmentationMode = value

		case "Inst":
			spec.Instrument = value

		case "Mods":
			if h.sequence == "" {
				return fmt.Errorf("comment field Mods appears before Name")
			}
			mods, err := library.ParseModsField(value, h.sequence)
			if err != nil {
				return err
			}
			h.mods = mods
			h.hasMods = true
		}
	}

	return nil
}

// parsePeak parses a single peak line
// Format: "mz\tintensity\tannotation\t..."
func parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	peak := core.Peak{
		MZ:        mz,
		Intensity: intensity,
		Charge:    1,
	}

	if len(fields) >= 3 {
		// SpectraST lists alternatives separated by commas; the first is the
		// best explanation. Mass error follows a slash: "y3/0.01".
		annotation := strings.Split(fields[2], ",")[0]
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		peak.Annotation = annotation
		if idx := strings.IndexByte(annotation, '^'); idx >= 0 {
			if z, err := strconv.Atoi(strings.TrimRight(annotation[idx+1:], "i")); err == nil {
				peak.Charge = z
			}
		}
	}

	return peak, nil
}
