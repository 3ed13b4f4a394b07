// Package msp provides streaming readers for MSP (NIST, Prosit) format spectral libraries
package msp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/library"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
)

// Reader provides streaming access to MSP format files
type Reader struct {
	scanner *bufio.Scanner
	reg     *ptm.Registry
	lineNum int
	current *library.Entry
	err     error
}

// NewReader creates a new MSP reader. Bare modification masses are resolved
// against reg.
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

// header collects the fields of one entry before its peaks.
type header struct {
	sequence  string
	mods      []peptide.ModificationMatch
	modString string
	hasMods   bool
}

// readEntry reads a single entry from the MSP file
func (r *Reader) readEntry() (*library.Entry, error) {
	spec := &core.Spectrum{
		SourceFormat: "msp",
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

		// Skip empty lines between entries
		if line == "" {
			if h.sequence == "" {
				startLine = r.lineNum + 1
			}
			continue
		}

		if !inPeaks {
			// Parse header fields
			switch {
			case strings.HasPrefix(line, "Name: "):
				if err := r.parseName(spec, &h, strings.TrimPrefix(line, "Name: ")); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case strings.HasPrefix(line, "MW: "):
				// MW is ignored; a missing precursor m/z is computed in finish
			case strings.HasPrefix(line, "PrecursorMZ: "):
				if mz, err := strconv.ParseFloat(strings.TrimPrefix(line, "PrecursorMZ: "), 64); err == nil {
					spec.PrecursorMZ = mz
				}
			case strings.HasPrefix(line, "Comment: "):
				if err := r.parseComment(spec, &h, strings.TrimPrefix(line, "Comment: ")); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case strings.HasPrefix(line, "Num peaks: "), strings.HasPrefix(line, "Num Peaks: "):
				n, err := strconv.Atoi(strings.TrimSpace(line[len("Num peaks: "):]))
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

		// Parse peak line
		peak, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		peaksRead++

		// Check if we've read all peaks
		if peaksRead >= numPeaks {
			return r.finish(spec, h, startLine)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// If we have a partially read entry, return it
	if h.sequence != "" {
		return r.finish(spec, h, startLine)
	}

	return nil, io.EOF
}

// finish builds the peptide once all header fields are known. The Mods
// comment takes precedence over ModString.
func (r *Reader) finish(spec *core.Spectrum, h header, startLine int) (*library.Entry, error) {
	if h.sequence == "" {
		return nil, fmt.Errorf("line %d: entry has no Name", startLine)
	}

	mods := h.mods
	if !h.hasMods && h.modString != "" {
		parsed, err := peptide.ParseModifications(h.modString, h.sequence, r.reg)
		if err != nil {
			return nil, fmt.Errorf("line %d: ModString: %w", startLine, err)
		}
		mods = parsed
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

// parseName extracts sequence and charge from Name field (format: "SEQUENCE/CHARGE")
func (r *Reader) parseName(spec *core.Spectrum, h *header, name string) error {
	parts := strings.Split(name, "/")
	if len(parts) < 2 {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	h.sequence = strings.ToUpper(parts[0])
	// NIST appends the modification count after the charge: "SEQ/2_1"
	chargeStr := strings.SplitN(parts[1], "_", 2)[0]
	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}
	spec.Charge = charge

	return nil
}

// parseComment extracts metadata from Comment field
func (r *Reader) parseComment(spec *core.Spectrum, h *header, comment string) error {
	// Comment format: key=value key=value...
	// Example: Parent=414.71 Collision_energy=35 Mods=1/0,R,TMT_Pro ModString=SEQUENCE//TMT_Pro@R-1/4 iRT=61.01

	fields := strings.Fields(comment)
	for _, field := range fields {
		parts := strings.SplitN(field, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := parts[0]
		value := strings.Trim(parts[1], "\"")

		switch key {
		case "Parent":
			mz, err := strconv.ParseFloat(value, 64)
			if err == nil {
				spec.PrecursorMZ = mz
			}

		case "Collision_energy", "CollisionEnergy":
			ce, err := strconv.ParseFloat(value, 64)
			if err == nil {
				spec.CollisionEnergy = &ce
			}

		case "iRT", "RetentionTime":
			rt, err := strconv.ParseFloat(value, 64)
			if err == nil {
				spec.RetentionTime = &rt
			}

		case "Fragmentation":
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

		case "ModString":
			// ModString format: SEQUENCE//ModName@Pos;ModName@Pos/Charge
			// Example: EIESAGDITFNR//TMT_Pro@R-1/4
			modParts := strings.SplitN(value, "//", 2)
			if len(modParts) == 2 {
				h.modString = strings.Split(modParts[1], "/")[0]
			}
		}
	}

	return nil
}

// parsePeak parses a single peak line (format: "mz\tintensity\t\"annotation\"")
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
	}

	// Parse annotation if present (third field, may be quoted)
	if len(fields) >= 3 {
		annotation := strings.Trim(fields[2], "\"")
		// Remove mass error info ("y3/0.5ppm", "b2^2/-0.01")
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		peak.Annotation = annotation
		peak.Charge = annotationCharge(annotation)
	}

	return peak, nil
}

// annotationCharge reads the "^z" charge suffix, defaulting to 1.
func annotationCharge(annotation string) int {
	idx := strings.IndexByte(annotation, '^')
	if idx < 0 {
		return 1
	}
	end := idx + 1
	for end < len(annotation) && annotation[end] >= '0' && annotation[end] <= '9' {
		end++
	}
	z, err := strconv.Atoi(annotation[idx+1 : end])
	if err != nil {
		return 1
	}
	return z
}
