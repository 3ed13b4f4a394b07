// Package filter provides peak preprocessing and theoretical ion selection
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ions"
)

// Ion type codes accepted in Config.IonTypes besides the fragment series
// letters a, b, c, x, y and z.
const (
	TypePrecursor = "p"
	TypeImmonium  = "i"
	TypeReporter  = "r"
)

// Config holds filtering configuration
type Config struct {
	TopN            int      // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64  // Keep only peaks above this % of base peak (0 = no cutoff)
	IonTypes        []string // Theoretical ion types to match (nil = all)
}

// Validate checks the configured values.
func (c *Config) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("top-n must not be negative, got %d", c.TopN)
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff >= 100 {
		return fmt.Errorf("intensity cutoff must be in [0, 100), got %g", c.IntensityCutoff)
	}
	for _, t := range c.IonTypes {
		switch strings.TrimSpace(t) {
		case "a", "b", "c", "x", "y", "z", TypePrecursor, TypeImmonium, TypeReporter:
		default:
			return fmt.Errorf("unknown ion type %q", t)
		}
	}
	return nil
}

// Apply applies the peak filters to a spectrum
func (c *Config) Apply(spec *core.Spectrum) error {
	if err := c.Validate(); err != nil {
		return err
	}

	RemoveZeroIntensityPeaks(spec)

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	// Apply top-N filter
	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	// Ensure peaks are sorted after all filtering
	spec.SortPeaks()

	return nil
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	base, ok := spec.BasePeak()
	if !ok {
		return
	}

	threshold := (c.IntensityCutoff / 100.0) * base.Intensity

	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}

	spec.Peaks = filtered
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	// Create a copy and sort by intensity descending
	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})

	// Keep only top N
	spec.Peaks = peaks[:c.TopN]
}

// IonSelector returns a predicate keeping the configured ion types, or nil
// when every type is wanted.
func (c *Config) IonSelector() func(ions.Ion) bool {
	if len(c.IonTypes) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(c.IonTypes))
	for _, t := range c.IonTypes {
		allowed[strings.TrimSpace(t)] = true
	}
	return func(ion ions.Ion) bool {
		return allowed[ionType(ion)]
	}
}

func ionType(ion ions.Ion) string {
	switch ion.Kind {
	case ions.KindFragment:
		return ion.Type.String()
	case ions.KindPrecursor:
		return TypePrecursor
	case ions.KindImmonium:
		return TypeImmonium
	case ions.KindReporter:
		return TypeReporter
	}
	return ""
}

// SelectIons keeps the ions of the configured types.
func (c *Config) SelectIons(in []ions.Ion) []ions.Ion {
	keep := c.IonSelector()
	if keep == nil {
		return in
	}
	var out []ions.Ion
	for _, ion := range in {
		if keep(ion) {
			out = append(out, ion)
		}
	}
	return out
}

// FilterAnnotatedPeaks keeps library peaks whose annotation parses to one
// of the configured ion types. Unannotated peaks are dropped.
func (c *Config) FilterAnnotatedPeaks(spec *core.Spectrum) {
	if len(c.IonTypes) == 0 {
		return
	}
	keep := c.IonSelector()

	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		a, err := ions.ParseAnnotation(peak.Annotation)
		if err != nil {
			continue
		}
		if keep(ions.Ion{Kind: a.Kind, Type: a.Type}) {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
