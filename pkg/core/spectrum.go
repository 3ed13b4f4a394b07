package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Spectrum is an observed fragment spectrum with acquisition metadata.
type Spectrum struct {
	Title       string
	Charge      int     // Precursor charge state
	PrecursorMZ float64 // Precursor m/z
	Peaks       []Peak  // Fragment peaks, ascending m/z

	// Optional metadata
	FragmentationMode string   // HCD, CID, etc.
	MassAnalyzer      string   // FT, IT, etc.
	RetentionTime     *float64 // RT or iRT
	CollisionEnergy   *float64 // Normalized collision energy
	Instrument        string

	SourceFile   string
	SourceFormat string // msp, sptxt
}

// Peak represents a single m/z, intensity pair with optional metadata.
type Peak struct {
	MZ         float64
	Intensity  float64
	Annotation string // Ion annotation (e.g., "y3", "b2^2")
	Charge     int    // Fragment charge (if available)
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum can be annotated.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.Charge <= 0 {
		errs = append(errs, "charge must be positive")
	}
	if s.PrecursorMZ <= 0 {
		errs = append(errs, "precursor m/z must be positive")
	}
	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	return sort.SliceIsSorted(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// BasePeak returns the most intense peak, or false for an empty spectrum.
func (s *Spectrum) BasePeak() (Peak, bool) {
	if len(s.Peaks) == 0 {
		return Peak{}, false
	}
	best := s.Peaks[0]
	for _, p := range s.Peaks[1:] {
		if p.Intensity > best.Intensity {
			best = p
		}
	}
	return best, true
}

// Name returns the spectrum title, falling back to "precursor/charge".
func (s *Spectrum) Name() string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("%.4f/%d", s.PrecursorMZ, s.Charge)
}

// PeaksFromMap builds an ascending peak list from an m/z to intensity map.
func PeaksFromMap(m map[float64]float64) []Peak {
	peaks := make([]Peak, 0, len(m))
	for mz, intensity := range m {
		peaks = append(peaks, Peak{MZ: mz, Intensity: intensity})
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].MZ < peaks[j].MZ })
	return peaks
}
