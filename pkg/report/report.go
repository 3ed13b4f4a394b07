// Package report summarizes ion matches across annotated spectra.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/ChrisMcGann/FragKey/pkg/ions"
	"gonum.org/v1/gonum/stat"
)

// Coverage is the fraction of theoretical ions that matched a peak.
func Coverage(matches []ions.IonMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	return float64(len(ions.Found(matches))) / float64(len(matches))
}

// Collector accumulates matches from many spectra. It is not safe for
// concurrent use.
type Collector struct {
	spectra     int
	failed      int
	theoretical int
	coverages   []float64
	errorsPPM   []float64
	byLabel     map[string]*SeriesCount
}

// SeriesCount counts theoretical and matched ions of one series.
type SeriesCount struct {
	Theoretical int
	Matched     int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{byLabel: make(map[string]*SeriesCount)}
}

// Add records the matches of one spectrum.
func (c *Collector) Add(matches []ions.IonMatch) {
	c.spectra++
	c.theoretical += len(matches)
	c.coverages = append(c.coverages, Coverage(matches))
	for _, m := range matches {
		label := series(m.Ion)
		sc, ok := c.byLabel[label]
		if !ok {
			sc = &SeriesCount{}
			c.byLabel[label] = sc
		}
		sc.Theoretical++
		if m.Found() {
			sc.Matched++
			c.errorsPPM = append(c.errorsPPM, m.ErrorPPM())
		}
	}
}

// AddFailure records a spectrum that could not be annotated.
func (c *Collector) AddFailure() {
	c.failed++
}

func series(ion ions.Ion) string {
	if ion.Kind == ions.KindFragment {
		return ion.Type.String()
	}
	return ion.Kind.String()
}

// Summary is the aggregate over every spectrum added.
type Summary struct {
	Spectra     int
	Failed      int
	Theoretical int
	Matched     int
	Coverage    float64
	// SpectrumCoverage is the mean of the per-spectrum coverages.
	SpectrumCoverage float64
	// Mass errors of matched ions, in ppm.
	MeanPPM   float64
	StdDevPPM float64
	MedianPPM float64
	// P95AbsPPM is the 95th percentile of the absolute error.
	P95AbsPPM float64
	Series    map[string]SeriesCount
}

// Summary computes the statistics. Error statistics are NaN when fewer
// than the required number of matches exist.
func (c *Collector) Summary() Summary {
	s := Summary{
		Spectra:     c.spectra,
		Failed:      c.failed,
		Theoretical: c.theoretical,
		Matched:     len(c.errorsPPM),
		MeanPPM:     math.NaN(),
		StdDevPPM:   math.NaN(),
		MedianPPM:   math.NaN(),
		P95AbsPPM:   math.NaN(),
		Series:      make(map[string]SeriesCount, len(c.byLabel)),
	}
	if s.Theoretical > 0 {
		s.Coverage = float64(s.Matched) / float64(s.Theoretical)
	}
	if len(c.coverages) > 0 {
		s.SpectrumCoverage = stat.Mean(c.coverages, nil)
	}
	for k, v := range c.byLabel {
		s.Series[k] = *v
	}

	n := len(c.errorsPPM)
	if n == 0 {
		return s
	}
	s.MeanPPM = stat.Mean(c.errorsPPM, nil)
	if n > 1 {
		s.StdDevPPM = stat.StdDev(c.errorsPPM, nil)
	}

	sorted := append([]float64(nil), c.errorsPPM...)
	sort.Float64s(sorted)
	s.MedianPPM = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	abs := make([]float64, n)
	for i, e := range c.errorsPPM {
		abs[i] = math.Abs(e)
	}
	sort.Float64s(abs)
	s.P95AbsPPM = stat.Quantile(0.95, stat.Empirical, abs, nil)
	return s
}

// Write prints the summary as plain text.
func (s Summary) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Spectra: %d (%d failed)\n", s.Spectra, s.Failed); err != nil {
		return err
	}
	fmt.Fprintf(w, "Matched ions: %d of %d (%.1f%%)\n", s.Matched, s.Theoretical, 100*s.Coverage)
	fmt.Fprintf(w, "Mean spectrum coverage: %.1f%%\n", 100*s.SpectrumCoverage)
	if s.Matched > 0 {
		fmt.Fprintf(w, "Mass error (ppm): mean %.3f, sd %.3f, median %.3f, 95%% |err| %.3f\n",
			s.MeanPPM, s.StdDevPPM, s.MedianPPM, s.P95AbsPPM)
	}

	labels := make([]string, 0, len(s.Series))
	for k := range s.Series {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	for _, k := range labels {
		sc := s.Series[k]
		if _, err := fmt.Fprintf(w, "  %-10s %6d / %6d\n", k, sc.Matched, sc.Theoretical); err != nil {
			return err
		}
	}
	return nil
}
