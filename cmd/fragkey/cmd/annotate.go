package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/filter"
	"github.com/ChrisMcGann/FragKey/pkg/ions"
	"github.com/ChrisMcGann/FragKey/pkg/library"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	"github.com/ChrisMcGann/FragKey/pkg/reader"
	"github.com/ChrisMcGann/FragKey/pkg/report"
	"github.com/ChrisMcGann/FragKey/pkg/writer/sqlite"
	"github.com/spf13/cobra"
)

var (
	inputFile     string
	inputFormat   string
	outputFile    string
	annotatedOnly bool
	annotateFlags matchFlags
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate library spectra with their theoretical ions",
	Long: `Match every spectrum of an MSP or SPTXT library against the theoretical
ions of its own peptide and store the matches in a SQLite database.

Examples:
  # Annotate with default settings (0.02 Da, charges 1-2)
  fragkey annotate --in library.msp --out annotations.db

  # 10 ppm, b/y ions only, top 150 peaks
  fragkey annotate --in library.sptxt --out annotations.db --tolerance 10 --ppm --ion-types b,y --top-n 150`,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input library path (required)")
	annotateCmd.Flags().StringVarP(&inputFormat, "from", "f", "", "Input format: msp or sptxt (auto-detect if not specified)")
	annotateCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output database file (required)")
	annotateCmd.Flags().BoolVar(&annotatedOnly, "annotated-only", false, "Keep only library peaks annotated with a selected ion type before matching")
	annotateFlags.register(annotateCmd.Flags())

	annotateCmd.MarkFlagRequired("in")
	annotateCmd.MarkFlagRequired("out")
}

// openLibrary opens path as a library of the given format, detecting the
// format from the extension when it is empty.
func openLibrary(path, format string, reg *ptm.Registry) (library.Reader, *os.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("input file does not exist: %s", path)
	}
	if format == "" {
		var err error
		if format, err = reader.DetectFormat(path); err != nil {
			return nil, nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	r, err := reader.Open(f, format, reg)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, f, nil
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadSettings(cmd.Flags(), &annotateFlags)
	if err != nil {
		return err
	}
	defer reportMisses(reg)

	annotator, err := cfg.Annotator(reg)
	if err != nil {
		return err
	}
	filterConfig := cfg.Filter()

	lib, inFile, err := openLibrary(inputFile, inputFormat, reg)
	if err != nil {
		return err
	}
	defer inFile.Close()

	writer, err := sqlite.NewWriter(outputFile, reg)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()
	writer.SetDescription(fmt.Sprintf("%s annotated at %s", filepath.Base(inputFile), cfg.Matcher().Tolerance))

	fmt.Printf("Annotating %s to %s...\n", inputFile, outputFile)
	fmt.Printf("Tolerance: %s, charges %v, ties %s\n", cfg.Matcher().Tolerance, cfg.Charges, cfg.Ties)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	skipped := 0
	jobs := make(chan ions.Job)
	go func() {
		defer close(jobs)
		index := 0
		for lib.Next() {
			e := lib.Entry()
			if annotatedOnly {
				filterConfig.FilterAnnotatedPeaks(e.Spectrum)
			}
			if err := prepareSpectrum(&filterConfig, e.Spectrum); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: invalid spectrum %s: %v\n", e.Name(), err)
				skipped++
				continue
			}
			e.Spectrum.SourceFile = filepath.Base(inputFile)
			select {
			case jobs <- ions.Job{Index: index, Peptide: e.Peptide, Spectrum: e.Spectrum}:
				index++
			case <-ctx.Done():
				return
			}
		}
	}()

	collector := report.NewCollector()
	count := 0
	var writeErr error
	for res := range ions.AnnotateBatch(ctx, annotator, jobs, cfg.Workers) {
		if writeErr != nil {
			continue
		}
		entry := &library.Entry{Spectrum: res.Job.Spectrum, Peptide: res.Job.Peptide}
		if res.Err != nil {
			var fe *ions.FragmentationError
			if errors.As(res.Err, &fe) {
				fmt.Fprintf(os.Stderr, "Warning: cannot fragment %s: %v\n", entry.Name(), fe.Err)
			} else {
				fmt.Fprintf(os.Stderr, "Warning: failed to annotate %s: %v\n", entry.Name(), res.Err)
			}
			collector.AddFailure()
			continue
		}
		if err := writer.WriteAnnotation(entry, res.Matches); err != nil {
			writeErr = fmt.Errorf("failed to write spectrum %s: %w", entry.Name(), err)
			stop()
			continue
		}
		collector.Add(res.Matches)

		count++
		if count%1000 == 0 {
			fmt.Printf("Processed %d spectra...\n", count)
		}
	}
	if writeErr != nil {
		return writeErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("annotation interrupted after %d spectra: %w", count, err)
	}
	if err := lib.Err(); err != nil {
		return fmt.Errorf("error reading input file: %w", err)
	}

	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	fmt.Printf("\nAnnotation complete!\n")
	if skipped > 0 {
		fmt.Printf("Skipped: %d spectra (validation errors)\n", skipped)
	}
	if err := collector.Summary().Write(os.Stdout); err != nil {
		return err
	}
	fmt.Printf("Output: %s\n", outputFile)
	return nil
}

// prepareSpectrum applies the peak filters and validates the result.
func prepareSpectrum(fc *filter.Config, spec *core.Spectrum) error {
	if err := fc.Apply(spec); err != nil {
		return err
	}
	return spec.Validate()
}
