package cmd

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/FragKey/pkg/ions"
	"github.com/spf13/cobra"
)

var validateFormat string

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate library entries",
	Long: `Read a spectral library and report entries whose spectrum is invalid or
whose peptide cannot be fragmented (ambiguous or unknown residues).
Exits non-zero when any entry fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "from", "f", "", "Input format: msp or sptxt (auto-detect if not specified)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, reg, err := loadSettings(cmd.Flags(), nil)
	if err != nil {
		return err
	}
	defer reportMisses(reg)

	lib, inFile, err := openLibrary(args[0], validateFormat, reg)
	if err != nil {
		return err
	}
	defer inFile.Close()

	factory := ions.NewFactory(reg)
	count, failed := 0, 0
	for lib.Next() {
		e := lib.Entry()
		count++

		if err := e.Spectrum.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid spectrum %s: %v\n", e.Name(), err)
			failed++
			continue
		}
		if _, err := factory.FragmentIons(e.Peptide); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			failed++
			continue
		}

		if count%1000 == 0 {
			fmt.Printf("Checked %d entries...\n", count)
		}
	}
	if err := lib.Err(); err != nil {
		return fmt.Errorf("error reading input file after %d entries: %w", count, err)
	}

	fmt.Printf("Entries: %d, valid: %d, failed: %d\n", count, count-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d entries failed validation", failed, count)
	}
	return nil
}
