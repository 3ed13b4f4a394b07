package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/spf13/cobra"
)

var (
	fragmentMods   string
	fragmentCharge int
	fragmentFlags  matchFlags
)

var fragmentCmd = &cobra.Command{
	Use:   "fragment SEQUENCE",
	Short: "List the theoretical ions of a peptide",
	Long: `List the theoretical ions of a peptide with their m/z. Fragments are
listed at every --charges value up to the precursor charge, the precursor at
its own charge, immonium and reporter ions at charge 1.

Examples:
  fragkey fragment PEPTIDE
  fragkey fragment PEPSTIDE --mods "Phospho@S4" --charge 3 --ion-types b,y,p`,
	Args: cobra.ExactArgs(1),
	RunE: runFragment,
}

func init() {
	fragmentCmd.Flags().StringVar(&fragmentMods, "mods", "", "Modifications, e.g. 'Phospho@S3;Oxidation@M5'")
	fragmentCmd.Flags().IntVar(&fragmentCharge, "charge", 2, "Precursor charge")
	fragmentFlags.register(fragmentCmd.Flags())
}

func runFragment(cmd *cobra.Command, args []string) error {
	if fragmentCharge < 1 {
		return fmt.Errorf("charge must be positive, got %d", fragmentCharge)
	}
	cfg, reg, err := loadSettings(cmd.Flags(), &fragmentFlags)
	if err != nil {
		return err
	}
	defer reportMisses(reg)

	p, err := parsePeptide(args[0], fragmentMods, reg)
	if err != nil {
		return err
	}
	annotator, err := cfg.Annotator(reg)
	if err != nil {
		return err
	}

	// No peaks: every match is absent and carries the theoretical m/z.
	matches, err := annotator.Annotate(p, &core.Spectrum{Charge: fragmentCharge})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Ion\tKind\tCharge\tm/z")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.6f\n", m.Annotation(), m.Ion.Kind, m.Charge, m.TheoreticalMZ)
	}
	return tw.Flush()
}
