package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	massMods   string
	massCharge int
)

var massCmd = &cobra.Command{
	Use:   "mass SEQUENCE",
	Short: "Print the neutral mass and m/z of a peptide",
	Long: `Print the monoisotopic neutral mass of a peptide and its m/z at one or
more charges.

Examples:
  fragkey mass PEPTIDE
  fragkey mass PEPSTIDE --mods "Phospho@S4;Acetyl@n" --charge 2`,
	Args: cobra.ExactArgs(1),
	RunE: runMass,
}

func init() {
	massCmd.Flags().StringVar(&massMods, "mods", "", "Modifications, e.g. 'Phospho@S3;Oxidation@M5' or '79.966@3'")
	massCmd.Flags().IntVar(&massCharge, "charge", 0, "Charge state (0 = charges 1 to 4)")
}

func runMass(cmd *cobra.Command, args []string) error {
	_, reg, err := loadSettings(cmd.Flags(), nil)
	if err != nil {
		return err
	}
	defer reportMisses(reg)

	p, err := parsePeptide(args[0], massMods, reg)
	if err != nil {
		return err
	}
	mass, err := p.Mass(reg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Peptide: %s\n", p.ModifiedSequence())
	if p.IsModified() {
		fmt.Fprintf(out, "Modifications: %s\n", p.ModString(reg))
	}
	fmt.Fprintf(out, "Neutral mass: %.6f\n", mass)

	charges := []int{1, 2, 3, 4}
	if massCharge > 0 {
		charges = []int{massCharge}
	}
	for _, z := range charges {
		mz, err := p.MZ(reg, z)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "[M+%dH]%d+: %.6f\n", z, z, mz)
	}
	return nil
}
