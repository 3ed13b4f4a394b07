// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/ChrisMcGann/FragKey/pkg/config"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const customModsCSV = "unimod_custom.csv"

var (
	configFile string
	modsCSV    string
)

var rootCmd = &cobra.Command{
	Use:   "fragkey",
	Short: "FragKey - peptide fragmentation and spectrum annotation tool",
	Long: `FragKey computes theoretical fragment ions for modified peptides and
matches them against spectral library spectra (MSP, SPTXT).

- Precursor and fragment masses (a, b, c, x, y, z, immonium, reporter ions)
- Neutral losses from modifications and configurable defaults
- Absolute (Da) or relative (ppm) matching tolerance
- Annotation results stored in SQLite`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML settings file")
	rootCmd.PersistentFlags().StringVar(&modsCSV, "mods-csv", customModsCSV, "Custom modification CSV (mod,massshift,aa), loaded when present")

	rootCmd.AddCommand(massCmd)
	rootCmd.AddCommand(fragmentCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(validateCmd)
}

// matchFlags are the matching settings shared by fragment and annotate.
// Values override the config file only when set on the command line.
type matchFlags struct {
	tolerance      float64
	ppm            bool
	charges        []int
	ionTypes       []string
	losses         []string
	ties           string
	intensityLimit float64
	topN           int
	cutoff         float64
	workers        int
}

func (m *matchFlags) register(fs *pflag.FlagSet) {
	d := config.Default()
	fs.Float64Var(&m.tolerance, "tolerance", d.Tolerance, "Fragment matching tolerance (Da, or ppm with --ppm)")
	fs.BoolVar(&m.ppm, "ppm", d.PPM, "Interpret --tolerance in ppm")
	fs.IntSliceVar(&m.charges, "charges", d.Charges, "Fragment charges to consider (capped at the precursor charge)")
	fs.StringSliceVar(&m.ionTypes, "ion-types", d.IonTypes, "Ion types: a,b,c,x,y,z,p (precursor),i (immonium),r (reporter)")
	fs.StringSliceVar(&m.losses, "losses", d.Losses, "Neutral losses tried on every fragment")
	fs.StringVar(&m.ties, "ties", d.Ties, "Peak choice within tolerance: most-accurate or most-intense")
	fs.Float64Var(&m.intensityLimit, "intensity-limit", d.IntensityLimit, "Ignore peaks below this % of the base peak when matching")
	fs.IntVar(&m.topN, "top-n", d.TopN, "Keep only top N most intense peaks (0 = no limit)")
	fs.Float64Var(&m.cutoff, "cutoff", d.IntensityCutoff, "Intensity cutoff as % of base peak (0 = no cutoff)")
	fs.IntVar(&m.workers, "workers", d.Workers, "Annotation workers (0 = one per CPU)")
}

// apply copies the flags the user set onto c.
func (m *matchFlags) apply(fs *pflag.FlagSet, c *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "tolerance":
			c.Tolerance = m.tolerance
		case "ppm":
			c.PPM = m.ppm
		case "charges":
			c.Charges = m.charges
		case "ion-types":
			c.IonTypes = m.ionTypes
		case "losses":
			c.Losses = m.losses
		case "ties":
			c.Ties = m.ties
		case "intensity-limit":
			c.IntensityLimit = m.intensityLimit
		case "top-n":
			c.TopN = m.topN
		case "cutoff":
			c.IntensityCutoff = m.cutoff
		case "workers":
			c.Workers = m.workers
		}
	})
}

// loadSettings reads the config file, applies flag overrides and builds
// the modification registry: defaults, then the custom CSV, then the
// config file's definitions.
func loadSettings(fs *pflag.FlagSet, flags *matchFlags) (*config.Config, *ptm.Registry, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, nil, err
		}
	}
	if flags != nil {
		flags.apply(fs, cfg)
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	reg := ptm.DefaultRegistry()
	if modsCSV != "" {
		if f, err := os.Open(modsCSV); err == nil {
			if err := reg.LoadFromCSV(f); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", modsCSV, err)
			}
			f.Close()
		} else if modsCSV != customModsCSV {
			return nil, nil, fmt.Errorf("failed to open modification CSV: %w", err)
		}
	}
	if err := cfg.Apply(reg); err != nil {
		return nil, nil, fmt.Errorf("config %s: %w", configFile, err)
	}
	return cfg, reg, nil
}

// parsePeptide builds a peptide from a sequence and a modification string
// such as "Phospho@S3;Oxidation@M5".
func parsePeptide(sequence, mods string, reg *ptm.Registry) (peptide.Peptide, error) {
	matches, err := peptide.ParseModifications(mods, sequence, reg)
	if err != nil {
		return peptide.Peptide{}, err
	}
	return peptide.New(sequence, matches...)
}

// reportMisses prints the modification and neutral loss names that
// resolved to nothing during the run.
func reportMisses(reg *ptm.Registry) {
	misses := reg.Misses()
	if len(misses) == 0 {
		return
	}
	keys := make([]string, 0, len(misses))
	for k := range misses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(os.Stderr, "Warning: %d unknown names were treated as zero mass:\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(os.Stderr, "  %s (%d lookups)\n", k, misses[k])
	}
}
