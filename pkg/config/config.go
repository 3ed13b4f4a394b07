// Package config loads annotation settings from YAML and registers
// user-defined modifications and neutral losses.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/filter"
	"github.com/ChrisMcGann/FragKey/pkg/ions"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
	"gopkg.in/yaml.v3"
)

// Config holds matching and preprocessing settings.
type Config struct {
	Tolerance float64  `yaml:"tolerance"`
	PPM       bool     `yaml:"ppm"`
	Charges   []int    `yaml:"charges"`
	IonTypes  []string `yaml:"ion_types"`
	// Losses names the neutral losses tried on every fragment.
	Losses []string `yaml:"losses"`
	Ties   string   `yaml:"ties"`
	// IntensityLimit is a percentage of the base peak below which peaks
	// are ignored by the matcher.
	IntensityLimit  float64 `yaml:"intensity_limit"`
	TopN            int     `yaml:"top_n"`
	IntensityCutoff float64 `yaml:"intensity_cutoff"`
	Workers         int     `yaml:"workers"`

	NeutralLosses []NeutralLoss  `yaml:"neutral_losses"`
	Modifications []Modification `yaml:"modifications"`
}

// NeutralLoss defines a loss by formula, or by mass when no formula is known.
type NeutralLoss struct {
	Name    string  `yaml:"name"`
	Formula string  `yaml:"formula"`
	Mass    float64 `yaml:"mass"`
	Fixed   bool    `yaml:"fixed"`
}

// Modification defines a user modification. Mass is taken from Formula
// when Mass is not given.
type Modification struct {
	Name          string   `yaml:"name"`
	ShortName     string   `yaml:"short_name"`
	Type          string   `yaml:"type"`
	Mass          *float64 `yaml:"mass"`
	Formula       string   `yaml:"formula"`
	Residues      string   `yaml:"residues"`
	NeutralLosses []string `yaml:"neutral_losses"`
	ReporterIons  []string `yaml:"reporter_ions"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Tolerance: 0.02,
		Charges:   []int{1, 2},
		IonTypes:  []string{"a", "b", "c", "x", "y", "z", "p", "i", "r"},
		Losses:    []string{core.LossH2O.Name, core.LossNH3.Name},
		Ties:      ions.MostAccurate.String(),
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings that do not need a registry.
func (c *Config) Validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	for _, z := range c.Charges {
		if z < 1 {
			return fmt.Errorf("fragment charge must be positive, got %d", z)
		}
	}
	if _, err := ions.ParseTiesResolution(c.Ties); err != nil {
		return err
	}
	if c.IntensityLimit < 0 || c.IntensityLimit >= 100 {
		return fmt.Errorf("intensity limit must be in [0, 100), got %g", c.IntensityLimit)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	f := c.Filter()
	return f.Validate()
}

// Filter returns the peak preprocessing settings.
func (c *Config) Filter() filter.Config {
	return filter.Config{
		TopN:            c.TopN,
		IntensityCutoff: c.IntensityCutoff,
		IonTypes:        c.IonTypes,
	}
}

// Matcher returns the ion matcher described by c.
func (c *Config) Matcher() ions.Matcher {
	ties, _ := ions.ParseTiesResolution(c.Ties)
	return ions.Matcher{
		Tolerance: ions.Tolerance{Value: c.Tolerance, PPM: c.PPM},
		Ties:      ties,
	}
}

// Annotator builds an annotator using reg for modification lookups. Apply
// must have been called on reg first so configured losses resolve.
func (c *Config) Annotator(reg *ptm.Registry) (*ions.Annotator, error) {
	losses, err := c.DefaultLosses(reg)
	if err != nil {
		return nil, err
	}
	f := c.Filter()
	return &ions.Annotator{
		Factory:        ions.NewFactory(reg, ions.WithDefaultLosses(losses...)),
		Matcher:        c.Matcher(),
		Charges:        c.Charges,
		Select:         f.IonSelector(),
		IntensityLimit: c.IntensityLimit / 100,
	}, nil
}

// DefaultLosses resolves Losses against reg.
func (c *Config) DefaultLosses(reg *ptm.Registry) ([]core.NeutralLoss, error) {
	out := make([]core.NeutralLoss, 0, len(c.Losses))
	for _, name := range c.Losses {
		l, ok := reg.LookupNeutralLoss(name)
		if !ok {
			return nil, fmt.Errorf("unknown neutral loss %q", name)
		}
		out = append(out, l)
	}
	return out, nil
}

// Apply registers the configured neutral losses and modifications.
// Modifications replace registered ones of the same name.
func (c *Config) Apply(reg *ptm.Registry) error {
	for _, nl := range c.NeutralLosses {
		l, err := nl.build()
		if err != nil {
			return err
		}
		if err := reg.AddNeutralLoss(l); err != nil {
			return err
		}
	}

	for _, m := range c.Modifications {
		mod, err := m.build(reg)
		if err != nil {
			return err
		}
		if err := reg.Put(mod); err != nil {
			return fmt.Errorf("modification %s: %w", m.Name, err)
		}
	}
	return nil
}

func (nl NeutralLoss) build() (core.NeutralLoss, error) {
	if strings.TrimSpace(nl.Name) == "" {
		return core.NeutralLoss{}, fmt.Errorf("neutral loss name is required")
	}
	l := core.NeutralLoss{Name: nl.Name, LegacyMass: nl.Mass, Fixed: nl.Fixed}
	if nl.Formula != "" {
		comp, err := core.ParseComposition(nl.Formula)
		if err != nil {
			return core.NeutralLoss{}, fmt.Errorf("neutral loss %s: %w", nl.Name, err)
		}
		l.Composition = comp
	}
	if !l.HasComposition() && l.LegacyMass == 0 {
		return core.NeutralLoss{}, fmt.Errorf("neutral loss %s needs a formula or a mass", nl.Name)
	}
	return l, nil
}

func (m Modification) build(reg *ptm.Registry) (ptm.Modification, error) {
	mod := ptm.Modification{
		Name:      m.Name,
		ShortName: m.ShortName,
		Residues:  strings.ToUpper(m.Residues),
	}

	if m.Type != "" {
		t, err := ptm.ParseModificationType(m.Type)
		if err != nil {
			return mod, fmt.Errorf("modification %s: %w", m.Name, err)
		}
		mod.Type = t
	}

	if m.Formula != "" {
		comp, err := core.ParseComposition(m.Formula)
		if err != nil {
			return mod, fmt.Errorf("modification %s: %w", m.Name, err)
		}
		mod.Composition = comp
		mod.Mass = comp.Mass()
	}
	switch {
	case m.Mass != nil:
		mod.Mass = *m.Mass
	case m.Formula == "":
		return mod, fmt.Errorf("modification %s needs a mass or a formula", m.Name)
	}

	for _, name := range m.NeutralLosses {
		l, ok := reg.LookupNeutralLoss(name)
		if !ok {
			return mod, fmt.Errorf("modification %s: unknown neutral loss %q", m.Name, name)
		}
		mod.NeutralLosses = append(mod.NeutralLosses, l)
	}
	for _, name := range m.ReporterIons {
		r, ok := core.GetReporterIon(name)
		if !ok {
			return mod, fmt.Errorf("modification %s: unknown reporter ion %q", m.Name, name)
		}
		mod.ReporterIons = append(mod.ReporterIons, r)
	}
	return mod, nil
}
