// Package core provides chemistry calculations for peptide mass calculations
package core

import (
	"fmt"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.0078250321
	MassC  = 12.0000000000
	MassN  = 14.0030740052
	MassO  = 15.9949146221
	MassS  = 31.9720706900
	MassP  = 30.9737615100
	MassSe = 79.9165218

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
)

// Atomic masses (average, isotope weighted)
const (
	AvgMassH  = 1.00794
	AvgMassC  = 12.0107
	AvgMassN  = 14.0067
	AvgMassO  = 15.9994
	AvgMassS  = 32.065
	AvgMassP  = 30.973762
	AvgMassSe = 78.96
)

// Small molecules used as fragment ion offsets
const (
	MassH2O = 2*MassH + MassO
	MassNH3 = MassN + 3*MassH
	MassCO  = MassC + MassO
	MassH2  = 2 * MassH
)

// CalculatePeptideMass computes monoisotopic mass of a peptide sequence
// including modification mass shifts, then returns the m/z for a given charge state.
func CalculatePeptideMass(sequence string, charge int, modMasses []float64) (float64, error) {
	if charge <= 0 {
		return 0, fmt.Errorf("charge must be positive, got %d", charge)
	}
	mass, err := CalculateNeutralMass(sequence, modMasses)
	if err != nil {
		return 0, err
	}
	return MZ(mass, charge), nil
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide
func CalculateNeutralMass(sequence string, modMasses []float64) (float64, error) {
	comp := Composition{H: 2, O: 1} // Add water

	for i := 0; i < len(sequence); i++ {
		aa, err := GetAminoAcid(sequence[i])
		if err != nil {
			return 0, fmt.Errorf("position %d: %w", i+1, err)
		}
		comp = comp.Add(aa.Composition)
	}

	mass := comp.Mass()

	// Add modification masses
	for _, m := range modMasses {
		mass += m
	}

	return mass, nil
}

// MZ converts a neutral mass to m/z: (mass + charge * proton) / charge
func MZ(mass float64, charge int) float64 {
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// NeutralMass converts an m/z at the given charge back to a neutral mass.
func NeutralMass(mz float64, charge int) float64 {
	return mz*float64(charge) - float64(charge)*ProtonMass
}

// PPM returns the relative deviation of observed from theoretical in parts per million.
func PPM(observed, theoretical float64) float64 {
	return (observed - theoretical) / theoretical * 1e6
}
