package core

// NeutralLoss is an uncharged group that may leave a fragment ion.
// Mass comes from Composition when it is set, else from LegacyMass.
type NeutralLoss struct {
	Name        string
	Composition Composition
	LegacyMass  float64
	// Fixed marks a loss that always accompanies its modification.
	Fixed bool
}

// Common neutral losses
var (
	LossH2O   = NeutralLoss{Name: "H2O", Composition: Composition{H: 2, O: 1}}
	LossNH3   = NeutralLoss{Name: "NH3", Composition: Composition{N: 1, H: 3}}
	LossH3PO4 = NeutralLoss{Name: "H3PO4", Composition: Composition{H: 3, P: 1, O: 4}}
	LossHPO3  = NeutralLoss{Name: "HPO3", Composition: Composition{H: 1, P: 1, O: 3}}
	LossCH4OS = NeutralLoss{Name: "CH4OS", Composition: Composition{C: 1, H: 4, O: 1, S: 1}}
	LossC3H9N = NeutralLoss{Name: "C3H9N", Composition: Composition{C: 3, H: 9, N: 1}}
)

// HasComposition reports whether the loss carries an elemental formula.
func (l NeutralLoss) HasComposition() bool {
	return !l.Composition.IsZero()
}

// Mass returns the monoisotopic mass of the loss.
func (l NeutralLoss) Mass() float64 {
	if l.HasComposition() {
		return l.Composition.Mass()
	}
	return l.LegacyMass
}

// IsSameAs reports whether two losses are the same chemical entity: same
// name and same composition, or same name and legacy mass when neither
// has a composition.
func (l NeutralLoss) IsSameAs(o NeutralLoss) bool {
	if l.Name != o.Name {
		return false
	}
	if l.HasComposition() != o.HasComposition() {
		return false
	}
	if l.HasComposition() {
		return l.Composition == o.Composition
	}
	return l.LegacyMass == o.LegacyMass
}

// LossesMass sums the masses of a loss combination.
func LossesMass(losses []NeutralLoss) float64 {
	var total float64
	for _, l := range losses {
		total += l.Mass()
	}
	return total
}
