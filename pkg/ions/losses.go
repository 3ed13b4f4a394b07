package ions

import (
	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/ptm"
)

// MaxLossesPerIon bounds how many neutral losses a single ion may carry.
const MaxLossesPerIon = 2

// NeutralLossCombinations returns the empty combination followed by every
// single loss and every unordered pair of distinct losses, in candidate
// order. Losses that are the same entity are never paired and appear once.
func NeutralLossCombinations(candidates []core.NeutralLoss) [][]core.NeutralLoss {
	combos := [][]core.NeutralLoss{{}}

	for i, l1 := range candidates {
		if !containsCombination(combos, l1) {
			combos = append(combos, []core.NeutralLoss{l1})
		}
		for _, l2 := range candidates[i+1:] {
			if l1.IsSameAs(l2) {
				continue
			}
			if containsCombination(combos, l1, l2) || containsCombination(combos, l2, l1) {
				continue
			}
			combos = append(combos, []core.NeutralLoss{l1, l2})
		}
	}
	return combos
}

func containsCombination(combos [][]core.NeutralLoss, losses ...core.NeutralLoss) bool {
	for _, c := range combos {
		if len(c) != len(losses) {
			continue
		}
		same := true
		for k := range c {
			if !c[k].IsSameAs(losses[k]) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// PossibleLosses is the union of the default losses and the losses of each
// modification, deduplicated with IsSameAs. First occurrence wins.
func PossibleLosses(defaults []core.NeutralLoss, mods []ptm.Modification) []core.NeutralLoss {
	var out []core.NeutralLoss
	add := func(l core.NeutralLoss) {
		for _, have := range out {
			if have.IsSameAs(l) {
				return
			}
		}
		out = append(out, l)
	}
	for _, l := range defaults {
		add(l)
	}
	for _, m := range mods {
		for _, l := range m.NeutralLosses {
			add(l)
		}
	}
	return out
}
