package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidComposition is returned when a formula string cannot be parsed.
var ErrInvalidComposition = errors.New("invalid composition")

// Composition is an elemental formula. Counts may be negative for losses.
type Composition struct {
	C  int
	H  int
	N  int
	O  int
	S  int
	P  int
	Se int
}

// Add returns the element-wise sum of two compositions.
func (c Composition) Add(o Composition) Composition {
	return Composition{
		C:  c.C + o.C,
		H:  c.H + o.H,
		N:  c.N + o.N,
		O:  c.O + o.O,
		S:  c.S + o.S,
		P:  c.P + o.P,
		Se: c.Se + o.Se,
	}
}

// Sub returns c minus o.
func (c Composition) Sub(o Composition) Composition {
	return c.Add(o.Scale(-1))
}

// Scale multiplies every count by n.
func (c Composition) Scale(n int) Composition {
	return Composition{C: c.C * n, H: c.H * n, N: c.N * n, O: c.O * n, S: c.S * n, P: c.P * n, Se: c.Se * n}
}

// IsZero reports whether the composition has no atoms.
func (c Composition) IsZero() bool {
	return c == Composition{}
}

// Mass returns the monoisotopic mass of the composition.
func (c Composition) Mass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS +
		float64(c.P)*MassP +
		float64(c.Se)*MassSe
}

// AverageMass returns the average mass of the composition.
func (c Composition) AverageMass() float64 {
	return float64(c.C)*AvgMassC +
		float64(c.H)*AvgMassH +
		float64(c.N)*AvgMassN +
		float64(c.O)*AvgMassO +
		float64(c.S)*AvgMassS +
		float64(c.P)*AvgMassP +
		float64(c.Se)*AvgMassSe
}

// String formats the composition in C, H, N, O, S, P, Se order.
// Negative counts are written in parentheses, e.g. "H(-2)O(-1)".
func (c Composition) String() string {
	var sb strings.Builder
	for _, e := range c.elements() {
		if e.count == 0 {
			continue
		}
		sb.WriteString(e.symbol)
		switch {
		case e.count < 0:
			fmt.Fprintf(&sb, "(%d)", e.count)
		case e.count > 1:
			sb.WriteString(strconv.Itoa(e.count))
		}
	}
	return sb.String()
}

type elementCount struct {
	symbol string
	count  int
}

func (c Composition) elements() []elementCount {
	return []elementCount{
		{"C", c.C}, {"H", c.H}, {"N", c.N}, {"O", c.O},
		{"S", c.S}, {"P", c.P}, {"Se", c.Se},
	}
}

func (c *Composition) field(symbol string) *int {
	switch symbol {
	case "C":
		return &c.C
	case "H":
		return &c.H
	case "N":
		return &c.N
	case "O":
		return &c.O
	case "S":
		return &c.S
	case "P":
		return &c.P
	case "Se":
		return &c.Se
	}
	return nil
}

// ParseComposition parses formulas such as "H3PO4", "C2H3NO" or "H(-2)O(-1)".
// An element may repeat; its counts are summed.
func ParseComposition(s string) (Composition, error) {
	var comp Composition
	s = strings.TrimSpace(s)
	if s == "" {
		return comp, fmt.Errorf("%w: empty formula", ErrInvalidComposition)
	}

	i := 0
	for i < len(s) {
		if s[i] < 'A' || s[i] > 'Z' {
			return Composition{}, fmt.Errorf("%w: unexpected %q at %d in %q", ErrInvalidComposition, s[i], i, s)
		}
		j := i + 1
		if j < len(s) && s[j] >= 'a' && s[j] <= 'z' {
			j++
		}
		symbol := s[i:j]
		dst := comp.field(symbol)
		if dst == nil {
			return Composition{}, fmt.Errorf("%w: unsupported element %q in %q", ErrInvalidComposition, symbol, s)
		}

		count := 1
		switch {
		case j < len(s) && s[j] == '(':
			end := strings.IndexByte(s[j:], ')')
			if end < 0 {
				return Composition{}, fmt.Errorf("%w: unclosed count in %q", ErrInvalidComposition, s)
			}
			n, err := strconv.Atoi(s[j+1 : j+end])
			if err != nil {
				return Composition{}, fmt.Errorf("%w: bad count %q in %q", ErrInvalidComposition, s[j+1:j+end], s)
			}
			count = n
			j += end + 1
		case j < len(s) && s[j] >= '0' && s[j] <= '9':
			k := j
			for k < len(s) && s[k] >= '0' && s[k] <= '9' {
				k++
			}
			count, _ = strconv.Atoi(s[j:k])
			j = k
		}

		*dst += count
		i = j
	}
	return comp, nil
}
