// Package ions generates theoretical fragment ions for peptides and matches
// them against observed spectra.
package ions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/FragKey/pkg/core"
)

// Kind is the ion family.
type Kind int

const (
	KindFragment Kind = iota
	KindPrecursor
	KindImmonium
	KindReporter
)

func (k Kind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindPrecursor:
		return "precursor"
	case KindImmonium:
		return "immonium"
	case KindReporter:
		return "reporter"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FragmentType is the series of a peptide fragment ion.
type FragmentType byte

const (
	TypeA FragmentType = 'a'
	TypeB FragmentType = 'b'
	TypeC FragmentType = 'c'
	TypeX FragmentType = 'x'
	TypeY FragmentType = 'y'
	TypeZ FragmentType = 'z'
)

// IsForward reports whether the series carries the N-terminus.
func (t FragmentType) IsForward() bool {
	return t == TypeA || t == TypeB || t == TypeC
}

func (t FragmentType) String() string { return string(t) }

// Ion is a theoretical ion. Kind selects which fields are meaningful:
// fragments use Type, Number and Losses; precursors use Losses; immonium
// ions use Residue; reporter ions use Name. Mass is neutral.
type Ion struct {
	Kind    Kind
	Type    FragmentType
	Number  int
	Residue byte
	Name    string
	Mass    float64
	// Losses is shared between ions of one fragmentation and must not be modified.
	Losses []core.NeutralLoss
}

// MZ returns the ion m/z at charge.
func (i Ion) MZ(charge int) float64 {
	return core.MZ(i.Mass, charge)
}

// Label names the ion without charge or losses: "b2", "p", "iK", "TMT_126".
func (i Ion) Label() string {
	switch i.Kind {
	case KindFragment:
		return fmt.Sprintf("%c%d", i.Type, i.Number)
	case KindPrecursor:
		return "p"
	case KindImmonium:
		return "i" + string(i.Residue)
	case KindReporter:
		return i.Name
	}
	return "?"
}

// Annotation formats the ion at a charge, e.g. "b2", "y3^2", "y5^2-NH3-H3PO4".
func (i Ion) Annotation(charge int) string {
	var sb strings.Builder
	sb.WriteString(i.Label())
	if charge > 1 {
		sb.WriteByte('^')
		sb.WriteString(strconv.Itoa(charge))
	}
	for _, l := range i.Losses {
		sb.WriteByte('-')
		sb.WriteString(l.Name)
	}
	return sb.String()
}

// Key identifies an ion by kind, series, number and loss combination.
func (i Ion) Key() string {
	return i.Kind.String() + ":" + i.Annotation(1)
}

// Annotation is a parsed annotation string.
type Annotation struct {
	Kind    Kind
	Type    FragmentType
	Number  int
	Residue byte
	Name    string
	Charge  int
	Losses  []string
}

var (
	fragmentAnnotation = regexp.MustCompile(`^([abcxyz])(\d+)$`)
	immoniumAnnotation = regexp.MustCompile(`^i([A-Z])$`)
)

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ParseAnnotation reads an annotation produced by Ion.Annotation. Labels
// matching no other family are taken as reporter ion names.
func ParseAnnotation(s string) (Annotation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Annotation{}, fmt.Errorf("empty annotation")
	}

	parts := strings.Split(s, "-")
	head := parts[0]
	a := Annotation{Charge: 1}
	if len(parts) > 1 {
		a.Losses = parts[1:]
		for _, l := range a.Losses {
			if l == "" {
				return Annotation{}, fmt.Errorf("invalid annotation %q: empty loss", s)
			}
		}
	}

	if idx := strings.IndexByte(head, '^'); idx >= 0 {
		charge, err := strconv.Atoi(head[idx+1:])
		if err != nil || charge < 1 {
			return Annotation{}, fmt.Errorf("invalid annotation %q: bad charge", s)
		}
		a.Charge = charge
		head = head[:idx]
	}

	switch {
	case head == "p":
		a.Kind = KindPrecursor
	case fragmentAnnotation.MatchString(head):
		m := fragmentAnnotation.FindStringSubmatch(head)
		a.Kind = KindFragment
		a.Type = FragmentType(m[1][0])
		a.Number, _ = strconv.Atoi(m[2])
	case immoniumAnnotation.MatchString(head):
		a.Kind = KindImmonium
		a.Residue = head[1]
	case head != "" && isLetter(head[0]):
		a.Kind = KindReporter
		a.Name = head
	default:
		return Annotation{}, fmt.Errorf("invalid annotation %q", s)
	}
	return a, nil
}
