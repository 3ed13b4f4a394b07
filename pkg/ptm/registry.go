package ptm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/ChrisMcGann/FragKey/pkg/core"
)

var (
	// ErrDuplicateModification is returned by Add for a name already registered.
	ErrDuplicateModification = errors.New("duplicate modification")
	// ErrDuplicateNeutralLoss is returned by AddNeutralLoss for a name already registered.
	ErrDuplicateNeutralLoss = errors.New("duplicate neutral loss")
)

// Lookup resolves modification names. Get never fails: a miss yields Unknown.
type Lookup interface {
	Get(name string) Modification
}

// Registry stores modification and neutral loss definitions keyed by name.
// Reads are safe for concurrent use. Writes are serialized by the registry
// but callers should finish populating it before fragmenting in parallel.
type Registry struct {
	mu     sync.RWMutex
	mods   map[string]Modification
	order  []string
	losses map[string]core.NeutralLoss

	missMu sync.Mutex
	misses map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		mods:   make(map[string]Modification),
		losses: make(map[string]core.NeutralLoss),
		misses: make(map[string]int),
	}
}

// Add registers a new modification. Names must be unique.
func (r *Registry) Add(m Modification) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("modification name is required")
	}
	if m.Name == UnknownName {
		return fmt.Errorf("%q is reserved", UnknownName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mods[m.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModification, m.Name)
	}
	r.put(m)
	return nil
}

// Put adds or replaces a modification.
func (r *Registry) Put(m Modification) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("modification name is required")
	}
	if m.Name == UnknownName {
		return fmt.Errorf("%q is reserved", UnknownName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(m)
	return nil
}

func (r *Registry) put(m Modification) {
	if m.ShortName == "" {
		m.ShortName = m.Name
	}
	if _, ok := r.mods[m.Name]; !ok {
		r.order = append(r.order, m.Name)
	}
	r.mods[m.Name] = m
}

// Lookup returns the modification registered under name.
func (r *Registry) Lookup(name string) (Modification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mods[name]
	return m, ok
}

// Get returns the modification registered under name, or Unknown.
// Each missing name is logged once and counted on every miss.
func (r *Registry) Get(name string) Modification {
	if m, ok := r.Lookup(name); ok {
		return m
	}
	r.recordMiss("modification", name)
	return Unknown
}

func (r *Registry) recordMiss(kind, name string) {
	r.missMu.Lock()
	defer r.missMu.Unlock()
	key := kind + ":" + name
	if r.misses[key] == 0 {
		log.Printf("WARNING: unknown %s %q, using zero mass", kind, name)
	}
	r.misses[key]++
}

// Misses returns how often each unknown name was requested, keyed by
// "modification:<name>" or "neutral-loss:<name>".
func (r *Registry) Misses() map[string]int {
	r.missMu.Lock()
	defer r.missMu.Unlock()
	out := make(map[string]int, len(r.misses))
	for k, v := range r.misses {
		out[k] = v
	}
	return out
}

// Names returns registered modification names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered modifications.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mods)
}

// FindByMass returns the registered modification whose mass is closest to
// delta within tol Da and that may sit on residue. A zero residue matches
// only terminal modifications and residue-agnostic ones. Registration order
// breaks ties.
func (r *Registry) FindByMass(delta float64, residue byte, tol float64) (Modification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Modification
	bestErr := math.Inf(1)
	for _, name := range r.order {
		m := r.mods[name]
		if residue == 0 {
			if !m.Type.IsNTerm() && !m.Type.IsCTerm() && m.Residues != "" {
				continue
			}
		} else if !m.AppliesTo(residue) {
			continue
		}
		if e := math.Abs(m.Mass - delta); e <= tol && e < bestErr {
			best, bestErr = m, e
		}
	}
	return best, !math.IsInf(bestErr, 1)
}

// AddMass returns a modification for a bare mass delta, registering one
// named after the rounded mass if none exists. A zero residue registers a
// peptide N-terminal modification.
func (r *Registry) AddMass(delta float64, residue byte) Modification {
	name := fmt.Sprintf("%+.4f", delta)
	m := Modification{Name: name, ShortName: name, Mass: delta, Type: ModAA}
	if residue == 0 {
		m.Type = ModNP
	} else {
		m.Name = fmt.Sprintf("%s@%c", name, residue)
		m.Residues = string(residue)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.mods[m.Name]; ok {
		return existing
	}
	r.put(m)
	return r.mods[m.Name]
}

// AddNeutralLoss registers a named neutral loss.
func (r *Registry) AddNeutralLoss(l core.NeutralLoss) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("neutral loss name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.losses[l.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNeutralLoss, l.Name)
	}
	r.losses[l.Name] = l
	return nil
}

// LookupNeutralLoss returns the loss registered under name without
// recording a miss.
func (r *Registry) LookupNeutralLoss(name string) (core.NeutralLoss, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.losses[name]
	return l, ok
}

// NeutralLoss returns the loss registered under name, or a zero-mass loss
// carrying the name when it is unknown.
func (r *Registry) NeutralLoss(name string) core.NeutralLoss {
	r.mu.RLock()
	l, ok := r.losses[name]
	r.mu.RUnlock()
	if ok {
		return l
	}
	r.recordMiss("neutral-loss", name)
	return core.NeutralLoss{Name: name}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift,aa).
// Existing names are replaced.
func (r *Registry) LoadFromCSV(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		modName := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		m := Modification{Name: modName, Mass: mass}
		if len(parts) > 2 {
			m.Residues = strings.ToUpper(strings.TrimSpace(parts[2]))
		}
		if existing, ok := r.Lookup(modName); ok {
			// keep losses and reporters of a known modification
			m.Type = existing.Type
			m.ShortName = existing.ShortName
			m.NeutralLosses = existing.NeutralLosses
			m.ReporterIons = existing.ReporterIons
			if m.Residues == "" {
				m.Residues = existing.Residues
			}
		}
		if err := r.Put(m); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}
