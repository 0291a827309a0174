package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
)

// Relation types with negation semantics. Any relation type name beginning
// with RelationContradictsPrefix is also treated as a negation.
const (
	RelationContradictsPrefix = "contradicts_"
	RelationNegates           = "negates"
)

// IsNegation reports whether a relation type asserts that its source
// contradicts its target.
func IsNegation(relationType string) bool {
	return relationType == RelationNegates || strings.HasPrefix(relationType, RelationContradictsPrefix)
}

// ComplianceFunc decides whether g may move to the proposed essence.
type ComplianceFunc func(g *Geoid, proposed []float64) bool

// AllowAll is a ComplianceFunc that accepts every mutation.
func AllowAll(*Geoid, []float64) bool { return true }

// SymbolSet is an unordered set of string labels.
type SymbolSet map[string]struct{}

func NewSymbolSet(symbols ...string) SymbolSet {
	s := make(SymbolSet, len(symbols))
	for _, sym := range symbols {
		s[sym] = struct{}{}
	}
	return s
}

func (s SymbolSet) Has(sym string) bool {
	_, ok := s[sym]
	return ok
}

// Overlap returns |s ∩ other|.
func (s SymbolSet) Overlap(other SymbolSet) int {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for sym := range small {
		if large.Has(sym) {
			n++
		}
	}
	return n
}

// Sorted returns the symbols in lexical order.
func (s SymbolSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s SymbolSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *SymbolSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = NewSymbolSet(list...)
	return nil
}

// DriftEntry is one essence snapshot in a Geoid's drift history.
type DriftEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Essence   []float64 `json:"essence"`
}

// Geoid is the atomic knowledge unit of the substrate. Cross-entity
// references (relations, links, scars) are plain ids.
type Geoid struct {
	ID                 uuid.UUID              `json:"id"`
	Essence            []float64              `json:"essence"`
	Modality           string                 `json:"modality"`
	Symbols            SymbolSet              `json:"symbols"`
	Relations          map[string][]uuid.UUID `json:"relations"`
	ResonanceLinks     map[uuid.UUID]float64  `json:"resonance_links"`
	ContradictionLinks map[uuid.UUID]float64  `json:"contradiction_links"`
	ScarIndex          []uuid.UUID            `json:"scar_index"`
	MutationCount      int                    `json:"mutation_count"`
	DriftHistory       []DriftEntry           `json:"drift_history"`
	CreatedAt          time.Time              `json:"created_at"`
}

// NewGeoid builds a Geoid with a fresh id and a single drift-history entry.
// The essence is copied.
func NewGeoid(essence []float64, modality string, symbols ...string) (*Geoid, error) {
	return NewGeoidAt(time.Now(), essence, modality, symbols...)
}

// NewGeoidAt is NewGeoid with an explicit creation time.
func NewGeoidAt(now time.Time, essence []float64, modality string, symbols ...string) (*Geoid, error) {
	if len(essence) == 0 {
		return nil, fmt.Errorf("%w: essence must have at least one dimension", ErrDimension)
	}
	e := vecmath.Clone(essence)
	return &Geoid{
		ID:                 uuid.New(),
		Essence:            e,
		Modality:           modality,
		Symbols:            NewSymbolSet(symbols...),
		Relations:          make(map[string][]uuid.UUID),
		ResonanceLinks:     make(map[uuid.UUID]float64),
		ContradictionLinks: make(map[uuid.UUID]float64),
		DriftHistory:       []DriftEntry{{Timestamp: now, Essence: vecmath.Clone(e)}},
		CreatedAt:          now,
	}, nil
}

// Dim returns the essence dimensionality.
func (g *Geoid) Dim() int {
	return len(g.Essence)
}

// AddRelation appends target under relationType. Repeated assertions are kept.
func (g *Geoid) AddRelation(relationType string, target uuid.UUID) {
	if g.Relations == nil {
		g.Relations = make(map[string][]uuid.UUID)
	}
	g.Relations[relationType] = append(g.Relations[relationType], target)
}

// Negates reports whether g holds a negation relation pointing at target.
func (g *Geoid) Negates(target uuid.UUID) bool {
	for relType, targets := range g.Relations {
		if !IsNegation(relType) {
			continue
		}
		for _, t := range targets {
			if t == target {
				return true
			}
		}
	}
	return false
}

// AttachScar records participation in a scar.
func (g *Geoid) AttachScar(scarID uuid.UUID) {
	g.ScarIndex = append(g.ScarIndex, scarID)
}

// Mutate proposes essence+drift to check. When check rejects, nothing
// changes and Mutate returns false. When it accepts, the essence is
// replaced, the snapshot is appended to the drift history and the mutation
// count is incremented. A nil check accepts. A drift of the wrong length
// fails with ErrDimension before check is consulted.
func (g *Geoid) Mutate(drift []float64, check ComplianceFunc) (bool, error) {
	return g.MutateAt(time.Now(), drift, check)
}

// MutateAt is Mutate with an explicit timestamp for the drift entry.
func (g *Geoid) MutateAt(now time.Time, drift []float64, check ComplianceFunc) (bool, error) {
	if len(drift) != len(g.Essence) {
		return false, fmt.Errorf("%w: drift has %d dimensions, essence has %d", ErrDimension, len(drift), len(g.Essence))
	}

	proposed := vecmath.Add(g.Essence, drift)
	if check != nil && !check(g, proposed) {
		return false, nil
	}

	g.Essence = proposed
	g.DriftHistory = append(g.DriftHistory, DriftEntry{Timestamp: now, Essence: vecmath.Clone(proposed)})
	g.MutationCount++
	return true, nil
}

// Clone returns a deep copy, used for read-only projections handed outside
// the substrate's critical section.
func (g *Geoid) Clone() *Geoid {
	c := *g
	c.Essence = vecmath.Clone(g.Essence)
	c.Symbols = NewSymbolSet(g.Symbols.Sorted()...)
	c.Relations = make(map[string][]uuid.UUID, len(g.Relations))
	for k, v := range g.Relations {
		c.Relations[k] = append([]uuid.UUID(nil), v...)
	}
	c.ResonanceLinks = make(map[uuid.UUID]float64, len(g.ResonanceLinks))
	for k, v := range g.ResonanceLinks {
		c.ResonanceLinks[k] = v
	}
	c.ContradictionLinks = make(map[uuid.UUID]float64, len(g.ContradictionLinks))
	for k, v := range g.ContradictionLinks {
		c.ContradictionLinks[k] = v
	}
	c.ScarIndex = append([]uuid.UUID(nil), g.ScarIndex...)
	c.DriftHistory = make([]DriftEntry, len(g.DriftHistory))
	for i, d := range g.DriftHistory {
		c.DriftHistory[i] = DriftEntry{Timestamp: d.Timestamp, Essence: vecmath.Clone(d.Essence)}
	}
	return &c
}

// ensureMaps fills nil maps after decoding a record.
func (g *Geoid) ensureMaps() {
	if g.Symbols == nil {
		g.Symbols = NewSymbolSet()
	}
	if g.Relations == nil {
		g.Relations = make(map[string][]uuid.UUID)
	}
	if g.ResonanceLinks == nil {
		g.ResonanceLinks = make(map[uuid.UUID]float64)
	}
	if g.ContradictionLinks == nil {
		g.ContradictionLinks = make(map[uuid.UUID]float64)
	}
}
