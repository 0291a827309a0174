// Package substrate owns the set of Geoids and their secondary indices. It
// is not safe for concurrent use; callers serialize access (see
// service.SubstrateService).
package substrate

import (
	"fmt"
	"math"
	"sort"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
)

// FieldRefreshReads is the number of reads a cached global resonance field
// serves before it is recomputed.
const FieldRefreshReads = 100

// ScoredID pairs a Geoid id with a similarity or tension score.
type ScoredID struct {
	ID    uuid.UUID `json:"id"`
	Score float64   `json:"score"`
}

// Stats is a read-only summary of the substrate.
type Stats struct {
	TotalGeoids        int            `json:"total_geoids"`
	Dimension          int            `json:"dimension"`
	ModalityCounts     map[string]int `json:"modality_counts"`
	ResonanceLinks     int            `json:"resonance_links"`
	ContradictionLinks int            `json:"contradiction_links"`
	ScarReferences     int            `json:"scar_references"`
	AvgMutationCount   float64        `json:"avg_mutation_count"`
}

type Substrate struct {
	geoids     map[uuid.UUID]*domain.Geoid
	order      []uuid.UUID
	byModality map[string][]uuid.UUID
	bySymbol   map[string][]uuid.UUID
	dim        int

	field      []float64
	fieldReads int
}

func New() *Substrate {
	return &Substrate{
		geoids:     make(map[uuid.UUID]*domain.Geoid),
		byModality: make(map[string][]uuid.UUID),
		bySymbol:   make(map[string][]uuid.UUID),
	}
}

// Add inserts g and indexes it by modality and symbol. The first Geoid fixes
// the substrate's dimensionality.
func (s *Substrate) Add(g *domain.Geoid) (uuid.UUID, error) {
	if _, ok := s.geoids[g.ID]; ok {
		return uuid.Nil, fmt.Errorf("geoid %s: %w", g.ID, domain.ErrCollision)
	}
	if g.Dim() == 0 {
		return uuid.Nil, fmt.Errorf("geoid %s: %w: empty essence", g.ID, domain.ErrDimension)
	}
	if s.dim != 0 && g.Dim() != s.dim {
		return uuid.Nil, fmt.Errorf("geoid %s: %w: got %d, substrate is %d", g.ID, domain.ErrDimension, g.Dim(), s.dim)
	}
	if s.dim == 0 {
		s.dim = g.Dim()
	}

	s.geoids[g.ID] = g
	s.order = append(s.order, g.ID)
	s.byModality[g.Modality] = append(s.byModality[g.Modality], g.ID)
	for _, sym := range g.Symbols.Sorted() {
		s.bySymbol[sym] = append(s.bySymbol[sym], g.ID)
	}

	s.InvalidateField()
	return g.ID, nil
}

func (s *Substrate) Get(id uuid.UUID) (*domain.Geoid, error) {
	g, ok := s.geoids[id]
	if !ok {
		return nil, fmt.Errorf("geoid %s: %w", id, domain.ErrNotFound)
	}
	return g, nil
}

func (s *Substrate) Len() int {
	return len(s.order)
}

// Dim returns the essence dimensionality, or 0 while empty.
func (s *Substrate) Dim() int {
	return s.dim
}

// All returns the Geoids in insertion order.
func (s *Substrate) All() []*domain.Geoid {
	out := make([]*domain.Geoid, len(s.order))
	for i, id := range s.order {
		out[i] = s.geoids[id]
	}
	return out
}

func (s *Substrate) ByModality(modality string) []*domain.Geoid {
	return s.lookup(s.byModality[modality])
}

func (s *Substrate) BySymbol(symbol string) []*domain.Geoid {
	return s.lookup(s.bySymbol[symbol])
}

func (s *Substrate) lookup(ids []uuid.UUID) []*domain.Geoid {
	out := make([]*domain.Geoid, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.geoids[id])
	}
	return out
}

// CheckDim fails with ErrDimension when v does not match the substrate.
func (s *Substrate) CheckDim(v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimension)
	}
	if s.dim != 0 && len(v) != s.dim {
		return fmt.Errorf("%w: got %d, substrate is %d", domain.ErrDimension, len(v), s.dim)
	}
	return nil
}

// FindResonant returns the Geoids (other than g) whose resonance with g is
// at least threshold, best first. Equal scores keep insertion order. A
// non-positive limit returns every match.
func (s *Substrate) FindResonant(g *domain.Geoid, threshold float64, limit int) ([]ScoredID, error) {
	return s.scan(g, threshold, limit, Resonance)
}

// FindContradictory is FindResonant using the contradiction score.
func (s *Substrate) FindContradictory(g *domain.Geoid, threshold float64, limit int) ([]ScoredID, error) {
	return s.scan(g, threshold, limit, Contradiction)
}

func (s *Substrate) scan(g *domain.Geoid, threshold float64, limit int, score func(a, b *domain.Geoid) float64) ([]ScoredID, error) {
	if err := s.CheckDim(g.Essence); err != nil {
		return nil, err
	}

	var results []ScoredID
	for _, id := range s.order {
		if id == g.ID {
			continue
		}
		sc := score(g, s.geoids[id])
		if sc >= threshold {
			results = append(results, ScoredID{ID: id, Score: sc})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GlobalResonanceField returns the L2-normalized average of all essences,
// each weighted by 1 + ln(1 + mutation_count). The value is cached and
// recomputed after FieldRefreshReads reads or an explicit invalidation.
// It returns nil for an empty substrate.
func (s *Substrate) GlobalResonanceField() []float64 {
	if s.field == nil || s.fieldReads >= FieldRefreshReads {
		s.field = s.computeField()
		s.fieldReads = 0
	}
	s.fieldReads++
	return vecmath.Clone(s.field)
}

// InvalidateField drops the cached global resonance field.
func (s *Substrate) InvalidateField() {
	s.field = nil
	s.fieldReads = 0
}

func (s *Substrate) computeField() []float64 {
	if len(s.order) == 0 {
		return nil
	}

	sum := make([]float64, s.dim)
	var totalWeight float64
	for _, id := range s.order {
		g := s.geoids[id]
		w := 1 + math.Log(1+float64(g.MutationCount))
		for i, x := range g.Essence {
			sum[i] += w * x
		}
		totalWeight += w
	}
	for i := range sum {
		sum[i] /= totalWeight
	}
	return vecmath.Normalize(sum)
}

// RefreshLinks rebuilds the resonance and contradiction link caches of one
// Geoid from scratch against every other Geoid. Links scoring below
// threshold are dropped.
func (s *Substrate) RefreshLinks(id uuid.UUID, threshold float64) error {
	g, err := s.Get(id)
	if err != nil {
		return err
	}

	g.ResonanceLinks = make(map[uuid.UUID]float64)
	g.ContradictionLinks = make(map[uuid.UUID]float64)
	for _, otherID := range s.order {
		if otherID == id {
			continue
		}
		other := s.geoids[otherID]
		if r := Resonance(g, other); r >= threshold {
			g.ResonanceLinks[otherID] = r
		}
		if c := Contradiction(g, other); c >= threshold {
			g.ContradictionLinks[otherID] = c
		}
	}
	return nil
}

func (s *Substrate) Stats() Stats {
	st := Stats{
		TotalGeoids:    len(s.order),
		Dimension:      s.dim,
		ModalityCounts: make(map[string]int, len(s.byModality)),
	}
	for m, ids := range s.byModality {
		st.ModalityCounts[m] = len(ids)
	}

	var mutations int
	for _, id := range s.order {
		g := s.geoids[id]
		st.ResonanceLinks += len(g.ResonanceLinks)
		st.ContradictionLinks += len(g.ContradictionLinks)
		st.ScarReferences += len(g.ScarIndex)
		mutations += g.MutationCount
	}
	if st.TotalGeoids > 0 {
		st.AvgMutationCount = float64(mutations) / float64(st.TotalGeoids)
	}
	return st
}
