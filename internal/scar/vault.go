// Package scar stores the decaying memory traces left by resolved
// contradictions. Retrieval is ranked by resonance with a query vector and
// never by recency.
package scar

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
)

// Scored is a retrieval hit.
type Scored struct {
	Scar  *domain.Scar `json:"scar"`
	Score float64      `json:"score"`
}

type Stats struct {
	TotalScars         int     `json:"total_scars"`
	ActiveScars        int     `json:"active_scars"`
	WithSignature      int     `json:"with_signature"`
	TotalReactivations int     `json:"total_reactivations"`
	AvgEchoStrength    float64 `json:"avg_echo_strength"`
}

// Vault is the sole owner of Scar records. It is not safe for concurrent
// use.
type Vault struct {
	scars   map[uuid.UUID]*domain.Scar
	order   []uuid.UUID
	byGeoid map[uuid.UUID][]uuid.UUID
	sigDim  int
	now     func() time.Time
}

func NewVault() *Vault {
	return &Vault{
		scars:   make(map[uuid.UUID]*domain.Scar),
		byGeoid: make(map[uuid.UUID][]uuid.UUID),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for creation and reactivation.
func (v *Vault) SetClock(now func() time.Time) {
	v.now = now
}

// CreateScar records a trace at full echo strength with the default decay
// rate. The signature, when given, must match earlier signatures in length.
func (v *Vault) CreateScar(geoidIDs []uuid.UUID, eventID uuid.UUID, intensity float64, signature []float64, metadata map[string]any) (uuid.UUID, error) {
	if len(geoidIDs) < 2 {
		return uuid.Nil, fmt.Errorf("%w: a scar needs at least two participants", domain.ErrInvalidArgument)
	}
	if intensity < 0 || intensity > 1 || math.IsNaN(intensity) {
		return uuid.Nil, fmt.Errorf("%w: intensity %v outside [0,1]", domain.ErrInvalidArgument, intensity)
	}

	s := &domain.Scar{
		ID:                   uuid.New(),
		Timestamp:            v.now(),
		GeoidIDs:             append([]uuid.UUID(nil), geoidIDs...),
		ContradictionEventID: eventID,
		Intensity:            intensity,
		EchoStrength:         1.0,
		AnchorStrength:       1.0,
		DecayRate:            domain.DefaultScarDecayRate,
		ResonanceSignature:   vecmath.Clone(signature),
		Metadata:             metadata,
	}
	if err := v.insert(s); err != nil {
		return uuid.Nil, err
	}
	return s.ID, nil
}

// Restore inserts a previously persisted scar. Records written without an
// anchor strength take their current echo as the anchor.
func (v *Vault) Restore(s *domain.Scar) error {
	c := cloneScar(s)
	if c.AnchorStrength == 0 {
		c.AnchorStrength = c.EchoStrength
	}
	return v.insert(c)
}

// CheckSignature reports whether sig could be stored alongside the
// signatures already in the vault.
func (v *Vault) CheckSignature(sig []float64) error {
	if len(sig) > 0 && v.sigDim != 0 && len(sig) != v.sigDim {
		return fmt.Errorf("scar signature: %w: got %d, vault is %d", domain.ErrDimension, len(sig), v.sigDim)
	}
	return nil
}

func (v *Vault) insert(s *domain.Scar) error {
	if _, ok := v.scars[s.ID]; ok {
		return fmt.Errorf("scar %s: %w", s.ID, domain.ErrCollision)
	}
	if err := v.CheckSignature(s.ResonanceSignature); err != nil {
		return err
	}
	if len(s.ResonanceSignature) > 0 {
		v.sigDim = len(s.ResonanceSignature)
	}

	v.scars[s.ID] = s
	v.order = append(v.order, s.ID)
	for _, g := range s.GeoidIDs {
		v.byGeoid[g] = append(v.byGeoid[g], s.ID)
	}
	return nil
}

func (v *Vault) Get(id uuid.UUID) (*domain.Scar, error) {
	s, ok := v.scars[id]
	if !ok {
		return nil, fmt.Errorf("scar %s: %w", id, domain.ErrNotFound)
	}
	return cloneScar(s), nil
}

func (v *Vault) Len() int {
	return len(v.order)
}

// All returns every scar in creation order.
func (v *Vault) All() []*domain.Scar {
	out := make([]*domain.Scar, len(v.order))
	for i, id := range v.order {
		out[i] = cloneScar(v.scars[id])
	}
	return out
}

// DecayAll sets every echo to anchor × exp(-decay_rate × seconds since the
// anchor), clamping values under domain.EchoFloor to 0. Because the anchor
// only moves on reactivation, calling DecayAll repeatedly with increasing
// now gives the same result as a single call at the latest now. It returns
// how many scars changed.
func (v *Vault) DecayAll(now time.Time) int {
	changed := 0
	for _, id := range v.order {
		s := v.scars[id]
		echo := echoAt(s, now)
		if echo != s.EchoStrength {
			s.EchoStrength = echo
			changed++
		}
	}
	return changed
}

// ReactivateScar decays the echo to now, adds boost capped at 1, and moves
// the decay anchor to now.
func (v *Vault) ReactivateScar(id uuid.UUID, boost float64) (*domain.Scar, error) {
	if boost < 0 || math.IsNaN(boost) {
		return nil, fmt.Errorf("%w: boost must be non-negative", domain.ErrInvalidArgument)
	}
	s, ok := v.scars[id]
	if !ok {
		return nil, fmt.Errorf("scar %s: %w", id, domain.ErrNotFound)
	}

	now := v.now()
	s.EchoStrength = math.Min(echoAt(s, now)+boost, 1.0)
	s.AnchorStrength = s.EchoStrength
	s.ReactivationCount++
	s.LastReactivated = &now
	return cloneScar(s), nil
}

// RetrieveByResonance ranks every scar carrying a signature by cosine
// similarity to vector and returns the best topK. There is no score cutoff.
// A non-positive topK returns all ranked scars.
func (v *Vault) RetrieveByResonance(vector []float64, topK int) ([]Scored, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("scar query: %w: empty vector", domain.ErrDimension)
	}
	if v.sigDim != 0 && len(vector) != v.sigDim {
		return nil, fmt.Errorf("scar query: %w: got %d, vault is %d", domain.ErrDimension, len(vector), v.sigDim)
	}

	var hits []Scored
	for _, id := range v.order {
		s := v.scars[id]
		if len(s.ResonanceSignature) == 0 {
			continue
		}
		hits = append(hits, Scored{Scar: s, Score: vecmath.Cosine(vector, s.ResonanceSignature)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	for i := range hits {
		hits[i].Scar = cloneScar(hits[i].Scar)
	}
	return hits, nil
}

// ScarsForGeoid returns the scars id participated in, in creation order.
func (v *Vault) ScarsForGeoid(id uuid.UUID) []*domain.Scar {
	ids := v.byGeoid[id]
	out := make([]*domain.Scar, len(ids))
	for i, sid := range ids {
		out[i] = cloneScar(v.scars[sid])
	}
	return out
}

func (v *Vault) Stats() Stats {
	st := Stats{TotalScars: len(v.order)}
	var echo float64
	for _, id := range v.order {
		s := v.scars[id]
		if s.EchoStrength > 0 {
			st.ActiveScars++
		}
		if len(s.ResonanceSignature) > 0 {
			st.WithSignature++
		}
		st.TotalReactivations += s.ReactivationCount
		echo += s.EchoStrength
	}
	if st.TotalScars > 0 {
		st.AvgEchoStrength = echo / float64(st.TotalScars)
	}
	return st
}

// echoAt is the anchored echo of s at now, clamped to 0 under the floor.
func echoAt(s *domain.Scar, now time.Time) float64 {
	dt := now.Sub(s.DecayAnchor()).Seconds()
	if dt < 0 {
		dt = 0
	}
	echo := s.AnchorStrength * math.Exp(-s.DecayRate*dt)
	if echo < domain.EchoFloor {
		return 0
	}
	return echo
}

func cloneScar(s *domain.Scar) *domain.Scar {
	c := *s
	c.GeoidIDs = append([]uuid.UUID(nil), s.GeoidIDs...)
	c.ResonanceSignature = vecmath.Clone(s.ResonanceSignature)
	if s.LastReactivated != nil {
		t := *s.LastReactivated
		c.LastReactivated = &t
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]any, len(s.Metadata))
		for k, val := range s.Metadata {
			c.Metadata[k] = val
		}
	}
	return &c
}
