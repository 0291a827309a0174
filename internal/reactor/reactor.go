// Package reactor detects, injects, amplifies and metabolizes
// contradictions between Geoids. Each Reactor owns its own active event set;
// it is not safe for concurrent use.
package reactor

import (
	"fmt"
	"math"
	"time"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/scar"
	"github.com/Harshitk-cp/substrate/internal/substrate"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDriftRate = 0.05

	// Conservation injects tension between a pair resonating above
	// ConservationResonance, at ConservationIntensity.
	ConservationResonance = 0.7
	ConservationIntensity = 0.4
)

type Reactor struct {
	substrate *substrate.Substrate
	vault     *scar.Vault
	logger    *zap.Logger
	driftRate float64
	now       func() time.Time

	events map[uuid.UUID]*domain.ContradictionEvent
	order  []uuid.UUID
	active []uuid.UUID
}

func New(sub *substrate.Substrate, vault *scar.Vault, logger *zap.Logger) *Reactor {
	return &Reactor{
		substrate: sub,
		vault:     vault,
		logger:    logger,
		driftRate: DefaultDriftRate,
		now:       time.Now,
		events:    make(map[uuid.UUID]*domain.ContradictionEvent),
	}
}

func (r *Reactor) SetDriftRate(rate float64) {
	r.driftRate = rate
}

func (r *Reactor) SetClock(now func() time.Time) {
	r.now = now
}

// DetectContradictions scans every unordered pair and opens an event for
// each pair scoring at least threshold that has no active event yet. The
// scan is quadratic in the number of Geoids.
func (r *Reactor) DetectContradictions(threshold float64) []domain.ContradictionEvent {
	geoids := r.substrate.All()

	var created []domain.ContradictionEvent
	for i := 0; i < len(geoids); i++ {
		for j := i + 1; j < len(geoids); j++ {
			a, b := geoids[i], geoids[j]
			c := substrate.Contradiction(a, b)
			if c < threshold || r.hasActive(a.ID, b.ID) {
				continue
			}
			e := r.open(a, b, c, domain.SourceDetected, "")
			created = append(created, *e)
		}
	}
	return created
}

// InjectContradiction opens an event between a and b with a caller-chosen
// intensity, bypassing detection.
func (r *Reactor) InjectContradiction(a, b uuid.UUID, intensity float64, notes string) (domain.ContradictionEvent, error) {
	return r.inject(a, b, intensity, notes, domain.SourceInjected)
}

func (r *Reactor) inject(aID, bID uuid.UUID, intensity float64, notes string, source domain.EventSource) (domain.ContradictionEvent, error) {
	if aID == bID {
		return domain.ContradictionEvent{}, fmt.Errorf("%w: a geoid cannot contradict itself", domain.ErrInvalidArgument)
	}
	if intensity < 0 || intensity > 1 || math.IsNaN(intensity) {
		return domain.ContradictionEvent{}, fmt.Errorf("%w: intensity %v outside [0,1]", domain.ErrInvalidArgument, intensity)
	}
	a, err := r.substrate.Get(aID)
	if err != nil {
		return domain.ContradictionEvent{}, err
	}
	b, err := r.substrate.Get(bID)
	if err != nil {
		return domain.ContradictionEvent{}, err
	}
	return *r.open(a, b, intensity, source, notes), nil
}

func (r *Reactor) open(a, b *domain.Geoid, intensity float64, source domain.EventSource, notes string) *domain.ContradictionEvent {
	e := &domain.ContradictionEvent{
		ID:        uuid.New(),
		GeoidIDs:  [2]uuid.UUID{a.ID, b.ID},
		Intensity: intensity,
		Source:    source,
		Notes:     notes,
		CreatedAt: r.now(),
	}
	r.events[e.ID] = e
	r.order = append(r.order, e.ID)
	r.active = append(r.active, e.ID)

	a.ContradictionLinks[b.ID] = intensity
	b.ContradictionLinks[a.ID] = intensity
	return e
}

// AmplifyContradictions multiplies every active intensity by factor,
// capped at 1. It returns the number of events touched.
func (r *Reactor) AmplifyContradictions(factor float64) (int, error) {
	if factor < 0 || math.IsNaN(factor) {
		return 0, fmt.Errorf("%w: amplification factor must be non-negative", domain.ErrInvalidArgument)
	}
	for _, id := range r.active {
		e := r.events[id]
		e.Intensity = math.Min(e.Intensity*factor, 1.0)
		e.AmplifiedCount++
		r.refreshLinks(e)
	}
	return len(r.active), nil
}

func (r *Reactor) refreshLinks(e *domain.ContradictionEvent) {
	a, errA := r.substrate.Get(e.GeoidIDs[0])
	b, errB := r.substrate.Get(e.GeoidIDs[1])
	if errA != nil || errB != nil {
		return
	}
	a.ContradictionLinks[b.ID] = e.Intensity
	b.ContradictionLinks[a.ID] = e.Intensity
}

// MetabolizeContradictions tries to resolve every active event. For an
// event between a and b it proposes
//
//	drift = (b - a) × intensity × drift_rate
//
// as a → a+drift and b → b-drift, each gated by check on its own. When at
// least one side is accepted, one scar is created, linked from both Geoids,
// and the event is resolved. Events where both sides are rejected stay
// active. It returns the ids of the scars created.
func (r *Reactor) MetabolizeContradictions(check domain.ComplianceFunc) ([]uuid.UUID, error) {
	pending := append([]uuid.UUID(nil), r.active...)

	var scars []uuid.UUID
	resolved := make(map[uuid.UUID]bool)
	for _, id := range pending {
		e := r.events[id]
		scarID, ok, err := r.metabolize(e, check)
		if err != nil {
			return scars, err
		}
		if ok {
			scars = append(scars, scarID)
			resolved[id] = true
		}
	}

	if len(resolved) > 0 {
		remaining := r.active[:0]
		for _, id := range r.active {
			if !resolved[id] {
				remaining = append(remaining, id)
			}
		}
		r.active = remaining
		r.substrate.InvalidateField()
	}

	r.logger.Debug("metabolized contradictions",
		zap.Int("attempted", len(pending)),
		zap.Int("resolved", len(scars)))
	return scars, nil
}

func (r *Reactor) metabolize(e *domain.ContradictionEvent, check domain.ComplianceFunc) (uuid.UUID, bool, error) {
	a, err := r.substrate.Get(e.GeoidIDs[0])
	if err != nil {
		return uuid.Nil, false, err
	}
	b, err := r.substrate.Get(e.GeoidIDs[1])
	if err != nil {
		return uuid.Nil, false, err
	}

	signature := vecmath.Normalize(vecmath.Mean([][]float64{a.Essence, b.Essence}))
	if err := r.vault.CheckSignature(signature); err != nil {
		return uuid.Nil, false, err
	}

	drift := vecmath.Scale(vecmath.Sub(b.Essence, a.Essence), e.Intensity*r.driftRate)
	now := r.now()

	acceptedA, err := a.MutateAt(now, drift, check)
	if err != nil {
		return uuid.Nil, false, err
	}
	acceptedB, err := b.MutateAt(now, vecmath.Scale(drift, -1), check)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !acceptedA && !acceptedB {
		return uuid.Nil, false, nil
	}

	scarID, err := r.vault.CreateScar([]uuid.UUID{a.ID, b.ID}, e.ID, e.Intensity, signature, map[string]any{
		"drift_rate": r.driftRate,
		"accepted_a": acceptedA,
		"accepted_b": acceptedB,
	})
	if err != nil {
		return uuid.Nil, false, err
	}

	a.AttachScar(scarID)
	b.AttachScar(scarID)
	e.Resolve(scarID, now)
	return scarID, true, nil
}

// Density is |active events| / (n(n-1)/2), or 0 with fewer than two Geoids.
func (r *Reactor) Density() float64 {
	n := r.substrate.Len()
	if n < 2 {
		return 0
	}
	pairs := float64(n*(n-1)) / 2
	return float64(len(r.active)) / pairs
}

// EnforceContradictionConservation keeps the substrate from settling into
// full harmony. When density is below minDensity it injects one event of
// ConservationIntensity into the first pair, in insertion order, that
// resonates above ConservationResonance and has no active event. It returns
// the injected event, or nil when nothing was injected.
func (r *Reactor) EnforceContradictionConservation(minDensity float64) (*domain.ContradictionEvent, error) {
	if r.substrate.Len() < 2 || r.Density() >= minDensity {
		return nil, nil
	}

	geoids := r.substrate.All()
	for i := 0; i < len(geoids); i++ {
		for j := i + 1; j < len(geoids); j++ {
			a, b := geoids[i], geoids[j]
			if substrate.Resonance(a, b) <= ConservationResonance || r.hasActive(a.ID, b.ID) {
				continue
			}
			e, err := r.inject(a.ID, b.ID, ConservationIntensity, "conservation", domain.SourceConservation)
			if err != nil {
				return nil, err
			}
			r.logger.Info("conservation injected contradiction",
				zap.String("event_id", e.ID.String()),
				zap.String("geoid_a", a.ID.String()),
				zap.String("geoid_b", b.ID.String()))
			return &e, nil
		}
	}
	return nil, nil
}

func (r *Reactor) hasActive(a, b uuid.UUID) bool {
	for _, id := range r.active {
		if r.events[id].Involves(a, b) {
			return true
		}
	}
	return false
}

// Restore re-registers a persisted event. Unresolved events rejoin the
// active set.
func (r *Reactor) Restore(e *domain.ContradictionEvent) error {
	if _, ok := r.events[e.ID]; ok {
		return fmt.Errorf("event %s: %w", e.ID, domain.ErrCollision)
	}
	c := *e
	r.events[c.ID] = &c
	r.order = append(r.order, c.ID)
	if !c.Resolved {
		r.active = append(r.active, c.ID)
	}
	return nil
}

func (r *Reactor) Event(id uuid.UUID) (domain.ContradictionEvent, error) {
	e, ok := r.events[id]
	if !ok {
		return domain.ContradictionEvent{}, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	return *e, nil
}

// Events returns every event, resolved or not, in creation order.
func (r *Reactor) Events() []domain.ContradictionEvent {
	return r.collect(r.order)
}

// ActiveEvents returns the unresolved events in creation order.
func (r *Reactor) ActiveEvents() []domain.ContradictionEvent {
	return r.collect(r.active)
}

func (r *Reactor) collect(ids []uuid.UUID) []domain.ContradictionEvent {
	out := make([]domain.ContradictionEvent, len(ids))
	for i, id := range ids {
		out[i] = *r.events[id]
	}
	return out
}
