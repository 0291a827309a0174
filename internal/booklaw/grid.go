package booklaw

import (
	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
)

// Checker is the narrow view mutation and consensus sites depend on.
type Checker interface {
	IsCompliant(e Event) bool
}

// Grid is the compliance façade over one Booklaw.
type Grid struct {
	law *Booklaw
}

func NewGrid(law *Booklaw) *Grid {
	return &Grid{law: law}
}

func (g *Grid) IsCompliant(e Event) bool {
	return g.law.CheckCompliance(e)
}

// MutationCheck adapts the grid to the Geoid mutation gate.
func (g *Grid) MutationCheck() domain.ComplianceFunc {
	return func(geoid *domain.Geoid, proposed []float64) bool {
		return g.IsCompliant(MutationEvent(geoid, proposed))
	}
}

// MutationEvent describes moving geoid to proposed.
func MutationEvent(geoid *domain.Geoid, proposed []float64) Event {
	return Event{
		Type: EventMutation,
		Payload: map[string]any{
			KeyGeoidID:  geoid.ID,
			KeyModality: geoid.Modality,
			KeySymbols:  geoid.Symbols.Sorted(),
			KeyEssence:  vecmath.Clone(proposed),
			KeyPrevious: vecmath.Clone(geoid.Essence),
		},
	}
}

// ConsensusEvent describes inserting candidate as the consensus of
// participants.
func ConsensusEvent(candidate *domain.Geoid, participants []uuid.UUID, method domain.ConsensusMethod) Event {
	return Event{
		Type: EventConsensus,
		Payload: map[string]any{
			KeyGeoidID:      candidate.ID,
			KeyModality:     candidate.Modality,
			KeySymbols:      candidate.Symbols.Sorted(),
			KeyEssence:      vecmath.Clone(candidate.Essence),
			KeyParticipants: append([]uuid.UUID(nil), participants...),
			KeyMethod:       string(method),
		},
	}
}
