package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultScarDecayRate = 0.01
	// EchoFloor is the strength below which an echo is clamped to zero.
	EchoFloor = 1e-6
)

// Scar is the persistent trace of one resolved contradiction.
//
// EchoStrength is always derived from AnchorStrength and the time elapsed
// since the decay anchor (LastReactivated, or Timestamp when never
// reactivated), so repeated decay passes never compound.
type Scar struct {
	ID                   uuid.UUID      `json:"id"`
	Timestamp            time.Time      `json:"timestamp"`
	GeoidIDs             []uuid.UUID    `json:"geoid_ids"`
	ContradictionEventID uuid.UUID      `json:"contradiction_event_id"`
	Intensity            float64        `json:"intensity"`
	EchoStrength         float64        `json:"echo_strength"`
	AnchorStrength       float64        `json:"anchor_strength"`
	DecayRate            float64        `json:"decay_rate"`
	ResonanceSignature   []float64      `json:"resonance_signature,omitempty"`
	ReactivationCount    int            `json:"reactivation_count"`
	LastReactivated      *time.Time     `json:"last_reactivated,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// DecayAnchor returns the instant decay is measured from.
func (s *Scar) DecayAnchor() time.Time {
	if s.LastReactivated != nil {
		return *s.LastReactivated
	}
	return s.Timestamp
}

// Involves reports whether id participated in the scar.
func (s *Scar) Involves(id uuid.UUID) bool {
	for _, g := range s.GeoidIDs {
		if g == id {
			return true
		}
	}
	return false
}
