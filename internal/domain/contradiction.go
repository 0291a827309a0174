package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventSource records how a contradiction event came to exist.
type EventSource string

const (
	SourceDetected     EventSource = "detected"
	SourceInjected     EventSource = "injected"
	SourceConservation EventSource = "conservation"
)

// ContradictionEvent is tension between exactly two Geoids. It moves
// detected → (amplified)* → resolved and never backwards.
type ContradictionEvent struct {
	ID             uuid.UUID    `json:"id"`
	GeoidIDs       [2]uuid.UUID `json:"geoid_ids"`
	Intensity      float64      `json:"intensity"`
	Resolved       bool         `json:"resolved"`
	ScarID         *uuid.UUID   `json:"scar_id,omitempty"`
	Source         EventSource  `json:"source"`
	Notes          string       `json:"notes,omitempty"`
	AmplifiedCount int          `json:"amplified_count"`
	CreatedAt      time.Time    `json:"created_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
}

// Involves reports whether the event joins a and b, in either order.
func (e *ContradictionEvent) Involves(a, b uuid.UUID) bool {
	return (e.GeoidIDs[0] == a && e.GeoidIDs[1] == b) || (e.GeoidIDs[0] == b && e.GeoidIDs[1] == a)
}

// Resolve marks the event terminal and links the scar that records it.
func (e *ContradictionEvent) Resolve(scarID uuid.UUID, at time.Time) {
	e.Resolved = true
	e.ScarID = &scarID
	e.ResolvedAt = &at
}
