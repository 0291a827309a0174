package domain

import "time"

// Ledger event types written by this service.
const (
	EventGeoidAdded               = "geoid_added"
	EventRelationAdded            = "relation_added"
	EventContradictionInjected    = "contradiction_injected"
	EventContradictionsDetected   = "contradictions_detected"
	EventContradictionMetabolized = "contradiction_metabolized"
	EventConservationInjected     = "conservation_injected"
	EventContradictionsAmplified  = "contradictions_amplified"
	EventScarCreated              = "scar_created"
	EventScarReactivated          = "scar_reactivated"
	EventScarsDecayed             = "scars_decayed"
	EventRuleAdded                = "rule_added"
	EventConsensus                = "consensus"
)

// LedgerEntry is one append-only audit record. Seq is assigned by the
// ledger and is strictly increasing in insertion order.
type LedgerEntry struct {
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	EventID   string         `json:"event_id"`
	Details   map[string]any `json:"details,omitempty"`
}
