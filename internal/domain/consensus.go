package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConsensusMethod string

const (
	MethodWeightedBarycenter ConsensusMethod = "weighted_barycenter"
	MethodRankFusion         ConsensusMethod = "rank_fusion"
)

// ConsensusSymbol tags every Geoid produced by the consensus engine.
const ConsensusSymbol = "consensus"

// ConsensusEvent is the immutable audit record of one consensus call.
type ConsensusEvent struct {
	ID             uuid.UUID       `json:"id"`
	ParticipantIDs []uuid.UUID     `json:"participant_ids"`
	Method         ConsensusMethod `json:"method"`
	ResultID       uuid.UUID       `json:"result_id"`
	AvgResonance   float64         `json:"avg_resonance"`
	ResultNorm     float64         `json:"result_norm"`
	CreatedAt      time.Time       `json:"created_at"`
}
