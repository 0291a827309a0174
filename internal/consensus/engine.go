// Package consensus derives new, lawful Geoids summarizing a chosen set of
// existing ones.
package consensus

import (
	"fmt"
	"math"
	"time"

	"github.com/Harshitk-cp/substrate/internal/audit"
	"github.com/Harshitk-cp/substrate/internal/booklaw"
	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/substrate"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RankFusionPasses is the fixed number of sign-agreement refinements.
const RankFusionPasses = 3

type Request struct {
	GeoidIDs []uuid.UUID
	// Weights is optional. When set it must match GeoidIDs in length, hold
	// no negative entries and sum to more than zero.
	Weights []float64
	// Method defaults to weighted_barycenter.
	Method domain.ConsensusMethod
	// Modality defaults to the participants' majority modality.
	Modality string
}

type Result struct {
	Geoid *domain.Geoid
	Event domain.ConsensusEvent
}

type Engine struct {
	substrate *substrate.Substrate
	checker   booklaw.Checker
	ledger    *audit.Ledger
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(sub *substrate.Substrate, checker booklaw.Checker, ledger *audit.Ledger, logger *zap.Logger) *Engine {
	return &Engine{
		substrate: sub,
		checker:   checker,
		ledger:    ledger,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// GenerateConsensus builds a candidate Geoid from the participants, submits
// it to the compliance checker and, when accepted, inserts it and records a
// "consensus" ledger entry. Participants are read, never mutated. Every
// failure wraps domain.ErrConsensus together with the specific cause.
func (e *Engine) GenerateConsensus(req Request) (*Result, error) {
	if len(req.GeoidIDs) == 0 {
		return nil, fmt.Errorf("%w: %w: no participants", domain.ErrConsensus, domain.ErrInvalidArgument)
	}

	participants := make([]*domain.Geoid, len(req.GeoidIDs))
	for i, id := range req.GeoidIDs {
		g, err := e.substrate.Get(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConsensus, err)
		}
		participants[i] = g
	}

	weights, err := normalizeWeights(req.Weights, len(participants))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConsensus, err)
	}

	modality := req.Modality
	if modality == "" {
		modality = majorityModality(participants)
	}

	method := req.Method
	if method == "" {
		method = domain.MethodWeightedBarycenter
	}

	var vector []float64
	switch method {
	case domain.MethodWeightedBarycenter:
		vector = weightedBarycenter(participants, weights)
	case domain.MethodRankFusion:
		vector = rankFusion(participants)
	default:
		return nil, fmt.Errorf("%w: %w: %q", domain.ErrConsensus, domain.ErrUnsupportedMethod, method)
	}

	now := e.now()
	candidate, err := domain.NewGeoidAt(now, vector, modality, domain.ConsensusSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConsensus, err)
	}

	if !e.checker.IsCompliant(booklaw.ConsensusEvent(candidate, req.GeoidIDs, method)) {
		e.logger.Debug("consensus candidate rejected",
			zap.String("method", string(method)),
			zap.Int("participants", len(participants)))
		return nil, fmt.Errorf("%w: %w", domain.ErrConsensus, domain.ErrComplianceRejected)
	}

	if _, err := e.substrate.Add(candidate); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConsensus, err)
	}

	var total float64
	for _, p := range participants {
		total += substrate.Resonance(p, candidate)
	}

	event := domain.ConsensusEvent{
		ID:             uuid.New(),
		ParticipantIDs: append([]uuid.UUID(nil), req.GeoidIDs...),
		Method:         method,
		ResultID:       candidate.ID,
		AvgResonance:   total / float64(len(participants)),
		ResultNorm:     vecmath.Norm(candidate.Essence),
		CreatedAt:      now,
	}

	ids := make([]string, len(event.ParticipantIDs))
	for i, id := range event.ParticipantIDs {
		ids[i] = id.String()
	}
	e.ledger.LogEvent(domain.EventConsensus, event.ID.String(), map[string]any{
		"participant_ids": ids,
		"result_id":       event.ResultID.String(),
		"method":          string(method),
		"avg_resonance":   event.AvgResonance,
		"result_norm":     event.ResultNorm,
	})

	e.logger.Info("consensus generated",
		zap.String("geoid_id", candidate.ID.String()),
		zap.String("method", string(method)),
		zap.Int("participants", len(participants)),
		zap.Float64("avg_resonance", event.AvgResonance))

	return &Result{Geoid: candidate, Event: event}, nil
}

func normalizeWeights(weights []float64, n int) ([]float64, error) {
	if weights == nil {
		uniform := make([]float64, n)
		for i := range uniform {
			uniform[i] = 1 / float64(n)
		}
		return uniform, nil
	}
	if len(weights) != n {
		return nil, fmt.Errorf("%w: %d weights for %d participants", domain.ErrInvalidArgument, len(weights), n)
	}

	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %v", domain.ErrInvalidArgument, w)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", domain.ErrInvalidArgument)
	}

	out := make([]float64, n)
	for i, w := range weights {
		out[i] = w / sum
	}
	return out, nil
}

// majorityModality breaks ties by first appearance.
func majorityModality(participants []*domain.Geoid) string {
	counts := make(map[string]int)
	var order []string
	for _, p := range participants {
		if counts[p.Modality] == 0 {
			order = append(order, p.Modality)
		}
		counts[p.Modality]++
	}

	best := order[0]
	for _, m := range order[1:] {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return best
}

func weightedBarycenter(participants []*domain.Geoid, weights []float64) []float64 {
	sum := make([]float64, participants[0].Dim())
	for i, p := range participants {
		sum = vecmath.Add(sum, vecmath.Scale(p.Essence, weights[i]))
	}
	return vecmath.Normalize(sum)
}

func rankFusion(participants []*domain.Geoid) []float64 {
	essences := make([][]float64, len(participants))
	for i, p := range participants {
		essences[i] = p.Essence
	}
	vector := vecmath.Normalize(vecmath.Mean(essences))

	for pass := 0; pass < RankFusionPasses; pass++ {
		direction := make([]float64, len(vector))
		for _, p := range participants {
			direction = vecmath.Add(direction, vecmath.Scale(p.Essence, sign(vecmath.Dot(p.Essence, vector))))
		}
		direction = vecmath.Normalize(direction)
		vector = vecmath.Normalize(vecmath.Scale(vecmath.Add(vector, direction), 0.5))
	}
	return vector
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
