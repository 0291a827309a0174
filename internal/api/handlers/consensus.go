package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/substrate/internal/booklaw"
	"github.com/Harshitk-cp/substrate/internal/consensus"
	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/service"
)

type ConsensusHandler struct {
	svc *service.SubstrateService
}

func NewConsensusHandler(svc *service.SubstrateService) *ConsensusHandler {
	return &ConsensusHandler{svc: svc}
}

type consensusRequest struct {
	GeoidIDs []string  `json:"geoid_ids"`
	Weights  []float64 `json:"weights,omitempty"`
	Method   string    `json:"method,omitempty"`
	Modality string    `json:"modality,omitempty"`
}

type consensusResponse struct {
	Geoid *domain.Geoid         `json:"geoid"`
	Event domain.ConsensusEvent `json:"event"`
}

func (h *ConsensusHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req consensusRequest
	if !decode(w, r, &req) {
		return
	}

	ids, err := parseIDs(req.GeoidIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geoid id")
		return
	}

	res, err := h.svc.GenerateConsensus(consensus.Request{
		GeoidIDs: ids,
		Weights:  req.Weights,
		Method:   domain.ConsensusMethod(req.Method),
		Modality: req.Modality,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, consensusResponse{Geoid: res.Geoid, Event: res.Event})
}

type addRuleRequest struct {
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	AppliesTo []string       `json:"applies_to,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// AddRule appends a Booklaw rule built from a registered kind.
func (h *ConsensusHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req addRuleRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.svc.AddRule(booklaw.RuleSpec{
		Name:      req.Name,
		Kind:      req.Kind,
		AppliesTo: req.AppliesTo,
		Params:    req.Params,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"rules": h.svc.Snapshot().Rules})
}
