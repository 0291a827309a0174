package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/service"
	"github.com/google/uuid"
)

type ContradictionHandler struct {
	svc *service.SubstrateService
}

func NewContradictionHandler(svc *service.SubstrateService) *ContradictionHandler {
	return &ContradictionHandler{svc: svc}
}

type injectRequest struct {
	GeoidA    string  `json:"geoid_a"`
	GeoidB    string  `json:"geoid_b"`
	Intensity float64 `json:"intensity"`
	Notes     string  `json:"notes,omitempty"`
}

// Inject opens a contradiction directly, bypassing detection.
func (h *ContradictionHandler) Inject(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if !decode(w, r, &req) {
		return
	}

	ids, err := parseIDs([]string{req.GeoidA, req.GeoidB})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geoid id")
		return
	}

	e, err := h.svc.InjectContradiction(ids[0], ids[1], req.Intensity, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *ContradictionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": nonNilEvents(h.svc.ActiveContradictions())})
}

func (h *ContradictionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	e, err := h.svc.Contradiction(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ContradictionHandler) Detect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"created": nonNilEvents(h.svc.DetectContradictions())})
}

type amplifyRequest struct {
	Factor float64 `json:"factor"`
}

func (h *ContradictionHandler) Amplify(w http.ResponseWriter, r *http.Request) {
	var req amplifyRequest
	if !decode(w, r, &req) {
		return
	}

	n, err := h.svc.AmplifyContradictions(req.Factor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"amplified": n})
}

func (h *ContradictionHandler) Metabolize(w http.ResponseWriter, r *http.Request) {
	scars, err := h.svc.MetabolizeContradictions()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if scars == nil {
		scars = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scar_ids": scars})
}

func (h *ContradictionHandler) Conserve(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.EnforceConservation()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"injected": e})
}

func nonNilEvents(events []domain.ContradictionEvent) []domain.ContradictionEvent {
	if events == nil {
		return []domain.ContradictionEvent{}
	}
	return events
}
