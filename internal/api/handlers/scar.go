package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/substrate/internal/scar"
	"github.com/Harshitk-cp/substrate/internal/service"
	"github.com/google/uuid"
)

type ScarHandler struct {
	svc *service.SubstrateService
}

func NewScarHandler(svc *service.SubstrateService) *ScarHandler {
	return &ScarHandler{svc: svc}
}

type createScarRequest struct {
	GeoidIDs           []string       `json:"geoid_ids"`
	EventID            string         `json:"event_id,omitempty"`
	Intensity          float64        `json:"intensity"`
	ResonanceSignature []float64      `json:"resonance_signature,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Create records a scar directly, bypassing metabolism.
func (h *ScarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScarRequest
	if !decode(w, r, &req) {
		return
	}

	ids, err := parseIDs(req.GeoidIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geoid id")
		return
	}

	var eventID uuid.UUID
	if req.EventID != "" {
		if eventID, err = uuid.Parse(req.EventID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid event_id")
			return
		}
	}

	sc, err := h.svc.CreateScar(service.ScarInput{
		GeoidIDs:  ids,
		EventID:   eventID,
		Intensity: req.Intensity,
		Signature: req.ResonanceSignature,
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (h *ScarHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	sc, err := h.svc.Scar(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type reactivateRequest struct {
	Boost *float64 `json:"boost,omitempty"`
}

func (h *ScarHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req reactivateRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	boost := service.DefaultReactivateBoost
	if req.Boost != nil {
		boost = *req.Boost
	}

	sc, err := h.svc.ReactivateScar(id, boost)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *ScarHandler) Decay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"decayed": h.svc.DecayScars()})
}

type searchScarsRequest struct {
	Vector []float64 `json:"vector"`
	TopK   int       `json:"top_k"`
}

// Search ranks scars by resonance with the query vector. Recency plays no
// part in the ordering.
func (h *ScarHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchScarsRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Vector) == 0 {
		writeError(w, http.StatusBadRequest, "vector is required")
		return
	}

	hits, err := h.svc.SearchScars(req.Vector, req.TopK)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if hits == nil {
		hits = []scar.Scored{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}
