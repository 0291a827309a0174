package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/service"
	"github.com/Harshitk-cp/substrate/internal/substrate"
	"github.com/google/uuid"
)

const (
	defaultSearchThreshold = 0.5
	defaultSearchLimit     = 10
)

type GeoidHandler struct {
	svc *service.SubstrateService
}

func NewGeoidHandler(svc *service.SubstrateService) *GeoidHandler {
	return &GeoidHandler{svc: svc}
}

// createGeoidRequest takes either raw content, encoded server-side, or a
// ready essence vector.
type createGeoidRequest struct {
	Content   string              `json:"content,omitempty"`
	Essence   []float64           `json:"essence,omitempty"`
	Modality  string              `json:"modality"`
	Symbols   []string            `json:"symbols,omitempty"`
	Relations map[string][]string `json:"relations,omitempty"`
}

func (h *GeoidHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGeoidRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Modality == "" {
		writeError(w, http.StatusBadRequest, "modality is required")
		return
	}
	if len(req.Essence) == 0 && req.Content == "" {
		writeError(w, http.StatusBadRequest, "content or essence is required")
		return
	}

	var (
		g   *domain.Geoid
		err error
	)
	if len(req.Essence) > 0 {
		relations := make(map[string][]uuid.UUID, len(req.Relations))
		for relType, raw := range req.Relations {
			ids, parseErr := parseIDs(raw)
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid relation target")
				return
			}
			relations[relType] = ids
		}
		g, err = h.svc.AddGeoid(service.GeoidInput{
			Essence:   req.Essence,
			Modality:  req.Modality,
			Symbols:   req.Symbols,
			Relations: relations,
		})
	} else {
		if len(req.Relations) > 0 {
			writeError(w, http.StatusBadRequest, "relations require an essence; add them after ingestion")
			return
		}
		g, err = h.svc.Ingest(r.Context(), req.Content, req.Modality, req.Symbols)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

func (h *GeoidHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	g, err := h.svc.Geoid(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type scoredResponse struct {
	Results []substrate.ScoredID `json:"results"`
}

// Resonant lists Geoids resonating with {id}, honoring ?threshold= and ?limit=.
func (h *GeoidHandler) Resonant(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.svc.FindResonant)
}

func (h *GeoidHandler) Contradictory(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.svc.FindContradictory)
}

func (h *GeoidHandler) search(w http.ResponseWriter, r *http.Request, find func(uuid.UUID, float64, int) ([]substrate.ScoredID, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	results, err := find(id, queryFloat(r, "threshold", defaultSearchThreshold), queryInt(r, "limit", defaultSearchLimit))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []substrate.ScoredID{}
	}
	writeJSON(w, http.StatusOK, scoredResponse{Results: results})
}

func (h *GeoidHandler) Scars(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	scars, err := h.svc.ScarsForGeoid(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scars": scars})
}

type addRelationRequest struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

func (h *GeoidHandler) AddRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req addRelationRequest
	if !decode(w, r, &req) {
		return
	}
	target, err := uuid.Parse(req.TargetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_id")
		return
	}

	if err := h.svc.AddRelation(id, req.Type, target); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
