package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/service"
)

// ObserveHandler serves read-only projections and the manual cycle trigger.
type ObserveHandler struct {
	svc *service.SubstrateService
}

func NewObserveHandler(svc *service.SubstrateService) *ObserveHandler {
	return &ObserveHandler{svc: svc}
}

func (h *ObserveHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

// Audit replays the ledger, optionally filtered by ?type=.
func (h *ObserveHandler) Audit(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.AuditEvents(r.URL.Query().Get("type"))
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *ObserveHandler) Field(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"field": h.svc.ResonanceField()})
}

func (h *ObserveHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunCycle(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
