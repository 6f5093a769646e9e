package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ativushq/ativus-backend/internal/audit"
)

type AuditHandler struct {
	svc *audit.Service
}

func NewAuditHandler(svc *audit.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// Config exposes the loaded checklist with its content hash so clients can
// detect definition changes between runs.
func (h *AuditHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg := h.svc.Config()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":     cfg.Version,
		"engine":      cfg.Engine,
		"config_hash": cfg.Hash,
		"items":       cfg.Items,
	})
}

func (h *AuditHandler) Run(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	run, results, err := h.svc.Run(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"run": run, "results": results})
}

func (h *AuditHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	runs, err := h.svc.ListRuns(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// LatestResults returns the results of the most recent run, or an empty list
// for a tenant that never ran an audit.
func (h *AuditHandler) LatestResults(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	results, err := h.svc.LatestResults(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *AuditHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	evidence, err := h.svc.ListEvidence(r.Context(), tenantID, r.URL.Query().Get("item_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evidence)
}

func (h *AuditHandler) AddEvidence(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var in audit.EvidenceInput
	if !decodeJSON(w, r, &in) {
		return
	}

	e, err := h.svc.AddEvidence(r.Context(), tenantID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *AuditHandler) RemoveEvidence(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.RemoveEvidence(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Exclude marks a document as never auto-matching the item. Re-excluding an
// already excluded pair succeeds quietly.
func (h *AuditHandler) Exclude(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemId")
	docID, ok := pathID(w, r, "documentId")
	if !ok {
		return
	}

	if err := h.svc.ExcludeDocument(r.Context(), tenantID, itemID, docID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "excluded"})
}

func (h *AuditHandler) RemoveExclusion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemId")
	docID, ok := pathID(w, r, "documentId")
	if !ok {
		return
	}

	if err := h.svc.RemoveExclusion(r.Context(), tenantID, itemID, docID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuditHandler) ListExclusions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	exclusions, err := h.svc.ListExclusions(r.Context(), tenantID, r.URL.Query().Get("item_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exclusions)
}

// Suggestions returns chunk matches for an item's keywords, minus the item's
// excluded documents.
func (h *AuditHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemId")

	topK, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Suggestions(r.Context(), tenantID, itemID, topK)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
