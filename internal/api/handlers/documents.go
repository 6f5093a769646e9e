package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ativushq/ativus-backend/internal/document"
	"github.com/ativushq/ativus-backend/internal/embedding"
	"github.com/ativushq/ativus-backend/internal/queue"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
)

type DocumentHandler struct {
	svc     *document.Service
	vectors *vectorstore.Store
	embed   embedding.Provider
	queue   *queue.Client
}

func NewDocumentHandler(svc *document.Service, vectors *vectorstore.Store, embed embedding.Provider, qc *queue.Client) *DocumentHandler {
	return &DocumentHandler{svc: svc, vectors: vectors, embed: embed, queue: qc}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	docs, err := h.svc.List(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.svc.GetByID(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var in document.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Title == "" {
		writeError(w, http.StatusBadRequest, "título é obrigatório")
		return
	}

	d, err := h.svc.Create(r.Context(), tenantID, actorID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.vectors.DeleteDocument(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload stores a multipart file for an existing document and returns its
// compound "bucket/key" path, without recording a version row. Callers attach
// the path themselves in a follow-up request.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "formulário multipart inválido")
		return
	}
	docID, err := uuid.Parse(r.FormValue("document_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "document_id é obrigatório")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "arquivo é obrigatório")
		return
	}
	defer file.Close()

	if _, err := h.svc.GetByID(r.Context(), tenantID, docID); err != nil {
		writeServiceError(w, err)
		return
	}

	filePath, err := h.svc.Upload(r.Context(), tenantID, docID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": filePath})
}

// UploadVersion receives a multipart file plus version metadata, stores the
// file and records the new version row.
func (h *DocumentHandler) UploadVersion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "formulário multipart inválido")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "arquivo é obrigatório")
		return
	}
	defer file.Close()

	if _, err := h.svc.GetByID(r.Context(), tenantID, docID); err != nil {
		writeServiceError(w, err)
		return
	}

	filePath, err := h.svc.Upload(r.Context(), tenantID, docID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	in := document.VersionInput{
		DocumentID: docID,
		Version:    r.FormValue("version"),
		FilePath:   filePath,
		FileName:   header.Filename,
	}
	if v := r.FormValue("valid_from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			in.ValidFrom = &t
		}
	}
	if v := r.FormValue("valid_until"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			in.ValidUntil = &t
		}
	}

	version, err := h.svc.CreateVersion(r.Context(), tenantID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func (h *DocumentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	versions, err := h.svc.ListVersions(r.Context(), tenantID, docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *DocumentHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "versionId")
	if !ok {
		return
	}

	if err := h.svc.DeleteVersion(r.Context(), tenantID, versionID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VersionURL returns a time-limited signed download URL for a version's file.
func (h *DocumentHandler) VersionURL(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "versionId")
	if !ok {
		return
	}

	url, err := h.svc.SignedVersionURL(r.Context(), tenantID, versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type linksRequest struct {
	EquipmentIDs []uuid.UUID `json:"equipment_ids"`
}

func (h *DocumentHandler) AddLinks(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req linksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.EquipmentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "equipment_ids é obrigatório")
		return
	}

	if err := h.svc.AddLinks(r.Context(), tenantID, docID, req.EquipmentIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

func (h *DocumentHandler) RemoveLinks(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req linksRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	if err := h.svc.RemoveLinks(r.Context(), tenantID, docID, req.EquipmentIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

func (h *DocumentHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	links, err := h.svc.ListLinks(r.Context(), tenantID, docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Search runs an embedding similarity search over the tenant's chunks.
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query é obrigatória")
		return
	}

	vec, err := h.embed.EmbedSingle(r.Context(), req.Query)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	results, err := h.vectors.Search(r.Context(), vec, vectorstore.SearchOptions{
		TenantID: tenantID,
		TopK:     req.TopK,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []vectorstore.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

// Reprocess queues a wholesale rebuild of the tenant's chunk index.
func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := h.queue.EnqueueChunksRebuild(queue.ChunksRebuildPayload{TenantID: tenantID.String()}); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
