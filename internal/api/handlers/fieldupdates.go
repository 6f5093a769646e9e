package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ativushq/ativus-backend/internal/fieldupdate"
	"github.com/ativushq/ativus-backend/internal/storage"
	"github.com/ativushq/ativus-backend/pkg/sanitize"
)

type FieldUpdateHandler struct {
	svc           *fieldupdate.Service
	store         storage.Storage
	bucket        string
	legacyBuckets []string
}

func NewFieldUpdateHandler(svc *fieldupdate.Service, store storage.Storage, bucket string, legacyBuckets []string) *FieldUpdateHandler {
	return &FieldUpdateHandler{svc: svc, store: store, bucket: bucket, legacyBuckets: legacyBuckets}
}

func (h *FieldUpdateHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	updates, err := h.svc.List(r.Context(), tenantID, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updates)
}

func (h *FieldUpdateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	f, err := h.svc.GetByID(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FieldUpdateHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var in fieldupdate.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Message == "" && in.AudioPath == "" {
		writeError(w, http.StatusBadRequest, "mensagem ou áudio é obrigatório")
		return
	}

	f, err := h.svc.Create(r.Context(), tenantID, actorID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *FieldUpdateHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in fieldupdate.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, err := h.svc.Update(r.Context(), tenantID, id, actorID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FieldUpdateHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	w.WriteHeader(http.StatusNoContent)
}

// Upload stores one or more attachments and returns their compound
// "bucket/key" paths for use in a later create or update.
func (h *FieldUpdateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "formulário multipart inválido")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "nenhum arquivo enviado")
		return
	}

	owner := "service"
	if uid := actorID(r); uid != nil {
		owner = uid.String()
	}

	paths := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "arquivo ilegível: "+header.Filename)
			return
		}

		name := sanitize.FileName(header.Filename)
		key := fmt.Sprintf("field-updates/%s/%s/%d_%s", tenantID, owner, time.Now().UnixMilli(), name)
		err = h.store.Upload(r.Context(), h.bucket, key, file, header.Header.Get("Content-Type"))
		file.Close()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		paths = append(paths, h.bucket+"/"+key)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"paths": paths})
}

type fileURLRequest struct {
	Path string `json:"path"`
}

// FileURL exchanges a stored attachment path for a signed download URL. The
// path arrives in the POST body or, for older clients, as a query parameter.
// Absolute URLs pass through untouched so callers can mix external links
// with stored paths.
func (h *FieldUpdateHandler) FileURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireTenant(w, r); !ok {
		return
	}

	path := r.URL.Query().Get("path")
	if r.Method == http.MethodPost {
		var req fileURLRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		path = req.Path
	}
	if path == "" {
		writeError(w, http.StatusBadRequest, "path é obrigatório")
		return
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		writeJSON(w, http.StatusOK, map[string]string{"url": path})
		return
	}

	candidates := storage.ResolveCandidates(path, h.bucket, h.legacyBuckets)
	url, err := storage.SignWithFallback(r.Context(), h.store, candidates, time.Hour)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
