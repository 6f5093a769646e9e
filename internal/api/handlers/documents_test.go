package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ativushq/ativus-backend/internal/database/databasetest"
	"github.com/ativushq/ativus-backend/internal/document"
	"github.com/ativushq/ativus-backend/internal/tenant"
)

// fakeStore records uploads and deletions, and signs every URL it is asked to.
type fakeStore struct {
	uploadBucket string
	uploadKey    string
	signed       []string
}

func (f *fakeStore) Upload(_ context.Context, bucket, path string, data io.Reader, _ string) error {
	f.uploadBucket, f.uploadKey = bucket, path
	io.Copy(io.Discard, data)
	return nil
}

func (f *fakeStore) Download(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeStore) Delete(context.Context, string, string) error { return nil }

func (f *fakeStore) SignURL(_ context.Context, bucket, path string, _ time.Duration) (string, error) {
	url := "https://signed.example/" + bucket + "/" + path
	f.signed = append(f.signed, url)
	return url, nil
}

func (f *fakeStore) GetPublicURL(bucket, path string) string {
	return "https://public.example/" + bucket + "/" + path
}

func tenantCtx(tenantID, userID uuid.UUID) context.Context {
	return tenant.WithIdentity(context.Background(), &tenant.Identity{
		UserID:   userID,
		TenantID: tenantID,
		Role:     "authenticated",
	})
}

// withURLParam attaches a chi route parameter to the request context.
func withURLParam(r *http.Request, name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func documentRowFor(tenantID, docID uuid.UUID) databasetest.Row {
	return databasetest.Row{ScanFunc: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = docID
		*dest[1].(*uuid.UUID) = tenantID
		*dest[2].(*string) = "Laudo SPDA"
		*dest[3].(*string) = "Laudos"
		*dest[7].(*time.Time) = time.Now()
		*dest[8].(*time.Time) = time.Now()
		return nil
	}}
}

func TestDocumentUploadStandalone(t *testing.T) {
	tenantID, docID := uuid.New(), uuid.New()

	db := &databasetest.DB{}
	db.QueryRowFunc = func(sql string, args []any) pgx.Row {
		if strings.Contains(sql, "FROM documents") {
			return documentRowFor(tenantID, docID)
		}
		return databasetest.NoRow()
	}
	store := &fakeStore{}
	svc := document.NewService(db, store, "documents", nil)
	h := NewDocumentHandler(svc, nil, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("document_id", docID.String()))
	fw, err := mw.CreateFormFile("file", "Relatório Final (v2).pdf")
	require.NoError(t, err)
	fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(tenantCtx(tenantID, uuid.New()))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	// path is bucket-qualified and the original name arrives sanitized
	assert.Equal(t, "documents", store.uploadBucket)
	assert.True(t, strings.HasPrefix(store.uploadKey, "documents/"+tenantID.String()+"/"+docID.String()+"/"))
	assert.True(t, strings.HasSuffix(store.uploadKey, "_Relatorio_Final_v2_.pdf"))
	assert.Equal(t, "documents/"+store.uploadKey, body["path"])
}

func TestDocumentUploadMissingDocumentID(t *testing.T) {
	h := NewDocumentHandler(document.NewService(&databasetest.DB{}, &fakeStore{}, "documents", nil), nil, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "laudo.pdf")
	require.NoError(t, err)
	fw.Write([]byte("x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(tenantCtx(uuid.New(), uuid.New()))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryDeleteNoContent(t *testing.T) {
	tenantID, catID := uuid.New(), uuid.New()

	db := &databasetest.DB{}
	db.QueryRowFunc = func(sql string, args []any) pgx.Row {
		switch {
		case strings.Contains(sql, "COUNT(*)"):
			return databasetest.Row{ScanFunc: func(dest ...any) error {
				*dest[0].(*int) = 0
				return nil
			}}
		case strings.Contains(sql, "FROM document_categories"):
			return databasetest.Row{ScanFunc: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = catID
				*dest[1].(*uuid.UUID) = tenantID
				*dest[2].(*string) = "OBS"
				*dest[3].(*string) = "Obsoleta"
				*dest[4].(*time.Time) = time.Now()
				return nil
			}}
		}
		return databasetest.NoRow()
	}
	h := NewCategoryHandler(document.NewService(db, &fakeStore{}, "documents", nil))

	req := httptest.NewRequest(http.MethodDelete, "/api/document-categories/"+catID.String(), nil)
	req = withURLParam(req.WithContext(tenantCtx(tenantID, uuid.New())), "id", catID.String())
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
