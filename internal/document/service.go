// Package document manages documents, their versioned file attachments and
// their equipment links.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ativushq/ativus-backend/internal/database"
	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/storage"
	"github.com/ativushq/ativus-backend/pkg/sanitize"
)

// SignedURLTTL is how long generated download links stay valid.
const SignedURLTTL = time.Hour

type Service struct {
	db            database.Querier
	storage       storage.Storage
	bucket        string
	legacyBuckets []string
}

func NewService(db database.Querier, store storage.Storage, bucket string, legacyBuckets []string) *Service {
	return &Service{db: db, storage: store, bucket: bucket, legacyBuckets: legacyBuckets}
}

const documentColumns = "id, tenant_id, title, category, category_id, equipment_id, created_by, created_at, updated_at"

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.TenantID, &d.Title, &d.Category, &d.CategoryID, &d.EquipmentID, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE tenant_id = $1 ORDER BY created_at DESC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Document, error) {
	d, err := scanDocument(s.db.QueryRow(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

type CreateInput struct {
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	CategoryID  *uuid.UUID `json:"category_id"`
	EquipmentID *uuid.UUID `json:"equipment_id"`
}

// Create inserts a document. The denormalized category name must resolve to a
// non-empty string: either given directly or looked up through CategoryID.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, createdBy *uuid.UUID, in CreateInput) (*models.Document, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" && in.CategoryID != nil {
		cat, err := s.GetCategory(ctx, tenantID, *in.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		category = cat.Name
	}
	if category == "" {
		return nil, fmt.Errorf("%w: categoria é obrigatória", models.ErrInvalid)
	}

	d, err := scanDocument(s.db.QueryRow(ctx,
		`INSERT INTO documents (id, tenant_id, title, category, category_id, equipment_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+documentColumns,
		uuid.New(), tenantID, in.Title, category, in.CategoryID, in.EquipmentID, createdBy,
	))
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	versions, err := s.ListVersions(ctx, tenantID, id)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if err := s.DeleteVersion(ctx, tenantID, v.ID); err != nil {
			return err
		}
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Upload stores a file under the current bucket and returns the compound
// "bucket/key" path to persist on a version row. The original filename is
// sanitized before it becomes part of the key.
func (s *Service) Upload(ctx context.Context, tenantID, documentID uuid.UUID, filename, contentType string, data io.Reader) (string, error) {
	name := sanitize.FileName(filename)
	key := fmt.Sprintf("documents/%s/%s/%d_%s", tenantID, documentID, time.Now().UnixMilli(), name)

	if err := s.storage.Upload(ctx, s.bucket, key, data, contentType); err != nil {
		return "", fmt.Errorf("upload document file: %w", err)
	}
	return s.bucket + "/" + key, nil
}

const versionColumns = "id, tenant_id, document_id, version, file_path, file_name, valid_from, valid_until, created_at"

func scanVersion(row pgx.Row) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	err := row.Scan(&v.ID, &v.TenantID, &v.DocumentID, &v.Version, &v.FilePath, &v.FileName, &v.ValidFrom, &v.ValidUntil, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type VersionInput struct {
	DocumentID uuid.UUID  `json:"document_id"`
	Version    string     `json:"version"`
	FilePath   string     `json:"file_path"`
	FileName   string     `json:"file_name"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
}

func (s *Service) CreateVersion(ctx context.Context, tenantID uuid.UUID, in VersionInput) (*models.DocumentVersion, error) {
	v, err := scanVersion(s.db.QueryRow(ctx,
		`INSERT INTO document_versions (id, tenant_id, document_id, version, file_path, file_name, valid_from, valid_until)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+versionColumns,
		uuid.New(), tenantID, in.DocumentID, in.Version, in.FilePath, in.FileName, in.ValidFrom, in.ValidUntil,
	))
	if err != nil {
		return nil, fmt.Errorf("insert document version: %w", err)
	}
	return v, nil
}

func (s *Service) ListVersions(ctx context.Context, tenantID, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+versionColumns+" FROM document_versions WHERE document_id = $1 AND tenant_id = $2 ORDER BY created_at DESC",
		documentID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()

	versions := []models.DocumentVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, nil
}

func (s *Service) GetVersion(ctx context.Context, tenantID, id uuid.UUID) (*models.DocumentVersion, error) {
	v, err := scanVersion(s.db.QueryRow(ctx,
		"SELECT "+versionColumns+" FROM document_versions WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document version: %w", err)
	}
	return v, nil
}

// DeleteVersion removes the stored object first, then the row. The ordering
// matters: a storage failure aborts the sequence and keeps the row, so a
// manual retry still has the path at hand.
func (s *Service) DeleteVersion(ctx context.Context, tenantID, id uuid.UUID) error {
	v, err := s.GetVersion(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if v.FilePath != "" {
		bucket, key, ok := strings.Cut(v.FilePath, "/")
		if !ok {
			bucket, key = s.bucket, v.FilePath
		}
		if err := s.storage.Delete(ctx, bucket, key); err != nil {
			return fmt.Errorf("delete stored object %s: %w", v.FilePath, err)
		}
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM document_versions WHERE id = $1 AND tenant_id = $2", id, tenantID); err != nil {
		return fmt.Errorf("delete version row: %w", err)
	}
	return nil
}

// SignedVersionURL resolves the stored path into bucket/key candidates and
// returns the first signed URL the backend accepts (legacy-bucket fallback).
func (s *Service) SignedVersionURL(ctx context.Context, tenantID, versionID uuid.UUID) (string, error) {
	v, err := s.GetVersion(ctx, tenantID, versionID)
	if err != nil {
		return "", err
	}

	candidates := storage.ResolveCandidates(v.FilePath, s.bucket, s.legacyBuckets)
	url, err := storage.SignWithFallback(ctx, s.storage, candidates, SignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("sign url for version %s: %w", versionID, err)
	}
	return url, nil
}

// AddLinks creates document↔equipment links, skipping duplicates.
func (s *Service) AddLinks(ctx context.Context, tenantID, documentID uuid.UUID, equipmentIDs []uuid.UUID) error {
	for _, eid := range equipmentIDs {
		_, err := s.db.Exec(ctx,
			`INSERT INTO document_equipment (document_id, equipment_id, tenant_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (document_id, equipment_id) DO NOTHING`,
			documentID, eid, tenantID,
		)
		if err != nil {
			return fmt.Errorf("link equipment %s: %w", eid, err)
		}
	}
	return nil
}

// RemoveLinks deletes links for the document. With an empty equipmentIDs list
// every link of the document goes away.
func (s *Service) RemoveLinks(ctx context.Context, tenantID, documentID uuid.UUID, equipmentIDs []uuid.UUID) error {
	var err error
	if len(equipmentIDs) == 0 {
		_, err = s.db.Exec(ctx,
			"DELETE FROM document_equipment WHERE document_id = $1 AND tenant_id = $2",
			documentID, tenantID,
		)
	} else {
		_, err = s.db.Exec(ctx,
			"DELETE FROM document_equipment WHERE document_id = $1 AND tenant_id = $2 AND equipment_id = ANY($3)",
			documentID, tenantID, equipmentIDs,
		)
	}
	if err != nil {
		return fmt.Errorf("remove equipment links: %w", err)
	}
	return nil
}

func (s *Service) ListLinks(ctx context.Context, tenantID, documentID uuid.UUID) ([]models.DocumentEquipment, error) {
	rows, err := s.db.Query(ctx,
		"SELECT document_id, equipment_id, tenant_id FROM document_equipment WHERE document_id = $1 AND tenant_id = $2",
		documentID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list equipment links: %w", err)
	}
	defer rows.Close()

	links := []models.DocumentEquipment{}
	for rows.Next() {
		var l models.DocumentEquipment
		if err := rows.Scan(&l.DocumentID, &l.EquipmentID, &l.TenantID); err != nil {
			return nil, fmt.Errorf("scan equipment link: %w", err)
		}
		links = append(links, l)
	}
	return links, nil
}
