// Package vectorstore persists and searches embedded document chunks in
// Postgres via pgvector.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type Chunk struct {
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	ChunkIndex int
	Content    string
	Embedding  []float32
	Source     string
}

type SearchOptions struct {
	TenantID           uuid.UUID
	TopK               int
	ExcludeDocumentIDs []uuid.UUID
}

type SearchResult struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Source     string    `json:"source,omitempty"`
	Score      float64   `json:"score"`
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ReplaceTenantChunks clears the tenant's entire chunk set and inserts the
// regenerated one. Reprocessing is wholesale, not incremental.
func (s *Store) ReplaceTenantChunks(ctx context.Context, tenantID uuid.UUID, chunks []Chunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM document_chunks WHERE tenant_id = $1", tenantID); err != nil {
		return fmt.Errorf("clear tenant chunks: %w", err)
	}

	for _, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (id, tenant_id, document_id, chunk_index, content, embedding, source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), tenantID, c.DocumentID, c.ChunkIndex, c.Content, pgvector.NewVector(c.Embedding), c.Source,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d of document %s: %w", c.ChunkIndex, c.DocumentID, err)
		}
	}

	return tx.Commit(ctx)
}

// Search runs a cosine-similarity search over the tenant's chunks, skipping
// excluded documents.
func (s *Store) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	embedding := pgvector.NewVector(query)
	excluded := opts.ExcludeDocumentIDs
	if excluded == nil {
		excluded = []uuid.UUID{}
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, source,
		        1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE tenant_id = $2
		   AND NOT (document_id = ANY($3))
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		embedding, opts.TenantID, excluded, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.ChunkIndex, &r.Content, &r.Source, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// DeleteDocument removes all chunks belonging to one document.
func (s *Store) DeleteDocument(ctx context.Context, tenantID, documentID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		"DELETE FROM document_chunks WHERE tenant_id = $1 AND document_id = $2",
		tenantID, documentID,
	)
	return err
}
