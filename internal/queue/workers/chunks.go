// Package workers holds the asynq task handlers run by cmd/worker.
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ativushq/ativus-backend/internal/document"
	"github.com/ativushq/ativus-backend/internal/embedding"
	"github.com/ativushq/ativus-backend/internal/queue"
	"github.com/ativushq/ativus-backend/internal/storage"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
	"github.com/ativushq/ativus-backend/pkg/chunker"
	"github.com/ativushq/ativus-backend/pkg/textextract"
)

// ChunksWorker rebuilds a tenant's chunk index from scratch: every document's
// latest version is downloaded, extracted, chunked and embedded, then the
// tenant's chunk set is swapped in one transaction.
type ChunksWorker struct {
	docs          *document.Service
	store         storage.Storage
	vectors       *vectorstore.Store
	embed         embedding.Provider
	bucket        string
	legacyBuckets []string
	logger        *slog.Logger
}

func NewChunksWorker(docs *document.Service, store storage.Storage, vectors *vectorstore.Store, embed embedding.Provider, bucket string, legacyBuckets []string, logger *slog.Logger) *ChunksWorker {
	return &ChunksWorker{
		docs:          docs,
		store:         store,
		vectors:       vectors,
		embed:         embed,
		bucket:        bucket,
		legacyBuckets: legacyBuckets,
		logger:        logger,
	}
}

func (w *ChunksWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ChunksRebuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("parse tenant id: %w", err)
	}

	w.logger.Info("rebuilding chunk index", "tenant_id", tenantID)

	docs, err := w.docs.List(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var chunks []vectorstore.Chunk
	for _, doc := range docs {
		versions, err := w.docs.ListVersions(ctx, tenantID, doc.ID)
		if err != nil {
			return fmt.Errorf("list versions of %s: %w", doc.ID, err)
		}
		if len(versions) == 0 {
			continue
		}
		latest := versions[0]

		text, err := w.extractVersion(ctx, latest.FilePath, latest.FileName)
		if err != nil {
			// One unreadable file must not sink the whole rebuild.
			w.logger.Warn("skipping document in rebuild",
				"tenant_id", tenantID, "document_id", doc.ID, "error", err)
			continue
		}

		pieces := chunker.Split(text, chunker.DefaultOptions())
		if len(pieces) == 0 {
			continue
		}

		texts := make([]string, len(pieces))
		for i, p := range pieces {
			texts[i] = p.Content
		}
		vectors, err := w.embed.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		if len(vectors) != len(pieces) {
			return fmt.Errorf("embed document %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(pieces))
		}

		for i, p := range pieces {
			chunks = append(chunks, vectorstore.Chunk{
				DocumentID: doc.ID,
				TenantID:   tenantID,
				ChunkIndex: p.Index,
				Content:    p.Content,
				Embedding:  vectors[i],
				Source:     latest.FileName,
			})
		}
	}

	if err := w.vectors.ReplaceTenantChunks(ctx, tenantID, chunks); err != nil {
		return fmt.Errorf("replace tenant chunks: %w", err)
	}

	w.logger.Info("chunk index rebuilt", "tenant_id", tenantID, "chunks", len(chunks))
	return nil
}

// extractVersion downloads the stored file, trying the same bucket candidates
// the signed-URL path uses, and extracts its plain text.
func (w *ChunksWorker) extractVersion(ctx context.Context, filePath, fileName string) (string, error) {
	candidates := storage.ResolveCandidates(filePath, w.bucket, w.legacyBuckets)

	var reader io.ReadCloser
	var lastErr error
	for _, c := range candidates {
		r, err := w.store.Download(ctx, c.Bucket, c.Key)
		if err == nil {
			reader = r
			break
		}
		lastErr = err
	}
	if reader == nil {
		return "", fmt.Errorf("download %s: %w", filePath, lastErr)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filePath, err)
	}

	return textextract.Extract(bytes.NewReader(data), int64(len(data)), path.Ext(fileName))
}
