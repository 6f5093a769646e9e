// Package queue enqueues background jobs and registers their handlers.
package queue

const (
	// TypeChunksRebuild regenerates a tenant's entire chunk index from its
	// stored document files.
	TypeChunksRebuild = "chunks:rebuild"
)

type ChunksRebuildPayload struct {
	TenantID string `json:"tenant_id"`
}
