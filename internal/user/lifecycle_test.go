package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTombstoneEmail(t *testing.T) {
	id := uuid.MustParse("7b0d8c2e-1f7a-4f3e-9d2b-6c5a4e3f2d1b")
	assert.Equal(t, "deleted+7b0d8c2e-1f7a-4f3e-9d2b-6c5a4e3f2d1b@deleted.local", TombstoneEmail(id))
}

func TestMergeMetadataKeepsBase(t *testing.T) {
	base := map[string]any{"tenant_id": "t1", "role": "admin"}
	merged := mergeMetadata(base, map[string]any{"blocked": true, "role": "technician"})

	assert.Equal(t, "t1", merged["tenant_id"])
	assert.Equal(t, "technician", merged["role"])
	assert.Equal(t, true, merged["blocked"])

	// base stays untouched
	assert.Equal(t, "admin", base["role"])
	_, ok := base["blocked"]
	assert.False(t, ok)
}

func TestMergeMetadataNilBase(t *testing.T) {
	merged := mergeMetadata(nil, map[string]any{"deleted": true})
	assert.Equal(t, map[string]any{"deleted": true}, merged)
}

func TestMetadataBool(t *testing.T) {
	assert.True(t, metadataBool(map[string]any{"deleted": true}, "deleted"))
	assert.False(t, metadataBool(map[string]any{"deleted": false}, "deleted"))
	assert.False(t, metadataBool(map[string]any{"deleted": "true"}, "deleted"))
	assert.False(t, metadataBool(nil, "deleted"))
}
