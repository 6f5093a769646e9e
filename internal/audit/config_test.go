package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checklist.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const baseConfig = `{
	"version": "2024-03",
	"engine": "checklist-v1",
	"items": [
		{"item_id": "1.2", "titulo": "Plano de manutenção", "campos": ["periodicidade"], "palavras_chave": ["manutenção"]},
		{"item_id": "1.1", "titulo": "ART do responsável", "campos": ["numero_art"], "palavras_chave": ["art"]},
		{"item_id": "9.9", "titulo": "Fora da lista", "campos": ["x"]}
	]
}`

func TestLoadConfigFiltersAndSorts(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Items, 2)
	assert.Equal(t, "1.1", cfg.Items[0].ItemID)
	assert.Equal(t, "1.2", cfg.Items[1].ItemID)
	assert.Nil(t, cfg.Item("9.9"))
	assert.NotNil(t, cfg.Item("1.2"))
	assert.Equal(t, "2024-03", cfg.Version)
	assert.NotEmpty(t, cfg.Hash)
}

func TestLoadConfigHashDeterministic(t *testing.T) {
	first, err := LoadConfig(writeConfig(t, baseConfig))
	require.NoError(t, err)
	second, err := LoadConfig(writeConfig(t, baseConfig))
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
}

func TestLoadConfigHashTracksWhitelistedContent(t *testing.T) {
	base, err := LoadConfig(writeConfig(t, baseConfig))
	require.NoError(t, err)

	changedInside := `{
		"items": [
			{"item_id": "1.2", "titulo": "Plano de manutenção", "campos": ["periodicidade", "responsavel"], "palavras_chave": ["manutenção"]},
			{"item_id": "1.1", "titulo": "ART do responsável", "campos": ["numero_art"], "palavras_chave": ["art"]}
		]
	}`
	inside, err := LoadConfig(writeConfig(t, changedInside))
	require.NoError(t, err)
	assert.NotEqual(t, base.Hash, inside.Hash)

	changedOutside := `{
		"version": "2024-03",
		"engine": "checklist-v1",
		"items": [
			{"item_id": "1.2", "titulo": "Plano de manutenção", "campos": ["periodicidade"], "palavras_chave": ["manutenção"]},
			{"item_id": "1.1", "titulo": "ART do responsável", "campos": ["numero_art"], "palavras_chave": ["art"]},
			{"item_id": "9.9", "titulo": "Fora da lista, agora diferente", "campos": ["y", "z"]}
		]
	}`
	outside, err := LoadConfig(writeConfig(t, changedOutside))
	require.NoError(t, err)
	assert.Equal(t, base.Hash, outside.Hash)
}

func TestLoadConfigBareArray(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `[{"item_id": "1.3", "titulo": "Laudo SPDA"}]`))
	require.NoError(t, err)
	require.Len(t, cfg.Items, 1)
	assert.Equal(t, "checklist-v1", cfg.Engine)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
