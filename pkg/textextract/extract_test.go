package textextract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTXT(t *testing.T) {
	data := []byte("  laudo de inspeção\n")
	text, err := Extract(bytes.NewReader(data), int64(len(data)), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "laudo de inspeção", text)
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>plano de</w:t></w:r><w:r><w:t>manutenção</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := Extract(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "plano de manutenção", text)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract(strings.NewReader("x"), 1, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
