// Package textextract pulls plain text out of uploaded documents so they can
// be chunked and embedded.
package textextract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract returns the plain-text content of a stored document. fileType may
// be a MIME type or a file extension.
func Extract(data io.ReaderAt, size int64, fileType string) (string, error) {
	switch normalizeType(fileType) {
	case "pdf":
		return fromPDF(data, size)
	case "docx":
		return fromDOCX(data, size)
	case "txt":
		return fromTXT(data, size)
	default:
		return "", fmt.Errorf("unsupported file type: %s", fileType)
	}
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimPrefix(t, "."))
	switch t {
	case "pdf", "application/pdf":
		return "pdf"
	case "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case "txt", "text/plain":
		return "txt"
	}
	return t
}

func fromPDF(data io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func fromDOCX(data io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range zr.File {
		if path.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		return dropTags(string(raw)), nil
	}
	return "", fmt.Errorf("document.xml not found in DOCX")
}

func fromTXT(data io.ReaderAt, size int64) (string, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", fmt.Errorf("read text file: %w", err)
	}
	return string(bytes.TrimSpace(buf)), nil
}

// dropTags removes XML markup, keeping element text separated by spaces.
func dropTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteByte(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
