package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"diacritics and parens", "Relatório Final (v2).pdf", "Relatorio_Final_v2_.pdf"},
		{"plain name untouched", "manual.pdf", "manual.pdf"},
		{"spaces collapse", "a   b.txt", "a_b.txt"},
		{"leading trailing junk", "  __foto__.jpg", "foto_.jpg"},
		{"cedilla", "inspeção.png", "inspecao.png"},
		{"empty", "", "arquivo"},
		{"only symbols", "***", "arquivo"},
		{"only dots and symbols", "..!..", "arquivo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.in))
		})
	}
}
