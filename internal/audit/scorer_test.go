package audit

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
)

func TestScoreAgainstFullCoverage(t *testing.T) {
	item := ConfigItem{
		ItemID: "1.1",
		Titulo: "ART do responsável técnico",
		Campos: []string{"numero_art", "responsável"},
	}
	doc := uuid.New()
	evidence := []models.AuditItemEvidence{
		{DocumentID: doc, Observacao: "ART registrada, numero_art 12345, responsavel João"},
	}
	chunks := []vectorstore.SearchResult{
		{DocumentID: doc, Content: "Anotação de responsabilidade técnica emitida", Score: 0.8},
	}

	res := scoreAgainst(item, evidence, chunks)

	assert.Equal(t, float64(100), res.ScorePercentual)
	assert.ElementsMatch(t, []string{"numero_art", "responsável"}, res.ItensAtendidos)
	assert.Empty(t, res.ItensFaltantes)
	assert.Empty(t, res.Riscos)
	assert.Empty(t, res.Inconsistencias)
	assert.Len(t, res.TrechosEvidencia, 1)
}

func TestScoreAgainstMissingFields(t *testing.T) {
	item := ConfigItem{
		ItemID: "1.2",
		Campos: []string{"periodicidade", "cronograma"},
	}
	chunks := []vectorstore.SearchResult{
		{DocumentID: uuid.New(), Content: "O plano define a periodicidade mensal das inspeções", Score: 0.7},
	}

	res := scoreAgainst(item, nil, chunks)

	assert.Equal(t, float64(50), res.ScorePercentual)
	assert.Equal(t, []string{"periodicidade"}, res.ItensAtendidos)
	assert.Equal(t, []string{"cronograma"}, res.ItensFaltantes)
	assert.Len(t, res.Riscos, 1)
	assert.Len(t, res.Recomendacoes, 1)
}

func TestScoreAgainstFoldsDiacritics(t *testing.T) {
	item := ConfigItem{ItemID: "1.3", Campos: []string{"inspeção"}}
	chunks := []vectorstore.SearchResult{
		{DocumentID: uuid.New(), Content: "Relatorio de INSPECAO anual", Score: 0.9},
	}

	res := scoreAgainst(item, nil, chunks)
	assert.Equal(t, []string{"inspeção"}, res.ItensAtendidos)
}

func TestScoreAgainstFlagsUnindexedEvidence(t *testing.T) {
	doc := uuid.New()
	item := ConfigItem{ItemID: "1.4", Evidencias: []string{"laudo"}}
	evidence := []models.AuditItemEvidence{{DocumentID: doc, Observacao: "laudo anexado"}}

	res := scoreAgainst(item, evidence, nil)

	// no required fields, but evidence exists
	assert.Equal(t, float64(100), res.ScorePercentual)
	assert.Len(t, res.Inconsistencias, 1)
	assert.Contains(t, res.Inconsistencias[0], doc.String())
}

func TestScoreAgainstNothingAtAll(t *testing.T) {
	item := ConfigItem{ItemID: "1.5", Evidencias: []string{"certificado"}}

	res := scoreAgainst(item, nil, nil)

	assert.Equal(t, float64(0), res.ScorePercentual)
	assert.Len(t, res.Inconsistencias, 1)
	assert.Contains(t, res.Inconsistencias[0], "nenhum documento")
}

func TestExcerptTruncates(t *testing.T) {
	long := strings.Repeat("evidência ", 100)
	out := excerpt(long)
	assert.LessOrEqual(t, len([]rune(out)), excerptRunes+1)
	assert.True(t, strings.HasSuffix(out, "…"))

	assert.Equal(t, "curto e limpo", excerpt("  curto \n e   limpo "))
}
