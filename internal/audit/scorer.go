package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
	"github.com/ativushq/ativus-backend/pkg/sanitize"
)

// ItemResult is the computed outcome for one checklist item before it is
// persisted on a run.
type ItemResult struct {
	ItemID           string
	ScorePercentual  float64
	ItensAtendidos   []string
	ItensFaltantes   []string
	Riscos           []string
	Inconsistencias  []string
	Recomendacoes    []string
	TrechosEvidencia []string
}

const (
	scoreTopK     = 20
	excerptRunes  = 240
	maxExcerpts   = 5
	minChunkScore = 0.5
)

// scoreItem gathers the tenant's evidence links and relevant chunks for the
// item and hands them to the deterministic scorer.
func (s *Service) scoreItem(ctx context.Context, tenantID uuid.UUID, item ConfigItem) (ItemResult, error) {
	evidence, err := s.ListEvidence(ctx, tenantID, item.ItemID)
	if err != nil {
		return ItemResult{ItemID: item.ItemID}, err
	}

	chunks, err := s.itemChunks(ctx, tenantID, item)
	if err != nil {
		return ItemResult{ItemID: item.ItemID}, err
	}

	return scoreAgainst(item, evidence, chunks), nil
}

// scoreAgainst evaluates one checklist item against evidence links and chunk
// matches. A required field counts as satisfied when its folded form appears
// in linked-evidence notes or in a matched chunk.
func scoreAgainst(item ConfigItem, evidence []models.AuditItemEvidence, chunks []vectorstore.SearchResult) ItemResult {
	res := ItemResult{
		ItemID:           item.ItemID,
		ItensAtendidos:   []string{},
		ItensFaltantes:   []string{},
		Riscos:           []string{},
		Inconsistencias:  []string{},
		Recomendacoes:    []string{},
		TrechosEvidencia: []string{},
	}

	haystack := buildHaystack(evidence, chunks)

	required := append(append([]string{}, item.Campos...), item.Requisitos...)
	for _, field := range required {
		if field == "" {
			continue
		}
		if strings.Contains(haystack, sanitize.Fold(field)) {
			res.ItensAtendidos = append(res.ItensAtendidos, field)
		} else {
			res.ItensFaltantes = append(res.ItensFaltantes, field)
			res.Riscos = append(res.Riscos, fmt.Sprintf("Requisito sem evidência: %s", field))
			res.Recomendacoes = append(res.Recomendacoes, fmt.Sprintf("Anexar documento que comprove %q para o item %s", field, item.ItemID))
		}
	}

	if len(required) > 0 {
		res.ScorePercentual = float64(len(res.ItensAtendidos)) / float64(len(required)) * 100
	} else if len(evidence) > 0 || len(chunks) > 0 {
		res.ScorePercentual = 100
	}

	if len(evidence) == 0 && len(item.Evidencias) > 0 {
		res.Inconsistencias = append(res.Inconsistencias,
			fmt.Sprintf("Item %s exige evidências (%s) mas nenhum documento foi vinculado", item.ItemID, strings.Join(item.Evidencias, ", ")))
	}
	linked := make(map[uuid.UUID]bool, len(evidence))
	for _, e := range evidence {
		linked[e.DocumentID] = true
	}
	for _, c := range chunks {
		delete(linked, c.DocumentID)
	}
	unindexed := make([]string, 0, len(linked))
	for docID := range linked {
		unindexed = append(unindexed, docID.String())
	}
	sort.Strings(unindexed)
	for _, docID := range unindexed {
		res.Inconsistencias = append(res.Inconsistencias,
			fmt.Sprintf("Documento %s está vinculado como evidência mas não possui conteúdo indexado", docID))
	}

	for _, c := range chunks {
		if len(res.TrechosEvidencia) >= maxExcerpts {
			break
		}
		res.TrechosEvidencia = append(res.TrechosEvidencia, excerpt(c.Content))
	}

	return res
}

// itemChunks searches the tenant corpus for chunks relevant to the item,
// honoring exclusions and dropping weak matches.
func (s *Service) itemChunks(ctx context.Context, tenantID uuid.UUID, item ConfigItem) ([]vectorstore.SearchResult, error) {
	query := item.Titulo
	if len(item.PalavrasChave) > 0 {
		query += " " + strings.Join(item.PalavrasChave, " ")
	}

	vec, err := s.embed.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed item query: %w", err)
	}

	excluded, err := s.excludedDocumentIDs(ctx, tenantID, item.ItemID)
	if err != nil {
		return nil, err
	}

	results, err := s.search.Search(ctx, vec, vectorstore.SearchOptions{
		TenantID:           tenantID,
		TopK:               scoreTopK,
		ExcludeDocumentIDs: excluded,
	})
	if err != nil {
		return nil, fmt.Errorf("item chunk search: %w", err)
	}

	kept := results[:0]
	for _, r := range results {
		if r.Score >= minChunkScore {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func buildHaystack(evidence []models.AuditItemEvidence, chunks []vectorstore.SearchResult) string {
	var b strings.Builder
	for _, e := range evidence {
		b.WriteString(e.Observacao)
		b.WriteByte(' ')
		b.WriteString(e.TipoEvidencia)
		b.WriteByte(' ')
	}
	for _, c := range chunks {
		b.WriteString(c.Content)
		b.WriteByte(' ')
	}
	return sanitize.Fold(b.String())
}

func excerpt(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= excerptRunes {
		return content
	}
	return string(runes[:excerptRunes]) + "…"
}
