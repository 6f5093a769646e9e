package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Analyst asks an LLM to review a scored checklist item and enrich the
// qualitative fields. The deterministic score never changes: only riscos,
// inconsistencias and recomendacoes can gain entries.
type Analyst struct {
	client anthropic.Client
	model  anthropic.Model
	logger *slog.Logger
}

func NewAnalyst(apiKey string, logger *slog.Logger) *Analyst {
	return &Analyst{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model("claude-3-haiku-20240307"),
		logger: logger,
	}
}

const analystSystem = "Você é um auditor de conformidade de manutenção predial. " +
	"Receba o resultado parcial de um item de checklist e responda apenas JSON no formato " +
	`{"riscos": [], "inconsistencias": [], "recomendacoes": []}.`

type analystReply struct {
	Riscos          []string `json:"riscos"`
	Inconsistencias []string `json:"inconsistencias"`
	Recomendacoes   []string `json:"recomendacoes"`
}

// Enrich is best effort. An LLM failure is logged and the deterministic
// result goes out unchanged.
func (a *Analyst) Enrich(ctx context.Context, item ConfigItem, res *ItemResult) {
	prompt := fmt.Sprintf(
		"Item %s (%s)\nScore: %.0f%%\nAtendidos: %s\nFaltantes: %s\nTrechos:\n%s",
		item.ItemID, item.Titulo, res.ScorePercentual,
		strings.Join(res.ItensAtendidos, "; "),
		strings.Join(res.ItensFaltantes, "; "),
		strings.Join(res.TrechosEvidencia, "\n"),
	)

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: analystSystem}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		a.logger.Warn("audit analyst unavailable", "item_id", item.ItemID, "error", err)
		return
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	var reply analystReply
	if err := json.Unmarshal([]byte(extractJSON(content)), &reply); err != nil {
		a.logger.Warn("audit analyst returned non-JSON", "item_id", item.ItemID, "error", err)
		return
	}

	res.Riscos = appendNew(res.Riscos, reply.Riscos)
	res.Inconsistencias = appendNew(res.Inconsistencias, reply.Inconsistencias)
	res.Recomendacoes = appendNew(res.Recomendacoes, reply.Recomendacoes)
}

// extractJSON trims prose the model may wrap around the JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func appendNew(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		v = strings.TrimSpace(v)
		if v != "" && !seen[v] {
			dst = append(dst, v)
			seen[v] = true
		}
	}
	return dst
}
