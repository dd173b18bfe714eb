package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const maxSnippet = 4000

func buildAnalysisPrompt(text string, categories []domain.Category) string {
	snippet := truncate(text, maxSnippet)

	var hints strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&hints, "- %s: %s\n", c.Name, c.Description)
	}
	if hints.Len() == 0 {
		hints.WriteString("- (none registered)\n")
	}

	return `You are a document analyst.
Pick the single best matching category from the list below, using the descriptions as hints.
If none fits, answer with an empty category.
Extract the important key-value pairs of the document (totals, dates, parties, identifiers).
Return strict JSON object: {"category": string, "kvps": [{"key": string, "value": string}]}.
No markdown, no extra keys.

Categories:
` + hints.String() + `
Document:
` + snippet
}

func buildChatPrompt(question string, scope domain.ChatScope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", scope.DocumentName)
	if scope.CategoryName != "" {
		fmt.Fprintf(&b, "Category: %s\n", scope.CategoryName)
	}
	b.WriteString("\n")

	switch scope.Mode {
	case domain.ChatKeyValue:
		b.WriteString("Extracted fields:\n")
		if len(scope.Fields) == 0 {
			b.WriteString("(no fields extracted)\n")
		}
		for _, kv := range scope.Fields {
			fmt.Fprintf(&b, "%s: %s\n", kv.Key, kv.Value)
		}
	default:
		if scope.Text != "" {
			b.WriteString("Content:\n")
			b.WriteString(scope.Text)
			b.WriteString("\n")
		}
		for idx, chunk := range scope.Chunks {
			fmt.Fprintf(&b, "[%d] score=%.3f\n%s\n\n", idx+1, chunk.Score, chunk.Text)
		}
	}

	return fmt.Sprintf(`Answer the user question only from the document context below.
If the context is insufficient, say it directly.

Question:
%s

Context:
%s`, question, b.String())
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
