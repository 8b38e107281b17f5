package ollama

import (
	"fmt"
	"strings"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

const maxSnippetRunes = 400

func buildRewritePrompt(query string, used []string) string {
	var sb strings.Builder
	sb.WriteString("You reformulate search queries to surface documents the previous phrasing missed.\n")
	sb.WriteString("Rewrite the query below using different vocabulary while preserving its intent.\n")
	sb.WriteString("Respond with the rewritten query only, no quotes and no explanation.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n", query)
	if len(used) > 0 {
		sb.WriteString("\nAlready tried, do not repeat:\n")
		for _, u := range used {
			fmt.Fprintf(&sb, "- %s\n", u)
		}
	}
	return sb.String()
}

func buildJudgePrompt(query string, items []domain.FusedItem) string {
	var sb strings.Builder
	sb.WriteString("You assess whether retrieved passages are enough to answer a question.\n")
	sb.WriteString("Respond with a JSON object: {\"sufficient\": bool, \"rationale\": string, \"confidence\": number between 0 and 1}.\n\n")
	fmt.Fprintf(&sb, "Question: %s\n\nPassages:\n", query)
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, snippet(item.Payload))
	}
	return sb.String()
}

func buildClassifyPrompt(query string) string {
	var sb strings.Builder
	sb.WriteString("Classify the query into exactly one type.\n")
	fmt.Fprintf(&sb, "Allowed types: %s.\n", strings.Join(typeLabels(), ", "))
	sb.WriteString("Respond with a JSON object: {\"type\": string}.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n", query)
	return sb.String()
}

func typeLabels() []string {
	types := domain.KnownQueryTypes()
	labels := make([]string, len(types))
	for i, t := range types {
		labels[i] = string(t)
	}
	return labels
}

func snippet(payload any) string {
	text, _ := payload.(string)
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxSnippetRunes {
		return string(runes)
	}
	return string(runes[:maxSnippetRunes]) + "..."
}
