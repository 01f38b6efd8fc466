package service

import (
	"fmt"
	"strings"

	"github.com/pvel/askd/internal/model"
)

const answerPromptTemplate = "Based on the following information, please answer the question.\n\nContext:\n%s\n\nQuestion: %s"

func formatDocument(doc model.RetrievedDocument) string {
	line := fmt.Sprintf("Source: %s, Content: %s", doc.SourceID, doc.Content)
	if doc.Metadata != "" {
		line += fmt.Sprintf(", Metadata: %s", doc.Metadata)
	}
	return line
}

func formatDocuments(docs []model.RetrievedDocument) []string {
	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		lines = append(lines, formatDocument(doc))
	}
	return lines
}

// buildPrompt renders the grounding prompt. With no documents the
// context block is empty and the generator answers from its own
// knowledge.
func buildPrompt(question string, docs []model.RetrievedDocument) string {
	return fmt.Sprintf(answerPromptTemplate, strings.Join(formatDocuments(docs), "\n"), question)
}

// buildEvalContext renders the retrieved context the way the offline
// evaluation tooling expects it, one document per block.
func buildEvalContext(docs []model.RetrievedDocument) string {
	return strings.Join(formatDocuments(docs), "\n---\n")
}
