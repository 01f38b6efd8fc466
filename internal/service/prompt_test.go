package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pvel/askd/internal/model"
)

func TestBuildPrompt(t *testing.T) {
	docs := []model.RetrievedDocument{
		{SourceID: "a.md", Content: "alpha"},
		{SourceID: "b.md", Content: "beta", Metadata: `{"chunk_index":1}`},
	}
	got := buildPrompt("what is beta?", docs)
	want := "Based on the following information, please answer the question.\n\n" +
		"Context:\n" +
		"Source: a.md, Content: alpha\n" +
		"Source: b.md, Content: beta, Metadata: {\"chunk_index\":1}\n\n" +
		"Question: what is beta?"
	require.Equal(t, want, got)
}

func TestBuildPromptNoDocuments(t *testing.T) {
	got := buildPrompt("anything?", nil)
	require.Equal(t, "Based on the following information, please answer the question.\n\nContext:\n\n\nQuestion: anything?", got)
}

func TestBuildEvalContext(t *testing.T) {
	docs := []model.RetrievedDocument{
		{SourceID: "a.md", Content: "alpha"},
		{SourceID: "b.md", Content: "beta"},
	}
	require.Equal(t, "Source: a.md, Content: alpha\n---\nSource: b.md, Content: beta", buildEvalContext(docs))
	require.Equal(t, "", buildEvalContext(nil))
}
