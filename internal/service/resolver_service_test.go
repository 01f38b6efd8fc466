package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pvel/askd/internal/ai"
	"github.com/pvel/askd/internal/model"
	pkgerrors "github.com/pvel/askd/internal/pkg/errors"
	"github.com/pvel/askd/internal/semcache"
)

type fakeEmbedder struct {
	calls int
	fn    func(text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	return f.fn(text)
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeGenerator struct {
	calls   int
	prompts []string
	fn      func(prompt string) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.fn(prompt)
}

type fakeRetriever struct {
	calls int
	docs  []model.RetrievedDocument
	err   error
}

func (f *fakeRetriever) Search(ctx context.Context, embedding []float32, topK int) ([]model.RetrievedDocument, error) {
	f.calls++
	return f.docs, f.err
}

type memorySink struct {
	records []model.EvaluationRecord
}

func (m *memorySink) Append(ctx context.Context, rec model.EvaluationRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func constEmbedder(emb []float32) *fakeEmbedder {
	return &fakeEmbedder{fn: func(string) ([]float32, error) { return emb, nil }}
}

func constGenerator(answer string) *fakeGenerator {
	return &fakeGenerator{fn: func(string) (string, error) { return answer, nil }}
}

func newTestResolver(embedder ai.IEmbedder, generator ai.IGenerator, retriever Retriever, sink *memorySink) (*ResolverService, *semcache.Cache) {
	manager := ai.NewManager(generator, embedder, ai.ManagerConfig{})
	cache := semcache.New(nil)
	return NewResolverService(manager, cache, retriever, sink, ResolverOptions{Threshold: 0.95, TopK: 5}), cache
}

func TestResolveGeneratesThenServesFromCache(t *testing.T) {
	embedder := constEmbedder([]float32{1, 0, 0})
	generator := constGenerator("Paris is the capital of France.")
	retriever := &fakeRetriever{docs: []model.RetrievedDocument{
		{SourceID: "geo.md", Content: "France's capital is Paris.", Metadata: `{"chunk_index":0}`, Score: 0.9},
	}}
	sink := &memorySink{}
	resolver, cache := newTestResolver(embedder, generator, retriever, sink)

	first, err := resolver.Resolve(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, model.AnswerGenerated, first.Source)
	require.Equal(t, "Paris is the capital of France.", first.Text)
	require.Equal(t, 1, cache.Len())
	require.Len(t, sink.records, 1)
	require.Equal(t, "What is the capital of France?", sink.records[0].Question)
	require.Contains(t, sink.records[0].Context, "Source: geo.md, Content: France's capital is Paris.")
	require.Contains(t, sink.records[0].Context, ", Metadata: ")

	second, err := resolver.Resolve(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, model.AnswerCached, second.Source)
	require.Equal(t, first.Text, second.Text)
	require.InDelta(t, 1.0, second.Score, 1e-9)

	// The cached resolve must not retrieve, generate, persist or log.
	require.Equal(t, 1, retriever.calls)
	require.Equal(t, 1, generator.calls)
	require.Equal(t, 1, cache.Len())
	require.Len(t, sink.records, 1)
}

func TestResolveEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{fn: func(string) ([]float32, error) {
		return nil, fmt.Errorf("provider down: %w", ai.ErrUnavailable)
	}}
	generator := constGenerator("unused")
	retriever := &fakeRetriever{}
	sink := &memorySink{}
	resolver, cache := newTestResolver(embedder, generator, retriever, sink)

	answer, err := resolver.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, model.AnswerError, answer.Source)
	require.NotEmpty(t, answer.Text)
	require.NotContains(t, answer.Text, "provider down")

	require.Equal(t, 0, retriever.calls)
	require.Equal(t, 0, generator.calls)
	require.Equal(t, 0, cache.Len())
	require.Empty(t, sink.records)
}

func TestResolveEmptyEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{fn: func(string) ([]float32, error) { return []float32{}, nil }}
	resolver, cache := newTestResolver(embedder, constGenerator("unused"), &fakeRetriever{}, &memorySink{})

	answer, err := resolver.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, model.AnswerError, answer.Source)
	require.Equal(t, 0, cache.Len())
}

func TestResolveEmptyRetrievalStillGenerates(t *testing.T) {
	embedder := constEmbedder([]float32{0, 1})
	generator := constGenerator("I don't have enough context, but here is my best answer.")
	retriever := &fakeRetriever{docs: nil}
	sink := &memorySink{}
	resolver, cache := newTestResolver(embedder, generator, retriever, sink)

	answer, err := resolver.Resolve(context.Background(), "obscure question")
	require.NoError(t, err)
	require.Equal(t, model.AnswerGenerated, answer.Source)
	require.Equal(t, 1, cache.Len())
	require.Len(t, sink.records, 1)
	require.Empty(t, sink.records[0].Context)

	// The prompt still carries the question with an empty context block.
	require.Len(t, generator.prompts, 1)
	require.Contains(t, generator.prompts[0], "Context:\n\n")
	require.Contains(t, generator.prompts[0], "Question: obscure question")
}

func TestResolveRetrievalFailureDegrades(t *testing.T) {
	embedder := constEmbedder([]float32{0, 1})
	generator := constGenerator("answer without context")
	retriever := &fakeRetriever{err: fmt.Errorf("vector index offline")}
	sink := &memorySink{}
	resolver, cache := newTestResolver(embedder, generator, retriever, sink)

	answer, err := resolver.Resolve(context.Background(), "a question")
	require.NoError(t, err)
	require.Equal(t, model.AnswerGenerated, answer.Source)
	require.Equal(t, 1, generator.calls)
	require.Equal(t, 1, cache.Len())
	require.Len(t, sink.records, 1)
	require.Empty(t, sink.records[0].Context)
}

func TestResolveGenerationFailure(t *testing.T) {
	embedder := constEmbedder([]float32{0, 1})
	generator := &fakeGenerator{fn: func(string) (string, error) {
		return "", fmt.Errorf("model overloaded")
	}}
	retriever := &fakeRetriever{docs: []model.RetrievedDocument{{SourceID: "a.md", Content: "text"}}}
	sink := &memorySink{}
	resolver, cache := newTestResolver(embedder, generator, retriever, sink)

	answer, err := resolver.Resolve(context.Background(), "a question")
	require.NoError(t, err)
	require.Equal(t, model.AnswerError, answer.Source)
	require.NotContains(t, answer.Text, "overloaded")

	// A failed generation leaves no trace in the cache or eval log.
	require.Equal(t, 0, cache.Len())
	require.Empty(t, sink.records)
}

func TestResolveRejectsEmptyQuery(t *testing.T) {
	resolver, _ := newTestResolver(constEmbedder([]float32{1}), constGenerator("x"), &fakeRetriever{}, &memorySink{})

	_, err := resolver.Resolve(context.Background(), "   ")
	require.Error(t, err)
	require.True(t, pkgerrors.IsInvalid(err))
}

func TestResolveRejectsOversizedQuery(t *testing.T) {
	embedder := constEmbedder([]float32{1})
	manager := ai.NewManager(constGenerator("x"), embedder, ai.ManagerConfig{MaxInputChars: 8})
	resolver := NewResolverService(manager, semcache.New(nil), &fakeRetriever{}, &memorySink{}, ResolverOptions{})

	_, err := resolver.Resolve(context.Background(), "this question is far past eight chars")
	require.ErrorIs(t, err, pkgerrors.ErrInputTooLong)
	require.Equal(t, 0, embedder.calls)
}

func TestResolveSimilarQueryHitsCache(t *testing.T) {
	// Two distinct queries whose embeddings are nearly parallel.
	embeddings := map[string][]float32{
		"What is the capital of France?": {1, 0.001},
		"What's France's capital?":       {1, 0},
	}
	embedder := &fakeEmbedder{fn: func(text string) ([]float32, error) { return embeddings[text], nil }}
	generator := constGenerator("Paris.")
	retriever := &fakeRetriever{}
	resolver, _ := newTestResolver(embedder, generator, retriever, &memorySink{})

	first, err := resolver.Resolve(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, model.AnswerGenerated, first.Source)

	second, err := resolver.Resolve(context.Background(), "What's France's capital?")
	require.NoError(t, err)
	require.Equal(t, model.AnswerCached, second.Source)
	require.Equal(t, "Paris.", second.Text)
	require.GreaterOrEqual(t, second.Score, 0.95)
	require.Equal(t, 1, generator.calls)
}
