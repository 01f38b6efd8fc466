package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	resp string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f.resp, f.err
}

type fakeEmbedder struct {
	emb []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return f.emb, f.err
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

func TestManagerEmbedRejectsEmpty(t *testing.T) {
	m := NewManager(nil, &fakeEmbedder{emb: nil}, ManagerConfig{})
	_, err := m.Embed(context.Background(), "hello", TaskRetrievalQuery)
	require.Error(t, err)
}

func TestManagerEmbedPassesThrough(t *testing.T) {
	m := NewManager(nil, &fakeEmbedder{emb: []float32{1, 2, 3}}, ManagerConfig{})
	emb, err := m.Embed(context.Background(), "hello", TaskRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, emb)
}

func TestManagerCompleteRejectsBlank(t *testing.T) {
	m := NewManager(&fakeGenerator{resp: "   \n"}, nil, ManagerConfig{})
	_, err := m.Complete(context.Background(), "prompt")
	require.Error(t, err)
}

func TestManagerCompleteTrims(t *testing.T) {
	m := NewManager(&fakeGenerator{resp: "  an answer\n"}, nil, ManagerConfig{})
	got, err := m.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "an answer", got)
}

func TestManagerPropagatesProviderError(t *testing.T) {
	m := NewManager(&fakeGenerator{err: ErrUnavailable}, &fakeEmbedder{err: ErrUnavailable}, ManagerConfig{})
	_, err := m.Complete(context.Background(), "prompt")
	require.True(t, errors.Is(err, ErrUnavailable))
	_, err = m.Embed(context.Background(), "text", TaskRetrievalQuery)
	require.True(t, errors.Is(err, ErrUnavailable))
}

type slowEmbedder struct{}

func (slowEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return []float32{1}, nil
	}
}

func (slowEmbedder) ModelName() string { return "slow" }

func TestManagerEmbedTimeout(t *testing.T) {
	m := NewManager(nil, slowEmbedder{}, ManagerConfig{Timeout: 1})
	start := time.Now()
	_, err := m.Embed(context.Background(), "text", TaskRetrievalQuery)
	require.Error(t, err)
	require.Less(t, time.Since(start), 3*time.Second)
}
