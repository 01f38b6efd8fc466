// Package service holds the question-resolution and document-ingestion
// pipelines that the HTTP handlers and CLI drive.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/pvel/askd/internal/ai"
	"github.com/pvel/askd/internal/evallog"
	"github.com/pvel/askd/internal/model"
	pkgerrors "github.com/pvel/askd/internal/pkg/errors"
	"github.com/pvel/askd/internal/semcache"
)

const errorAnswerText = "Sorry, something went wrong while answering your question. Please try again later."

const (
	defaultCacheThreshold = 0.95
	defaultRetrievalTopK  = 5
)

// Retriever serves top-k nearest documents for a query embedding.
// *repo.DocumentRepo satisfies it.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]model.RetrievedDocument, error)
}

type ResolverOptions struct {
	// Minimum cosine similarity for a cache hit, inclusive.
	Threshold float64
	// Number of documents retrieved on a cache miss.
	TopK int
}

// ResolverService answers questions: embed, probe the semantic cache,
// and on a miss retrieve context, generate, persist the new answer and
// log it for offline evaluation.
type ResolverService struct {
	manager   *ai.Manager
	cache     *semcache.Cache
	retriever Retriever
	evals     evallog.Sink
	opts      ResolverOptions
}

func NewResolverService(manager *ai.Manager, cache *semcache.Cache, retriever Retriever, evals evallog.Sink, opts ResolverOptions) *ResolverService {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = defaultCacheThreshold
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultRetrievalTopK
	}
	return &ResolverService{
		manager:   manager,
		cache:     cache,
		retriever: retriever,
		evals:     evals,
		opts:      opts,
	}
}

// Resolve answers one question. The returned error covers invalid
// input only; every downstream failure is folded into an error-tagged
// answer with a user-safe text, the details go to the log.
func (s *ResolverService) Resolve(ctx context.Context, query string) (*model.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", pkgerrors.ErrInvalid)
	}
	if max := s.manager.MaxInputChars(); max > 0 && len(query) > max {
		return nil, fmt.Errorf("%w: query exceeds %d chars", pkgerrors.ErrInputTooLong, max)
	}
	logger := logutil.GetLogger(ctx).With(zap.Int("query_len", len(query)))

	embedding, err := s.manager.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		logger.Error("embed query failed", zap.Error(err))
		return errorAnswer(), nil
	}

	match, hit, err := s.cache.Lookup(embedding, s.opts.Threshold)
	if err != nil {
		logger.Error("cache lookup failed", zap.Error(err))
		return errorAnswer(), nil
	}
	if hit {
		logger.Info("cache hit", zap.Float64("score", match.Score))
		return &model.Answer{Source: model.AnswerCached, Text: match.Response, Score: match.Score}, nil
	}
	logger.Info("cache miss")

	// Retrieval failure degrades to an uncontexted generation instead
	// of failing the whole resolve.
	docs, err := s.retriever.Search(ctx, embedding, s.opts.TopK)
	if err != nil {
		logger.Warn("retrieval failed, generating without context", zap.Error(err))
		docs = nil
	}

	answer, err := s.manager.Complete(ctx, buildPrompt(query, docs))
	if err != nil {
		logger.Error("generate answer failed", zap.Error(err))
		return errorAnswer(), nil
	}

	// Persist only after a successful generation.
	if err := s.cache.Insert(query, embedding, answer); err != nil {
		logger.Warn("cache insert failed", zap.Error(err))
	}
	if s.evals != nil {
		rec := model.EvaluationRecord{
			Question: query,
			Context:  buildEvalContext(docs),
			Answer:   answer,
		}
		if err := s.evals.Append(ctx, rec); err != nil {
			logger.Warn("evaluation log append failed", zap.Error(err))
		}
	}
	return &model.Answer{Source: model.AnswerGenerated, Text: answer}, nil
}

// CacheSize reports how many answers the semantic cache holds.
func (s *ResolverService) CacheSize() int {
	return s.cache.Len()
}

func errorAnswer() *model.Answer {
	return &model.Answer{Source: model.AnswerError, Text: errorAnswerText}
}
