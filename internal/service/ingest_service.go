package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/pvel/askd/internal/ai"
	"github.com/pvel/askd/internal/ingest"
	"github.com/pvel/askd/internal/model"
	pkgerrors "github.com/pvel/askd/internal/pkg/errors"
)

// DocumentStore is the slice of the document repository ingestion
// needs. *repo.DocumentRepo satisfies it.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *model.Document) error
	DeleteBySource(ctx context.Context, sourceID string) (int64, error)
}

type IngestResult struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
	Removed  int64  `json:"removed"`
}

// IngestService chunks a source document, embeds each chunk and
// replaces the source's previous chunks in the retrieval store.
type IngestService struct {
	manager *ai.Manager
	store   DocumentStore
	chunker *ingest.Chunker
	dims    int
}

func NewIngestService(manager *ai.Manager, store DocumentStore, chunker *ingest.Chunker, dims int) *IngestService {
	return &IngestService{
		manager: manager,
		store:   store,
		chunker: chunker,
		dims:    dims,
	}
}

func (s *IngestService) IngestText(ctx context.Context, sourceID string, content string) (*IngestResult, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, fmt.Errorf("%w: empty source id", pkgerrors.ErrInvalid)
	}
	chunks := s.chunker.Chunk(content)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document has no indexable content", pkgerrors.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("source_id", sourceID))

	// Embed everything up front so a provider failure cannot leave the
	// source half-replaced.
	embeddings := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		emb, err := s.manager.Embed(ctx, chunk.Content, ai.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		if s.dims > 0 && len(emb) != s.dims {
			return nil, fmt.Errorf("embed chunk %d: got %d dimensions, index expects %d", i, len(emb), s.dims)
		}
		embeddings[i] = emb
	}

	removed, err := s.store.DeleteBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("remove stale chunks: %w", err)
	}
	now := time.Now().UnixMilli()
	for i, chunk := range chunks {
		metadata, err := json.Marshal(map[string]interface{}{
			"original_file": sourceID,
			"chunk_index":   chunk.Position,
			"text_length":   len(chunk.Content),
		})
		if err != nil {
			return nil, fmt.Errorf("encode chunk metadata: %w", err)
		}
		doc := &model.Document{
			ID:        fmt.Sprintf("%s_chunk_%d", sourceID, chunk.Position),
			SourceID:  sourceID,
			Content:   chunk.Content,
			Metadata:  string(metadata),
			Embedding: embeddings[i],
			Mtime:     now,
		}
		if err := s.store.Upsert(ctx, doc); err != nil {
			return nil, fmt.Errorf("store chunk %d: %w", i, err)
		}
	}
	logger.Info("source ingested", zap.Int("chunks", len(chunks)), zap.Int64("removed", removed))
	return &IngestResult{SourceID: sourceID, Chunks: len(chunks), Removed: removed}, nil
}
