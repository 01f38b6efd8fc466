package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/pvel/askd/internal/model"
	"github.com/pvel/askd/internal/pkg/dbutil"
)

// DocumentRepo stores indexed chunks and serves top-k cosine retrieval
// over the pgvector column.
type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Upsert(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (id, source_id, content, metadata, embedding, mtime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.SourceID,
		doc.Content,
		doc.Metadata,
		pgvector.NewVector(doc.Embedding),
		doc.Mtime,
	)
	return err
}

// Search returns the topK nearest documents by cosine distance,
// nearest first. Score is 1 - distance, so higher is closer.
func (r *DocumentRepo) Search(ctx context.Context, embedding []float32, topK int) ([]model.RetrievedDocument, error) {
	const query = `
		SELECT source_id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM documents
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.RetrievedDocument
	for rows.Next() {
		var doc model.RetrievedDocument
		if err := rows.Scan(&doc.SourceID, &doc.Content, &doc.Metadata, &doc.Score); err != nil {
			return nil, err
		}
		results = append(results, doc)
	}
	return results, rows.Err()
}

func (r *DocumentRepo) List(ctx context.Context, offset, limit int) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "mtime desc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{"id", "source_id", "metadata", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.SourceID, &doc.Metadata, &doc.Mtime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteBySource removes all chunks of one source before a re-ingest.
func (r *DocumentRepo) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	where := map[string]interface{}{
		"source_id": sourceID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
