// Package job holds the background jobs wired into the scheduler.
package job

import (
	"context"
	"time"

	"github.com/pvel/askd/internal/repo"
)

// EmbeddingCacheCleanupJob drops persisted embeddings older than the
// configured TTL so the table does not grow unbounded.
type EmbeddingCacheCleanupJob struct {
	repo        *repo.EmbeddingCacheRepo
	maxAgeHours int
}

func NewEmbeddingCacheCleanupJob(repo *repo.EmbeddingCacheRepo, maxAgeHours int) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{repo: repo, maxAgeHours: maxAgeHours}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	maxAgeHours := j.maxAgeHours
	if maxAgeHours <= 0 {
		maxAgeHours = 30 * 24
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour).Unix()
	_, err := j.repo.DeleteBefore(ctx, cutoff)
	return err
}
