// Package semcache implements the semantic answer cache: an
// append-only, in-process store of (query, embedding, response)
// records with nearest-neighbor lookup by cosine similarity.
package semcache

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidEmbedding means a caller passed an empty embedding.
// Callers must embed successfully before touching the cache.
var ErrInvalidEmbedding = errors.New("invalid embedding")

// Record is one cached resolution. Immutable once inserted.
type Record struct {
	Query     string
	Embedding []float32
	Response  string
	CreatedAt time.Time
}

// Match is a successful lookup.
type Match struct {
	Query    string
	Response string
	Score    float64
}

// Cache holds the records behind a mutex scoped tightly around the two
// operations. Lookup is a linear scan; cache sizes stay small relative
// to the document corpus, and the scan keeps the hit/tie-break
// contract trivially deterministic.
type Cache struct {
	mu      sync.RWMutex
	records []Record
	dim     int
	policy  Policy
	now     func() time.Time
}

func New(policy Policy) *Cache {
	return &Cache{
		policy: policy,
		now:    time.Now,
	}
}

// Lookup returns the response of the highest-scoring record whose
// similarity to embedding is at least threshold (inclusive). When
// several records share the maximum score, the earliest inserted one
// wins. A miss is (zero Match, false, nil), not an error.
func (c *Cache) Lookup(embedding []float32, threshold float64) (Match, bool, error) {
	if len(embedding) == 0 {
		return Match{}, false, ErrInvalidEmbedding
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	bestIdx := -1
	bestScore := 0.0
	for i := range c.records {
		score, err := Cosine(embedding, c.records[i].Embedding)
		if err != nil {
			return Match{}, false, err
		}
		// Strict > keeps the earliest record on equal scores.
		if bestIdx == -1 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	if bestIdx == -1 || bestScore < threshold {
		return Match{}, false, nil
	}
	rec := c.records[bestIdx]
	return Match{Query: rec.Query, Response: rec.Response, Score: bestScore}, true, nil
}

// Insert appends a new record. It never overwrites or dedupes:
// near-identical queries accumulate and only affect growth and
// tie-breaks. The first insert fixes the cache dimensionality.
func (c *Cache) Insert(query string, embedding []float32, response string) error {
	if len(embedding) == 0 {
		return ErrInvalidEmbedding
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dim != 0 && c.dim != len(embedding) {
		return ErrDimensionMismatch
	}
	emb := make([]float32, len(embedding))
	copy(emb, embedding)
	c.records = append(c.records, Record{
		Query:     query,
		Embedding: emb,
		Response:  response,
		CreatedAt: c.now(),
	})
	c.dim = len(embedding)
	if c.policy != nil {
		c.records = c.policy.Prune(c.now(), c.records)
		if len(c.records) == 0 {
			c.dim = 0
		}
	}
	return nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
