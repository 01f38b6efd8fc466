// Package evallog appends resolution records to a newline-delimited
// JSON file for offline answer-quality evaluation. The log is
// write-only from the service's point of view.
package evallog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pvel/askd/internal/model"
)

type Sink interface {
	Append(ctx context.Context, rec model.EvaluationRecord) error
}

type JSONLSink struct {
	mu   sync.Mutex
	path string
}

func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

func (s *JSONLSink) Append(ctx context.Context, rec model.EvaluationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode evaluation record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create eval log dir: %w", err)
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open eval log: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append eval log: %w", err)
	}
	return nil
}
