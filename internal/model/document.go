package model

// Document is one indexed chunk in the retrieval store.
type Document struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Content   string    `json:"content"`
	Metadata  string    `json:"metadata"`
	Embedding []float32 `json:"-"`
	Mtime     int64     `json:"mtime"`
}

// RetrievedDocument is a search result consumed to build a prompt.
// It is not retained after the resolve that produced it.
type RetrievedDocument struct {
	SourceID string  `json:"source_id"`
	Content  string  `json:"content"`
	Metadata string  `json:"metadata"`
	Score    float64 `json:"score"`
}
