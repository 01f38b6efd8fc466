// Package ingest splits source documents into index-ready chunks.
package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	defaultTokenBudget  = 400
	defaultOverlapLimit = 80
)

// Chunk is one index-ready piece of a source document.
type Chunk struct {
	Content  string
	Position int
}

// Chunker splits markdown (or plain text, which parses as paragraphs)
// into chunks along block boundaries. Each chunk carries its nearest
// heading for context, stays under a token budget, and overlaps the
// tail of the previous chunk so answers spanning a boundary remain
// retrievable.
type Chunker struct {
	budget  int
	overlap int
}

func NewChunker(budget, overlap int) *Chunker {
	if budget <= 0 {
		budget = defaultTokenBudget
	}
	if overlap < 0 || overlap >= budget {
		overlap = defaultOverlapLimit
	}
	return &Chunker{budget: budget, overlap: overlap}
}

func (c *Chunker) Chunk(markdown string) []Chunk {
	source := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var chunks []Chunk
	var parts []string
	var partTokens int
	var heading string
	position := 0

	flush := func() {
		if len(parts) == 0 {
			return
		}
		content := strings.Join(parts, "\n\n")
		if heading != "" {
			content = "Heading: " + heading + "\n" + content
		}
		chunks = append(chunks, Chunk{Content: content, Position: position})
		position++

		// Carry a tail of the flushed parts into the next chunk.
		overlapTokens := 0
		var overlapParts []string
		for i := len(parts) - 1; i >= 0; i-- {
			t := estimateTokens(parts[i])
			if overlapTokens+t > c.overlap {
				break
			}
			overlapTokens += t
			overlapParts = append([]string{parts[i]}, overlapParts...)
		}
		if len(overlapParts) == len(parts) {
			// Refuse to re-emit the whole chunk as overlap.
			overlapParts = nil
			overlapTokens = 0
		}
		parts = overlapParts
		partTokens = overlapTokens
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, isHeading := node.(*ast.Heading); isHeading {
			flush()
			parts = nil
			partTokens = 0
			heading = string(h.Text(source))
			continue
		}
		body := blockText(node, source)
		if body == "" {
			continue
		}
		tokens := estimateTokens(body)
		if partTokens+tokens > c.budget {
			flush()
		}
		parts = append(parts, body)
		partTokens += tokens
	}
	flush()
	return chunks
}

// blockText extracts the raw source text of a block node, recursing
// into containers (lists, quotes) that have no lines of their own.
func blockText(node ast.Node, source []byte) string {
	if node.Type() == ast.TypeBlock && node.Lines().Len() > 0 {
		var sb strings.Builder
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		return strings.TrimSpace(sb.String())
	}
	var collected []string
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if body := blockText(child, source); body != "" {
			collected = append(collected, body)
		}
	}
	return strings.Join(collected, "\n")
}

// Rough heuristic, ~4 chars per token for english-ish text.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
