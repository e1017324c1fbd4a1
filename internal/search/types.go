// Package search is the boundary to the document search engine: query
// classification, lexical and vector request bodies, the HTTP client, and
// weighted reciprocal-rank fusion of the two retrieval legs.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CodeBlock is a fenced code snippet attached to an indexed chunk.
type CodeBlock struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Context  string `json:"context"`
}

// Document is one retrieved chunk of the documentation corpus. Content holds
// the chunk's full text including code; the embedding never leaves the engine.
type Document struct {
	ID           string      `json:"chunk_id"`
	Heading      string      `json:"heading"`
	Text         string      `json:"text"`
	Content      string      `json:"full_text"`
	EnrichedText string      `json:"enriched_text"`
	PageTitle    string      `json:"page_title"`
	PageType     string      `json:"page_type"`
	SourceURL    string      `json:"source_url"`
	Breadcrumbs  []string    `json:"breadcrumbs"`
	HasCode      bool        `json:"has_code"`
	CodeBlocks   []CodeBlock `json:"code_blocks"`
	WordCount    int         `json:"word_count"`

	// Score is the fused retrieval score, not an index field.
	Score float64 `json:"-"`
}

// ChunkID derives the deterministic identifier for a chunk.
func ChunkID(sourceURL, heading string, wordCount int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", sourceURL, heading, wordCount)))
	return hex.EncodeToString(h[:])
}
